package planner

// StrategyKind identifies how a Strategy locates or manipulates the page.
type StrategyKind string

const (
	// KindSelector clicks the first visible node matching a CSS selector.
	KindSelector StrategyKind = "selector"
	// KindText clicks the first visible element containing the given text.
	KindText StrategyKind = "text"
	// KindJS evaluates a JavaScript expression against the page.
	KindJS StrategyKind = "js"
)

// Strategy is one way of accomplishing a page interaction. Callers supply an
// ordered chain; the first strategy that succeeds wins. Markup shifts between
// page variants, so chains typically start with the most specific selector and
// end with a text match.
type Strategy struct {
	Kind  StrategyKind
	Value string
}

// Selector builds a CSS selector strategy.
func Selector(css string) Strategy {
	return Strategy{Kind: KindSelector, Value: css}
}

// Text builds a visible-text strategy.
func Text(label string) Strategy {
	return Strategy{Kind: KindText, Value: label}
}

// JS builds a JavaScript evaluation strategy.
func JS(expression string) Strategy {
	return Strategy{Kind: KindJS, Value: expression}
}
