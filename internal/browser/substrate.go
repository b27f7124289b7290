// Package browser provides the browsing substrate abstraction and its
// headless-Chrome implementation. The pipeline treats the substrate as an
// opaque capability: a page can be navigated, inspected, and interacted with,
// and a browsing identity can be restored from a stored context id.
package browser

import "context"

// Substrate is the minimal browser-control surface the pipeline depends on.
// Implementations must be safe for sequential use only; a single browsing
// context cannot be driven concurrently.
type Substrate interface {
	// Navigate loads the given URL and waits for the document to be ready.
	Navigate(ctx context.Context, url string) error
	// Location returns the current page URL after any redirects.
	Location(ctx context.Context) (string, error)
	// Title returns the current document title.
	Title(ctx context.Context) (string, error)
	// Content returns the current rendered HTML.
	Content(ctx context.Context) (string, error)
	// Screenshot captures the current viewport as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
	// Click clicks the first visible node matching the CSS selector.
	Click(ctx context.Context, selector string) error
	// ClickText clicks the first visible element containing the given text.
	ClickText(ctx context.Context, text string) error
	// ScrollBy scrolls the window vertically by the given pixel delta.
	ScrollBy(ctx context.Context, pixels int) error
	// Evaluate runs a JavaScript expression and returns its string result.
	Evaluate(ctx context.Context, expression string) (string, error)
	// Close releases the browsing context. Session state persisted through
	// the user data directory survives Close.
	Close() error
}
