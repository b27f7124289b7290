package harvest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/reaction-reach/internal/types"
)

// Reactor list entry containers inside the reactions modal, most specific
// first.
var reactorItemSelectors = []string{
	"li.social-details-reactors-tab-body-list-item",
	"div.social-details-reactors-tab-body li.artdeco-list__item",
	"li.artdeco-list__item",
}

// parseReactorsHTML extracts reactor entries from the rendered reactions
// modal. Returns nil when no recognizable entry is present.
func parseReactorsHTML(html string) []types.ReactorFragment {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var fragments []types.ReactorFragment
	for _, selector := range reactorItemSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			if f, ok := parseReactorNode(sel); ok {
				fragments = append(fragments, f)
			}
		})
		if len(fragments) > 0 {
			break
		}
	}
	return fragments
}

func parseReactorNode(sel *goquery.Selection) (types.ReactorFragment, bool) {
	var f types.ReactorFragment

	f.Name = firstLine(sel.Find("span.artdeco-entity-lockup__title").First().Text())
	if f.Name == "" {
		f.Name = firstLine(sel.Find(`span[aria-hidden="true"]`).First().Text())
	}
	if f.Name == "" {
		return f, false
	}

	sel.Find(`a[href*="/in/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if href, ok := a.Attr("href"); ok {
			f.ProfileURL = absoluteURL(href)
			return false
		}
		return true
	})

	f.TitleLine = firstLine(sel.Find("span.artdeco-entity-lockup__caption").First().Text())
	if f.TitleLine == "" {
		f.TitleLine = firstLine(sel.Find("span.artdeco-entity-lockup__subtitle").First().Text())
	}

	f.ReactionKind = reactionKind(sel)

	return f, true
}

// reactionKind reads the reaction icon's type attribute or alt text.
func reactionKind(sel *goquery.Selection) string {
	if kind, ok := sel.Find("[data-test-reactions-icon-type]").First().Attr("data-test-reactions-icon-type"); ok {
		return strings.ToLower(strings.TrimSpace(kind))
	}
	if alt, ok := sel.Find("img[alt]").First().Attr("alt"); ok {
		alt = strings.ToLower(strings.TrimSpace(alt))
		for _, kind := range []string{"like", "celebrate", "support", "love", "insightful", "funny"} {
			if strings.Contains(alt, kind) {
				return kind
			}
		}
	}
	return ""
}

func absoluteURL(href string) string {
	if strings.HasPrefix(href, "/") {
		return "https://www.linkedin.com" + href
	}
	return href
}

// firstLine trims the text to its first non-empty line. Lockup titles often
// repeat the name on a second line for screen readers.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
