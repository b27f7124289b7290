package discovery

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// rawPost mirrors the extraction payload shape shared with the LLM path.
// ReactionCount is a pointer so that a payload omitting the count is kept
// distinct from an explicit zero.
type rawPost struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	Published     string `json:"published"`
	Preview       string `json:"preview"`
	ReactionCount *int   `json:"reaction_count"`
}

// declaredCount maps a raw count onto Post.ReactionCountDeclared, where -1
// means no count was captured.
func declaredCount(n *int) int {
	if n == nil {
		return -1
	}
	return *n
}

// Feed item containers, most specific first. The markup shifts between page
// variants so every selector is a fallback for the one before it.
var postContainerSelectors = []string{
	"div[data-finite-scroll-hotkey-item]",
	"li.profile-creator-shared-feed-update__container",
	"div.feed-shared-update-v2",
	"li[data-urn]",
}

var urnPattern = regexp.MustCompile(`urn:li:activity:\d+`)

// parsePostsHTML extracts feed posts from rendered activity feed markup.
// Returns nil when no recognizable post container is present.
func parsePostsHTML(html string) []rawPost {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var posts []rawPost
	for _, selector := range postContainerSelectors {
		doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
			if p, ok := parsePostNode(sel); ok {
				posts = append(posts, p)
			}
		})
		if len(posts) > 0 {
			break
		}
	}
	return posts
}

func parsePostNode(sel *goquery.Selection) (rawPost, bool) {
	var p rawPost

	if urn, ok := sel.Attr("data-urn"); ok {
		p.ID = urn
	} else if urn, ok := sel.Find("[data-urn]").First().Attr("data-urn"); ok {
		p.ID = urn
	}

	sel.Find(`a[href*="/feed/update/"]`).EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if href, ok := a.Attr("href"); ok {
			p.URL = absoluteURL(href)
			if p.ID == "" {
				p.ID = urnPattern.FindString(href)
			}
			return false
		}
		return true
	})

	if p.ID == "" {
		return p, false
	}
	if p.URL == "" {
		p.URL = "https://www.linkedin.com/feed/update/" + p.ID + "/"
	}

	// Publication time: semantic <time> first, then the actor sub-description.
	if t := sel.Find("time").First(); t.Length() > 0 {
		if dt, ok := t.Attr("datetime"); ok {
			p.Published = dt
		} else {
			p.Published = strings.TrimSpace(t.Text())
		}
	}
	if p.Published == "" {
		sub := sel.Find("span.update-components-actor__sub-description").First().Text()
		p.Published = firstToken(sub)
	}

	text := strings.TrimSpace(sel.Find("div.update-components-text, span.break-words").First().Text())
	p.Preview = truncate(text, 200)

	countText := sel.Find("span.social-details-social-counts__reactions-count").First().Text()
	if countText == "" {
		countText = sel.Find(`button[aria-label*="reaction"] span`).First().Text()
	}
	if n := parseCount(countText); n >= 0 {
		p.ReactionCount = &n
	}

	return p, true
}

func absoluteURL(href string) string {
	if strings.HasPrefix(href, "/") {
		return "https://www.linkedin.com" + href
	}
	return href
}

// firstToken returns the leading token of a sub-description like
// "3d • Edited • Visible to anyone".
func firstToken(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexAny(s, "•·"); idx >= 0 {
		s = s[:idx]
	}
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

// parseCount parses a social count like "447" or "1,234". Missing or
// unparseable text yields -1: an absent count must not look like a post
// that genuinely shows zero reactions.
func parseCount(s string) int {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return -1
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

var relativePattern = regexp.MustCompile(`^(\d+)\s*(mo|min|m|hr|h|d|w|yr|y|s)`)

// parsePublished turns a feed timestamp into an absolute time. Feed items
// carry either machine datetimes or coarse relative ages ("3d", "2w"); the
// relative forms resolve against now, so derived times are approximate by up
// to one unit.
func parsePublished(s string, now time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}

	m := relativePattern.FindStringSubmatch(strings.ToLower(s))
	if m == nil {
		return time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return time.Time{}, false
	}

	var unit time.Duration
	switch m[2] {
	case "s":
		unit = time.Second
	case "m", "min":
		unit = time.Minute
	case "h", "hr":
		unit = time.Hour
	case "d":
		unit = 24 * time.Hour
	case "w":
		unit = 7 * 24 * time.Hour
	case "mo":
		unit = 30 * 24 * time.Hour
	case "y", "yr":
		unit = 365 * 24 * time.Hour
	default:
		return time.Time{}, false
	}
	return now.Add(-time.Duration(n) * unit), true
}
