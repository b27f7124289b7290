package discovery

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/reaction-reach/internal/stealth"
	"github.com/jonathan/reaction-reach/internal/types"
)

// feedSub serves a sequence of feed snapshots: each scroll advances to the
// next snapshot, and Content returns the current one.
type feedSub struct {
	snapshots []string
	index     int
	scrolls   int
}

func (f *feedSub) Navigate(ctx context.Context, url string) error { return nil }
func (f *feedSub) Location(ctx context.Context) (string, error)   { return "", nil }
func (f *feedSub) Title(ctx context.Context) (string, error)      { return "", nil }

func (f *feedSub) Content(ctx context.Context) (string, error) {
	if f.index >= len(f.snapshots) {
		return f.snapshots[len(f.snapshots)-1], nil
	}
	return f.snapshots[f.index], nil
}

func (f *feedSub) Screenshot(ctx context.Context) ([]byte, error)   { return nil, nil }
func (f *feedSub) Click(ctx context.Context, selector string) error { return nil }
func (f *feedSub) ClickText(ctx context.Context, text string) error { return nil }

func (f *feedSub) ScrollBy(ctx context.Context, pixels int) error {
	f.scrolls++
	if f.index < len(f.snapshots)-1 {
		f.index++
	}
	return nil
}

func (f *feedSub) Evaluate(ctx context.Context, expr string) (string, error) { return "", nil }
func (f *feedSub) Close() error                                              { return nil }

func fastScheduler() *stealth.Scheduler {
	return stealth.NewScheduler(stealth.Config{
		MinDelay:         time.Nanosecond,
		MaxDelay:         2 * time.Nanosecond,
		ActionsPerMinute: 100000,
		CooldownMin:      time.Nanosecond,
		CooldownMax:      2 * time.Nanosecond,
	})
}

// postItem renders one feed item the DOM parser recognizes.
func postItem(n int, age string, reactions int) string {
	return fmt.Sprintf(`
		<div data-finite-scroll-hotkey-item data-urn="urn:li:activity:%d">
			<a href="/feed/update/urn:li:activity:%d/">permalink</a>
			<span class="update-components-actor__sub-description">%s • Visible to anyone</span>
			<div class="update-components-text">post number %d</div>
			<span class="social-details-social-counts__reactions-count">%d</span>
		</div>`, n, n, age, n, reactions)
}

func feedPage(items ...string) string {
	page := "<html><main>"
	for _, it := range items {
		page += it
	}
	return page + "</main></html>"
}

// testClock pins the discoverer's clock so relative timestamps resolve
// identically across walks.
var testClock = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

func newTestDiscoverer(sub *feedSub, days int) *Discoverer {
	window := types.LastDays(days, testClock)
	d := New(sub, fastScheduler(), nil, window, Options{})
	d.now = func() time.Time { return testClock }
	return d
}

func drain(t *testing.T, d *Discoverer) []types.Post {
	t.Helper()
	var posts []types.Post
	for {
		post, err := d.Next(context.Background())
		if err != nil {
			require.ErrorIs(t, err, ErrExhausted)
			return posts
		}
		posts = append(posts, *post)
	}
}

func TestNext_YieldsOnlyInWindowPosts(t *testing.T) {
	// Three in-window posts, then two past the window boundary. A later
	// batch with only out-of-window posts must terminate the walk.
	sub := &feedSub{snapshots: []string{
		feedPage(postItem(1, "2d", 12), postItem(2, "5d", 3), postItem(3, "1w", 40)),
		feedPage(
			postItem(1, "2d", 12), postItem(2, "5d", 3), postItem(3, "1w", 40),
			postItem(4, "5w", 7), postItem(5, "2mo", 9),
		),
	}}
	d := newTestDiscoverer(sub, 30)

	posts := drain(t, d)
	require.Len(t, posts, 3)
	assert.Equal(t, "urn:li:activity:1", posts[0].ID)
	assert.Equal(t, "urn:li:activity:3", posts[2].ID)
	assert.False(t, d.Stalled())
}

func TestNext_PostFieldsParsed(t *testing.T) {
	sub := &feedSub{snapshots: []string{
		feedPage(postItem(1, "2d", 447), postItem(2, "8d", 0)),
	}}
	d := newTestDiscoverer(sub, 7)

	post, err := d.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "urn:li:activity:1", post.ID)
	assert.Equal(t, "https://www.linkedin.com/feed/update/urn:li:activity:1/", post.URL)
	assert.Equal(t, 447, post.ReactionCountDeclared)
	assert.Equal(t, "post number 1", post.ContentPreview)
	assert.True(t, post.PublishedAt.Equal(testClock.Add(-48*time.Hour)))
}

func TestNext_StallTerminatesWalk(t *testing.T) {
	// The feed never grows past the first snapshot: after the in-window
	// posts drain, every scroll yields no new items.
	sub := &feedSub{snapshots: []string{
		feedPage(postItem(1, "1d", 5), postItem(2, "3d", 2)),
	}}
	d := newTestDiscoverer(sub, 30)

	posts := drain(t, d)
	assert.Len(t, posts, 2)
	assert.True(t, d.Stalled())
	// Two in-window posts need one read; the stall limit adds that many
	// further scrolls before giving up.
	assert.Equal(t, DefaultMaxStallAttempts, sub.scrolls)
}

func TestNext_ExhaustedIsSticky(t *testing.T) {
	sub := &feedSub{snapshots: []string{feedPage()}}
	d := newTestDiscoverer(sub, 30)

	_, err := d.Next(context.Background())
	require.ErrorIs(t, err, ErrExhausted)
	_, err = d.Next(context.Background())
	require.ErrorIs(t, err, ErrExhausted)
}

func TestNext_DeduplicatesAcrossBatches(t *testing.T) {
	// The second snapshot re-renders post 1 alongside the new post 2.
	sub := &feedSub{snapshots: []string{
		feedPage(postItem(1, "1d", 5)),
		feedPage(postItem(1, "1d", 5), postItem(2, "2d", 8)),
		feedPage(postItem(1, "1d", 5), postItem(2, "2d", 8), postItem(3, "9w", 1)),
	}}
	d := newTestDiscoverer(sub, 30)

	posts := drain(t, d)
	require.Len(t, posts, 2)
	assert.Equal(t, "urn:li:activity:1", posts[0].ID)
	assert.Equal(t, "urn:li:activity:2", posts[1].ID)
}

func TestReset_AllowsRewalk(t *testing.T) {
	sub := &feedSub{snapshots: []string{
		feedPage(postItem(1, "1d", 5)),
		feedPage(postItem(1, "1d", 5), postItem(2, "6w", 2)),
	}}
	d := newTestDiscoverer(sub, 30)

	first := drain(t, d)
	require.Len(t, first, 1)

	sub.index = 0
	d.Reset()

	second := drain(t, d)
	assert.Equal(t, first, second)
	assert.False(t, d.Stalled())
}

func TestNext_ContextCancellation(t *testing.T) {
	sub := &feedSub{snapshots: []string{feedPage(postItem(1, "1d", 5))}}
	d := newTestDiscoverer(sub, 30)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Next(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParsePublished(t *testing.T) {
	now := time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		input string
		want  time.Time
		ok    bool
	}{
		{"3d", now.Add(-3 * 24 * time.Hour), true},
		{"2w", now.Add(-14 * 24 * time.Hour), true},
		{"5h", now.Add(-5 * time.Hour), true},
		{"30m", now.Add(-30 * time.Minute), true},
		{"1mo", now.Add(-30 * 24 * time.Hour), true},
		{"1yr", now.Add(-365 * 24 * time.Hour), true},
		{"2026-08-20", time.Date(2026, 8, 20, 0, 0, 0, 0, time.UTC), true},
		{"2026-08-20T09:30:00Z", time.Date(2026, 8, 20, 9, 30, 0, 0, time.UTC), true},
		{"Visible to anyone", time.Time{}, false},
		{"", time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parsePublished(tt.input, now)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
			}
		})
	}
}

func TestParseCount(t *testing.T) {
	assert.Equal(t, 447, parseCount("447"))
	assert.Equal(t, 1234, parseCount(" 1,234 "))
	assert.Equal(t, 0, parseCount("0"))
	// A missing or unparseable count is not a zero-reaction post.
	assert.Equal(t, -1, parseCount(""))
	assert.Equal(t, -1, parseCount("and 12 others"))
}

func TestNext_MissingCountMarkedUnknown(t *testing.T) {
	// Feed item with no reaction count element at all.
	item := `
		<div data-finite-scroll-hotkey-item data-urn="urn:li:activity:9">
			<a href="/feed/update/urn:li:activity:9/">permalink</a>
			<span class="update-components-actor__sub-description">1d • Visible to anyone</span>
			<div class="update-components-text">countless</div>
		</div>`
	sub := &feedSub{snapshots: []string{feedPage(item)}}
	d := newTestDiscoverer(sub, 30)

	post, err := d.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, -1, post.ReactionCountDeclared)
}
