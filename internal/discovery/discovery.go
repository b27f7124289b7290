// Package discovery walks a profile's activity feed and yields posts inside
// the requested time window, one at a time. The feed is an infinite scroll,
// so the walk is lazy: each pull scrolls just far enough to keep the queue
// fed, and terminates once the feed scrolls past the window or stops
// producing new items.
package discovery

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/jonathan/reaction-reach/internal/browser"
	"github.com/jonathan/reaction-reach/internal/llm"
	"github.com/jonathan/reaction-reach/internal/planner"
	"github.com/jonathan/reaction-reach/internal/stealth"
	"github.com/jonathan/reaction-reach/internal/types"
)

// ErrExhausted signals that no further posts exist inside the window.
var ErrExhausted = errors.New("activity feed exhausted")

// DefaultMaxStallAttempts is how many consecutive scrolls may yield no new
// posts before the feed is declared ended.
const DefaultMaxStallAttempts = 3

// scrollStep is the per-pull scroll distance in pixels, roughly two feed
// items so a single pull cannot skip past unseen posts.
const scrollStep = 1400

// Options configures a Discoverer.
type Options struct {
	MaxStallAttempts int // 0 means DefaultMaxStallAttempts
	Verbose          bool
}

// Discoverer yields in-window posts from a loaded activity feed.
// The substrate must already be positioned on the feed surface.
type Discoverer struct {
	sub    browser.Substrate
	sched  *stealth.Scheduler
	plan   planner.Planner
	window types.TimeWindow
	now    func() time.Time

	maxStall int
	verbose  bool

	queue     []types.Post
	seen      map[string]bool
	stalls    int
	exhausted bool
	stalled   bool
	started   bool
}

// New creates a Discoverer for the given window. The planner may be nil, in
// which case only DOM parsing is used.
func New(sub browser.Substrate, sched *stealth.Scheduler, plan planner.Planner, window types.TimeWindow, opts Options) *Discoverer {
	maxStall := opts.MaxStallAttempts
	if maxStall <= 0 {
		maxStall = DefaultMaxStallAttempts
	}
	return &Discoverer{
		sub:      sub,
		sched:    sched,
		plan:     plan,
		window:   window,
		now:      time.Now,
		maxStall: maxStall,
		verbose:  opts.Verbose,
		seen:     make(map[string]bool),
	}
}

// Next returns the next in-window post in feed order (newest first).
// Returns ErrExhausted once the feed holds no more candidates; any other
// error aborts the walk.
func (d *Discoverer) Next(ctx context.Context) (*types.Post, error) {
	for {
		if len(d.queue) > 0 {
			post := d.queue[0]
			d.queue = d.queue[1:]
			return &post, nil
		}
		if d.exhausted {
			return nil, ErrExhausted
		}
		if err := d.pull(ctx); err != nil {
			return nil, err
		}
	}
}

// Stalled reports whether the walk ended because the feed stopped producing
// new items rather than by scrolling past the window. A stalled end means
// window coverage is not guaranteed.
func (d *Discoverer) Stalled() bool {
	return d.stalled
}

// Reset discards all walk state so the feed can be re-walked from the top.
// The caller is responsible for re-navigating to the feed surface first.
func (d *Discoverer) Reset() {
	d.queue = nil
	d.seen = make(map[string]bool)
	d.stalls = 0
	d.exhausted = false
	d.stalled = false
	d.started = false
}

// pull loads one batch: scroll (except on the first pull, which reads the
// initial viewport), extract, filter into the queue.
func (d *Discoverer) pull(ctx context.Context) error {
	if d.started {
		if err := d.sched.Gate(ctx, stealth.ActionScroll); err != nil {
			return err
		}
		if err := d.sub.ScrollBy(ctx, scrollStep); err != nil {
			return err
		}
	}
	d.started = true

	if err := d.sched.Gate(ctx, stealth.ActionExtract); err != nil {
		return err
	}
	html, err := d.sub.Content(ctx)
	if err != nil {
		return err
	}

	raws := parsePostsHTML(html)
	if len(raws) == 0 && d.plan != nil {
		raws = d.extractWithLLM(ctx, html)
	}

	var newCount, inWindow, pastWindow int
	now := d.now()
	for _, raw := range raws {
		if raw.ID == "" || d.seen[raw.ID] {
			continue
		}
		d.seen[raw.ID] = true
		newCount++

		published, ok := parsePublished(raw.Published, now)
		if !ok {
			// No parseable timestamp: keep the post rather than silently
			// dropping it; completeness is flagged downstream.
			published = now
		}

		post := types.Post{
			ID:                    raw.ID,
			URL:                   raw.URL,
			PublishedAt:           published,
			ContentPreview:        raw.Preview,
			ReactionCountDeclared: declaredCount(raw.ReactionCount),
		}

		switch {
		case d.window.Contains(published):
			d.queue = append(d.queue, post)
			inWindow++
		case published.Before(d.window.Since):
			pastWindow++
		}
	}

	if newCount == 0 {
		d.stalls++
		if d.verbose {
			log.Printf("[DISCOVER] Stall %d/%d: no new posts in batch", d.stalls, d.maxStall)
		}
		if d.stalls >= d.maxStall {
			d.exhausted = true
			d.stalled = true
		}
		return nil
	}
	d.stalls = 0

	// The feed is reverse-chronological: once a batch contributes nothing
	// inside the window and has scrolled past its start, everything further
	// down is older still.
	if inWindow == 0 && pastWindow > 0 {
		d.exhausted = true
	}
	return nil
}

func (d *Discoverer) extractWithLLM(ctx context.Context, html string) []rawPost {
	raw, err := d.plan.Extract(ctx, llm.PostsSchema(), html)
	if err != nil {
		if d.verbose {
			log.Printf("[DISCOVER] LLM post extraction failed: %v", err)
		}
		return nil
	}
	var posts []rawPost
	if err := json.Unmarshal(raw, &posts); err != nil {
		if d.verbose {
			log.Printf("[DISCOVER] LLM post payload unmarshal failed: %v", err)
		}
		return nil
	}
	return posts
}
