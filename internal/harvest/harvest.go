// Package harvest collects reactor entries from a post's reactions modal.
// The modal is an infinite scroll like the feed, but with a usable oracle:
// the post declares its total reaction count, so the harvester knows when it
// has everything and when it is returning a partial set.
package harvest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/jonathan/reaction-reach/internal/browser"
	"github.com/jonathan/reaction-reach/internal/llm"
	"github.com/jonathan/reaction-reach/internal/planner"
	"github.com/jonathan/reaction-reach/internal/stealth"
	"github.com/jonathan/reaction-reach/internal/types"
)

// DefaultStallPasses is how many consecutive modal passes may yield no new
// reactors before pagination is declared ended.
const DefaultStallPasses = 2

// scrollModalJS scrolls the reactions modal body to its bottom, triggering
// the next page load. The window itself does not scroll while a modal is open.
const scrollModalJS = `(() => {
	const modal = document.querySelector('div.artdeco-modal__content, div.scaffold-finite-scroll__content');
	if (modal) { modal.scrollTop = modal.scrollHeight; }
	return '';
})()`

// openReactionsStrategies is the fallback chain for the social-counts control
// that opens the reactions modal.
var openReactionsStrategies = []planner.Strategy{
	planner.Selector("button.social-details-social-counts__count-value"),
	planner.Selector("li.social-details-social-counts__reactions button"),
	planner.Selector(`button[aria-label*="reaction"]`),
	planner.Text("and others"),
}

// HarvestError represents a per-post harvesting failure
type HarvestError struct {
	PostID  string
	Message string
	Cause   error
}

func (e *HarvestError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("harvest failed for %s: %s: %v", e.PostID, e.Message, e.Cause)
	}
	return fmt.Sprintf("harvest failed for %s: %s", e.PostID, e.Message)
}

func (e *HarvestError) Unwrap() error {
	return e.Cause
}

// Result is one post's harvested reactor set.
type Result struct {
	Fragments []types.ReactorFragment
	// Complete is false when the declared reaction count says entries are
	// missing. With no declared count there is nothing to compare against and
	// the set is taken as complete.
	Complete bool
	// Passes is how many extract-scroll rounds the modal needed.
	Passes int
}

// Options configures a Harvester.
type Options struct {
	StallPasses int // 0 means DefaultStallPasses
	Verbose     bool
}

// Harvester drives the reactions modal for one post at a time.
type Harvester struct {
	sub         browser.Substrate
	sched       *stealth.Scheduler
	plan        planner.Planner
	stallPasses int
	verbose     bool
}

// New creates a Harvester. The planner handles the modal-open interaction
// and the extraction fallback; it must not be nil.
func New(sub browser.Substrate, sched *stealth.Scheduler, plan planner.Planner, opts Options) *Harvester {
	stallPasses := opts.StallPasses
	if stallPasses <= 0 {
		stallPasses = DefaultStallPasses
	}
	return &Harvester{
		sub:         sub,
		sched:       sched,
		plan:        plan,
		stallPasses: stallPasses,
		verbose:     opts.Verbose,
	}
}

// Harvest opens the reactions modal for the post the substrate is currently
// on and paginates it until the declared count is reached or pagination
// stalls. A post with zero declared reactions short-circuits to an empty
// complete result; a post with no captured count (-1) is harvested to
// exhaustion, since the missing count says nothing about the post.
func (h *Harvester) Harvest(ctx context.Context, post types.Post) (*Result, error) {
	if post.ReactionCountDeclared == 0 {
		// Nothing to open; many posts simply have no reactions.
		return &Result{Complete: true}, nil
	}

	if err := h.openModal(ctx, post); err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var fragments []types.ReactorFragment
	stalls := 0
	passes := 0

	for {
		passes++

		if err := h.sched.Gate(ctx, stealth.ActionExtract); err != nil {
			return nil, &HarvestError{PostID: post.ID, Message: "pacing gate interrupted", Cause: err}
		}
		html, err := h.sub.Content(ctx)
		if err != nil {
			return nil, &HarvestError{PostID: post.ID, Message: "failed to read modal content", Cause: err}
		}

		batch := parseReactorsHTML(html)
		if len(batch) == 0 {
			batch = h.extractWithLLM(ctx, html)
		}

		newCount := 0
		for _, f := range batch {
			key := types.CanonicalProfileKey(f.ProfileURL, f.Name)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			fragments = append(fragments, f)
			newCount++
		}

		if h.verbose {
			log.Printf("[HARVEST] %s pass %d: %d new reactors (%d/%d total)",
				post.ID, passes, newCount, len(fragments), post.ReactionCountDeclared)
		}

		if post.ReactionCountDeclared > 0 && len(fragments) >= post.ReactionCountDeclared {
			return &Result{Fragments: fragments, Complete: true, Passes: passes}, nil
		}

		if newCount == 0 {
			stalls++
			if stalls >= h.stallPasses {
				// The declared count is a heuristic oracle; falling short of
				// it is a soft flag, not an error. Without a count there is
				// no oracle to fall short of: an exhausted modal is complete.
				complete := post.ReactionCountDeclared < 0
				return &Result{Fragments: fragments, Complete: complete, Passes: passes}, nil
			}
		} else {
			stalls = 0
		}

		if err := h.sched.Gate(ctx, stealth.ActionScroll); err != nil {
			return nil, &HarvestError{PostID: post.ID, Message: "pacing gate interrupted", Cause: err}
		}
		if _, err := h.sub.Evaluate(ctx, scrollModalJS); err != nil {
			return nil, &HarvestError{PostID: post.ID, Message: "modal scroll failed", Cause: err}
		}
	}
}

// openModal clicks through the social-counts control, proposing a selector
// via the planner when the static chain misses.
func (h *Harvester) openModal(ctx context.Context, post types.Post) error {
	if err := h.sched.Gate(ctx, stealth.ActionClick); err != nil {
		return &HarvestError{PostID: post.ID, Message: "pacing gate interrupted", Cause: err}
	}

	_, err := h.plan.Act(ctx, h.sub, planner.ActRequest{
		Goal:         "open the reactions list for the current post",
		Strategies:   openReactionsStrategies,
		AllowPropose: true,
	})
	if err != nil {
		return &HarvestError{PostID: post.ID, Message: "could not open reactions modal", Cause: err}
	}
	return nil
}

func (h *Harvester) extractWithLLM(ctx context.Context, html string) []types.ReactorFragment {
	raw, err := h.plan.Extract(ctx, llm.ReactorsSchema(), html)
	if err != nil {
		if h.verbose {
			log.Printf("[HARVEST] LLM reactor extraction failed: %v", err)
		}
		return nil
	}
	var fragments []types.ReactorFragment
	if err := json.Unmarshal(raw, &fragments); err != nil {
		if h.verbose {
			log.Printf("[HARVEST] LLM reactor payload unmarshal failed: %v", err)
		}
		return nil
	}
	return fragments
}
