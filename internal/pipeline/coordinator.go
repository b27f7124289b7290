// Package pipeline provides the high-level orchestration for reaction
// extraction: session restore, post discovery, per-post harvesting, and
// normalization, rolled up into a single job result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/jonathan/reaction-reach/internal/browser"
	"github.com/jonathan/reaction-reach/internal/discovery"
	"github.com/jonathan/reaction-reach/internal/harvest"
	"github.com/jonathan/reaction-reach/internal/navigator"
	"github.com/jonathan/reaction-reach/internal/normalize"
	"github.com/jonathan/reaction-reach/internal/observability"
	"github.com/jonathan/reaction-reach/internal/stealth"
	"github.com/jonathan/reaction-reach/internal/types"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	PostID  string `json:"post_id,omitempty"`
	Content any    `json:"content,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Progress stage names.
const (
	StageSession   = "session"
	StageDiscovery = "discovery"
	StageHarvest   = "harvest"
	StageDone      = "done"
)

// Coordinator wires the pipeline components around one browsing substrate.
// Every component shares the substrate, so execution is strictly sequential.
type Coordinator struct {
	Sub     browser.Substrate
	Sched   *stealth.Scheduler
	Nav     *navigator.Navigator
	Disc    *discovery.Discoverer
	Harv    *harvest.Harvester
	Printer *observability.Printer

	OnProgress ProgressCallback
	DebugDir   string
	Verbose    bool
}

// Execute runs the extraction for the given job. The returned job always
// carries whatever was harvested before any failure; a non-nil error is
// returned only for fatal aborts, never for per-post failures.
func (c *Coordinator) Execute(ctx context.Context, job *types.ExtractionJob, contextID string) (*types.ExtractionJob, error) {
	// Phase 0: session restore and validation.
	if err := c.Nav.LoadSession(ctx, contextID); err != nil {
		return c.abort(ctx, job, err)
	}
	c.emit(StageSession, fmt.Sprintf("Session %s validated", contextID), "", nil)
	if c.Verbose && c.Printer != nil {
		c.Printer.PrintSession(c.Nav.Session())
	}

	if err := c.Nav.ToProfile(ctx, job.ProfileURL); err != nil {
		return c.abort(ctx, job, err)
	}
	if err := c.Nav.ToActivityFeed(ctx, job.ProfileURL); err != nil {
		return c.abort(ctx, job, err)
	}

	// Phase 1: walk the feed and collect the in-window posts. Discovery must
	// finish before any post is opened: leaving the feed discards the
	// infinite-scroll position.
	var posts []types.Post
	for {
		post, err := c.Disc.Next(ctx)
		if errors.Is(err, discovery.ErrExhausted) {
			break
		}
		if err != nil {
			if ctx.Err() != nil {
				return c.cancelled(job, err)
			}
			return c.abort(ctx, job, err)
		}
		posts = append(posts, *post)
		c.emit(StageDiscovery, fmt.Sprintf("Discovered post published %s", post.PublishedAt.Format("2006-01-02")), post.ID, nil)
	}
	job.Stalled = c.Disc.Stalled()
	fmt.Printf("Discovered %d posts in window (feed stalled: %v)\n", len(posts), job.Stalled)

	// Phase 2: open each post and harvest its reactions. Harvest failures are
	// per-post: recorded on the job, never aborting the run.
	for i, post := range posts {
		fmt.Printf("Post %d/%d: %s\n", i+1, len(posts), post.ID)

		if err := c.Nav.ToPost(ctx, post); err != nil {
			return c.abort(ctx, job, err)
		}

		result, err := c.Harv.Harvest(ctx, post)
		if err != nil {
			if ctx.Err() != nil {
				return c.cancelled(job, err)
			}
			// A harvest failure may actually be a detection interstitial
			// swallowing the modal; check before writing it off as per-post.
			if shape := c.currentShape(ctx); shape.IsDetectionSignal() {
				return c.abort(ctx, job, &navigator.FatalError{
					Kind:    types.ErrKindDetected,
					Message: "detection surface interrupted harvesting",
					Cause:   err,
				})
			}
			job.Append(types.PostResult{Post: post, HarvestError: err.Error()})
			c.emit(StageHarvest, fmt.Sprintf("Harvest failed: %v", err), post.ID, nil)
			continue
		}

		records := normalize.Normalize(result.Fragments)
		postResult := types.PostResult{
			Post:           post,
			Records:        records,
			HarvestedCount: len(result.Fragments),
			Complete:       result.Complete,
		}
		job.Append(postResult)

		c.emit(StageHarvest, fmt.Sprintf("Harvested %d reactors (%d records)", len(result.Fragments), len(records)), post.ID, nil)
		if c.Verbose && c.Printer != nil {
			c.Printer.PrintPostResult(&postResult)
		}
	}

	c.Nav.Finish()
	job.Finalize(false, time.Now())
	c.emit(StageDone, fmt.Sprintf("Extraction %s", job.Status), "", job)

	if c.Verbose && c.Printer != nil {
		c.Printer.PrintJobSummary(job)
		c.Printer.PrintPacingStats(c.Sched.Stats())
	}
	return job, nil
}

// abort finalizes the job as failed with the navigator's fatal kind. The
// partial results stay on the job.
func (c *Coordinator) abort(ctx context.Context, job *types.ExtractionJob, err error) (*types.ExtractionJob, error) {
	var fatal *navigator.FatalError
	kind := types.ErrKindNavigationFailed
	if errors.As(err, &fatal) {
		kind = fatal.Kind
	}

	if kind == types.ErrKindCancelled {
		return c.cancelled(job, err)
	}

	c.captureFailure(ctx, string(kind))
	job.Fail(kind, time.Now())
	c.emit(StageDone, fmt.Sprintf("Extraction aborted: %v", err), "", nil)
	return job, err
}

// cancelled finalizes a caller-initiated stop. Partial results are a normal
// outcome, so no error.
func (c *Coordinator) cancelled(job *types.ExtractionJob, cause error) (*types.ExtractionJob, error) {
	_ = c.Nav.Cancel(cause)
	job.Finalize(true, time.Now())
	c.emit(StageDone, "Extraction cancelled", "", nil)
	return job, nil
}

// currentShape classifies whatever surface the substrate is showing.
func (c *Coordinator) currentShape(ctx context.Context) browser.SurfaceShape {
	location, err := c.Sub.Location(ctx)
	if err != nil {
		return browser.ShapeUnknown
	}
	content, err := c.Sub.Content(ctx)
	if err != nil {
		return browser.ShapeUnknown
	}
	return browser.ClassifySurface(location, content)
}

// captureFailure saves a screenshot of the failing surface for diagnosis.
func (c *Coordinator) captureFailure(ctx context.Context, kind string) {
	if c.DebugDir == "" {
		return
	}
	png, err := c.Sub.Screenshot(ctx)
	if err != nil || len(png) == 0 {
		return
	}
	if err := os.MkdirAll(c.DebugDir, 0o755); err != nil {
		return
	}
	path := filepath.Join(c.DebugDir, fmt.Sprintf("fatal-%s-%d.png", kind, time.Now().Unix()))
	if err := os.WriteFile(path, png, 0o644); err != nil {
		log.Printf("[PIPELINE] Failed to write debug screenshot: %v", err)
		return
	}
	fmt.Printf("Saved failure screenshot: %s\n", path)
}

func (c *Coordinator) emit(stage, message, postID string, content any) {
	if c.OnProgress != nil {
		c.OnProgress(ProgressEvent{Stage: stage, Message: message, PostID: postID, Content: content})
	}
}
