// Package navigator owns the browsing lifecycle as an explicit state machine:
// restore session, validate it, reach the profile, its activity feed, and
// individual posts. Transient navigation faults are retried inside a
// transition; a detection signal or lost authentication is fatal and makes
// the navigator terminal.
package navigator

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/jonathan/reaction-reach/internal/browser"
	"github.com/jonathan/reaction-reach/internal/session"
	"github.com/jonathan/reaction-reach/internal/stealth"
	"github.com/jonathan/reaction-reach/internal/types"
)

// DefaultMaxNavRetries bounds attempts within a single transition. Retrying
// is for flaky loads only; a surface that keeps coming back wrong is fatal.
const DefaultMaxNavRetries = 3

// Options configures a Navigator.
type Options struct {
	MaxNavRetries   int           // 0 means DefaultMaxNavRetries
	RevalidateAfter time.Duration // 0 means session.DefaultRevalidateAfter
	Verbose         bool
}

// Navigator drives the substrate through the browsing lifecycle.
type Navigator struct {
	sub       browser.Substrate
	sched     *stealth.Scheduler
	store     session.Store
	validator *session.Validator

	state   State
	failure *FatalError
	sess    *types.Session

	maxRetries      int
	revalidateAfter time.Duration
	verbose         bool
}

// New creates a Navigator in StateIdle.
func New(sub browser.Substrate, sched *stealth.Scheduler, store session.Store, validator *session.Validator, opts Options) *Navigator {
	retries := opts.MaxNavRetries
	if retries <= 0 {
		retries = DefaultMaxNavRetries
	}
	revalidate := opts.RevalidateAfter
	if revalidate <= 0 {
		revalidate = session.DefaultRevalidateAfter
	}
	return &Navigator{
		sub:             sub,
		sched:           sched,
		store:           store,
		validator:       validator,
		state:           StateIdle,
		maxRetries:      retries,
		revalidateAfter: revalidate,
		verbose:         opts.Verbose,
	}
}

// State returns the current lifecycle state.
func (n *Navigator) State() State {
	return n.state
}

// Failure returns the fatal error that moved the navigator to StateError,
// or nil.
func (n *Navigator) Failure() *FatalError {
	return n.failure
}

// Session returns the session in use after LoadSession, or nil.
func (n *Navigator) Session() *types.Session {
	return n.sess
}

// LoadSession restores the stored session for contextID and validates it.
// A recently validated session skips the probe. An unauthenticated or
// flagged outcome is fatal: the caller must re-establish the login out of
// band before extraction can run.
func (n *Navigator) LoadSession(ctx context.Context, contextID string) error {
	if err := n.ensure("load session", StateIdle); err != nil {
		return err
	}
	n.state = StateSessionLoading

	sess, err := n.store.Load(ctx, contextID)
	if err != nil {
		return n.fatal(types.ErrKindUnauthenticated, fmt.Sprintf("no stored session for context %s", contextID), err)
	}
	n.sess = sess

	if sess.Usable(n.revalidateAfter, time.Now()) {
		if n.verbose {
			log.Printf("[NAV] Session %s validated %s ago, skipping probe", sess.ContextID, time.Since(sess.LastValidatedAt).Round(time.Second))
		}
		n.state = StateSessionValidated
		return nil
	}

	level, err := n.validator.Validate(ctx, sess)
	if err != nil {
		if ctx.Err() != nil {
			return n.fatal(types.ErrKindCancelled, "session validation cancelled", err)
		}
		return n.fatal(types.ErrKindNavigationFailed, "session probe failed", err)
	}
	n.persistSession(ctx)

	switch level {
	case types.TrustAuthenticated:
		n.state = StateSessionValidated
		return nil
	case types.TrustFlagged:
		return n.fatal(types.ErrKindDetected, "session probe hit a challenge surface", nil)
	default:
		return n.fatal(types.ErrKindUnauthenticated, "session is not logged in", nil)
	}
}

// ToProfile navigates to the target profile page.
func (n *Navigator) ToProfile(ctx context.Context, profileURL string) error {
	if err := n.ensure("open profile", StateSessionValidated, StateOnActivityFeed, StateOnPost); err != nil {
		return err
	}
	if err := n.navigate(ctx, profileURL, browser.ShapeProfile); err != nil {
		return err
	}
	n.state = StateOnProfile
	return nil
}

// ToActivityFeed navigates to the profile's recent activity feed.
func (n *Navigator) ToActivityFeed(ctx context.Context, profileURL string) error {
	if err := n.ensure("open activity feed", StateOnProfile, StateOnPost, StateOnActivityFeed); err != nil {
		return err
	}

	feedURL, err := ActivityFeedURL(profileURL)
	if err != nil {
		return n.fatal(types.ErrKindNavigationFailed, "cannot derive activity feed url", err)
	}
	if err := n.navigate(ctx, feedURL, browser.ShapeActivityFeed); err != nil {
		return err
	}
	n.state = StateOnActivityFeed
	return nil
}

// ToPost navigates to an individual post permalink.
func (n *Navigator) ToPost(ctx context.Context, post types.Post) error {
	if err := n.ensure("open post", StateOnActivityFeed, StateOnPost); err != nil {
		return err
	}
	if err := n.navigate(ctx, post.URL, browser.ShapePost); err != nil {
		return err
	}
	n.state = StateOnPost
	return nil
}

// Finish moves the navigator to its clean terminal state.
func (n *Navigator) Finish() {
	if !n.state.Terminal() {
		n.state = StateDone
	}
}

// Cancel marks the navigator terminally cancelled. Safe to call from any
// non-terminal state.
func (n *Navigator) Cancel(cause error) error {
	if n.state.Terminal() {
		if n.failure != nil {
			return n.failure
		}
		return nil
	}
	return n.fatal(types.ErrKindCancelled, "run cancelled", cause)
}

// navigate performs one gated navigation with bounded retries and verifies
// the landing surface.
func (n *Navigator) navigate(ctx context.Context, target string, want browser.SurfaceShape) error {
	var lastShape browser.SurfaceShape
	for attempt := 1; attempt <= n.maxRetries; attempt++ {
		if err := n.sched.Gate(ctx, stealth.ActionNavigate); err != nil {
			return n.fatal(types.ErrKindCancelled, "pacing gate interrupted", err)
		}

		if err := n.sub.Navigate(ctx, target); err != nil {
			if ctx.Err() != nil {
				return n.fatal(types.ErrKindCancelled, "navigation cancelled", err)
			}
			if n.verbose {
				log.Printf("[NAV] Attempt %d/%d for %s failed: %v", attempt, n.maxRetries, target, err)
			}
			continue
		}

		shape, err := n.classify(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return n.fatal(types.ErrKindCancelled, "navigation cancelled", err)
			}
			continue
		}
		lastShape = shape

		switch {
		case shape.IsDetectionSignal():
			n.flagSession(ctx)
			return n.fatal(types.ErrKindDetected, fmt.Sprintf("landed on %s surface at %s", shape, target), nil)
		case shape == browser.ShapeLogin:
			n.demoteSession(ctx)
			return n.fatal(types.ErrKindUnauthenticated, "redirected to login", nil)
		case shape == want:
			return nil
		}

		if n.verbose {
			log.Printf("[NAV] Attempt %d/%d for %s landed on %s, wanted %s", attempt, n.maxRetries, target, shape, want)
		}
	}

	return n.fatal(types.ErrKindNavigationFailed,
		fmt.Sprintf("surface never matched %s after %d attempts (last: %s)", want, n.maxRetries, lastShape), nil)
}

func (n *Navigator) classify(ctx context.Context) (browser.SurfaceShape, error) {
	location, err := n.sub.Location(ctx)
	if err != nil {
		return browser.ShapeUnknown, err
	}
	content, err := n.sub.Content(ctx)
	if err != nil {
		return browser.ShapeUnknown, err
	}
	return browser.ClassifySurface(location, content), nil
}

// flagSession retires the session after a detection signal so later runs do
// not reuse a burned identity.
func (n *Navigator) flagSession(ctx context.Context) {
	if n.sess == nil {
		return
	}
	n.sess.TrustLevel = types.TrustFlagged
	n.persistSession(ctx)
}

func (n *Navigator) demoteSession(ctx context.Context) {
	if n.sess == nil {
		return
	}
	n.sess.TrustLevel = types.TrustUnauthenticated
	n.persistSession(ctx)
}

func (n *Navigator) persistSession(ctx context.Context) {
	if n.sess == nil || n.store == nil {
		return
	}
	if err := n.store.Save(ctx, n.sess); err != nil {
		log.Printf("[NAV] Failed to persist session %s: %v", n.sess.ContextID, err)
	}
}

func (n *Navigator) ensure(op string, allowed ...State) error {
	if n.state == StateError {
		return n.failure
	}
	for _, s := range allowed {
		if n.state == s {
			return nil
		}
	}
	return &TransitionError{From: n.state, Op: op}
}

func (n *Navigator) fatal(kind types.ErrorKind, message string, cause error) error {
	n.failure = &FatalError{Kind: kind, Message: message, Cause: cause}
	n.state = StateError
	return n.failure
}

// ActivityFeedURL derives the recent-activity feed URL from a profile URL.
func ActivityFeedURL(profileURL string) (string, error) {
	u, err := url.Parse(profileURL)
	if err != nil {
		return "", fmt.Errorf("invalid profile url %q: %w", profileURL, err)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	for i, seg := range segments {
		if seg == "in" && i+1 < len(segments) {
			return fmt.Sprintf("https://www.linkedin.com/in/%s/recent-activity/all/", segments[i+1]), nil
		}
	}
	return "", fmt.Errorf("profile url %q has no /in/ segment", profileURL)
}
