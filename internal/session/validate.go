// Package session - validate.go issues the authentication probe.
package session

import (
	"context"
	"log"
	"time"

	"github.com/jonathan/reaction-reach/internal/browser"
	"github.com/jonathan/reaction-reach/internal/stealth"
	"github.com/jonathan/reaction-reach/internal/types"
)

// DefaultProbeURL is the cheap navigation target only reachable when
// authenticated; an unauthenticated session is redirected to the login or
// authwall surface instead.
const DefaultProbeURL = "https://www.linkedin.com/feed/"

// DefaultRevalidateAfter is how long a validation result is trusted before
// the next run probes again. Conservative: the source material gives no bound,
// so the default errs toward re-probing.
const DefaultRevalidateAfter = 30 * time.Minute

// Validator classifies a session's trust level with a single probe navigation.
type Validator struct {
	sub      browser.Substrate
	sched    *stealth.Scheduler
	probeURL string
	verbose  bool
}

// NewValidator creates a validator that probes through the given substrate,
// paced by the scheduler. An empty probeURL uses DefaultProbeURL.
func NewValidator(sub browser.Substrate, sched *stealth.Scheduler, probeURL string, verbose bool) *Validator {
	if probeURL == "" {
		probeURL = DefaultProbeURL
	}
	return &Validator{sub: sub, sched: sched, probeURL: probeURL, verbose: verbose}
}

// Validate issues one gated probe and mutates the session's trust level and
// validation timestamp in place. The caller is responsible for persisting the
// session afterwards. A challenge or block surface yields TrustFlagged; a
// login redirect yields TrustUnauthenticated; any authenticated surface
// yields TrustAuthenticated.
func (v *Validator) Validate(ctx context.Context, sess *types.Session) (types.TrustLevel, error) {
	if err := v.sched.Gate(ctx, stealth.ActionNavigate); err != nil {
		return sess.TrustLevel, err
	}

	if err := v.sub.Navigate(ctx, v.probeURL); err != nil {
		return sess.TrustLevel, err
	}

	location, err := v.sub.Location(ctx)
	if err != nil {
		return sess.TrustLevel, err
	}
	content, err := v.sub.Content(ctx)
	if err != nil {
		return sess.TrustLevel, err
	}

	shape := browser.ClassifySurface(location, content)
	if v.verbose {
		log.Printf("[SESSION] Probe landed on %s (shape: %s)", location, shape)
	}

	level := classifyProbe(shape)
	sess.TrustLevel = level
	if level == types.TrustAuthenticated {
		sess.LastValidatedAt = time.Now()
	}
	return level, nil
}

// classifyProbe maps a probe's surface shape onto a trust level.
func classifyProbe(shape browser.SurfaceShape) types.TrustLevel {
	switch {
	case shape.IsDetectionSignal():
		return types.TrustFlagged
	case shape == browser.ShapeLogin:
		return types.TrustUnauthenticated
	case shape == browser.ShapeUnknown:
		// An unrecognized surface is not proof of authentication.
		return types.TrustUnauthenticated
	default:
		return types.TrustAuthenticated
	}
}
