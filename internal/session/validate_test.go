package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/reaction-reach/internal/stealth"
	"github.com/jonathan/reaction-reach/internal/types"
)

// probeSubstrate fakes the browser for validation probes: navigation lands on
// a scripted location with scripted content.
type probeSubstrate struct {
	landAt  string
	content string
	visited []string
}

func (p *probeSubstrate) Navigate(_ context.Context, url string) error {
	p.visited = append(p.visited, url)
	return nil
}
func (p *probeSubstrate) Location(context.Context) (string, error)  { return p.landAt, nil }
func (p *probeSubstrate) Title(context.Context) (string, error)     { return "", nil }
func (p *probeSubstrate) Content(context.Context) (string, error)   { return p.content, nil }
func (p *probeSubstrate) Screenshot(context.Context) ([]byte, error) { return nil, nil }
func (p *probeSubstrate) Click(context.Context, string) error       { return nil }
func (p *probeSubstrate) ClickText(context.Context, string) error   { return nil }
func (p *probeSubstrate) ScrollBy(context.Context, int) error       { return nil }
func (p *probeSubstrate) Evaluate(context.Context, string) (string, error) {
	return "", nil
}
func (p *probeSubstrate) Close() error { return nil }

func fastScheduler() *stealth.Scheduler {
	return stealth.NewScheduler(stealth.Config{
		MinDelay: time.Nanosecond,
		MaxDelay: time.Nanosecond,
		Seed:     1,
	})
}

func TestValidate_AuthenticatedFeed(t *testing.T) {
	sub := &probeSubstrate{landAt: "https://www.linkedin.com/feed/"}
	v := NewValidator(sub, fastScheduler(), "", false)

	sess := NewContext(time.Now())
	level, err := v.Validate(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, types.TrustAuthenticated, level)
	assert.Equal(t, types.TrustAuthenticated, sess.TrustLevel)
	assert.False(t, sess.LastValidatedAt.IsZero())
	assert.Equal(t, []string{DefaultProbeURL}, sub.visited)
}

func TestValidate_LoginRedirectIsUnauthenticated(t *testing.T) {
	sub := &probeSubstrate{landAt: "https://www.linkedin.com/authwall?sessionRedirect=x"}
	v := NewValidator(sub, fastScheduler(), "", false)

	sess := NewContext(time.Now())
	level, err := v.Validate(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, types.TrustUnauthenticated, level)
	assert.True(t, sess.LastValidatedAt.IsZero())
}

func TestValidate_ChallengeFlagsSession(t *testing.T) {
	sub := &probeSubstrate{landAt: "https://www.linkedin.com/checkpoint/challenge/v2"}
	v := NewValidator(sub, fastScheduler(), "", false)

	sess := NewContext(time.Now())
	level, err := v.Validate(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, types.TrustFlagged, level)
	assert.Equal(t, types.TrustFlagged, sess.TrustLevel)
}

func TestValidate_UnknownSurfaceIsNotTrusted(t *testing.T) {
	sub := &probeSubstrate{landAt: "https://example.com/elsewhere", content: "<html></html>"}
	v := NewValidator(sub, fastScheduler(), "", false)

	sess := NewContext(time.Now())
	level, err := v.Validate(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, types.TrustUnauthenticated, level)
}
