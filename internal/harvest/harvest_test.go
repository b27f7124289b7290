package harvest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/reaction-reach/internal/browser"
	"github.com/jonathan/reaction-reach/internal/llm"
	"github.com/jonathan/reaction-reach/internal/planner"
	"github.com/jonathan/reaction-reach/internal/stealth"
	"github.com/jonathan/reaction-reach/internal/types"
)

// modalSub serves modal snapshots: each scroll evaluation advances to the
// next snapshot.
type modalSub struct {
	snapshots []string
	index     int
	clicks    []string
	evals     int
}

func (m *modalSub) Navigate(ctx context.Context, url string) error { return nil }
func (m *modalSub) Location(ctx context.Context) (string, error)   { return "", nil }
func (m *modalSub) Title(ctx context.Context) (string, error)      { return "", nil }

func (m *modalSub) Content(ctx context.Context) (string, error) {
	if len(m.snapshots) == 0 {
		return "", nil
	}
	if m.index >= len(m.snapshots) {
		return m.snapshots[len(m.snapshots)-1], nil
	}
	return m.snapshots[m.index], nil
}

func (m *modalSub) Screenshot(ctx context.Context) ([]byte, error) { return nil, nil }

func (m *modalSub) Click(ctx context.Context, selector string) error {
	m.clicks = append(m.clicks, selector)
	return nil
}

func (m *modalSub) ClickText(ctx context.Context, text string) error { return nil }
func (m *modalSub) ScrollBy(ctx context.Context, pixels int) error   { return nil }

func (m *modalSub) Evaluate(ctx context.Context, expr string) (string, error) {
	m.evals++
	if m.index < len(m.snapshots)-1 {
		m.index++
	}
	return "", nil
}

func (m *modalSub) Close() error { return nil }

// stubPlanner satisfies planner.Planner with canned outcomes.
type stubPlanner struct {
	actErr     error
	extractRaw json.RawMessage
	extractErr error
	acts       int
	extracts   int
}

func (s *stubPlanner) Act(ctx context.Context, sub browser.Substrate, req planner.ActRequest) (*planner.ActResult, error) {
	s.acts++
	if s.actErr != nil {
		return nil, s.actErr
	}
	st := req.Strategies[0]
	if err := sub.Click(ctx, st.Value); err != nil {
		return nil, err
	}
	return &planner.ActResult{Strategy: st}, nil
}

func (s *stubPlanner) Extract(ctx context.Context, schema llm.ExtractionSchema, html string) (json.RawMessage, error) {
	s.extracts++
	return s.extractRaw, s.extractErr
}

func fastScheduler() *stealth.Scheduler {
	return stealth.NewScheduler(stealth.Config{
		MinDelay:         time.Nanosecond,
		MaxDelay:         2 * time.Nanosecond,
		ActionsPerMinute: 100000,
		CooldownMin:      time.Nanosecond,
		CooldownMax:      2 * time.Nanosecond,
	})
}

func reactorItem(slug, name, caption, kind string) string {
	return fmt.Sprintf(`
		<li class="social-details-reactors-tab-body-list-item">
			<a href="/in/%s?miniProfileUrn=abc">
				<span class="artdeco-entity-lockup__title">%s</span>
			</a>
			<span class="artdeco-entity-lockup__caption">%s</span>
			<img class="reactions-icon" alt="%s" />
		</li>`, slug, name, caption, kind)
}

func modalPage(items ...string) string {
	page := `<html><div class="artdeco-modal__content"><ul>`
	for _, it := range items {
		page += it
	}
	return page + "</ul></div></html>"
}

func newTestHarvester(sub *modalSub, plan planner.Planner) *Harvester {
	return New(sub, fastScheduler(), plan, Options{})
}

func TestHarvest_ZeroDeclaredReactions(t *testing.T) {
	sub := &modalSub{}
	plan := &stubPlanner{}
	h := newTestHarvester(sub, plan)

	result, err := h.Harvest(context.Background(), types.Post{ID: "urn:li:activity:1"})
	require.NoError(t, err)
	assert.True(t, result.Complete)
	assert.Empty(t, result.Fragments)
	assert.Zero(t, plan.acts)
}

func TestHarvest_UnknownDeclaredCountHarvestsToExhaustion(t *testing.T) {
	// No captured count (-1) must not short-circuit like an explicit zero:
	// the modal is opened and paginated until it stalls, and the exhausted
	// result counts as complete because there is no oracle to fall short of.
	sub := &modalSub{snapshots: []string{
		modalPage(
			reactorItem("jane-doe", "Jane Doe", "Engineer at Acme", "like"),
			reactorItem("bob-smith", "Bob Smith", "CTO at Initech", "celebrate"),
		),
	}}
	plan := &stubPlanner{}
	h := newTestHarvester(sub, plan)

	post := types.Post{ID: "urn:li:activity:1", ReactionCountDeclared: -1}
	result, err := h.Harvest(context.Background(), post)
	require.NoError(t, err)

	assert.Equal(t, 1, plan.acts)
	assert.True(t, result.Complete)
	assert.Len(t, result.Fragments, 2)
	assert.Equal(t, 3, result.Passes) // one productive, two stalled
}

func TestHarvest_ReachesDeclaredCount(t *testing.T) {
	sub := &modalSub{snapshots: []string{
		modalPage(
			reactorItem("jane-doe", "Jane Doe", "Engineer at Acme", "like"),
			reactorItem("bob-smith", "Bob Smith", "CTO at Initech", "celebrate"),
		),
		modalPage(
			reactorItem("jane-doe", "Jane Doe", "Engineer at Acme", "like"),
			reactorItem("bob-smith", "Bob Smith", "CTO at Initech", "celebrate"),
			reactorItem("eve-jones", "Eve Jones", "Designer at Hooli", "love"),
		),
	}}
	plan := &stubPlanner{}
	h := newTestHarvester(sub, plan)

	post := types.Post{ID: "urn:li:activity:1", ReactionCountDeclared: 3}
	result, err := h.Harvest(context.Background(), post)
	require.NoError(t, err)

	assert.True(t, result.Complete)
	assert.Equal(t, 2, result.Passes)
	require.Len(t, result.Fragments, 3)
	assert.Equal(t, "Jane Doe", result.Fragments[0].Name)
	assert.Equal(t, "https://www.linkedin.com/in/eve-jones?miniProfileUrn=abc", result.Fragments[2].ProfileURL)
	assert.Equal(t, "celebrate", result.Fragments[1].ReactionKind)
	assert.Equal(t, 1, plan.acts)
}

func TestHarvest_StalledPaginationIsPartial(t *testing.T) {
	// 12 declared, only 2 ever render: two stalled passes end the harvest
	// with the soft completeness flag cleared.
	sub := &modalSub{snapshots: []string{
		modalPage(
			reactorItem("jane-doe", "Jane Doe", "Engineer at Acme", "like"),
			reactorItem("bob-smith", "Bob Smith", "CTO at Initech", "like"),
		),
	}}
	h := newTestHarvester(sub, &stubPlanner{})

	post := types.Post{ID: "urn:li:activity:1", ReactionCountDeclared: 12}
	result, err := h.Harvest(context.Background(), post)
	require.NoError(t, err)

	assert.False(t, result.Complete)
	assert.Len(t, result.Fragments, 2)
	assert.Equal(t, 3, result.Passes) // one productive, two stalled
}

func TestHarvest_DeduplicatesAcrossPasses(t *testing.T) {
	// Profile URL variants of the same person collapse to one fragment.
	sub := &modalSub{snapshots: []string{
		modalPage(reactorItem("jane-doe", "Jane Doe", "Engineer at Acme", "like")),
		modalPage(
			reactorItem("jane-doe", "Jane Doe", "Engineer at Acme", "like"),
			reactorItem("Jane-Doe", "Jane Doe", "Engineer at Acme", "like"),
			reactorItem("bob-smith", "Bob Smith", "CTO at Initech", "support"),
		),
	}}
	h := newTestHarvester(sub, &stubPlanner{})

	post := types.Post{ID: "urn:li:activity:1", ReactionCountDeclared: 2}
	result, err := h.Harvest(context.Background(), post)
	require.NoError(t, err)

	assert.True(t, result.Complete)
	assert.Len(t, result.Fragments, 2)
}

func TestHarvest_ModalOpenFailure(t *testing.T) {
	cause := errors.New("no strategy succeeded")
	h := newTestHarvester(&modalSub{}, &stubPlanner{actErr: cause})

	post := types.Post{ID: "urn:li:activity:1", ReactionCountDeclared: 5}
	_, err := h.Harvest(context.Background(), post)
	require.Error(t, err)

	var he *HarvestError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "urn:li:activity:1", he.PostID)
	assert.ErrorIs(t, err, cause)
}

func TestHarvest_LLMFallbackWhenDOMUnrecognized(t *testing.T) {
	payload, _ := json.Marshal([]types.ReactorFragment{
		{Name: "Jane Doe", ProfileURL: "https://www.linkedin.com/in/jane-doe", TitleLine: "Engineer at Acme"},
	})
	sub := &modalSub{snapshots: []string{"<html><div data-obfuscated>opaque</div></html>"}}
	plan := &stubPlanner{extractRaw: payload}
	h := newTestHarvester(sub, plan)

	post := types.Post{ID: "urn:li:activity:1", ReactionCountDeclared: 1}
	result, err := h.Harvest(context.Background(), post)
	require.NoError(t, err)

	assert.True(t, result.Complete)
	require.Len(t, result.Fragments, 1)
	assert.Equal(t, "Jane Doe", result.Fragments[0].Name)
	assert.Equal(t, 1, plan.extracts)
}

func TestHarvest_Cancellation(t *testing.T) {
	sub := &modalSub{snapshots: []string{modalPage()}}
	h := newTestHarvester(sub, &stubPlanner{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	post := types.Post{ID: "urn:li:activity:1", ReactionCountDeclared: 5}
	_, err := h.Harvest(ctx, post)
	require.ErrorIs(t, err, context.Canceled)
}

func TestParseReactorsHTML(t *testing.T) {
	html := modalPage(
		reactorItem("jane-doe", "Jane Doe", "Engineer at Acme", "like"),
		`<li class="social-details-reactors-tab-body-list-item">
			<span class="artdeco-entity-lockup__title">Anonymous Member</span>
		</li>`,
	)

	fragments := parseReactorsHTML(html)
	require.Len(t, fragments, 2)

	assert.Equal(t, "Jane Doe", fragments[0].Name)
	assert.Equal(t, "https://www.linkedin.com/in/jane-doe?miniProfileUrn=abc", fragments[0].ProfileURL)
	assert.Equal(t, "Engineer at Acme", fragments[0].TitleLine)
	assert.Equal(t, "like", fragments[0].ReactionKind)

	assert.Equal(t, "Anonymous Member", fragments[1].Name)
	assert.Empty(t, fragments[1].ProfileURL)
	assert.Empty(t, fragments[1].ReactionKind)
}

func TestParseReactorsHTML_Unrecognized(t *testing.T) {
	assert.Nil(t, parseReactorsHTML("<html><p>nothing here</p></html>"))
}
