package planner

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/reaction-reach/internal/llm"
)

// fakeSubstrate is a scriptable browser.Substrate for planner tests.
type fakeSubstrate struct {
	content      string
	clickErrs    map[string]error // selector -> error; missing key means success
	textErrs     map[string]error
	evalErr      error
	clicked      []string
	clickedTexts []string
	evaluated    []string
}

func (f *fakeSubstrate) Navigate(ctx context.Context, url string) error { return nil }
func (f *fakeSubstrate) Location(ctx context.Context) (string, error)   { return "", nil }
func (f *fakeSubstrate) Title(ctx context.Context) (string, error)      { return "", nil }
func (f *fakeSubstrate) Content(ctx context.Context) (string, error)    { return f.content, nil }
func (f *fakeSubstrate) Screenshot(ctx context.Context) ([]byte, error) { return nil, nil }
func (f *fakeSubstrate) Close() error                                   { return nil }

func (f *fakeSubstrate) Click(ctx context.Context, selector string) error {
	f.clicked = append(f.clicked, selector)
	return f.clickErrs[selector]
}

func (f *fakeSubstrate) ClickText(ctx context.Context, text string) error {
	f.clickedTexts = append(f.clickedTexts, text)
	return f.textErrs[text]
}

func (f *fakeSubstrate) ScrollBy(ctx context.Context, pixels int) error { return nil }

func (f *fakeSubstrate) Evaluate(ctx context.Context, expression string) (string, error) {
	f.evaluated = append(f.evaluated, expression)
	return "", f.evalErr
}

// fakeLLM is a canned llm.Client.
type fakeLLM struct {
	contentResponse string
	contentErr      error
	jsonResponse    string
	jsonErr         error
	prompts         []string
}

func (f *fakeLLM) GenerateContent(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.contentResponse, f.contentErr
}

func (f *fakeLLM) GenerateJSON(ctx context.Context, prompt string, tier llm.ModelTier) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.jsonResponse, f.jsonErr
}

func (f *fakeLLM) GetModel(tier llm.ModelTier) string { return "fake-model" }
func (f *fakeLLM) Close() error                       { return nil }

func TestAct_FirstStrategySucceeds(t *testing.T) {
	sub := &fakeSubstrate{clickErrs: map[string]error{}}
	p := NewLLMPlanner(nil, false)

	result, err := p.Act(context.Background(), sub, ActRequest{
		Goal:       "open reactions",
		Strategies: []Strategy{Selector("button.reactions"), Text("and others")},
	})

	require.NoError(t, err)
	assert.Equal(t, Selector("button.reactions"), result.Strategy)
	assert.False(t, result.Proposed)
	assert.Equal(t, []string{"button.reactions"}, sub.clicked)
	assert.Empty(t, sub.clickedTexts)
}

func TestAct_FallsThroughChain(t *testing.T) {
	sub := &fakeSubstrate{
		clickErrs: map[string]error{"button.reactions": errors.New("node not found")},
		textErrs:  map[string]error{},
	}
	p := NewLLMPlanner(nil, false)

	result, err := p.Act(context.Background(), sub, ActRequest{
		Goal:       "open reactions",
		Strategies: []Strategy{Selector("button.reactions"), Text("and others")},
	})

	require.NoError(t, err)
	assert.Equal(t, KindText, result.Strategy.Kind)
	assert.Equal(t, []string{"and others"}, sub.clickedTexts)
}

func TestAct_ExhaustedWithoutProposal(t *testing.T) {
	cause := errors.New("node not found")
	sub := &fakeSubstrate{clickErrs: map[string]error{"a": cause, "b": cause}}
	p := NewLLMPlanner(nil, false)

	result, err := p.Act(context.Background(), sub, ActRequest{
		Goal:       "open reactions",
		Strategies: []Strategy{Selector("a"), Selector("b")},
	})

	require.Error(t, err)
	assert.Nil(t, result)

	var pe *PlanError
	require.ErrorAs(t, err, &pe)
	assert.ErrorIs(t, err, cause)
}

func TestAct_ProposedSelector(t *testing.T) {
	sub := &fakeSubstrate{
		content:   "<main><button class='social-counts'>42</button></main>",
		clickErrs: map[string]error{"button.stale": errors.New("node not found")},
	}
	client := &fakeLLM{contentResponse: "```\nbutton.social-counts\n```"}
	p := NewLLMPlanner(client, false)

	result, err := p.Act(context.Background(), sub, ActRequest{
		Goal:         "open reactions",
		Strategies:   []Strategy{Selector("button.stale")},
		AllowPropose: true,
	})

	require.NoError(t, err)
	assert.True(t, result.Proposed)
	assert.Equal(t, Selector("button.social-counts"), result.Strategy)
	// Proposal prompt carries both the goal and the live markup.
	require.Len(t, client.prompts, 1)
	assert.Contains(t, client.prompts[0], "open reactions")
	assert.Contains(t, client.prompts[0], "social-counts")
}

func TestAct_ProposedSelectorAlsoFails(t *testing.T) {
	sub := &fakeSubstrate{
		content: "<main></main>",
		clickErrs: map[string]error{
			"button.stale": errors.New("node not found"),
			"div.bogus":    errors.New("node not found"),
		},
	}
	client := &fakeLLM{contentResponse: "div.bogus"}
	p := NewLLMPlanner(client, false)

	_, err := p.Act(context.Background(), sub, ActRequest{
		Goal:         "open reactions",
		Strategies:   []Strategy{Selector("button.stale")},
		AllowPropose: true,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "div.bogus")
}

func TestAct_JSStrategy(t *testing.T) {
	sub := &fakeSubstrate{}
	p := NewLLMPlanner(nil, false)

	result, err := p.Act(context.Background(), sub, ActRequest{
		Goal:       "scroll modal",
		Strategies: []Strategy{JS("window.scrollBy(0, 800)")},
	})

	require.NoError(t, err)
	assert.Equal(t, KindJS, result.Strategy.Kind)
	assert.Equal(t, []string{"window.scrollBy(0, 800)"}, sub.evaluated)
}

func TestExtract_ValidPayload(t *testing.T) {
	client := &fakeLLM{
		jsonResponse: "```json\n[{\"name\": \"Ada Lovelace\", \"title_line\": \"Engineer at Analytical Engines\"}]\n```",
	}
	p := NewLLMPlanner(client, false)

	raw, err := p.Extract(context.Background(), llm.ReactorsSchema(), "<ul><li>Ada</li></ul>")
	require.NoError(t, err)

	var items []map[string]any
	require.NoError(t, json.Unmarshal(raw, &items))
	require.Len(t, items, 1)
	assert.Equal(t, "Ada Lovelace", items[0]["name"])
}

func TestExtract_PayloadFailsSchema(t *testing.T) {
	// Missing required "name" field.
	client := &fakeLLM{jsonResponse: `[{"profile_url": "https://www.linkedin.com/in/ada"}]`}
	p := NewLLMPlanner(client, false)

	_, err := p.Extract(context.Background(), llm.ReactorsSchema(), "<ul></ul>")
	require.Error(t, err)

	var pe *PlanError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Message, "schema validation")
}

func TestExtract_NoClient(t *testing.T) {
	p := NewLLMPlanner(nil, false)
	_, err := p.Extract(context.Background(), llm.PostsSchema(), "<div></div>")
	require.Error(t, err)
}

func TestCleanSelector(t *testing.T) {
	assert.Equal(t, "div[data-urn]", cleanSelector("`div[data-urn]`"))
	assert.Equal(t, "li.artdeco-list__item", cleanSelector("```css\nli.artdeco-list__item```"))
	assert.Equal(t, `button[aria-label="React"]`, cleanSelector(`'button[aria-label="React"]'`))
}
