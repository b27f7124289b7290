// Package planner drives page interaction and structured extraction through
// deterministic strategy chains with an LLM fallback. Static selectors are
// tried first; only when a whole chain is exhausted does the planner ask the
// model to propose a selector from the live markup.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/jonathan/reaction-reach/internal/browser"
	"github.com/jonathan/reaction-reach/internal/llm"
	"github.com/jonathan/reaction-reach/internal/prompts"
	"github.com/jonathan/reaction-reach/internal/schemas"
)

// maxPromptHTML caps the markup sent to the model. Feed pages routinely
// exceed a megabyte of HTML; the interesting structure is near the top.
const maxPromptHTML = 60000

// ActRequest describes one page interaction.
type ActRequest struct {
	Goal         string     // human-readable goal, also used when proposing a selector
	Strategies   []Strategy // ordered fallback chain, most specific first
	AllowPropose bool       // ask the LLM for a selector when the chain is exhausted
}

// ActResult reports which strategy accomplished the interaction.
type ActResult struct {
	Strategy Strategy
	Proposed bool // true when the winning selector came from the LLM
}

// Planner is the interaction surface the navigation and harvesting layers
// depend on.
type Planner interface {
	// Act performs one page interaction, trying the request's strategies in order.
	Act(ctx context.Context, sub browser.Substrate, req ActRequest) (*ActResult, error)
	// Extract pulls structured records out of raw HTML and validates the
	// payload against the schema before returning it.
	Extract(ctx context.Context, schema llm.ExtractionSchema, html string) (json.RawMessage, error)
}

// LLMPlanner implements Planner on top of an llm.Client.
type LLMPlanner struct {
	client  llm.Client
	verbose bool
}

// NewLLMPlanner creates a planner backed by the given LLM client. A nil
// client disables selector proposal; strategy chains still work.
func NewLLMPlanner(client llm.Client, verbose bool) *LLMPlanner {
	return &LLMPlanner{client: client, verbose: verbose}
}

// Act tries each strategy in order and falls back to an LLM-proposed selector
// when allowed. The returned error wraps the last strategy failure.
func (p *LLMPlanner) Act(ctx context.Context, sub browser.Substrate, req ActRequest) (*ActResult, error) {
	var lastErr error
	for _, st := range req.Strategies {
		if err := apply(ctx, sub, st); err != nil {
			lastErr = err
			continue
		}
		if p.verbose {
			log.Printf("[PLANNER] %s: %s strategy succeeded (%s)", req.Goal, st.Kind, st.Value)
		}
		return &ActResult{Strategy: st}, nil
	}

	if !req.AllowPropose || p.client == nil {
		return nil, &PlanError{
			Message: fmt.Sprintf("no strategy succeeded for %q", req.Goal),
			Cause:   lastErr,
		}
	}

	selector, err := p.proposeSelector(ctx, sub, req.Goal)
	if err != nil {
		return nil, &PlanError{
			Message: fmt.Sprintf("selector proposal failed for %q", req.Goal),
			Cause:   err,
		}
	}
	if p.verbose {
		log.Printf("[PLANNER] %s: trying proposed selector %q", req.Goal, selector)
	}

	st := Selector(selector)
	if err := apply(ctx, sub, st); err != nil {
		return nil, &PlanError{
			Message: fmt.Sprintf("proposed selector %q failed for %q", selector, req.Goal),
			Cause:   err,
		}
	}
	return &ActResult{Strategy: st, Proposed: true}, nil
}

// Extract sends the HTML through the extraction prompt and validates the
// model's payload against the schema's JSON Schema rendering.
func (p *LLMPlanner) Extract(ctx context.Context, schema llm.ExtractionSchema, html string) (json.RawMessage, error) {
	if p.client == nil {
		return nil, &PlanError{Message: "no LLM client configured for extraction"}
	}

	prompt := llm.BuildExtractionPrompt(schema, truncateHTML(html))

	response, err := p.client.GenerateJSON(ctx, prompt, llm.TierStandard)
	if err != nil {
		return nil, &PlanError{
			Message: fmt.Sprintf("%s extraction failed", schema.Name),
			Cause:   err,
		}
	}

	cleaned := llm.CleanJSONBlock(response)
	if err := schemas.ValidateJSONString(schema.JSONSchema(), cleaned); err != nil {
		return nil, &PlanError{
			Message: fmt.Sprintf("%s payload failed schema validation", schema.Name),
			Cause:   err,
		}
	}

	return json.RawMessage(cleaned), nil
}

// proposeSelector asks the model for a single CSS selector matching the goal.
func (p *LLMPlanner) proposeSelector(ctx context.Context, sub browser.Substrate, goal string) (string, error) {
	html, err := sub.Content(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to read page content: %w", err)
	}

	template := prompts.MustGet("navigation.json", "propose-selector")
	prompt := prompts.Format(template, map[string]string{
		"Goal": goal,
		"HTML": truncateHTML(html),
	})

	response, err := p.client.GenerateContent(ctx, prompt, llm.TierLite)
	if err != nil {
		return "", err
	}

	selector := cleanSelector(response)
	if selector == "" {
		return "", fmt.Errorf("model returned an empty selector")
	}
	if strings.ContainsAny(selector, "\n\r") {
		return "", fmt.Errorf("model returned multiple lines instead of a selector: %q", selector)
	}
	return selector, nil
}

// cleanSelector strips markdown and quote wrappers the model sometimes adds.
func cleanSelector(response string) string {
	s := strings.TrimSpace(response)
	s = strings.TrimPrefix(s, "```css")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.Trim(s, "`\"'")
	return strings.TrimSpace(s)
}

func truncateHTML(html string) string {
	if len(html) <= maxPromptHTML {
		return html
	}
	return html[:maxPromptHTML]
}

func apply(ctx context.Context, sub browser.Substrate, st Strategy) error {
	switch st.Kind {
	case KindSelector:
		return sub.Click(ctx, st.Value)
	case KindText:
		return sub.ClickText(ctx, st.Value)
	case KindJS:
		_, err := sub.Evaluate(ctx, st.Value)
		return err
	default:
		return fmt.Errorf("unknown strategy kind %q", st.Kind)
	}
}
