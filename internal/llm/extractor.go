// Package llm - extractor.go provides generic LLM-based structured extraction.
package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jonathan/reaction-reach/internal/prompts"
)

// ExtractionSchema defines the structure for LLM-based content extraction.
// The planner builds its Extract prompts from a schema and validates the
// model's payload against the schema's JSON Schema rendering.
type ExtractionSchema struct {
	Name        string        // Schema name (e.g., "Posts", "Reactors")
	Description string        // System prompt preamble describing the extraction task
	Fields      []SchemaField // Expected fields of each extracted item
}

// SchemaField defines a single field in the extraction output.
type SchemaField struct {
	Name        string // JSON field name
	Type        string // JSON Schema type: "string", "integer", "number"
	Description string // Description for the LLM
	Required    bool   // Whether this field is required
}

// BuildExtractionPrompt constructs the LLM prompt from schema and input text.
// The model is asked for a JSON array of objects, one per extracted item.
func BuildExtractionPrompt(schema ExtractionSchema, inputText string) string {
	var sb strings.Builder

	// System description
	sb.WriteString(schema.Description)
	sb.WriteString("\n\n")

	// Output schema
	sb.WriteString("Return ONLY a valid JSON array. Each element must match this exact structure:\n{\n")
	for i, field := range schema.Fields {
		typeHint := field.Type
		if typeHint == "" {
			typeHint = "string"
		}
		requiredHint := ""
		if field.Required {
			requiredHint = " (required)"
		}
		sb.WriteString(fmt.Sprintf("  %q: %s%s", field.Name, typeHint, requiredHint))
		if field.Description != "" {
			sb.WriteString(fmt.Sprintf(" // %s", field.Description))
		}
		if i < len(schema.Fields)-1 {
			sb.WriteString(",")
		}
		sb.WriteString("\n")
	}
	sb.WriteString("}\n\n")

	// Instructions
	sb.WriteString("IMPORTANT:\n")
	sb.WriteString("- Extract information directly from the HTML, do not invent entries.\n")
	sb.WriteString("- Omit optional fields you cannot find rather than guessing.\n")
	sb.WriteString("- Return ONLY the JSON array, no markdown, no explanation, no code blocks.\n\n")

	// Input text
	sb.WriteString("Input HTML:\n\"\"\"\n")
	sb.WriteString(inputText)
	sb.WriteString("\n\"\"\"\n")

	return sb.String()
}

// JSONSchema renders the extraction schema as a JSON Schema document
// (array of objects) suitable for response validation.
func (s ExtractionSchema) JSONSchema() string {
	properties := make(map[string]any, len(s.Fields))
	var required []string
	for _, f := range s.Fields {
		fieldType := f.Type
		if fieldType == "" {
			fieldType = "string"
		}
		properties[f.Name] = map[string]any{"type": fieldType}
		if f.Required {
			required = append(required, f.Name)
		}
	}

	item := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		item["required"] = required
	}

	doc := map[string]any{
		"$schema": "http://json-schema.org/draft-07/schema#",
		"title":   s.Name,
		"type":    "array",
		"items":   item,
	}

	// Built from plain maps and strings; marshaling cannot fail.
	out, _ := json.Marshal(doc)
	return string(out)
}

// --- Predefined Schemas ---

// PostsSchema returns the extraction schema for a profile's activity feed.
func PostsSchema() ExtractionSchema {
	return ExtractionSchema{
		Name:        "Posts",
		Description: prompts.MustGet("extraction.json", "extract-posts"),
		Fields: []SchemaField{
			{
				Name:        "id",
				Type:        "string",
				Description: "Activity id from data-urn or the /feed/update/ permalink",
				Required:    true,
			},
			{
				Name:        "url",
				Type:        "string",
				Description: "Post permalink URL",
				Required:    true,
			},
			{
				Name:        "published",
				Type:        "string",
				Description: "Publication time exactly as shown (e.g. '3d', '1w', '2024-05-01T10:00:00Z')",
				Required:    true,
			},
			{
				Name:        "preview",
				Type:        "string",
				Description: "First 200 characters of the post text",
				Required:    false,
			},
			{
				Name:        "reaction_count",
				Type:        "integer",
				Description: "Total reaction count shown on the post's social bar, 0 if none",
				Required:    false,
			},
		},
	}
}

// ReactorsSchema returns the extraction schema for a post's reaction surface.
func ReactorsSchema() ExtractionSchema {
	return ExtractionSchema{
		Name:        "Reactors",
		Description: prompts.MustGet("extraction.json", "extract-reactors"),
		Fields: []SchemaField{
			{
				Name:        "name",
				Type:        "string",
				Description: "Display name",
				Required:    true,
			},
			{
				Name:        "profile_url",
				Type:        "string",
				Description: "Profile URL (href containing /in/)",
				Required:    false,
			},
			{
				Name:        "title_line",
				Type:        "string",
				Description: "Headline below the name, exactly as written (typically 'Title at Company')",
				Required:    false,
			},
			{
				Name:        "reaction_kind",
				Type:        "string",
				Description: "Reaction icon label: like, celebrate, support, love, insightful, funny",
				Required:    false,
			},
		},
	}
}
