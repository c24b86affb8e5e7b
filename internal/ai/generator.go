package ai

import (
	"context"
	"encoding/json"
)

// GenerateRequest asks for a structured JSON completion. ResponseSchema is
// forwarded through the provider's structured-output feature; the provider
// can still return malformed text, so callers must parse and shape-validate
// the result themselves.
type GenerateRequest struct {
	Prompt          string
	ResponseSchema  json.RawMessage
	Temperature     float64
	MaxOutputTokens int
}

type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

type GenerateResult struct {
	Text    string
	ModelID string
	Usage   TokenUsage
}

// TextGenerator is the contract the job processor depends on.
type TextGenerator interface {
	Available() bool
	Generate(ctx context.Context, request GenerateRequest) (GenerateResult, error)
}

// SingleFieldSchema describes an object with one required string field,
// used for single question/answer edits.
func SingleFieldSchema(field string) json.RawMessage {
	schema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			field: map[string]any{"type": "string"},
		},
		"required": []string{field},
	}
	encoded, _ := json.Marshal(schema)
	return encoded
}

// BundleSchema describes the three-category bundle shape with one string
// array per category.
func BundleSchema(categories []string, itemsPerCategory int) json.RawMessage {
	properties := make(map[string]any, len(categories))
	for _, category := range categories {
		arraySchema := map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		}
		if itemsPerCategory > 0 {
			arraySchema["minItems"] = itemsPerCategory
			arraySchema["maxItems"] = itemsPerCategory
		}
		properties[category] = arraySchema
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   categories,
	}
	encoded, _ := json.Marshal(schema)
	return encoded
}
