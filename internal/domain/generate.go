package domain

import (
	"context"
	"strings"
)

// Generator is the schema-constrained text generation contract. Callers describe
// the expected output shape inside the prompt; decoding and validation against
// that shape stay on the caller side so the adapter remains model-agnostic.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
}

// GenerateRequest describes a single generation call.
type GenerateRequest struct {
	System string // system instruction, optional
	Prompt string // user prompt
	// JSONOnly asks the provider to constrain output to a single JSON object.
	JSONOnly bool
}

// GenerateResult carries the raw model output and token usage.
type GenerateResult struct {
	Text         string
	PromptTokens int
	TotalTokens  int
}

// SanitizeJSONOutput strips a surrounding markdown code fence from model
// output. Models occasionally wrap JSON in one despite JSON-only instructions.
func SanitizeJSONOutput(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
