// Package parse extracts structured fields from a free-text question. A query
// with no extractable structure is still answerable through retrieval alone,
// so Parse never fails: any extraction problem degrades to all-unknown fields.
package parse

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

const systemPrompt = "You extract structured fields from insurance and policy questions. " +
	"Respond only with JSON."

const promptTemplate = `Extract the following fields from the question below.
Use the literal string "unknown" for any field the question does not state explicitly.
Never guess a value.

Respond only with a JSON object of this exact shape:
{"age": "<number or unknown>", "procedure": "<string or unknown>", "policy_duration": "<string or unknown>", "location": "<string or unknown>"}

Question: %s`

// Service is the query parser.
type Service struct {
	gen    Generator
	logger *zap.Logger
}

// New creates a query parser service.
func New(gen Generator, logger *zap.Logger) *Service {
	return &Service{gen: gen, logger: logger}
}

// Parse extracts the structured field mapping for a question. Best effort by
// contract: generation failures and malformed responses yield all-unknown
// fields with a warning, never an error.
func (s *Service) Parse(ctx context.Context, question string) domain.ParsedQuery {
	res, err := s.gen.Generate(ctx, domain.GenerateRequest{
		System:   systemPrompt,
		Prompt:   fmt.Sprintf(promptTemplate, question),
		JSONOnly: true,
	})
	if err != nil {
		s.logger.Warn("Query field extraction failed, falling back to retrieval-only",
			zap.Error(err))
		return domain.AllUnknown()
	}

	parsed, err := decodeFields(res.Text)
	if err != nil {
		s.logger.Warn("Query field extraction returned non-conforming output, falling back to retrieval-only",
			zap.Error(err))
		return domain.AllUnknown()
	}

	return parsed.Normalize()
}

// decodeFields tolerates the model returning numbers where strings were asked
// for: age frequently comes back as a bare number.
func decodeFields(raw string) (domain.ParsedQuery, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(domain.SanitizeJSONOutput(raw)), &fields); err != nil {
		return domain.ParsedQuery{}, fmt.Errorf("decode extraction output: %w", err)
	}

	return domain.ParsedQuery{
		Age:            fieldString(fields["age"]),
		Procedure:      fieldString(fields["procedure"]),
		PolicyDuration: fieldString(fields["policy_duration"]),
		Location:       fieldString(fields["location"]),
	}, nil
}

func fieldString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case nil:
		return domain.Unknown
	default:
		return domain.Unknown
	}
}
