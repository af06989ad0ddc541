// Package answer turns parsed query fields and retrieved chunks into a
// validated structured decision. A non-conforming model response is retried
// once with a corrective instruction; a second failure yields the
// needs-more-info fallback. Raw model output never reaches the caller.
package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

const systemPrompt = "You are an expert document analyst. You decide insurance and policy " +
	"questions strictly from the provided document context. Respond only with JSON."

const correctiveInstruction = "\n\nYour previous response did not conform. " +
	"Respond only with valid JSON matching the schema given above. No prose, no markdown."

// Service is the answer synthesizer.
type Service struct {
	gen    Generator
	logger *zap.Logger
}

// New creates an answer synthesizer.
func New(gen Generator, logger *zap.Logger) *Service {
	return &Service{gen: gen, logger: logger}
}

// Synthesize produces the structured answer for a question. Only provider
// failures return an error; schema problems are absorbed by the retry/fallback
// path.
func (s *Service) Synthesize(
	ctx context.Context, question string, parsed domain.ParsedQuery, hits []domain.Hit,
) (domain.Answer, error) {
	prompt := buildPrompt(question, parsed, hits)

	res, err := s.gen.Generate(ctx, domain.GenerateRequest{
		System:   systemPrompt,
		Prompt:   prompt,
		JSONOnly: true,
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("synthesize answer: %w", err)
	}

	ans, decodeErr := decodeAnswer(res.Text, hits)
	if decodeErr == nil {
		return ans, nil
	}

	s.logger.Warn("Answer did not conform to schema, retrying with corrective instruction",
		zap.Error(decodeErr))

	res, err = s.gen.Generate(ctx, domain.GenerateRequest{
		System:   systemPrompt,
		Prompt:   prompt + correctiveInstruction,
		JSONOnly: true,
	})
	if err != nil {
		return domain.Answer{}, fmt.Errorf("synthesize answer (retry): %w", err)
	}

	ans, decodeErr = decodeAnswer(res.Text, hits)
	if decodeErr == nil {
		return ans, nil
	}

	s.logger.Warn("Answer failed schema validation twice, returning fallback",
		zap.Error(decodeErr))

	return domain.Answer{
		Decision: domain.DecisionNeedsMoreInfo,
		Justification: fmt.Sprintf(
			"The model response could not be parsed into a structured decision (%v). "+
				"Try rephrasing the question.", decodeErr),
		SourceChunks: []string{},
	}, nil
}

// buildPrompt embeds the parsed fields and the numbered context chunks, and
// pins the exact response schema.
func buildPrompt(question string, parsed domain.ParsedQuery, hits []domain.Hit) string {
	var b strings.Builder

	b.WriteString("Extracted query fields:\n")
	fmt.Fprintf(&b, "- age: %s\n", parsed.Age)
	fmt.Fprintf(&b, "- procedure: %s\n", parsed.Procedure)
	fmt.Fprintf(&b, "- policy_duration: %s\n", parsed.PolicyDuration)
	fmt.Fprintf(&b, "- location: %s\n", parsed.Location)

	b.WriteString("\nContext from document:\n")
	for i, hit := range hits {
		fmt.Fprintf(&b, "\n=== CHUNK %d (id: %s, source: %s) ===\n%s\n",
			i+1, hit.Chunk.ID, chunkSource(hit.Chunk), hit.Chunk.Text)
	}

	fmt.Fprintf(&b, "\nUser question: %s\n", question)

	b.WriteString(`
Decide based only on the context above. If the context does not contain enough
information, use the decision "needs-more-info" and say what is missing.
Cite the ids of the chunks you actually relied on.

Respond only with a JSON object of this exact shape:
{"decision": "approved" | "rejected" | "needs-more-info", "amount": <number or null>, "justification": "<string>", "source_chunks": ["<chunk id>", ...]}`)

	return b.String()
}

func chunkSource(c domain.Chunk) string {
	if len(c.Segments) == 0 {
		return "document"
	}
	parts := make([]string, len(c.Segments))
	for i, p := range c.Segments {
		parts[i] = fmt.Sprintf("%d", p+1)
	}
	return "page " + strings.Join(parts, ",")
}

// decodeAnswer validates the raw model output against the answer schema.
// Citations of chunks that were not retrieved are dropped, not failed on; an
// answer left with no real citation is a schema violation.
func decodeAnswer(raw string, hits []domain.Hit) (domain.Answer, error) {
	var ans domain.Answer
	if err := json.Unmarshal([]byte(domain.SanitizeJSONOutput(raw)), &ans); err != nil {
		return domain.Answer{}, fmt.Errorf("%w: %v", domain.ErrSchemaViolation, err)
	}

	if !ans.Decision.Valid() {
		return domain.Answer{}, fmt.Errorf("%w: invalid decision %q", domain.ErrSchemaViolation, ans.Decision)
	}
	if strings.TrimSpace(ans.Justification) == "" {
		return domain.Answer{}, fmt.Errorf("%w: empty justification", domain.ErrSchemaViolation)
	}

	retrieved := make(map[string]bool, len(hits))
	for _, hit := range hits {
		retrieved[hit.Chunk.ID] = true
	}
	cited := make([]string, 0, len(ans.SourceChunks))
	for _, id := range ans.SourceChunks {
		if retrieved[id] {
			cited = append(cited, id)
		}
	}
	if len(cited) == 0 {
		return domain.Answer{}, fmt.Errorf("%w: no valid chunk citation", domain.ErrSchemaViolation)
	}
	ans.SourceChunks = cited

	return ans, nil
}
