// Package retrieve turns a question into a ranked set of document chunks.
package retrieve

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

// Policy documents use these groups of terms interchangeably; expanding the
// query with them improves recall without hardcoding document-specific words.
var synonymGroups = []struct {
	base     string
	synonyms string
}{
	{"duration", "tenure term period validity"},
	{"benefits", "coverage advantages entitlements"},
	{"policy", "plan scheme contract agreement"},
	{"covered", "included eligible payable"},
	{"exclusions", "exceptions limitations restrictions"},
	{"premium", "cost price payment"},
	{"claim", "settlement payment reimbursement"},
}

// Service retrieves the chunks most similar to a question.
type Service struct {
	embed  Embedder
	logger *zap.Logger
}

// New creates a retriever.
func New(embed Embedder, logger *zap.Logger) *Service {
	return &Service{embed: embed, logger: logger}
}

// Retrieve embeds a synonym-expanded form of the question and searches the
// given index. Results are ordered by descending similarity and come only from
// the index passed in, never from an earlier build.
func (s *Service) Retrieve(ctx context.Context, idx Searcher, question string, k int) ([]domain.Hit, error) {
	expanded := ExpandSynonyms(question)

	emb, err := s.embed.Embed(ctx, expanded)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := idx.Search(ctx, emb.Embedding, k)
	if err != nil {
		return nil, fmt.Errorf("search index: %w", err)
	}

	s.logger.Debug("Chunks retrieved",
		zap.Int("requested", k),
		zap.Int("returned", len(hits)),
	)
	return hits, nil
}

// ExpandSynonyms appends common policy-domain synonyms for terms present in
// the question. The original question always stays first.
func ExpandSynonyms(question string) string {
	lower := strings.ToLower(question)
	parts := []string{question}
	for _, g := range synonymGroups {
		if strings.Contains(lower, g.base) {
			parts = append(parts, g.synonyms)
		}
	}
	return strings.Join(parts, " ")
}
