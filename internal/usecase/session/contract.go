package session

import (
	"context"

	"github.com/askdoc-cloud/askdoc/internal/domain"
	"github.com/askdoc-cloud/askdoc/internal/index"
	"github.com/askdoc-cloud/askdoc/internal/usecase/retrieve"
)

// Loader converts raw document bytes into ordered segments.
type Loader interface {
	Load(ctx context.Context, data []byte, filename string) ([]domain.Segment, error)
}

// Chunker splits segments into overlapping windows.
type Chunker interface {
	Chunk(ctx context.Context, idPrefix string, segments []domain.Segment) ([]domain.Chunk, error)
}

// Embedder vectorizes chunk texts in bulk, preserving order.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

// Parser extracts structured fields from a question.
type Parser interface {
	Parse(ctx context.Context, question string) domain.ParsedQuery
}

// Retriever returns the chunks most similar to a question from the index
// snapshot the session captured.
type Retriever interface {
	Retrieve(ctx context.Context, idx retrieve.Searcher, question string, k int) ([]domain.Hit, error)
}

// Synthesizer produces the validated structured answer.
type Synthesizer interface {
	Synthesize(ctx context.Context, question string, parsed domain.ParsedQuery, hits []domain.Hit) (domain.Answer, error)
}

// IndexFactory creates a fresh index for each document build.
type IndexFactory func() index.Index
