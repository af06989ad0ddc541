package retrieve

import (
	"context"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

// Embedder vectorizes the query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher is the index lookup capability the retriever consumes.
type Searcher interface {
	Search(ctx context.Context, vector []float32, k int) ([]domain.Hit, error)
}
