// Package index provides the session-scoped vector index. Implementations are
// swappable behind a single search capability: a brute-force in-memory scan and
// a chromem-go backed store share the same contract.
package index

import (
	"context"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

// Index is the nearest-neighbor lookup capability over one built document.
//
// Build replaces any previous content atomically: a partial build is never
// visible to Search. Search returns the top-k entries by descending cosine
// similarity, ties broken by insertion order (earlier chunk wins); k larger
// than the index is clamped, never an error. Search before a successful Build
// returns domain.ErrEmptyIndex.
type Index interface {
	Build(ctx context.Context, entries []domain.Entry) error
	Search(ctx context.Context, vector []float32, k int) ([]domain.Hit, error)
	Len() int
}
