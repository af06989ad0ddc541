package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

// Memory is a brute-force cosine similarity index. Entries are held normalized
// so similarity reduces to a dot product. Build prepares the new entry slice
// fully before swapping it in under the lock; concurrent Search calls see
// either the old index or the new one, never a mix.
type Memory struct {
	mu      sync.RWMutex
	entries []domain.Entry // vectors L2-normalized
	dim     int
}

var _ Index = (*Memory)(nil)

// NewMemory creates an empty in-memory index.
func NewMemory() *Memory {
	return &Memory{}
}

// Build replaces the index content with the given entries.
func (m *Memory) Build(ctx context.Context, entries []domain.Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("build with no entries")
	}

	dim := len(entries[0].Vector)
	normalized := make([]domain.Entry, len(entries))
	for i, e := range entries {
		if len(e.Vector) != dim {
			return fmt.Errorf("%w: entry %d has %d dimensions, expected %d",
				domain.ErrVectorDimMismatch, i, len(e.Vector), dim)
		}
		normalized[i] = domain.Entry{Chunk: e.Chunk, Vector: normalize(e.Vector)}
	}

	m.mu.Lock()
	m.entries = normalized
	m.dim = dim
	m.mu.Unlock()
	return nil
}

// Search returns the k most similar entries for the query vector.
func (m *Memory) Search(ctx context.Context, vector []float32, k int) ([]domain.Hit, error) {
	m.mu.RLock()
	entries, dim := m.entries, m.dim
	m.mu.RUnlock()

	if len(entries) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrVectorDimMismatch, len(vector), dim)
	}
	if k > len(entries) {
		k = len(entries)
	}
	if k <= 0 {
		return nil, nil
	}

	query := normalize(vector)
	order := make([]int, len(entries))
	scores := make([]float64, len(entries))
	for i, e := range entries {
		order[i] = i
		scores[i] = dot(e.Vector, query)
	}

	// Stable sort keeps insertion order for equal scores.
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})

	hits := make([]domain.Hit, k)
	for i := 0; i < k; i++ {
		j := order[i]
		hits[i] = domain.Hit{Chunk: entries[j].Chunk, Score: scores[j]}
	}
	return hits, nil
}

// Len returns the number of indexed entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

func normalize(v []float32) []float32 {
	var sum float64
	for _, f := range v {
		sum += float64(f) * float64(f)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		return append([]float32(nil), v...)
	}
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(float64(f) / norm)
	}
	return out
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
