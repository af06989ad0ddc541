package index

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	chromem "github.com/philippgille/chromem-go"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

const chromemCollection = "document"

// Chromem backs the index contract with a chromem-go collection. Every Build
// creates a fresh database so superseded entries can never leak into results;
// the swap happens only after all documents were added.
type Chromem struct {
	mu     sync.RWMutex
	coll   *chromem.Collection
	chunks map[string]domain.Chunk // chromem stores text only; chunk metadata lives here
	dim    int
}

var _ Index = (*Chromem)(nil)

// NewChromem creates an empty chromem-backed index.
func NewChromem() *Chromem {
	return &Chromem{}
}

// Build replaces the index content with the given entries.
func (c *Chromem) Build(ctx context.Context, entries []domain.Entry) error {
	if len(entries) == 0 {
		return fmt.Errorf("build with no entries")
	}

	dim := len(entries[0].Vector)
	docs := make([]chromem.Document, len(entries))
	chunks := make(map[string]domain.Chunk, len(entries))
	for i, e := range entries {
		if len(e.Vector) != dim {
			return fmt.Errorf("%w: entry %d has %d dimensions, expected %d",
				domain.ErrVectorDimMismatch, i, len(e.Vector), dim)
		}
		docs[i] = chromem.Document{
			ID:        e.Chunk.ID,
			Content:   e.Chunk.Text,
			Embedding: e.Vector,
		}
		chunks[e.Chunk.ID] = e.Chunk
	}

	coll, err := chromem.NewDB().CreateCollection(chromemCollection, nil, nil)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	if err := coll.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents: %w", err)
	}

	c.mu.Lock()
	c.coll = coll
	c.chunks = chunks
	c.dim = dim
	c.mu.Unlock()
	return nil
}

// Search returns the k most similar entries for the query vector.
func (c *Chromem) Search(ctx context.Context, vector []float32, k int) ([]domain.Hit, error) {
	c.mu.RLock()
	coll, chunks, dim := c.coll, c.chunks, c.dim
	c.mu.RUnlock()

	if coll == nil {
		return nil, domain.ErrEmptyIndex
	}
	if len(vector) != dim {
		return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
			domain.ErrVectorDimMismatch, len(vector), dim)
	}
	if count := coll.Count(); k > count {
		k = count
	}
	if k <= 0 {
		return nil, nil
	}

	results, err := coll.QueryEmbedding(ctx, vector, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query embedding: %w", err)
	}

	hits := make([]domain.Hit, 0, len(results))
	for _, res := range results {
		chunk, ok := chunks[res.ID]
		if !ok {
			continue
		}
		hits = append(hits, domain.Hit{Chunk: chunk, Score: float64(res.Similarity)})
	}
	return hits, nil
}

// Len returns the number of indexed entries.
func (c *Chromem) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.coll == nil {
		return 0
	}
	return c.coll.Count()
}
