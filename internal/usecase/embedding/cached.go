package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

// CachedEmbedder memoizes single-text embeddings, keyed by content hash.
// Questions repeat within a session, so query vectors are worth keeping; batch
// calls (document builds) pass through untouched since a rebuilt document is
// embedded once anyway. The cache is bounded: when full, the oldest entries
// are evicted first.
type CachedEmbedder struct {
	inner interface {
		domain.Embedder
		domain.BatchEmbedder
	}
	maxSize    int
	cacheTotal *prometheus.CounterVec

	mu      sync.Mutex
	vectors map[string][]float32
	order   []string // insertion order for eviction
}

// NewCachedEmbedder creates a caching decorator holding up to maxSize vectors.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), may be nil.
func NewCachedEmbedder(
	inner interface {
		domain.Embedder
		domain.BatchEmbedder
	},
	maxSize int,
	cacheTotal *prometheus.CounterVec,
) *CachedEmbedder {
	return &CachedEmbedder{
		inner:      inner,
		maxSize:    maxSize,
		cacheTotal: cacheTotal,
		vectors:    make(map[string][]float32),
	}
}

// Embed returns a cached embedding or calls the inner embedder.
// Cache hit: TotalTokens = 0 (no real tokens consumed).
func (c *CachedEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	key := cacheKey(text)

	c.mu.Lock()
	vec, ok := c.vectors[key]
	c.mu.Unlock()
	if ok {
		c.incCache("hit")
		return domain.EmbeddingResult{Embedding: vec}, nil
	}

	c.incCache("miss")

	result, err := c.inner.Embed(ctx, text)
	if err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("embed text: %w", err)
	}

	c.put(key, result.Embedding)
	return result, nil
}

// BatchEmbed passes through to the inner embedder.
func (c *CachedEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return c.inner.BatchEmbed(ctx, texts)
}

func (c *CachedEmbedder) put(key string, vec []float32) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.vectors[key]; exists {
		return
	}
	for len(c.order) >= c.maxSize && len(c.order) > 0 {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.vectors, oldest)
	}
	c.vectors[key] = vec
	c.order = append(c.order, key)
}

func (c *CachedEmbedder) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func cacheKey(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
