package embedding

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

// --- Mocks ---

type flakyEmbedder struct {
	failures int // calls to fail before succeeding
	calls    int
	vec      []float32
}

func (f *flakyEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	f.calls++
	if f.calls <= f.failures {
		return domain.EmbeddingResult{}, domain.ErrEmbeddingProvider
	}
	return domain.EmbeddingResult{Embedding: f.vec, TotalTokens: 7}, nil
}

func (f *flakyEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	res, err := f.Embed(ctx, "")
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = res.Embedding
	}
	return domain.BatchEmbeddingResult{Embeddings: out}, nil
}

func retryCfg(retries uint) RetryConfig {
	return RetryConfig{Retries: retries, Timeout: time.Second}
}

// --- Retry ---

func TestRetryingEmbedder_RecoversWithinBudget(t *testing.T) {
	inner := &flakyEmbedder{failures: 2, vec: []float32{1}}
	r := NewRetryingEmbedder(inner, retryCfg(2), zap.NewNop())

	res, err := r.Embed(context.Background(), "query")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", inner.calls)
	}
	if len(res.Embedding) != 1 {
		t.Errorf("unexpected result: %v", res)
	}
}

func TestRetryingEmbedder_SurfacesAfterBudget(t *testing.T) {
	inner := &flakyEmbedder{failures: 10, vec: []float32{1}}
	r := NewRetryingEmbedder(inner, retryCfg(2), zap.NewNop())

	_, err := r.Embed(context.Background(), "query")
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected ErrEmbeddingProvider, got %v", err)
	}
	if inner.calls != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", inner.calls)
	}
}

func TestRetryingGenerator_RecoversWithinBudget(t *testing.T) {
	calls := 0
	inner := generatorFunc(func(_ context.Context, _ domain.GenerateRequest) (domain.GenerateResult, error) {
		calls++
		if calls == 1 {
			return domain.GenerateResult{}, domain.ErrGenerationProvider
		}
		return domain.GenerateResult{Text: "{}"}, nil
	})
	r := NewRetryingGenerator(inner, retryCfg(2), zap.NewNop())

	res, err := r.Generate(context.Background(), domain.GenerateRequest{Prompt: "p"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "{}" {
		t.Errorf("unexpected result: %q", res.Text)
	}
	if calls != 2 {
		t.Errorf("expected 2 attempts, got %d", calls)
	}
}

type generatorFunc func(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error)

func (f generatorFunc) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	return f(ctx, req)
}

// --- Cache ---

func TestCachedEmbedder_HitSkipsInner(t *testing.T) {
	inner := &flakyEmbedder{vec: []float32{0.5}}
	c := NewCachedEmbedder(inner, 10, nil)

	first, err := c.Embed(context.Background(), "same question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.TotalTokens != 7 {
		t.Errorf("miss should carry inner usage, got %d", first.TotalTokens)
	}

	second, err := c.Embed(context.Background(), "same question")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}
	if second.TotalTokens != 0 {
		t.Errorf("hit should consume no tokens, got %d", second.TotalTokens)
	}
	if second.Embedding[0] != 0.5 {
		t.Errorf("unexpected cached vector: %v", second.Embedding)
	}
}

func TestCachedEmbedder_EvictsOldestFirst(t *testing.T) {
	inner := &flakyEmbedder{vec: []float32{1}}
	c := NewCachedEmbedder(inner, 2, nil)

	ctx := context.Background()
	for _, q := range []string{"q1", "q2", "q3"} {
		if _, err := c.Embed(ctx, q); err != nil {
			t.Fatalf("embed %s: %v", q, err)
		}
	}

	// q1 evicted, q2 and q3 cached
	before := inner.calls
	if _, err := c.Embed(ctx, "q2"); err != nil {
		t.Fatal(err)
	}
	if _, err := c.Embed(ctx, "q3"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != before {
		t.Errorf("cached entries re-embedded: %d extra calls", inner.calls-before)
	}
	if _, err := c.Embed(ctx, "q1"); err != nil {
		t.Fatal(err)
	}
	if inner.calls != before+1 {
		t.Errorf("evicted entry should miss, calls = %d, want %d", inner.calls, before+1)
	}
}

func TestCachedEmbedder_ErrorNotCached(t *testing.T) {
	inner := &flakyEmbedder{failures: 1, vec: []float32{1}}
	c := NewCachedEmbedder(inner, 10, nil)

	if _, err := c.Embed(context.Background(), "q"); !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if _, err := c.Embed(context.Background(), "q"); err != nil {
		t.Fatalf("second attempt should succeed: %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}
}
