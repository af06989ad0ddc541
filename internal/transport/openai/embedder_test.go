package openai

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

func TestParseProviderError_RequestErrorWithDetail(t *testing.T) {
	err := parseProviderError(&openai.RequestError{
		HTTPStatusCode: 503,
		Body:           []byte(`{"detail": "model overloaded"}`),
	}, domain.ErrEmbeddingProvider)

	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("sentinel not preserved: %v", err)
	}
	if !strings.Contains(err.Error(), "503") || !strings.Contains(err.Error(), "model overloaded") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestParseProviderError_APIError(t *testing.T) {
	err := parseProviderError(&openai.APIError{
		HTTPStatusCode: 401,
		Message:        "invalid api key",
	}, domain.ErrGenerationProvider)

	if !errors.Is(err, domain.ErrGenerationProvider) {
		t.Fatalf("sentinel not preserved: %v", err)
	}
	if !strings.Contains(err.Error(), "invalid api key") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestParseProviderError_PlainError(t *testing.T) {
	err := parseProviderError(errors.New("dial tcp: timeout"), domain.ErrEmbeddingProvider)
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("sentinel not preserved: %v", err)
	}
}

// A per-attempt timeout reaches this wrapper as a *url.Error around
// context.DeadlineExceeded. Both the deadline sentinel and the provider
// sentinel must survive so the transport can map timeouts to 504 instead of 502.
func TestParseProviderError_DeadlineSurvivesWrap(t *testing.T) {
	underlying := &url.Error{
		Op:  "Post",
		URL: "https://api.example.com/v1/embeddings",
		Err: context.DeadlineExceeded,
	}

	err := parseProviderError(underlying, domain.ErrEmbeddingProvider)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("deadline sentinel lost: %v", err)
	}
	if !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("provider sentinel lost: %v", err)
	}
}

func TestExtractDetail(t *testing.T) {
	if got := extractDetail([]byte(`{"detail": "quota exhausted"}`)); got != "quota exhausted" {
		t.Errorf("extractDetail = %q", got)
	}
	if got := extractDetail([]byte(`not json`)); got != "" {
		t.Errorf("extractDetail on garbage = %q, want empty", got)
	}
}

// Providers may return batch items in any order; the adapter restores input
// order by the per-item Index field.
func TestOrderedEmbeddings(t *testing.T) {
	data := []openai.Embedding{
		{Index: 2, Embedding: []float32{3}},
		{Index: 0, Embedding: []float32{1}},
		{Index: 1, Embedding: []float32{2}},
	}

	out := orderedEmbeddings(data)
	for i, want := range []float32{1, 2, 3} {
		if out[i][0] != want {
			t.Fatalf("position %d = %v, want %v", i, out[i][0], want)
		}
	}
}
