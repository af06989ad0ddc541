package session

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/askdoc-cloud/askdoc/internal/domain"
	"github.com/askdoc-cloud/askdoc/internal/index"
	"github.com/askdoc-cloud/askdoc/internal/usecase/retrieve"
)

type fakeLoader struct {
	segments []domain.Segment
	err      error
}

func (f *fakeLoader) Load(_ context.Context, _ []byte, _ string) ([]domain.Segment, error) {
	return f.segments, f.err
}

type fakeChunker struct {
	err      error
	prefixes []string
}

func (f *fakeChunker) Chunk(_ context.Context, idPrefix string, segments []domain.Segment) ([]domain.Chunk, error) {
	f.prefixes = append(f.prefixes, idPrefix)
	if f.err != nil {
		return nil, f.err
	}
	chunks := make([]domain.Chunk, len(segments))
	for i, seg := range segments {
		chunks[i] = domain.Chunk{ID: idPrefix + "-" + string(rune('0'+i)), Text: seg.Text, Segments: []int{i}}
	}
	return chunks, nil
}

// fakeEmbedder assigns distinct axis-aligned vectors so ranking is exact. The
// optional onBatch hook runs before returning, which lets a test start a
// second upload in the middle of the first one's embedding phase.
type fakeEmbedder struct {
	err     error
	onBatch func()
	calls   int
}

func (f *fakeEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	f.calls++
	if f.onBatch != nil {
		hook := f.onBatch
		f.onBatch = nil
		hook()
	}
	if f.err != nil {
		return domain.BatchEmbeddingResult{}, f.err
	}
	embeddings := make([][]float32, len(texts))
	for i := range texts {
		v := make([]float32, 3)
		v[i%3] = 1
		embeddings[i] = v
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings, TotalTokens: len(texts) * 10}, nil
}

type fakeParser struct{ parsed domain.ParsedQuery }

func (f *fakeParser) Parse(_ context.Context, _ string) domain.ParsedQuery { return f.parsed }

// fakeRetriever records which index it was handed and returns its first chunk.
type fakeRetriever struct {
	searched []retrieve.Searcher
	err      error
}

func (f *fakeRetriever) Retrieve(ctx context.Context, idx retrieve.Searcher, _ string, k int) ([]domain.Hit, error) {
	f.searched = append(f.searched, idx)
	if f.err != nil {
		return nil, f.err
	}
	return idx.Search(ctx, []float32{1, 0, 0}, k)
}

type fakeSynthesizer struct {
	answer domain.Answer
	err    error
	hits   [][]domain.Hit
}

func (f *fakeSynthesizer) Synthesize(_ context.Context, _ string, _ domain.ParsedQuery, hits []domain.Hit) (domain.Answer, error) {
	f.hits = append(f.hits, hits)
	if f.err != nil {
		return domain.Answer{}, f.err
	}
	return f.answer, nil
}

func segs(texts ...string) []domain.Segment {
	out := make([]domain.Segment, len(texts))
	for i, txt := range texts {
		out[i] = domain.Segment{SourceID: "doc", Position: i, Text: txt}
	}
	return out
}

func newTestService(loader Loader, embed Embedder, ret Retriever, synth Synthesizer) *Service {
	return New(
		loader, &fakeChunker{}, embed,
		&fakeParser{parsed: domain.AllUnknown()}, ret, synth,
		func() index.Index { return index.NewMemory() }, 4, zap.NewNop(),
	)
}

func TestAskQuestion_BeforeUpload(t *testing.T) {
	svc := newTestService(&fakeLoader{}, &fakeEmbedder{}, &fakeRetriever{}, &fakeSynthesizer{})

	_, err := svc.AskQuestion(context.Background(), "is knee surgery covered?")
	if !errors.Is(err, domain.ErrEmptyIndex) {
		t.Fatalf("expected ErrEmptyIndex, got %v", err)
	}
}

func TestUploadThenAsk(t *testing.T) {
	synth := &fakeSynthesizer{answer: domain.Answer{
		Decision:      domain.DecisionApproved,
		Justification: "covered per section 4",
		SourceChunks:  []string{"x"},
	}}
	ret := &fakeRetriever{}
	svc := newTestService(&fakeLoader{segments: segs("alpha", "beta")}, &fakeEmbedder{}, ret, synth)

	res, err := svc.UploadDocument(context.Background(), []byte("raw"), "policy.pdf")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if res.DocumentID == "" || res.Filename != "policy.pdf" || res.Chunks != 2 {
		t.Errorf("unexpected result: %+v", res)
	}

	ans, err := svc.AskQuestion(context.Background(), "covered?")
	if err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if ans.Decision != domain.DecisionApproved {
		t.Errorf("decision = %q", ans.Decision)
	}
	if len(synth.hits) != 1 || len(synth.hits[0]) == 0 {
		t.Errorf("synthesizer did not receive hits: %+v", synth.hits)
	}
}

func TestUploadDocument_ChunkIDPrefixFromDocumentID(t *testing.T) {
	chunker := &fakeChunker{}
	svc := New(
		&fakeLoader{segments: segs("alpha")}, chunker, &fakeEmbedder{},
		&fakeParser{}, &fakeRetriever{}, &fakeSynthesizer{},
		func() index.Index { return index.NewMemory() }, 4, zap.NewNop(),
	)

	res, err := svc.UploadDocument(context.Background(), []byte("raw"), "a.txt")
	if err != nil {
		t.Fatalf("upload failed: %v", err)
	}
	if len(chunker.prefixes) != 1 || !strings.HasPrefix(res.DocumentID, chunker.prefixes[0]) {
		t.Errorf("prefix %v not derived from document id %s", chunker.prefixes, res.DocumentID)
	}
	if len(chunker.prefixes[0]) != 8 {
		t.Errorf("prefix length = %d", len(chunker.prefixes[0]))
	}
}

func TestUploadDocument_FailureKeepsPreviousIndex(t *testing.T) {
	loader := &fakeLoader{segments: segs("alpha")}
	embed := &fakeEmbedder{}
	ret := &fakeRetriever{}
	svc := newTestService(loader, embed, ret, &fakeSynthesizer{answer: domain.Answer{
		Decision: domain.DecisionRejected, Justification: "x", SourceChunks: []string{"y"},
	}})

	if _, err := svc.UploadDocument(context.Background(), []byte("raw"), "a.txt"); err != nil {
		t.Fatalf("first upload failed: %v", err)
	}

	embed.err = domain.ErrEmbeddingProvider
	if _, err := svc.UploadDocument(context.Background(), []byte("raw"), "b.txt"); !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected embedding error, got %v", err)
	}

	if _, err := svc.AskQuestion(context.Background(), "still there?"); err != nil {
		t.Fatalf("previous index should still answer: %v", err)
	}
}

func TestUploadDocument_SupersededBuildNeverInstalls(t *testing.T) {
	embed := &fakeEmbedder{}
	ret := &fakeRetriever{}
	svc := newTestService(&fakeLoader{segments: segs("old")}, embed, ret, &fakeSynthesizer{answer: domain.Answer{
		Decision: domain.DecisionApproved, Justification: "x", SourceChunks: []string{"y"},
	}})

	var newerErr error
	var newerRes UploadResult
	embed.onBatch = func() {
		newerRes, newerErr = svc.UploadDocument(context.Background(), []byte("newer"), "newer.txt")
	}

	_, err := svc.UploadDocument(context.Background(), []byte("older"), "older.txt")
	if !errors.Is(err, domain.ErrBuildSuperseded) {
		t.Fatalf("expected ErrBuildSuperseded, got %v", err)
	}
	if newerErr != nil {
		t.Fatalf("newer upload failed: %v", newerErr)
	}

	if _, err := svc.AskQuestion(context.Background(), "which doc?"); err != nil {
		t.Fatalf("ask failed: %v", err)
	}
	if len(ret.searched) != 1 {
		t.Fatalf("expected one retrieval, got %d", len(ret.searched))
	}
	if newerRes.Chunks != 1 {
		t.Errorf("newer build chunks = %d", newerRes.Chunks)
	}
}

func TestAskQuestion_RetrieveErrorPropagates(t *testing.T) {
	ret := &fakeRetriever{}
	svc := newTestService(&fakeLoader{segments: segs("alpha")}, &fakeEmbedder{}, ret, &fakeSynthesizer{})

	if _, err := svc.UploadDocument(context.Background(), []byte("raw"), "a.txt"); err != nil {
		t.Fatalf("upload failed: %v", err)
	}

	ret.err = domain.ErrEmbeddingProvider
	if _, err := svc.AskQuestion(context.Background(), "q"); !errors.Is(err, domain.ErrEmbeddingProvider) {
		t.Fatalf("expected embedding error, got %v", err)
	}
}
