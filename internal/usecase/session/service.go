// Package session owns the mutable pipeline state: the current vector index
// and the generation counter that keeps superseded builds out of it. Every
// other component is stateless per call.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/askdoc-cloud/askdoc/internal/domain"
	"github.com/askdoc-cloud/askdoc/internal/index"
)

// UploadResult reports a completed document build.
type UploadResult struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Chunks     int    `json:"chunks"`
}

// Service processes one document at a time and answers questions against it.
type Service struct {
	loader   Loader
	chunker  Chunker
	embed    Embedder
	parser   Parser
	ret      Retriever
	synth    Synthesizer
	newIndex IndexFactory
	topK     int
	logger   *zap.Logger

	mu         sync.RWMutex
	current    index.Index
	generation uint64
}

// New creates a session service.
func New(
	loader Loader, chunker Chunker, embed Embedder,
	parser Parser, ret Retriever, synth Synthesizer,
	newIndex IndexFactory, topK int, logger *zap.Logger,
) *Service {
	return &Service{
		loader: loader, chunker: chunker, embed: embed,
		parser: parser, ret: ret, synth: synth,
		newIndex: newIndex, topK: topK, logger: logger,
	}
}

// UploadDocument runs the full build pipeline for one document and, on
// success, atomically replaces the current index. The expensive work happens
// outside the lock; a build superseded by a newer upload is discarded and
// reported as domain.ErrBuildSuperseded. Any failure leaves the previously
// installed index untouched.
func (s *Service) UploadDocument(ctx context.Context, data []byte, filename string) (UploadResult, error) {
	s.mu.Lock()
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	docID := uuid.NewString()

	segments, err := s.loader.Load(ctx, data, filename)
	if err != nil {
		return UploadResult{}, fmt.Errorf("load document: %w", err)
	}

	chunks, err := s.chunker.Chunk(ctx, docID[:8], segments)
	if err != nil {
		return UploadResult{}, fmt.Errorf("chunk document: %w", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	batch, err := s.embed.BatchEmbed(ctx, texts)
	if err != nil {
		return UploadResult{}, fmt.Errorf("embed chunks: %w", err)
	}
	if len(batch.Embeddings) != len(chunks) {
		return UploadResult{}, fmt.Errorf("embed chunks: got %d vectors for %d chunks",
			len(batch.Embeddings), len(chunks))
	}

	entries := make([]domain.Entry, len(chunks))
	for i, c := range chunks {
		entries[i] = domain.Entry{Chunk: c, Vector: batch.Embeddings[i]}
	}

	idx := s.newIndex()
	if err := idx.Build(ctx, entries); err != nil {
		return UploadResult{}, fmt.Errorf("build index: %w", err)
	}

	s.mu.Lock()
	if s.generation != gen {
		s.mu.Unlock()
		s.logger.Warn("Discarding superseded index build",
			zap.String("document_id", docID),
			zap.Uint64("generation", gen),
		)
		return UploadResult{}, domain.ErrBuildSuperseded
	}
	s.current = idx
	s.mu.Unlock()

	s.logger.Info("Document indexed",
		zap.String("document_id", docID),
		zap.String("filename", filename),
		zap.Int("segments", len(segments)),
		zap.Int("chunks", len(chunks)),
		zap.Int("tokens", batch.TotalTokens),
	)

	return UploadResult{DocumentID: docID, Filename: filename, Chunks: len(chunks)}, nil
}

// AskQuestion answers a question against the currently installed index. The
// index is snapshotted up front, so a concurrent upload cannot swap it out
// mid-question.
func (s *Service) AskQuestion(ctx context.Context, question string) (domain.Answer, error) {
	s.mu.RLock()
	idx := s.current
	s.mu.RUnlock()

	if idx == nil {
		return domain.Answer{}, domain.ErrEmptyIndex
	}

	parsed := s.parser.Parse(ctx, question)

	hits, err := s.ret.Retrieve(ctx, idx, question, s.topK)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("retrieve chunks: %w", err)
	}

	ans, err := s.synth.Synthesize(ctx, question, parsed, hits)
	if err != nil {
		return domain.Answer{}, err
	}

	s.logger.Info("Question answered",
		zap.String("decision", string(ans.Decision)),
		zap.Int("source_chunks", len(ans.SourceChunks)),
	)
	return ans, nil
}
