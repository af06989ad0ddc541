// Package embedding decorates the provider contracts with the resilience
// concerns of the pipeline: bounded retry with backoff for the two network
// suspension points, and a query embedding cache.
package embedding

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/askdoc-cloud/askdoc/internal/domain"
)

const (
	retryBaseDelay = 200 * time.Millisecond
	retryMaxDelay  = 2 * time.Second
)

// RetryConfig bounds provider calls. Retries counts attempts after the first;
// Timeout applies per attempt.
type RetryConfig struct {
	Retries uint
	Timeout time.Duration
}

func (c RetryConfig) options(ctx context.Context, logger *zap.Logger, op string) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(c.Retries + 1),
		retry.Delay(retryBaseDelay),
		retry.MaxDelay(retryMaxDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(attempt uint, err error) {
			logger.Warn("Provider call failed, retrying",
				zap.String("operation", op),
				zap.Uint("attempt", attempt+1),
				zap.Error(err),
			)
		}),
	}
}

// RetryingEmbedder wraps an embedder with per-attempt timeouts and retry.
type RetryingEmbedder struct {
	inner  interface {
		domain.Embedder
		domain.BatchEmbedder
	}
	cfg    RetryConfig
	logger *zap.Logger
}

// NewRetryingEmbedder creates the retry decorator for an embedder.
func NewRetryingEmbedder(
	inner interface {
		domain.Embedder
		domain.BatchEmbedder
	},
	cfg RetryConfig, logger *zap.Logger,
) *RetryingEmbedder {
	return &RetryingEmbedder{inner: inner, cfg: cfg, logger: logger}
}

// Embed delegates with retry.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	return retry.DoWithData(func() (domain.EmbeddingResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
		return r.inner.Embed(callCtx, text)
	}, r.cfg.options(ctx, r.logger, "embed")...)
}

// BatchEmbed delegates with retry.
func (r *RetryingEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	return retry.DoWithData(func() (domain.BatchEmbeddingResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
		return r.inner.BatchEmbed(callCtx, texts)
	}, r.cfg.options(ctx, r.logger, "batch_embed")...)
}

// RetryingGenerator wraps a generator with per-attempt timeouts and retry.
type RetryingGenerator struct {
	inner  domain.Generator
	cfg    RetryConfig
	logger *zap.Logger
}

// NewRetryingGenerator creates the retry decorator for a generator.
func NewRetryingGenerator(inner domain.Generator, cfg RetryConfig, logger *zap.Logger) *RetryingGenerator {
	return &RetryingGenerator{inner: inner, cfg: cfg, logger: logger}
}

// Generate delegates with retry.
func (r *RetryingGenerator) Generate(ctx context.Context, req domain.GenerateRequest) (domain.GenerateResult, error) {
	return retry.DoWithData(func() (domain.GenerateResult, error) {
		callCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
		return r.inner.Generate(callCtx, req)
	}, r.cfg.options(ctx, r.logger, "generate")...)
}
