package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/askdoc-cloud/askdoc/internal/chunker"
	"github.com/askdoc-cloud/askdoc/internal/config"
	"github.com/askdoc-cloud/askdoc/internal/domain"
	"github.com/askdoc-cloud/askdoc/internal/index"
	"github.com/askdoc-cloud/askdoc/internal/loader"
	logpkg "github.com/askdoc-cloud/askdoc/internal/logger"
	"github.com/askdoc-cloud/askdoc/internal/metrics"
	chiTransport "github.com/askdoc-cloud/askdoc/internal/transport/chi"
	openaiProvider "github.com/askdoc-cloud/askdoc/internal/transport/openai"
	answeruc "github.com/askdoc-cloud/askdoc/internal/usecase/answer"
	embeddinguc "github.com/askdoc-cloud/askdoc/internal/usecase/embedding"
	parseuc "github.com/askdoc-cloud/askdoc/internal/usecase/parse"
	retrieveuc "github.com/askdoc-cloud/askdoc/internal/usecase/retrieve"
	sessionuc "github.com/askdoc-cloud/askdoc/internal/usecase/session"
	"github.com/askdoc-cloud/askdoc/internal/version"
)

func main() {
	// .env is optional, real deployments set the environment directly
	_ = godotenv.Load()

	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting askdoc API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("index_driver", cfg.Index.Driver),
		zap.String("embedding_model", cfg.Provider.EmbeddingModel),
		zap.String("generation_model", cfg.Provider.GenerationModel),
	)

	// Register provider metrics explicitly (no init())
	metrics.RegisterProviderMetrics()

	retryCfg := embeddinguc.RetryConfig{
		Retries: uint(cfg.Provider.RetryAttempts),
		Timeout: time.Duration(cfg.Provider.TimeoutSec) * time.Second,
	}

	embedder, generator := buildProviders(&cfg, retryCfg, logger)

	docLoader := loader.New(logger)

	chunk, err := chunker.New(cfg.Pipeline.ChunkSize, cfg.Pipeline.ChunkOverlap)
	if err != nil {
		logger.Fatal("Invalid chunking settings", zap.Error(err))
	}

	newIndex := indexFactory(cfg.Index.Driver)
	if newIndex == nil {
		logger.Fatal("Unknown index driver", zap.String("driver", cfg.Index.Driver))
	}

	parseSvc := parseuc.New(generator, logger)
	retrieveSvc := retrieveuc.New(embedder, logger)
	answerSvc := answeruc.New(generator, logger)

	sessionSvc := sessionuc.New(
		docLoader, chunk, embedder,
		parseSvc, retrieveSvc, answerSvc,
		newIndex, cfg.Pipeline.TopK, logger,
	)

	server := chiTransport.NewServer(sessionSvc, cfg.HTTP.MaxUploadBytes, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Routes(),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// combinedEmbedder is what the decorators need from the layer below.
type combinedEmbedder interface {
	domain.Embedder
	domain.BatchEmbedder
}

// buildProviders assembles the decorator chains:
// embedder: OpenAI -> Cached -> Retrying; generator: OpenAI -> Retrying.
func buildProviders(
	cfg *config.Config, retryCfg embeddinguc.RetryConfig, logger *zap.Logger,
) (combinedEmbedder, domain.Generator) {
	embBase := openaiProvider.NewEmbedder(&openaiProvider.Config{
		APIKey:     cfg.Provider.APIKey,
		BaseURL:    cfg.Provider.BaseURL,
		Model:      cfg.Provider.EmbeddingModel,
		Dimensions: cfg.Provider.EmbeddingDimensions,
		Logger:     logger,
	})

	var embedder combinedEmbedder = embBase
	if cfg.Pipeline.EmbedCacheSize > 0 {
		embedder = embeddinguc.NewCachedEmbedder(embedder, cfg.Pipeline.EmbedCacheSize, metrics.EmbeddingCacheTotal)
	}
	embedder = embeddinguc.NewRetryingEmbedder(embedder, retryCfg, logger)

	genBase := openaiProvider.NewGenerator(&openaiProvider.Config{
		APIKey:  cfg.Provider.APIKey,
		BaseURL: cfg.Provider.BaseURL,
		Model:   cfg.Provider.GenerationModel,
		Logger:  logger,
	})
	generator := embeddinguc.NewRetryingGenerator(genBase, retryCfg, logger)

	return embedder, generator
}

// indexFactory maps a driver name to a constructor for fresh per-document
// indexes. Returns nil for unknown drivers.
func indexFactory(driver string) sessionuc.IndexFactory {
	switch driver {
	case "memory":
		return func() index.Index { return index.NewMemory() }
	case "chromem":
		return func() index.Index { return index.NewChromem() }
	default:
		return nil
	}
}
