package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pubdex/pubdex/db"
	"github.com/pubdex/pubdex/internal/chunk"
	"github.com/pubdex/pubdex/internal/config"
	"github.com/pubdex/pubdex/internal/extract"
	"github.com/pubdex/pubdex/internal/inference"
	"github.com/pubdex/pubdex/internal/ingest"
	"github.com/pubdex/pubdex/internal/retrieve"
	"github.com/pubdex/pubdex/internal/store"
)

// embeddingCacheSize bounds the in-memory LRU of computed embeddings.
const embeddingCacheSize = 1024

// Setup builds and initializes the application: migrations, connection pool,
// stores, loaded models, pipeline, and retriever. On any failure everything
// already initialized is released before returning.
func Setup(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, retErr error) {
	a := &App{Config: cfg, Logger: logger}

	defer func() {
		if retErr != nil {
			if err := a.Close(); err != nil {
				logger.Warn("cleanup during setup failure", "error", err)
			}
		}
	}()

	pool, err := provideDBPool(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.DBPool = pool

	a.Sources = store.NewSourceStore(pool, logger)
	a.Chunks = store.NewChunkStore(pool, cfg.EmbeddingDimension, logger)

	embedder, crossEncoder, err := provideModels(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.Embedder = embedder
	a.CrossEncoder = crossEncoder

	a.Pipeline = providePipeline(cfg, a, logger)
	a.Retriever = retrieve.NewRetriever(embedder, crossEncoder, a.Chunks, logger)

	return a, nil
}

// provideDBPool runs migrations and opens the connection pool.
func provideDBPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := store.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("opening database pool: %w", err)
	}
	return pool, nil
}

// provideModels constructs and eagerly loads the embedding and cross-encoder
// models. Loading happens at startup, never per request.
func provideModels(ctx context.Context, cfg *config.Config, logger *slog.Logger) (inference.Embedder, inference.CrossEncoder, error) {
	embedder := inference.NewONNXEmbedder(
		cfg.EmbedderModelPath, cfg.EmbeddingDimension, cfg.MaxModelTokens, embeddingCacheSize)
	if err := embedder.Load(ctx); err != nil {
		return nil, nil, fmt.Errorf("loading embedder %s: %w", cfg.EmbedderModelPath, err)
	}
	logger.Info("embedder loaded",
		"path", cfg.EmbedderModelPath, "dimensions", cfg.EmbeddingDimension)

	crossEncoder := inference.NewONNXCrossEncoder(cfg.CrossEncoderModelPath, cfg.MaxModelTokens)
	if err := crossEncoder.Load(ctx); err != nil {
		_ = embedder.Close()
		return nil, nil, fmt.Errorf("loading cross-encoder %s: %w", cfg.CrossEncoderModelPath, err)
	}
	logger.Info("cross-encoder loaded", "path", cfg.CrossEncoderModelPath)

	return embedder, crossEncoder, nil
}

// providePipeline wires the ingestion pipeline from already built parts.
func providePipeline(cfg *config.Config, a *App, logger *slog.Logger) *ingest.Pipeline {
	cleaner, err := extract.NewCleaner(extract.DefaultNoisyPrefixes, logger)
	if err != nil {
		// DefaultNoisyPrefixes are compile-time constants; a bad pattern is a
		// programming error.
		panic(err)
	}

	downloader := ingest.NewDownloader(ingest.DownloaderConfig{
		CacheDir:       cfg.CacheDir,
		MaxAttempts:    cfg.MaxRetries,
		AttemptTimeout: time.Duration(cfg.DownloadTimeoutSeconds) * time.Second,
		RateLimit:      cfg.DownloadRateLimit,
	}, logger)

	return ingest.NewPipeline(ingest.Dependencies{
		Downloader: downloader,
		Resolver:   ingest.NewResolver(a.Sources, logger),
		Cleaner:    cleaner,
		Segmenter:  &chunk.Segmenter{},
		Embedder:   a.Embedder,
		Chunks:     a.Chunks,
		Sources:    a.Sources,
		Logger:     logger,
	})
}
