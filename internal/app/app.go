// Package app wires the application together: configuration, database pool,
// stores, inference models, ingestion pipeline, and retriever are built here
// with explicit construction and handed to the entry points.
package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pubdex/pubdex/internal/config"
	"github.com/pubdex/pubdex/internal/inference"
	"github.com/pubdex/pubdex/internal/ingest"
	"github.com/pubdex/pubdex/internal/retrieve"
	"github.com/pubdex/pubdex/internal/store"
)

// App is the application container. Build it with Setup and release it with
// Close.
type App struct {
	Config *config.Config
	Logger *slog.Logger

	DBPool       *pgxpool.Pool
	Sources      *store.SourceStore
	Chunks       *store.ChunkStore
	Embedder     inference.Embedder
	CrossEncoder inference.CrossEncoder
	Pipeline     *ingest.Pipeline
	Retriever    *retrieve.Retriever
}

// Close releases all resources. Safe to call on a partially built App.
func (a *App) Close() error {
	if a.Logger != nil {
		a.Logger.Info("shutting down application")
	}

	if a.CrossEncoder != nil {
		if err := a.CrossEncoder.Close(); err != nil {
			a.Logger.Warn("closing cross-encoder", "error", err)
		}
	}
	if a.Embedder != nil {
		if err := a.Embedder.Close(); err != nil {
			a.Logger.Warn("closing embedder", "error", err)
		}
	}
	if a.DBPool != nil {
		a.DBPool.Close()
		a.Logger.Info("database pool closed")
	}
	return nil
}
