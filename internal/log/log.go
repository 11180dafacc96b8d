// Package log provides the logging infrastructure shared by all pubdex components.
//
// Loggers are injected, never global: the composition root creates one logger at
// startup and hands scoped children to each component via logger.With().
//
// Usage:
//
//	logger := log.New(log.Config{Level: slog.LevelInfo})
//	pipeline := ingest.NewPipeline(deps, logger.With("component", "ingest"))
//	retriever := retrieve.New(deps, logger.With("component", "retrieve"))
//
// Tests use log.NewNop() or NewWithWriter with a buffer to assert on output.
package log

import (
	"io"
	"log/slog"
	"os"
)

// Logger is a type alias for *slog.Logger.
// Components accept log.Logger as a constructor dependency; the alias keeps full
// compatibility with the slog ecosystem and With() for contextual attributes.
type Logger = *slog.Logger

// Config defines logger configuration options.
type Config struct {
	// Level sets the minimum log level. Default: slog.LevelInfo
	Level slog.Level

	// JSON enables JSON format output. Default: false (text format)
	JSON bool

	// AddSource adds source file information to log entries. Default: false
	AddSource bool
}

// New creates a new logger with the given configuration.
// Output is written to os.Stderr by default.
func New(cfg Config) Logger {
	return NewWithWriter(os.Stderr, cfg)
}

// NewWithWriter creates a new logger that writes to the specified writer.
// Useful for testing or custom output destinations.
func NewWithWriter(w io.Writer, cfg Config) Logger {
	opts := &slog.HandlerOptions{
		Level:     cfg.Level,
		AddSource: cfg.AddSource,
	}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// NewNop creates a logger that discards all output.
//
// Only for tests. Production code should always use New() or NewWithWriter()
// with real configuration so ingestion warnings are never silently dropped.
func NewNop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
