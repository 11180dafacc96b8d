// Package inference provides the model capabilities the pipeline consumes:
// a sentence embedder for vector indexing and a cross-encoder for re-ranking.
//
// Both capabilities follow an explicit two-phase lifecycle: Load() is called
// once at service startup (fallible, may read model artifacts from disk), and
// inference methods assume a loaded model. Callers must never rely on lazy
// loading inside a request.
//
// The ONNX implementations serialize inference through a mutex because the
// underlying runtime session is not safe for concurrent Run() calls; the
// mutex keeps the capabilities safe to share across retrieval goroutines.
package inference

import (
	"context"
	"errors"
)

// ErrNotLoaded is returned by inference methods invoked before Load().
var ErrNotLoaded = errors.New("model not loaded: call Load() during startup")

// Embedder produces fixed-dimension vector embeddings for text.
type Embedder interface {
	// Load prepares the model for inference. Must be called before Embed.
	Load(ctx context.Context) error

	// Embed returns the embedding for text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one embedding per input text, order-preserving.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding width.
	Dimensions() int

	// Close releases model resources.
	Close() error
}

// CrossEncoder scores (query, passage) pairs for relevance.
type CrossEncoder interface {
	// Load prepares the model for inference. Must be called before Score.
	Load(ctx context.Context) error

	// Score returns one relevance score per passage, order-preserving with
	// the input slice and of the same length.
	Score(ctx context.Context, query string, passages []string) ([]float32, error)

	// Close releases model resources.
	Close() error
}
