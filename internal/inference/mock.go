package inference

import (
	"context"
	"math"
)

// MockEmbedder is a deterministic embedder for tests: the same text always
// produces the same unit-length vector of the configured dimension.
type MockEmbedder struct {
	dimensions int
	loaded     bool
}

// NewMockEmbedder returns a deterministic embedder with the given dimensions.
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = 384
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Load marks the embedder loaded.
func (e *MockEmbedder) Load(context.Context) error {
	e.loaded = true
	return nil
}

// Embed returns a deterministic unit-length embedding derived from the text
// hash.
func (e *MockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if !e.loaded {
		return nil, ErrNotLoaded
	}

	h := 0
	for _, c := range text {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}

	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	normalizeMock(emb)
	return emb, nil
}

// EmbedBatch embeds each text in order.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		embeddings[i] = emb
	}
	return embeddings, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int { return e.dimensions }

// Close is a no-op.
func (e *MockEmbedder) Close() error { return nil }

// MockCrossEncoder is a deterministic cross-encoder for tests: it scores a
// pair by word overlap between query and passage, in [0, 1].
type MockCrossEncoder struct {
	loaded bool
}

// NewMockCrossEncoder returns a deterministic cross-encoder.
func NewMockCrossEncoder() *MockCrossEncoder {
	return &MockCrossEncoder{}
}

// Load marks the cross-encoder loaded.
func (c *MockCrossEncoder) Load(context.Context) error {
	c.loaded = true
	return nil
}

// Score returns the word-overlap ratio for each (query, passage) pair.
func (c *MockCrossEncoder) Score(_ context.Context, query string, passages []string) ([]float32, error) {
	if !c.loaded {
		return nil, ErrNotLoaded
	}

	queryWords := make(map[string]struct{})
	for _, w := range splitWords(query) {
		queryWords[w] = struct{}{}
	}

	scores := make([]float32, len(passages))
	for i, passage := range passages {
		words := splitWords(passage)
		if len(words) == 0 || len(queryWords) == 0 {
			continue
		}
		hits := 0
		for _, w := range words {
			if _, ok := queryWords[w]; ok {
				hits++
			}
		}
		scores[i] = float32(hits) / float32(len(words))
	}
	return scores, nil
}

// Close is a no-op.
func (c *MockCrossEncoder) Close() error { return nil }

func normalizeMock(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v * v)
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(sum))
	for i := range x {
		x[i] *= norm
	}
}
