//go:build cgo
// +build cgo

package inference

import (
	"context"
	"fmt"
	"math"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// ONNXEmbedder runs a sentence-transformer ONNX model (e.g. all-MiniLM-L6-v2).
// It requires CGO and the onnxruntime shared library.
//
// Tensors are allocated once in Load() and reused across calls; a mutex
// serializes Run() because the session is not safe for concurrent inference.
type ONNXEmbedder struct {
	modelPath  string
	dimensions int
	maxTokens  int
	cache      *embeddingCache
	tokenizer  Tokenizer

	mu                  sync.Mutex
	session             *ort.AdvancedSession
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
}

// NewONNXEmbedder creates an embedder for the model at modelPath. The model
// is not loaded until Load() is called.
func NewONNXEmbedder(modelPath string, dimensions, maxTokens, cacheSize int) *ONNXEmbedder {
	return &ONNXEmbedder{
		modelPath:  modelPath,
		dimensions: dimensions,
		maxTokens:  maxTokens,
		cache:      newEmbeddingCache(cacheSize),
		tokenizer:  wordTokenizer{},
	}
}

// Load initializes the ONNX runtime, allocates tensors, and opens the session.
func (e *ONNXEmbedder) Load(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session != nil {
		return nil
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize("", e.maxTokens)

	var err error
	e.inputIDsTensor, err = ort.NewTensor(ort.NewShape(1, int64(e.maxTokens)), inputIDs)
	if err != nil {
		return fmt.Errorf("creating input_ids tensor: %w", err)
	}
	e.attentionMaskTensor, err = ort.NewTensor(ort.NewShape(1, int64(e.maxTokens)), attentionMask)
	if err != nil {
		e.destroyTensors()
		return fmt.Errorf("creating attention_mask tensor: %w", err)
	}
	e.tokenTypeIDsTensor, err = ort.NewTensor(ort.NewShape(1, int64(e.maxTokens)), tokenTypeIDs)
	if err != nil {
		e.destroyTensors()
		return fmt.Errorf("creating token_type_ids tensor: %w", err)
	}
	e.outputTensor, err = ort.NewTensor(ort.NewShape(1, int64(e.dimensions)), make([]float32, e.dimensions))
	if err != nil {
		e.destroyTensors()
		return fmt.Errorf("creating output tensor: %w", err)
	}

	e.session, err = ort.NewAdvancedSession(
		e.modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"output"},
		[]ort.ArbitraryTensor{e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{e.outputTensor},
		nil,
	)
	if err != nil {
		e.destroyTensors()
		return fmt.Errorf("creating ONNX session for %s: %w", e.modelPath, err)
	}

	return nil
}

// Embed returns the L2-normalized embedding for text, using the cache when
// available.
func (e *ONNXEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return nil, ErrNotLoaded
	}

	inputIDs, attentionMask, tokenTypeIDs := e.tokenizer.Tokenize(text, e.maxTokens)
	copy(e.inputIDsTensor.GetData(), inputIDs)
	copy(e.attentionMaskTensor.GetData(), attentionMask)
	copy(e.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

	if err := e.session.Run(); err != nil {
		return nil, fmt.Errorf("embedder inference failed: %w", err)
	}

	embedding := make([]float32, e.dimensions)
	copy(embedding, e.outputTensor.GetData()[:e.dimensions])

	normalizeL2(embedding)
	e.cache.Set(text, embedding)
	return embedding, nil
}

// EmbedBatch embeds each text in order.
func (e *ONNXEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
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

// Dimensions returns the embedding width.
func (e *ONNXEmbedder) Dimensions() int {
	return e.dimensions
}

// Close destroys the session and tensors.
func (e *ONNXEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var err error
	if e.session != nil {
		err = e.session.Destroy()
		e.session = nil
	}
	e.destroyTensors()
	return err
}

func (e *ONNXEmbedder) destroyTensors() {
	for _, t := range []*ort.Tensor[int64]{e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	if e.outputTensor != nil {
		_ = e.outputTensor.Destroy()
	}
	e.inputIDsTensor, e.attentionMaskTensor, e.tokenTypeIDsTensor, e.outputTensor = nil, nil, nil, nil
}

// ONNXCrossEncoder runs a cross-encoder ONNX model (e.g. ms-marco-MiniLM-L-6-v2)
// producing one relevance logit per (query, passage) pair.
type ONNXCrossEncoder struct {
	modelPath string
	maxTokens int
	tokenizer Tokenizer

	mu                  sync.Mutex
	session             *ort.AdvancedSession
	inputIDsTensor      *ort.Tensor[int64]
	attentionMaskTensor *ort.Tensor[int64]
	tokenTypeIDsTensor  *ort.Tensor[int64]
	outputTensor        *ort.Tensor[float32]
}

// NewONNXCrossEncoder creates a cross-encoder for the model at modelPath. The
// model is not loaded until Load() is called.
func NewONNXCrossEncoder(modelPath string, maxTokens int) *ONNXCrossEncoder {
	return &ONNXCrossEncoder{
		modelPath: modelPath,
		maxTokens: maxTokens,
		tokenizer: wordTokenizer{},
	}
}

// Load initializes the ONNX runtime, allocates tensors, and opens the session.
func (c *ONNXCrossEncoder) Load(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return nil
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initializing ONNX runtime: %w", err)
	}

	inputIDs, attentionMask, tokenTypeIDs := c.tokenizer.TokenizePair("", "", c.maxTokens)

	var err error
	c.inputIDsTensor, err = ort.NewTensor(ort.NewShape(1, int64(c.maxTokens)), inputIDs)
	if err != nil {
		return fmt.Errorf("creating input_ids tensor: %w", err)
	}
	c.attentionMaskTensor, err = ort.NewTensor(ort.NewShape(1, int64(c.maxTokens)), attentionMask)
	if err != nil {
		c.destroyTensors()
		return fmt.Errorf("creating attention_mask tensor: %w", err)
	}
	c.tokenTypeIDsTensor, err = ort.NewTensor(ort.NewShape(1, int64(c.maxTokens)), tokenTypeIDs)
	if err != nil {
		c.destroyTensors()
		return fmt.Errorf("creating token_type_ids tensor: %w", err)
	}
	c.outputTensor, err = ort.NewTensor(ort.NewShape(1, 1), make([]float32, 1))
	if err != nil {
		c.destroyTensors()
		return fmt.Errorf("creating output tensor: %w", err)
	}

	c.session, err = ort.NewAdvancedSession(
		c.modelPath,
		[]string{"input_ids", "attention_mask", "token_type_ids"},
		[]string{"logits"},
		[]ort.ArbitraryTensor{c.inputIDsTensor, c.attentionMaskTensor, c.tokenTypeIDsTensor},
		[]ort.ArbitraryTensor{c.outputTensor},
		nil,
	)
	if err != nil {
		c.destroyTensors()
		return fmt.Errorf("creating ONNX session for %s: %w", c.modelPath, err)
	}

	return nil
}

// Score returns one relevance score per passage, order-preserving.
func (c *ONNXCrossEncoder) Score(ctx context.Context, query string, passages []string) ([]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session == nil {
		return nil, ErrNotLoaded
	}

	scores := make([]float32, len(passages))
	for i, passage := range passages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		inputIDs, attentionMask, tokenTypeIDs := c.tokenizer.TokenizePair(query, passage, c.maxTokens)
		copy(c.inputIDsTensor.GetData(), inputIDs)
		copy(c.attentionMaskTensor.GetData(), attentionMask)
		copy(c.tokenTypeIDsTensor.GetData(), tokenTypeIDs)

		if err := c.session.Run(); err != nil {
			return nil, fmt.Errorf("cross-encoder inference failed: %w", err)
		}
		scores[i] = c.outputTensor.GetData()[0]
	}
	return scores, nil
}

// Close destroys the session and tensors.
func (c *ONNXCrossEncoder) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var err error
	if c.session != nil {
		err = c.session.Destroy()
		c.session = nil
	}
	c.destroyTensors()
	return err
}

func (c *ONNXCrossEncoder) destroyTensors() {
	for _, t := range []*ort.Tensor[int64]{c.inputIDsTensor, c.attentionMaskTensor, c.tokenTypeIDsTensor} {
		if t != nil {
			_ = t.Destroy()
		}
	}
	if c.outputTensor != nil {
		_ = c.outputTensor.Destroy()
	}
	c.inputIDsTensor, c.attentionMaskTensor, c.tokenTypeIDsTensor, c.outputTensor = nil, nil, nil, nil
}

// normalizeL2 normalizes the slice in place to unit L2 norm.
func normalizeL2(x []float32) {
	var sum float32
	for _, v := range x {
		sum += v * v
	}
	if sum == 0 {
		return
	}
	norm := float32(1.0 / math.Sqrt(float64(sum)))
	for i := range x {
		x[i] *= norm
	}
}
