//go:build !cgo
// +build !cgo

package inference

import (
	"context"
	"errors"
)

var errNoCGO = errors.New("ONNX inference requires CGO; build with CGO_ENABLED=1 and onnxruntime")

// ONNXEmbedder stub type when built without CGO (see onnx.go for the real
// implementation).
type ONNXEmbedder struct {
	dimensions int
}

// NewONNXEmbedder returns a stub whose Load always fails without CGO.
func NewONNXEmbedder(_ string, dimensions, _, _ int) *ONNXEmbedder {
	return &ONNXEmbedder{dimensions: dimensions}
}

func (e *ONNXEmbedder) Load(context.Context) error { return errNoCGO }

func (e *ONNXEmbedder) Embed(context.Context, string) ([]float32, error) { return nil, errNoCGO }

func (e *ONNXEmbedder) EmbedBatch(context.Context, []string) ([][]float32, error) {
	return nil, errNoCGO
}

func (e *ONNXEmbedder) Dimensions() int { return e.dimensions }

func (e *ONNXEmbedder) Close() error { return nil }

// ONNXCrossEncoder stub type when built without CGO.
type ONNXCrossEncoder struct{}

// NewONNXCrossEncoder returns a stub whose Load always fails without CGO.
func NewONNXCrossEncoder(string, int) *ONNXCrossEncoder {
	return &ONNXCrossEncoder{}
}

func (c *ONNXCrossEncoder) Load(context.Context) error { return errNoCGO }

func (c *ONNXCrossEncoder) Score(context.Context, string, []string) ([]float32, error) {
	return nil, errNoCGO
}

func (c *ONNXCrossEncoder) Close() error { return nil }
