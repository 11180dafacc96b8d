// Package store persists sources and chunks in PostgreSQL with pgvector, and
// serves metadata-filtered nearest-neighbor search over chunk embeddings.
//
// The ingestion pipeline is the sole writer; retrieval only reads. Chunk
// writes for one source are atomic as a unit, and there is no cross-source
// transaction.
package store

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidK is returned by Search when k is not a positive integer.
	ErrInvalidK = errors.New("k must be a positive integer")

	// ErrEmptyContent is returned when a chunk with empty page content is
	// submitted for indexing.
	ErrEmptyContent = errors.New("chunk page content must not be empty")

	// ErrDimensionMismatch is returned when an embedding's width does not
	// match the configured dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")
)

// Source is a logical document a chunk was extracted from. Sources are never
// deleted by the pipeline.
type Source struct {
	ID           uuid.UUID
	Title        string
	Description  string
	DownloadedAt time.Time // zero when unknown
	PrivateURL   string
	PublicURL    string
}

// Chunk is one retrievable unit of a document. Immutable once written;
// replaced only by re-indexing its source.
type Chunk struct {
	ID          uuid.UUID
	PageContent string
	SourceID    *uuid.UUID // nil when no unique source match was found
	Embedding   []float32
}

// Measure selects the vector similarity used by Search.
type Measure string

const (
	// MeasureMaxInnerProduct ranks by inner product (the default; embeddings
	// are L2-normalized so this equals cosine similarity up to scale).
	MeasureMaxInnerProduct Measure = "max_inner_product"

	// MeasureCosine ranks by cosine similarity.
	MeasureCosine Measure = "cosine"

	// MeasureEuclidean ranks by negative Euclidean distance.
	MeasureEuclidean Measure = "euclidean"
)

// ParseMeasure maps a configuration name onto a Measure, defaulting to
// maximum inner product for the empty string.
func ParseMeasure(name string) (Measure, error) {
	switch name {
	case "", string(MeasureMaxInnerProduct):
		return MeasureMaxInnerProduct, nil
	case string(MeasureCosine):
		return MeasureCosine, nil
	case string(MeasureEuclidean):
		return MeasureEuclidean, nil
	default:
		return "", errors.New("unknown similarity measure: " + name)
	}
}

// SearchParams configures a vector search.
type SearchParams struct {
	// K is the maximum number of hits to return. Must be positive.
	K int

	// Measure selects the similarity ranking. Empty means max inner product.
	Measure Measure

	// Titles, when non-empty, restricts hits to chunks whose source title is
	// in the list (exact match).
	Titles []string

	// DownloadedFrom/DownloadedTo restrict hits to chunks whose source was
	// downloaded in the half-open interval [from, to). Either bound may be
	// nil.
	DownloadedFrom *time.Time
	DownloadedTo   *time.Time
}

// SearchHit is one vector-search result with its provenance columns.
type SearchHit struct {
	ChunkID     uuid.UUID
	PageContent string
	SourceID    *uuid.UUID
	SourceTitle *string
	SourceURL   *string

	// Similarity is measure-dependent: inner product, cosine similarity, or
	// negative Euclidean distance. Higher is always more similar.
	Similarity float64
}
