package store

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func TestParseMeasure(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Measure
		wantErr bool
	}{
		{name: "empty defaults to inner product", input: "", want: MeasureMaxInnerProduct},
		{name: "max inner product", input: "max_inner_product", want: MeasureMaxInnerProduct},
		{name: "cosine", input: "cosine", want: MeasureCosine},
		{name: "euclidean", input: "euclidean", want: MeasureEuclidean},
		{name: "unknown", input: "manhattan", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMeasure(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDistanceOperator(t *testing.T) {
	tests := []struct {
		measure Measure
		want    string
	}{
		{MeasureMaxInnerProduct, "<#>"},
		{MeasureCosine, "<=>"},
		{MeasureEuclidean, "<->"},
	}
	for _, tt := range tests {
		op, err := distanceOperator(tt.measure)
		require.NoError(t, err)
		assert.Equal(t, tt.want, op)
	}

	_, err := distanceOperator(Measure("bogus"))
	require.Error(t, err)
}

func TestSimilarityFromDistance(t *testing.T) {
	// <#> yields the negated inner product; flipping the sign recovers it.
	assert.InDelta(t, 0.9, similarityFromDistance(MeasureMaxInnerProduct, -0.9), 1e-9)
	// <=> yields cosine distance in [0, 2].
	assert.InDelta(t, 1.0, similarityFromDistance(MeasureCosine, 0.0), 1e-9)
	assert.InDelta(t, -1.0, similarityFromDistance(MeasureCosine, 2.0), 1e-9)
	// Euclidean distance is negated so higher stays more similar.
	assert.InDelta(t, -3.0, similarityFromDistance(MeasureEuclidean, 3.0), 1e-9)
}

func TestBuildSearchQuery(t *testing.T) {
	vec := []float32{1, 0, 0}

	t.Run("unfiltered uses left join", func(t *testing.T) {
		sql, args, err := buildSearchQuery(vec, SearchParams{K: 5}, MeasureMaxInnerProduct)
		require.NoError(t, err)
		assert.Contains(t, sql, "LEFT JOIN sources")
		assert.Contains(t, sql, "<#>")
		assert.NotContains(t, sql, "WHERE")
		assert.Contains(t, sql, "LIMIT $2")
		assert.Len(t, args, 2)
		assert.Equal(t, 5, args[1])
	})

	t.Run("title filter forces inner join", func(t *testing.T) {
		params := SearchParams{K: 3, Titles: []string{"AFMAN 10-100: Airman's Manual"}}
		sql, args, err := buildSearchQuery(vec, params, MeasureCosine)
		require.NoError(t, err)
		assert.Contains(t, sql, "JOIN sources")
		assert.NotContains(t, sql, "LEFT JOIN")
		assert.Contains(t, sql, "s.title = ANY($2)")
		assert.Contains(t, sql, "<=>")
		assert.Contains(t, sql, "LIMIT $3")
		assert.Len(t, args, 3)
	})

	t.Run("date range adds half-open bounds", func(t *testing.T) {
		from := mustTime(t, "2024-01-01T00:00:00Z")
		to := mustTime(t, "2024-02-01T00:00:00Z")
		params := SearchParams{K: 3, DownloadedFrom: &from, DownloadedTo: &to}
		sql, args, err := buildSearchQuery(vec, params, MeasureEuclidean)
		require.NoError(t, err)
		assert.Contains(t, sql, "s.downloaded_at >= $2")
		assert.Contains(t, sql, "s.downloaded_at < $3")
		assert.Contains(t, sql, "<->")
		assert.Len(t, args, 4)
	})
}

func TestChunkStoreSearch_InvalidK(t *testing.T) {
	s := NewChunkStore(nil, 3, discardLogger())

	for _, k := range []int{0, -1} {
		_, err := s.Search(context.Background(), []float32{1, 0, 0}, SearchParams{K: k})
		require.ErrorIs(t, err, ErrInvalidK)
	}
}

func TestChunkStoreSearch_DimensionMismatch(t *testing.T) {
	s := NewChunkStore(nil, 3, discardLogger())

	_, err := s.Search(context.Background(), []float32{1, 0}, SearchParams{K: 1})
	require.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestChunkStoreIndexBatch_Validation(t *testing.T) {
	s := NewChunkStore(nil, 3, discardLogger())
	ctx := context.Background()

	t.Run("empty batch is a no-op", func(t *testing.T) {
		require.NoError(t, s.IndexBatch(ctx, nil, nil))
	})

	t.Run("empty page content rejected", func(t *testing.T) {
		err := s.IndexBatch(ctx, nil, []Chunk{
			{PageContent: "   ", Embedding: []float32{1, 0, 0}},
		})
		require.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("wrong dimension rejected", func(t *testing.T) {
		err := s.IndexBatch(ctx, nil, []Chunk{
			{PageContent: "ok", Embedding: []float32{1, 0}},
		})
		require.ErrorIs(t, err, ErrDimensionMismatch)
	})
}

func TestChunkAssignsIDs(t *testing.T) {
	// Validation happens before any pool access, and so does ID assignment
	// for valid chunks, so a doomed batch observes assigned IDs up to the
	// first invalid entry.
	chunks := []Chunk{
		{PageContent: "first", Embedding: []float32{1, 0, 0}},
		{PageContent: "", Embedding: []float32{1, 0, 0}},
	}
	s := NewChunkStore(nil, 3, discardLogger())
	err := s.IndexBatch(context.Background(), nil, chunks)
	require.ErrorIs(t, err, ErrEmptyContent)
	assert.NotEqual(t, uuid.Nil, chunks[0].ID)
}

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}
