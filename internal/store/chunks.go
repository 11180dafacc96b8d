package store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkStore reads and writes embedded chunks.
type ChunkStore struct {
	pool       *pgxpool.Pool
	dimensions int
	logger     *slog.Logger
}

// NewChunkStore creates a ChunkStore. dimensions is the expected embedding
// width; every write is checked against it.
func NewChunkStore(pool *pgxpool.Pool, dimensions int, logger *slog.Logger) *ChunkStore {
	return &ChunkStore{pool: pool, dimensions: dimensions, logger: logger}
}

// IndexBatch writes a source's chunks in one transaction. Any prior chunks
// of the same source are deleted first, so re-ingesting a source replaces
// its chunks instead of accumulating duplicates. Chunks with a nil SourceID
// are appended without a delete pass.
func (s *ChunkStore) IndexBatch(ctx context.Context, sourceID *uuid.UUID, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	for i := range chunks {
		if strings.TrimSpace(chunks[i].PageContent) == "" {
			return fmt.Errorf("chunk %d: %w", i, ErrEmptyContent)
		}
		if len(chunks[i].Embedding) != s.dimensions {
			return fmt.Errorf("chunk %d: got %d dimensions, want %d: %w",
				i, len(chunks[i].Embedding), s.dimensions, ErrDimensionMismatch)
		}
		if chunks[i].ID == uuid.Nil {
			chunks[i].ID = uuid.New()
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if sourceID != nil {
		tag, err := tx.Exec(ctx, `DELETE FROM chunks WHERE source_id = $1`, *sourceID)
		if err != nil {
			return fmt.Errorf("deleting prior chunks: %w", err)
		}
		if tag.RowsAffected() > 0 {
			s.logger.Info("replaced prior chunks",
				"source_id", sourceID.String(),
				"deleted", tag.RowsAffected())
		}
	}

	batch := &pgx.Batch{}
	for i := range chunks {
		batch.Queue(
			`INSERT INTO chunks (id, page_content, source_id, embedding)
			 VALUES ($1, $2, $3, $4)`,
			chunks[i].ID, chunks[i].PageContent, chunks[i].SourceID,
			pgvector.NewVector(chunks[i].Embedding),
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range chunks {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("inserting chunk: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("closing batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	s.logger.Debug("chunks indexed", "count", len(chunks))
	return nil
}

// Search returns the k nearest chunks to the query embedding under the
// requested measure, most similar first. An empty result is not an error.
func (s *ChunkStore) Search(ctx context.Context, query []float32, params SearchParams) ([]SearchHit, error) {
	if params.K <= 0 {
		return nil, fmt.Errorf("k=%d: %w", params.K, ErrInvalidK)
	}
	if len(query) != s.dimensions {
		return nil, fmt.Errorf("query has %d dimensions, want %d: %w",
			len(query), s.dimensions, ErrDimensionMismatch)
	}
	measure := params.Measure
	if measure == "" {
		measure = MeasureMaxInnerProduct
	}

	sql, args, err := buildSearchQuery(query, params, measure)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	var hits []SearchHit
	for rows.Next() {
		var (
			hit      SearchHit
			distance float64
		)
		err := rows.Scan(&hit.ChunkID, &hit.PageContent, &hit.SourceID,
			&hit.SourceTitle, &hit.SourceURL, &distance)
		if err != nil {
			return nil, fmt.Errorf("scanning search row: %w", err)
		}
		hit.Similarity = similarityFromDistance(measure, distance)
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search rows: %w", err)
	}
	return hits, nil
}

// buildSearchQuery assembles the vector search statement. Filters on source
// metadata force an inner join, so sourceless chunks only appear in
// unfiltered searches.
func buildSearchQuery(query []float32, params SearchParams, measure Measure) (string, []any, error) {
	op, err := distanceOperator(measure)
	if err != nil {
		return "", nil, err
	}

	args := []any{pgvector.NewVector(query)}
	join := "LEFT JOIN"
	var conds []string

	if len(params.Titles) > 0 {
		join = "JOIN"
		args = append(args, params.Titles)
		conds = append(conds, "s.title = ANY($"+strconv.Itoa(len(args))+")")
	}
	if params.DownloadedFrom != nil {
		join = "JOIN"
		args = append(args, *params.DownloadedFrom)
		conds = append(conds, "s.downloaded_at >= $"+strconv.Itoa(len(args)))
	}
	if params.DownloadedTo != nil {
		join = "JOIN"
		args = append(args, *params.DownloadedTo)
		conds = append(conds, "s.downloaded_at < $"+strconv.Itoa(len(args)))
	}

	var b strings.Builder
	b.WriteString(`SELECT c.id, c.page_content, c.source_id, s.title, s.public_url,
       c.embedding ` + op + ` $1 AS distance
  FROM chunks c
  ` + join + ` sources s ON s.id = c.source_id`)
	if len(conds) > 0 {
		b.WriteString("\n WHERE " + strings.Join(conds, " AND "))
	}
	args = append(args, params.K)
	b.WriteString("\n ORDER BY distance\n LIMIT $" + strconv.Itoa(len(args)))

	return b.String(), args, nil
}

func distanceOperator(measure Measure) (string, error) {
	switch measure {
	case MeasureMaxInnerProduct:
		return "<#>", nil
	case MeasureCosine:
		return "<=>", nil
	case MeasureEuclidean:
		return "<->", nil
	default:
		return "", fmt.Errorf("unknown similarity measure %q", measure)
	}
}

// similarityFromDistance converts a pgvector distance to a higher-is-better
// score. <#> returns the negated inner product, <=> the cosine distance.
func similarityFromDistance(measure Measure, distance float64) float64 {
	switch measure {
	case MeasureCosine:
		return 1 - distance
	default:
		return -distance
	}
}
