package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SourceStore reads and writes source metadata rows.
type SourceStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewSourceStore creates a SourceStore backed by the given pool.
func NewSourceStore(pool *pgxpool.Pool, logger *slog.Logger) *SourceStore {
	return &SourceStore{pool: pool, logger: logger}
}

// CreateAll inserts the given sources in a single batch. Sources without an
// ID are assigned one. Titles are not required to be unique.
func (s *SourceStore) CreateAll(ctx context.Context, sources []Source) error {
	if len(sources) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := range sources {
		src := &sources[i]
		if src.ID == uuid.Nil {
			src.ID = uuid.New()
		}
		batch.Queue(
			`INSERT INTO sources (id, title, description, downloaded_at, private_url, public_url)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			src.ID, src.Title, src.Description,
			nullableTime(src.DownloadedAt), src.PrivateURL, src.PublicURL,
		)
	}

	results := s.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range sources {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("inserting source %q: %w", sources[i].Title, err)
		}
	}

	s.logger.Debug("sources created", "count", len(sources))
	return nil
}

// GetByTitle returns every source whose title exactly matches. Zero matches
// is not an error.
func (s *SourceStore) GetByTitle(ctx context.Context, title string) ([]Source, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, description, downloaded_at, private_url, public_url
		   FROM sources
		  WHERE title = $1
		  ORDER BY downloaded_at DESC NULLS LAST`,
		title,
	)
	if err != nil {
		return nil, fmt.Errorf("querying sources by title: %w", err)
	}
	defer rows.Close()

	return scanSources(rows)
}

// GetByID returns the source with the given ID, or ErrNotFound.
func (s *SourceStore) GetByID(ctx context.Context, id uuid.UUID) (Source, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, title, description, downloaded_at, private_url, public_url
		   FROM sources
		  WHERE id = $1`,
		id,
	)

	src, err := scanSource(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Source{}, fmt.Errorf("source %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Source{}, fmt.Errorf("querying source by id: %w", err)
	}
	return src, nil
}

func scanSources(rows pgx.Rows) ([]Source, error) {
	var out []Source
	for rows.Next() {
		src, err := scanSource(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning source row: %w", err)
		}
		out = append(out, src)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading source rows: %w", err)
	}
	return out, nil
}

func scanSource(row pgx.Row) (Source, error) {
	var (
		src          Source
		downloadedAt sql.NullTime
	)
	err := row.Scan(&src.ID, &src.Title, &src.Description, &downloadedAt,
		&src.PrivateURL, &src.PublicURL)
	if err != nil {
		return Source{}, err
	}
	if downloadedAt.Valid {
		src.DownloadedAt = downloadedAt.Time
	}
	return src, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
