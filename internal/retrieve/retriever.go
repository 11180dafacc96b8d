// Package retrieve implements hybrid retrieval: a vector search over the
// chunk index followed by a cross-encoder re-ranking pass.
package retrieve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/pubdex/pubdex/internal/store"
)

// DefaultK is the number of candidates fetched from the vector index when
// the caller does not specify one.
const DefaultK = 10

// ErrEmptyQuery is returned when the query text is blank.
var ErrEmptyQuery = errors.New("query must not be empty")

// Embedder is the slice of the embedding capability retrieval needs.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CrossEncoder scores (query, passage) pairs. Scores are order-preserving
// with the input batch.
type CrossEncoder interface {
	Score(ctx context.Context, query string, passages []string) ([]float32, error)
}

// Searcher is the slice of the chunk store retrieval needs.
type Searcher interface {
	Search(ctx context.Context, query []float32, params store.SearchParams) ([]store.SearchHit, error)
}

// RankedResult is one retrieval hit with its cross-encoder relevance score
// and source provenance. Results are ephemeral; nothing is persisted.
type RankedResult struct {
	Text        string
	Score       float64
	SourceTitle string
	SourceURL   string
}

type options struct {
	k       int
	titles  []string
	from    *time.Time
	to      *time.Time
	measure store.Measure
}

// Option configures a single Retrieve call.
type Option func(*options)

// WithK sets how many candidates the vector search returns. Values must be
// positive; the store rejects anything else.
func WithK(k int) Option {
	return func(o *options) { o.k = k }
}

// WithTitles restricts results to chunks from sources with one of the given
// titles (exact match).
func WithTitles(titles ...string) Option {
	return func(o *options) { o.titles = titles }
}

// WithDownloadedRange restricts results to sources downloaded in [from, to).
// Zero times leave the corresponding bound open.
func WithDownloadedRange(from, to time.Time) Option {
	return func(o *options) {
		if !from.IsZero() {
			o.from = &from
		}
		if !to.IsZero() {
			o.to = &to
		}
	}
}

// WithMeasure selects the vector similarity measure.
func WithMeasure(m store.Measure) Option {
	return func(o *options) { o.measure = m }
}

// Retriever executes hybrid retrieval against loaded models and the chunk
// index. It never mutates persisted state.
type Retriever struct {
	embedder Embedder
	scorer   CrossEncoder
	searcher Searcher
	logger   *slog.Logger
}

// NewRetriever creates a Retriever. Both models must already be loaded.
func NewRetriever(embedder Embedder, scorer CrossEncoder, searcher Searcher, logger *slog.Logger) *Retriever {
	return &Retriever{
		embedder: embedder,
		scorer:   scorer,
		searcher: searcher,
		logger:   logger,
	}
}

// Retrieve embeds the query, fetches the k nearest chunks, re-ranks them
// with the cross-encoder, and returns results sorted by descending score.
// Ties keep vector-search order. Downstream failures propagate; an empty
// result set is returned as an empty slice, not an error.
func (r *Retriever) Retrieve(ctx context.Context, query string, opts ...Option) ([]RankedResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}

	o := options{k: DefaultK}
	for _, opt := range opts {
		opt(&o)
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := r.searcher.Search(ctx, vector, store.SearchParams{
		K:              o.k,
		Measure:        o.measure,
		Titles:         o.titles,
		DownloadedFrom: o.from,
		DownloadedTo:   o.to,
	})
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	if len(hits) == 0 {
		// Nothing to score; skip the cross-encoder entirely.
		return []RankedResult{}, nil
	}

	passages := make([]string, len(hits))
	for i, hit := range hits {
		passages[i] = hit.PageContent
	}
	scores, err := r.scorer.Score(ctx, query, passages)
	if err != nil {
		return nil, fmt.Errorf("scoring candidates: %w", err)
	}
	if len(scores) != len(hits) {
		return nil, fmt.Errorf("cross-encoder returned %d scores for %d candidates",
			len(scores), len(hits))
	}

	results := make([]RankedResult, len(hits))
	for i, hit := range hits {
		results[i] = RankedResult{
			Text:  hit.PageContent,
			Score: float64(scores[i]),
		}
		if hit.SourceTitle != nil {
			results[i].SourceTitle = *hit.SourceTitle
		}
		if hit.SourceURL != nil {
			results[i].SourceURL = *hit.SourceURL
		}
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	r.logger.Debug("retrieval finished",
		"query_len", len(query), "candidates", len(hits))
	return results, nil
}
