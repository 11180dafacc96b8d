package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/pubdex/pubdex/internal/record"
	"github.com/pubdex/pubdex/internal/store"
)

// SourceLookup is the slice of the source store the resolver needs.
type SourceLookup interface {
	GetByTitle(ctx context.Context, title string) ([]store.Source, error)
}

// Outcome classifies a source resolution attempt.
type Outcome int

const (
	// OutcomeResolved means exactly one source matched the canonical title.
	OutcomeResolved Outcome = iota

	// OutcomeNotFound means no source matched. Chunks are indexed without
	// provenance.
	OutcomeNotFound

	// OutcomeAmbiguous means multiple sources share the title. Ambiguity is
	// never silently guessed; chunks are indexed without provenance.
	OutcomeAmbiguous
)

// Resolution is the result of matching crawler metadata against persisted
// sources.
type Resolution struct {
	Outcome  Outcome
	SourceID uuid.UUID // valid only when Outcome is OutcomeResolved
	Matches  int
}

// Resolved reports whether the resolution bound a unique source.
func (r Resolution) Resolved() bool {
	return r.Outcome == OutcomeResolved
}

// Resolver maps crawler metadata records onto persisted source rows by exact
// canonical-title match.
type Resolver struct {
	sources SourceLookup
	logger  *slog.Logger
}

// NewResolver creates a Resolver backed by the given lookup.
func NewResolver(sources SourceLookup, logger *slog.Logger) *Resolver {
	return &Resolver{sources: sources, logger: logger}
}

// Resolve looks up the record's canonical title. Zero or multiple matches
// are in-band outcomes with a logged warning, not errors; only the lookup
// itself can fail.
func (r *Resolver) Resolve(ctx context.Context, pub record.Publication) (Resolution, error) {
	title := pub.CanonicalTitle()

	matches, err := r.sources.GetByTitle(ctx, title)
	if err != nil {
		return Resolution{}, fmt.Errorf("looking up source %q: %w", title, err)
	}

	switch len(matches) {
	case 1:
		return Resolution{
			Outcome:  OutcomeResolved,
			SourceID: matches[0].ID,
			Matches:  1,
		}, nil
	case 0:
		r.logger.Warn("no source found for publication", "title", title)
		return Resolution{Outcome: OutcomeNotFound}, nil
	default:
		r.logger.Warn("ambiguous source title",
			"title", title, "matches", len(matches))
		return Resolution{Outcome: OutcomeAmbiguous, Matches: len(matches)}, nil
	}
}
