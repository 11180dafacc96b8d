package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pubdex/pubdex/internal/chunk"
	"github.com/pubdex/pubdex/internal/extract"
	"github.com/pubdex/pubdex/internal/record"
	"github.com/pubdex/pubdex/internal/store"
)

// Embedder is the slice of the embedding capability the pipeline needs. The
// model must be loaded before the batch starts.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkIndexer persists one source's chunk batch transactionally.
type ChunkIndexer interface {
	IndexBatch(ctx context.Context, sourceID *uuid.UUID, chunks []store.Chunk) error
}

// SourceWriter extends lookup with batch creation, used to register sources
// the crawler discovered for the first time.
type SourceWriter interface {
	SourceLookup
	CreateAll(ctx context.Context, sources []store.Source) error
}

// Stats summarizes one ingestion run.
type Stats struct {
	Sources  int // records in the batch
	Ingested int // sources whose chunks were indexed
	Skipped  int // sources skipped after download or extraction failure
	Chunks   int // total chunks indexed
}

// Dependencies wires a Pipeline. Partition defaults to extract.Partition.
type Dependencies struct {
	Downloader *Downloader
	Resolver   *Resolver
	Cleaner    *extract.Cleaner
	Segmenter  *chunk.Segmenter
	Embedder   Embedder
	Chunks     ChunkIndexer
	Sources    SourceWriter
	Partition  func(path string) ([]extract.Element, error)
	Logger     *slog.Logger
}

// Pipeline runs the ingestion batch. Sources are processed sequentially; a
// failed source is logged, counted, and skipped.
type Pipeline struct {
	downloader *Downloader
	resolver   *Resolver
	cleaner    *extract.Cleaner
	segmenter  *chunk.Segmenter
	embedder   Embedder
	chunks     ChunkIndexer
	sources    SourceWriter
	partition  func(path string) ([]extract.Element, error)
	now        func() time.Time
	logger     *slog.Logger
}

// NewPipeline creates a Pipeline from its dependencies.
func NewPipeline(deps Dependencies) *Pipeline {
	partition := deps.Partition
	if partition == nil {
		partition = extract.Partition
	}
	return &Pipeline{
		downloader: deps.Downloader,
		resolver:   deps.Resolver,
		cleaner:    deps.Cleaner,
		segmenter:  deps.Segmenter,
		embedder:   deps.Embedder,
		chunks:     deps.Chunks,
		sources:    deps.Sources,
		partition:  partition,
		now:        time.Now,
		logger:     deps.Logger,
	}
}

// SyncSources registers a source row for every record whose canonical title
// is not yet persisted. Existing sources are left untouched; duplicates are
// not created.
func (p *Pipeline) SyncSources(ctx context.Context, records []record.Publication) error {
	var missing []store.Source
	for _, pub := range records {
		title := pub.CanonicalTitle()
		existing, err := p.sources.GetByTitle(ctx, title)
		if err != nil {
			return fmt.Errorf("checking source %q: %w", title, err)
		}
		if len(existing) > 0 {
			continue
		}
		missing = append(missing, store.Source{
			Title:        title,
			Description:  pub.Description(),
			DownloadedAt: p.now(),
			PrivateURL:   pub.DocumentPath,
			PublicURL:    pub.DocumentURL,
		})
	}

	if len(missing) == 0 {
		return nil
	}
	if err := p.sources.CreateAll(ctx, missing); err != nil {
		return fmt.Errorf("registering sources: %w", err)
	}
	p.logger.Info("registered new sources", "count", len(missing))
	return nil
}

// Run ingests every record in the batch. Per-source failures are logged and
// counted; Run only fails when the context is cancelled.
func (p *Pipeline) Run(ctx context.Context, records []record.Publication) (Stats, error) {
	stats := Stats{Sources: len(records)}

	for _, pub := range records {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("ingestion interrupted: %w", err)
		}

		indexed, err := p.processRecord(ctx, pub)
		if err != nil {
			stats.Skipped++
			p.logger.Warn("skipping source",
				"title", pub.CanonicalTitle(), "error", err)
			continue
		}
		if indexed == 0 {
			stats.Skipped++
			p.logger.Info("no chunks extracted, skipping source",
				"title", pub.CanonicalTitle())
			continue
		}
		stats.Ingested++
		stats.Chunks += indexed
	}

	p.logger.Info("ingestion batch finished",
		"sources", stats.Sources,
		"ingested", stats.Ingested,
		"skipped", stats.Skipped,
		"chunks", stats.Chunks)
	return stats, nil
}

// processRecord ingests a single publication and returns how many chunks it
// indexed. The downloaded file is removed regardless of the outcome of later
// steps.
func (p *Pipeline) processRecord(ctx context.Context, pub record.Publication) (int, error) {
	path, err := p.downloader.Download(ctx, pub.DocumentURL)
	if err != nil {
		return 0, err
	}
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil {
			p.logger.Warn("failed to remove cached file",
				"path", path, "error", rmErr)
		}
	}()

	elements, err := p.partition(path)
	if err != nil {
		return 0, fmt.Errorf("extracting text: %w", err)
	}
	cleaned := p.cleaner.CleanElements(elements)

	chunks := p.segmenter.Split(toSegmenterElements(cleaned))
	if len(chunks) == 0 {
		return 0, nil
	}

	resolution, err := p.resolver.Resolve(ctx, pub)
	if err != nil {
		return 0, err
	}
	var sourceID *uuid.UUID
	if resolution.Resolved() {
		id := resolution.SourceID
		sourceID = &id
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text()
	}
	vectors, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return 0, fmt.Errorf("embedder returned %d vectors for %d chunks",
			len(vectors), len(chunks))
	}

	rows := make([]store.Chunk, len(chunks))
	for i := range chunks {
		rows[i] = store.Chunk{
			PageContent: texts[i],
			SourceID:    sourceID,
			Embedding:   vectors[i],
		}
	}
	if err := p.chunks.IndexBatch(ctx, sourceID, rows); err != nil {
		return 0, fmt.Errorf("indexing chunks: %w", err)
	}
	return len(rows), nil
}

func toSegmenterElements(elements []extract.Element) []chunk.Element {
	out := make([]chunk.Element, len(elements))
	for i, el := range elements {
		out[i] = chunk.Element{Text: el.Text, IsTitle: el.IsTitle()}
	}
	return out
}
