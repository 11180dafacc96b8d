package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubdex/pubdex/internal/store"
	"github.com/pubdex/pubdex/internal/testutil"
)

const testDimensions = 384

// basisVec returns a unit vector with 1.0 at index i. Distinct basis vectors
// are orthogonal, so similarity ordering in the tests is unambiguous.
func basisVec(i int) []float32 {
	v := make([]float32, testDimensions)
	v[i%testDimensions] = 1.0
	return v
}

func TestStoreIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container-backed test in short mode")
	}

	db, cleanup := testutil.SetupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	logger := testutil.DiscardLogger()
	sources := store.NewSourceStore(db.Pool, logger)
	chunks := store.NewChunkStore(db.Pool, testDimensions, logger)

	jan := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	feb := time.Date(2024, 2, 15, 0, 0, 0, 0, time.UTC)

	manual := store.Source{
		Title:        "afman 10-100: airman's manual",
		Description:  "Pub ID: AFMAN10-100. ",
		DownloadedAt: jan,
		PrivateURL:   "https://static.e-publishing.af.mil/afman10-100.pdf",
		PublicURL:    "https://www.e-publishing.af.mil/afman10-100",
	}
	doctrine := store.Source{
		Title:        "afdp 3-0: operations and planning",
		DownloadedAt: feb,
		PublicURL:    "https://www.e-publishing.af.mil/afdp3-0",
	}
	require.NoError(t, sources.CreateAll(ctx, []store.Source{manual, doctrine}))

	t.Run("get by title", func(t *testing.T) {
		got, err := sources.GetByTitle(ctx, manual.Title)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, manual.Description, got[0].Description)
		assert.True(t, got[0].DownloadedAt.Equal(jan))

		none, err := sources.GetByTitle(ctx, "no such publication")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("duplicate titles all returned", func(t *testing.T) {
		dup := store.Source{Title: "afi 36-2903: dress and appearance"}
		require.NoError(t, sources.CreateAll(ctx, []store.Source{dup, {Title: dup.Title}}))

		got, err := sources.GetByTitle(ctx, dup.Title)
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("get by id", func(t *testing.T) {
		all, err := sources.GetByTitle(ctx, manual.Title)
		require.NoError(t, err)
		require.Len(t, all, 1)

		got, err := sources.GetByID(ctx, all[0].ID)
		require.NoError(t, err)
		assert.Equal(t, manual.Title, got.Title)

		_, err = sources.GetByID(ctx, uuid.New())
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	manualRows, err := sources.GetByTitle(ctx, manual.Title)
	require.NoError(t, err)
	manualID := manualRows[0].ID
	doctrineRows, err := sources.GetByTitle(ctx, doctrine.Title)
	require.NoError(t, err)
	doctrineID := doctrineRows[0].ID

	require.NoError(t, chunks.IndexBatch(ctx, &manualID, []store.Chunk{
		{PageContent: "shelter in place procedures", SourceID: &manualID, Embedding: basisVec(0)},
		{PageContent: "self aid and buddy care", SourceID: &manualID, Embedding: basisVec(1)},
	}))
	require.NoError(t, chunks.IndexBatch(ctx, &doctrineID, []store.Chunk{
		{PageContent: "operational design methodology", SourceID: &doctrineID, Embedding: basisVec(2)},
	}))
	require.NoError(t, chunks.IndexBatch(ctx, nil, []store.Chunk{
		{PageContent: "orphaned appendix text", Embedding: basisVec(3)},
	}))

	t.Run("round trip across measures", func(t *testing.T) {
		for _, m := range []store.Measure{
			store.MeasureMaxInnerProduct, store.MeasureCosine, store.MeasureEuclidean,
		} {
			hits, err := chunks.Search(ctx, basisVec(0), store.SearchParams{K: 1, Measure: m})
			require.NoError(t, err, "measure %s", m)
			require.Len(t, hits, 1, "measure %s", m)
			assert.Equal(t, "shelter in place procedures", hits[0].PageContent)
		}
	})

	t.Run("similarity ordering and provenance", func(t *testing.T) {
		hits, err := chunks.Search(ctx, basisVec(0), store.SearchParams{K: 4})
		require.NoError(t, err)
		require.Len(t, hits, 4)
		assert.Equal(t, "shelter in place procedures", hits[0].PageContent)
		assert.InDelta(t, 1.0, hits[0].Similarity, 1e-4)
		require.NotNil(t, hits[0].SourceTitle)
		assert.Equal(t, manual.Title, *hits[0].SourceTitle)
		require.NotNil(t, hits[0].SourceURL)
		assert.Equal(t, manual.PublicURL, *hits[0].SourceURL)
	})

	t.Run("sourceless chunk searchable without filters", func(t *testing.T) {
		hits, err := chunks.Search(ctx, basisVec(3), store.SearchParams{K: 1})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "orphaned appendix text", hits[0].PageContent)
		assert.Nil(t, hits[0].SourceID)
	})

	t.Run("title filter", func(t *testing.T) {
		hits, err := chunks.Search(ctx, basisVec(0), store.SearchParams{
			K:      10,
			Titles: []string{doctrine.Title},
		})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "operational design methodology", hits[0].PageContent)
	})

	t.Run("downloaded range is half open", func(t *testing.T) {
		from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		to := jan // exclusive upper bound lands exactly on the manual's timestamp
		hits, err := chunks.Search(ctx, basisVec(0), store.SearchParams{
			K: 10, DownloadedFrom: &from, DownloadedTo: &to,
		})
		require.NoError(t, err)
		assert.Empty(t, hits)

		to = jan.Add(time.Second)
		hits, err = chunks.Search(ctx, basisVec(0), store.SearchParams{
			K: 10, DownloadedFrom: &from, DownloadedTo: &to,
		})
		require.NoError(t, err)
		require.Len(t, hits, 2)
	})

	t.Run("reindex replaces prior chunks", func(t *testing.T) {
		require.NoError(t, chunks.IndexBatch(ctx, &doctrineID, []store.Chunk{
			{PageContent: "revised operational design", SourceID: &doctrineID, Embedding: basisVec(2)},
		}))

		hits, err := chunks.Search(ctx, basisVec(2), store.SearchParams{
			K: 10, Titles: []string{doctrine.Title},
		})
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "revised operational design", hits[0].PageContent)
	})

	t.Run("empty result is not an error", func(t *testing.T) {
		hits, err := chunks.Search(ctx, basisVec(7), store.SearchParams{
			K: 5, Titles: []string{"no such publication"},
		})
		require.NoError(t, err)
		assert.Empty(t, hits)
	})
}
