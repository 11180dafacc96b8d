package retrieve

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubdex/pubdex/internal/store"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(context.Context, string) ([]float32, error) {
	return s.vector, s.err
}

type stubScorer struct {
	scores []float32
	err    error
	calls  int
}

func (s *stubScorer) Score(_ context.Context, _ string, passages []string) ([]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.scores, nil
}

type stubSearcher struct {
	hits   []store.SearchHit
	err    error
	params store.SearchParams
}

func (s *stubSearcher) Search(_ context.Context, _ []float32, params store.SearchParams) ([]store.SearchHit, error) {
	s.params = params
	return s.hits, s.err
}

func hit(content string) store.SearchHit {
	return store.SearchHit{ChunkID: uuid.New(), PageContent: content}
}

func newRetriever(e *stubEmbedder, sc *stubScorer, se *stubSearcher) *Retriever {
	return NewRetriever(e, sc, se, slog.New(slog.DiscardHandler))
}

func TestRetrieve_EmptySearchSkipsCrossEncoder(t *testing.T) {
	scorer := &stubScorer{}
	r := newRetriever(&stubEmbedder{vector: []float32{1}}, scorer, &stubSearcher{})

	results, err := r.Retrieve(context.Background(), "shelter procedures")
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.NotNil(t, results)
	assert.Zero(t, scorer.calls, "cross-encoder must not run on an empty candidate set")
}

func TestRetrieve_SortsByDescendingScore(t *testing.T) {
	searcher := &stubSearcher{hits: []store.SearchHit{
		hit("chunk one"), hit("chunk two"), hit("chunk three"),
	}}
	scorer := &stubScorer{scores: []float32{0.2, 0.9, 0.5}}
	r := newRetriever(&stubEmbedder{vector: []float32{1}}, scorer, searcher)

	results, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "chunk two", results[0].Text)
	assert.InDelta(t, 0.9, results[0].Score, 1e-6)
	assert.Equal(t, "chunk three", results[1].Text)
	assert.Equal(t, "chunk one", results[2].Text)
}

func TestRetrieve_TiesKeepSearchOrder(t *testing.T) {
	searcher := &stubSearcher{hits: []store.SearchHit{
		hit("first seen"), hit("second seen"), hit("third seen"),
	}}
	scorer := &stubScorer{scores: []float32{0.5, 0.5, 0.5}}
	r := newRetriever(&stubEmbedder{vector: []float32{1}}, scorer, searcher)

	results, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, "first seen", results[0].Text)
	assert.Equal(t, "second seen", results[1].Text)
	assert.Equal(t, "third seen", results[2].Text)
}

func TestRetrieve_OptionsReachTheSearcher(t *testing.T) {
	searcher := &stubSearcher{}
	r := newRetriever(&stubEmbedder{vector: []float32{1}}, &stubScorer{}, searcher)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	_, err := r.Retrieve(context.Background(), "query",
		WithK(25),
		WithTitles("afman 10-100: airman's manual"),
		WithDownloadedRange(from, to),
		WithMeasure(store.MeasureCosine),
	)
	require.NoError(t, err)
	assert.Equal(t, 25, searcher.params.K)
	assert.Equal(t, []string{"afman 10-100: airman's manual"}, searcher.params.Titles)
	require.NotNil(t, searcher.params.DownloadedFrom)
	assert.True(t, searcher.params.DownloadedFrom.Equal(from))
	require.NotNil(t, searcher.params.DownloadedTo)
	assert.True(t, searcher.params.DownloadedTo.Equal(to))
	assert.Equal(t, store.MeasureCosine, searcher.params.Measure)
}

func TestRetrieve_DefaultK(t *testing.T) {
	searcher := &stubSearcher{}
	r := newRetriever(&stubEmbedder{vector: []float32{1}}, &stubScorer{}, searcher)

	_, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, DefaultK, searcher.params.K)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	r := newRetriever(&stubEmbedder{}, &stubScorer{}, &stubSearcher{})
	_, err := r.Retrieve(context.Background(), "   ")
	require.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRetrieve_DownstreamErrorsPropagate(t *testing.T) {
	t.Run("embedder", func(t *testing.T) {
		r := newRetriever(&stubEmbedder{err: errors.New("model unavailable")},
			&stubScorer{}, &stubSearcher{})
		_, err := r.Retrieve(context.Background(), "query")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "embedding query")
	})

	t.Run("searcher", func(t *testing.T) {
		r := newRetriever(&stubEmbedder{vector: []float32{1}},
			&stubScorer{}, &stubSearcher{err: errors.New("connection reset")})
		_, err := r.Retrieve(context.Background(), "query")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "searching chunks")
	})

	t.Run("scorer", func(t *testing.T) {
		searcher := &stubSearcher{hits: []store.SearchHit{hit("text")}}
		r := newRetriever(&stubEmbedder{vector: []float32{1}},
			&stubScorer{err: errors.New("inference failed")}, searcher)
		_, err := r.Retrieve(context.Background(), "query")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "scoring candidates")
	})

	t.Run("score count mismatch", func(t *testing.T) {
		searcher := &stubSearcher{hits: []store.SearchHit{hit("a"), hit("b")}}
		r := newRetriever(&stubEmbedder{vector: []float32{1}},
			&stubScorer{scores: []float32{0.1}}, searcher)
		_, err := r.Retrieve(context.Background(), "query")
		require.Error(t, err)
	})
}

func TestRetrieve_Provenance(t *testing.T) {
	title := "afman 10-100: airman's manual"
	url := "https://www.e-publishing.af.mil/afman10-100"
	withSource := store.SearchHit{
		ChunkID:     uuid.New(),
		PageContent: "attributed text",
		SourceTitle: &title,
		SourceURL:   &url,
	}
	searcher := &stubSearcher{hits: []store.SearchHit{withSource, hit("orphan text")}}
	scorer := &stubScorer{scores: []float32{0.9, 0.1}}
	r := newRetriever(&stubEmbedder{vector: []float32{1}}, scorer, searcher)

	results, err := r.Retrieve(context.Background(), "query")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, title, results[0].SourceTitle)
	assert.Equal(t, url, results[0].SourceURL)
	assert.Empty(t, results[1].SourceTitle)
	assert.Empty(t, results[1].SourceURL)
}
