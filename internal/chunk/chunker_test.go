package chunk

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_TitleBounded(t *testing.T) {
	elements := []Element{
		{Text: "title a", IsTitle: true},
		{Text: "body1"},
		{Text: "body2"},
		{Text: "title b", IsTitle: true},
		{Text: "body3"},
	}

	chunks := Segmenter{}.Split(elements)
	require.Len(t, chunks, 2)

	assert.Equal(t, "title a", chunks[0].Title)
	assert.Equal(t, []string{"body1", "body2"}, chunks[0].Body)

	assert.Equal(t, "title b", chunks[1].Title)
	assert.Equal(t, []string{"body3"}, chunks[1].Body)
}

func TestSplit_LeadingBodyWithoutTitle(t *testing.T) {
	elements := []Element{
		{Text: "preamble1"},
		{Text: "preamble2"},
		{Text: "title a", IsTitle: true},
		{Text: "body1"},
	}

	chunks := Segmenter{}.Split(elements)
	require.Len(t, chunks, 2)

	assert.Empty(t, chunks[0].Title)
	assert.Equal(t, []string{"preamble1", "preamble2"}, chunks[0].Body)
	assert.Equal(t, "title a", chunks[1].Title)
}

func TestSplit_Empty(t *testing.T) {
	assert.Empty(t, Segmenter{}.Split(nil))
	assert.Empty(t, Segmenter{}.Split([]Element{}))
}

func TestSplit_SkipsEmptyElements(t *testing.T) {
	elements := []Element{
		{Text: "title a", IsTitle: true},
		{Text: ""},
		{Text: "body1"},
	}

	chunks := Segmenter{}.Split(elements)
	require.Len(t, chunks, 1)
	assert.Equal(t, []string{"body1"}, chunks[0].Body)
}

func TestSplit_TitleOnlyChunk(t *testing.T) {
	elements := []Element{
		{Text: "title a", IsTitle: true},
		{Text: "title b", IsTitle: true},
		{Text: "body1"},
	}

	chunks := Segmenter{}.Split(elements)
	require.Len(t, chunks, 2)
	assert.Equal(t, "title a", chunks[0].Title)
	assert.Empty(t, chunks[0].Body)
	assert.Equal(t, []string{"body1"}, chunks[1].Body)
}

func TestSplit_MaxCharsContinuation(t *testing.T) {
	elements := []Element{
		{Text: "title", IsTitle: true},
		{Text: "aaaaaaaaaa"}, // 10 chars
		{Text: "bbbbbbbbbb"},
		{Text: "cccccccccc"},
	}

	chunks := Segmenter{MaxChars: 20}.Split(elements)
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Equal(t, "title", c.Title)
		require.Len(t, c.Body, 1)
	}
	assert.Equal(t, "aaaaaaaaaa", chunks[0].Body[0])
	assert.Equal(t, "cccccccccc", chunks[2].Body[0])
}

func TestText(t *testing.T) {
	c := Chunk{Title: "title a", Body: []string{"body1", "body2"}}
	assert.Equal(t, "title a\nbody1\nbody2", c.Text())

	untitled := Chunk{Body: []string{"body1"}}
	assert.Equal(t, "body1", untitled.Text())
}
