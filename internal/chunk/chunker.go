// Package chunk groups cleaned document elements into retrievable passages.
//
// Segmentation is title-bounded: a title element opens a new chunk and every
// following body element belongs to it until the next title. This yields
// coarser, semantically coherent passages than fixed-length windowing, which
// is the granularity the embedding index stores.
package chunk

import "strings"

// Chunk is one title-bounded passage of a document.
type Chunk struct {
	// Title is the heading that opened the chunk. Empty for leading body
	// elements that appear before the document's first heading.
	Title string

	// Body holds the body element texts in order.
	Body []string
}

// Text returns the chunk's full text: the title (when present) followed by
// the body elements, joined with newlines.
func (c Chunk) Text() string {
	parts := make([]string, 0, len(c.Body)+1)
	if c.Title != "" {
		parts = append(parts, c.Title)
	}
	parts = append(parts, c.Body...)
	return strings.Join(parts, "\n")
}

// Segmenter produces title-bounded chunks from element sequences.
//
// MaxChars optionally splits oversized chunks: when > 0, a chunk whose
// accumulated body text exceeds the limit is closed and a continuation chunk
// with the same title is opened. The default (0) is title-bounded only.
type Segmenter struct {
	MaxChars int
}

// Element is the minimal view of a document element the segmenter needs;
// callers map their extraction types onto it.
type Element struct {
	Text    string
	IsTitle bool
}

// Split groups elements into chunks.
//
// Elements before the first title are collected into an initial untitled
// chunk. Elements with empty text are skipped. The result preserves input
// order and never contains an empty chunk.
func (s Segmenter) Split(elements []Element) []Chunk {
	var (
		chunks  []Chunk
		current *Chunk
		size    int
	)

	flush := func() {
		if current == nil {
			return
		}
		if current.Title != "" || len(current.Body) > 0 {
			chunks = append(chunks, *current)
		}
		current = nil
		size = 0
	}

	for _, el := range elements {
		if el.Text == "" {
			continue
		}

		if el.IsTitle {
			flush()
			current = &Chunk{Title: el.Text}
			size = len(el.Text)
			continue
		}

		if current == nil {
			// Leading body elements before the first title.
			current = &Chunk{}
		}

		if s.MaxChars > 0 && size+len(el.Text) > s.MaxChars && len(current.Body) > 0 {
			title := current.Title
			flush()
			current = &Chunk{Title: title}
			size = len(title)
		}

		current.Body = append(current.Body, el.Text)
		size += len(el.Text)
	}
	flush()

	return chunks
}
