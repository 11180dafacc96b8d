// Package extract turns raw PDF documents into ordered, cleaned structural
// elements suitable for title-bounded chunking.
//
// The package has two halves:
//   - Partition reads a PDF and produces elements tagged as titles or body text,
//     using font-size and heading heuristics.
//   - Cleaner normalizes each element's text (whitespace, glyphs, noisy
//     prefixes) with failure isolation at element granularity.
package extract

// Kind tags the structural role of an element.
type Kind string

const (
	// KindTitle marks a heading element; it opens a new chunk downstream.
	KindTitle Kind = "title"

	// KindBody marks narrative text belonging to the preceding title.
	KindBody Kind = "body"
)

// Element is one structural unit of a partitioned document, in reading order.
type Element struct {
	Text string
	Kind Kind
}

// IsTitle reports whether the element is a heading.
func (e Element) IsTitle() bool {
	return e.Kind == KindTitle
}
