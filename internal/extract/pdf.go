package extract

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// numberedHeading matches section headings like "1.4 Reporting Procedures".
var numberedHeading = regexp.MustCompile(`^\d+(\.\d+)*\.?\s+\S`)

// maxHeadingLen is the longest row still considered a candidate heading.
// Real headings in the corpus are short; long rows are narrative text even
// when set in a display font.
const maxHeadingLen = 120

// Partition reads the PDF at path and returns its structural elements in
// reading order. Rows set in a font larger than the document's dominant body
// font, and rows that look like section headings, are tagged as titles;
// consecutive body rows are merged into narrative elements.
func Partition(path string) ([]Element, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	type rawRow struct {
		text     string
		fontSize float64
	}

	var rows []rawRow
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		pageRows, err := page.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}

		for _, row := range pageRows {
			var sb strings.Builder
			fontSize := 0.0
			for _, txt := range row.Content {
				sb.WriteString(txt.S)
				if txt.FontSize > fontSize {
					fontSize = txt.FontSize
				}
			}
			text := strings.TrimSpace(sb.String())
			if text == "" {
				continue
			}
			rows = append(rows, rawRow{text: text, fontSize: fontSize})
		}
	}

	sizes := make([]float64, 0, len(rows))
	for _, r := range rows {
		sizes = append(sizes, r.fontSize)
	}
	bodySize := dominantFontSize(sizes)

	var (
		elements []Element
		body     []string
	)
	flushBody := func() {
		if len(body) == 0 {
			return
		}
		elements = append(elements, Element{Text: strings.Join(body, " "), Kind: KindBody})
		body = nil
	}

	for _, row := range rows {
		if isHeadingRow(row.text, row.fontSize, bodySize) {
			flushBody()
			elements = append(elements, Element{Text: row.text, Kind: KindTitle})
			continue
		}
		body = append(body, row.text)
	}
	flushBody()

	return elements, nil
}

// dominantFontSize returns the most frequent font size (rounded to half a
// point) over the rows, or 0 when no sizes were seen.
func dominantFontSize(sizes []float64) float64 {
	counts := make(map[float64]int)
	for _, s := range sizes {
		if s <= 0 {
			continue
		}
		counts[math.Round(s*2)/2]++
	}

	best, bestCount := 0.0, 0
	for size, n := range counts {
		if n > bestCount || (n == bestCount && size < best) {
			best, bestCount = size, n
		}
	}
	return best
}

// isHeadingRow classifies a single text row.
func isHeadingRow(text string, fontSize, bodySize float64) bool {
	if len(text) > maxHeadingLen {
		return false
	}

	// Display font noticeably larger than the dominant body font.
	if bodySize > 0 && fontSize > bodySize+0.75 {
		return true
	}

	if numberedHeading.MatchString(text) {
		return true
	}

	return isMostlyUppercase(text)
}

// isMostlyUppercase reports whether at least 80% of the letters are capitals,
// the usual typesetting for chapter and attachment headings.
func isMostlyUppercase(text string) bool {
	letters, uppers := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				uppers++
			}
		}
	}
	if letters < 4 {
		return false
	}
	return uppers*5 >= letters*4
}
