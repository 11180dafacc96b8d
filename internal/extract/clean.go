package extract

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
)

// Precompiled patterns for the cleaning steps.
var (
	whitespaceRun = regexp.MustCompile(`\s+`)

	// orderedBulletPrefix matches ordered-list bullets such as "1.", "1.1.2"
	// or "a." at the start of a line.
	orderedBulletPrefix = regexp.MustCompile(`^(?:[0-9a-z]{1,3}\.)+[0-9a-z]{0,3}\s+`)

	// leadingNumberPrefix strips bare page or paragraph numbers left over at
	// the start of an element after partitioning.
	leadingNumberPrefix = regexp.MustCompile(`^\d+`)
)

// unicode bullet and dash glyphs normalized away before tokenization.
var glyphReplacer = strings.NewReplacer(
	"–", "-", // en dash
	"—", "-", // em dash
	"−", "-", // minus sign
	"•", "", // bullet
	"●", "", // black circle
	"▪", "", // small square
	"·", "", // middle dot
	"∙", "", // bullet operator
)

const trailingPunctuation = ".,:;"

// DefaultNoisyPrefixes are the document-series codes stripped from element
// text. The observed corpus carries handbook headers like "afh 10 222 ..."
// baked into page furniture.
var DefaultNoisyPrefixes = []string{
	`afh 10 222(.+)`,
}

// Cleaner normalizes element text. A zero-value Cleaner is not usable; create
// one with NewCleaner so the prefix patterns are compiled once.
//
// Cleaning is deterministic and idempotent: Clean(Clean(x)) == Clean(x).
type Cleaner struct {
	prefixes []*regexp.Regexp
	logger   *slog.Logger
}

// NewCleaner creates a Cleaner with the given noisy-prefix patterns (matched
// case-insensitively against the start of already-lowercased text). Pass
// DefaultNoisyPrefixes for the standard set.
func NewCleaner(prefixPatterns []string, logger *slog.Logger) (*Cleaner, error) {
	if logger == nil {
		logger = slog.Default()
	}

	prefixes := make([]*regexp.Regexp, 0, len(prefixPatterns))
	for _, p := range prefixPatterns {
		re, err := regexp.Compile(`^(?i:` + p + `)`)
		if err != nil {
			return nil, fmt.Errorf("compiling prefix pattern %q: %w", p, err)
		}
		prefixes = append(prefixes, re)
	}

	return &Cleaner{prefixes: prefixes, logger: logger}, nil
}

// Clean runs the full normalization pipeline over text.
//
// The pipeline is applied repeatedly until the text stops changing, so Clean
// is idempotent: Clean(Clean(x)) == Clean(x). Stripping one prefix can expose
// another (a page number in front of an ordered bullet, say), which a single
// pass would leave behind.
//
// A panic in any step is caught and logged, and the best partial result is
// returned instead of aborting the caller's document. Steps are pure string
// transforms, so in practice this guards configured patterns and future steps
// rather than the built-ins.
func (c *Cleaner) Clean(text string) (result string) {
	result = text

	defer func() {
		if r := recover(); r != nil {
			c.logger.Warn("cleaning step failed, keeping partial result",
				"error", fmt.Sprint(r))
		}
	}()

	// Every step either shrinks the text or leaves it alone once the base
	// normalization has run, so the loop terminates.
	for {
		next := c.cleanOnce(result)
		if next == result {
			return result
		}
		result = next
	}
}

// cleanOnce applies one pass of the normalization steps.
func (c *Cleaner) cleanOnce(text string) string {
	result := normalizeText(text)

	if len(result) > 0 {
		result = stripOrderedBullet(result)
	}

	for _, re := range c.prefixes {
		if len(result) == 0 {
			break
		}
		result = strings.TrimSpace(re.ReplaceAllString(result, ""))
	}

	// Page furniture can stack several bare numbers in front of the body
	// text, so keep stripping until none remain.
	for len(result) > 0 {
		stripped := strings.TrimSpace(leadingNumberPrefix.ReplaceAllString(result, ""))
		if stripped == result {
			break
		}
		result = stripped
	}

	return strings.ReplaceAll(result, "\x00", "")
}

// CleanElements cleans every element and drops the ones whose text becomes
// empty, preserving order.
func (c *Cleaner) CleanElements(elements []Element) []Element {
	out := make([]Element, 0, len(elements))
	for _, el := range elements {
		el.Text = c.Clean(el.Text)
		if el.Text == "" {
			continue
		}
		out = append(out, el)
	}
	return out
}

// normalizeText performs the base normalization: whitespace collapse, glyph
// normalization, trailing punctuation strip, lowercasing.
func normalizeText(s string) string {
	s = glyphReplacer.Replace(s)
	s = collapseWhitespace(s)
	s = strings.TrimRight(s, trailingPunctuation)
	s = strings.ToLower(s)
	return strings.TrimSpace(s)
}

// stripOrderedBullet removes a leading ordered-list bullet ("1.2.3 ", "a. ").
func stripOrderedBullet(s string) string {
	return strings.TrimSpace(orderedBulletPrefix.ReplaceAllString(s, ""))
}

func collapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
