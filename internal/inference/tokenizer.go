package inference

// Tokenizer produces token IDs for BERT-style models
// (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	// Tokenize encodes a single text, padded to maxTokens.
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)

	// TokenizePair encodes a (query, passage) pair in the two-segment BERT
	// layout: [CLS] query [SEP] passage [SEP], with token_type_ids marking
	// the second segment.
	TokenizePair(query, passage string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// BERT special token IDs.
const (
	tokenCLS = 101
	tokenSEP = 102
)

// wordTokenizer is a whitespace tokenizer with hash-based token IDs. It is a
// stand-in for a full WordPiece vocabulary: adequate for mixed-content corpora
// where exact subword merges matter less than stable, deterministic IDs.
type wordTokenizer struct{}

func (wordTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = tokenCLS
	attentionMask[0] = 1

	pos := 1
	for _, word := range splitWords(text) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = hashTokenID(word)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = tokenSEP
		attentionMask[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

func (wordTokenizer) TokenizePair(query, passage string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	inputIDs[0] = tokenCLS
	attentionMask[0] = 1
	pos := 1

	for _, word := range splitWords(query) {
		if pos >= maxTokens-2 {
			break
		}
		inputIDs[pos] = hashTokenID(word)
		attentionMask[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = tokenSEP
		attentionMask[pos] = 1
		pos++
	}

	for _, word := range splitWords(passage) {
		if pos >= maxTokens-1 {
			break
		}
		inputIDs[pos] = hashTokenID(word)
		attentionMask[pos] = 1
		tokenTypeIDs[pos] = 1
		pos++
	}
	if pos < maxTokens {
		inputIDs[pos] = tokenSEP
		attentionMask[pos] = 1
		tokenTypeIDs[pos] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// splitWords splits text on whitespace and returns non-empty words.
func splitWords(text string) []string {
	var words []string
	start := -1
	for i, r := range text {
		switch r {
		case ' ', '\n', '\t', '\r':
			if start >= 0 {
				words = append(words, text[start:i])
				start = -1
			}
		default:
			if start < 0 {
				start = i
			}
		}
	}
	if start >= 0 {
		words = append(words, text[start:])
	}
	return words
}

// hashTokenID maps a word into the model vocabulary range deterministically.
func hashTokenID(s string) int64 {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	// Stay clear of the reserved special-token range.
	return int64(h%29000 + 1000)
}
