package embedder

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// maxSeqLen bounds a tokenized prompt including [CLS] and [SEP].
const maxSeqLen = 128

// maxWordRunes is the longest word WordPiece attempts to split.
const maxWordRunes = 100

// tokenized holds a padded batch ready for ONNX inference.
// All slices are flat: [batchSize * seqLen].
type tokenized struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	batchSize     int64
	seqLen        int64
}

// tokenizer performs BERT-style WordPiece tokenization. Lowercasing and
// accent stripping apply only to uncased vocabularies; multilingual CLIP
// text towers ship a cased one.
type tokenizer struct {
	vocab *vocab
	lower bool
}

func newTokenizer(vocabPath string) (*tokenizer, error) {
	v, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}
	return &tokenizer{vocab: v, lower: !v.cased}, nil
}

// encode returns [CLS] ids... [SEP] without padding, truncated to maxSeqLen.
func (t *tokenizer) encode(text string) []int64 {
	pieces := t.wordpiece(t.basicTokenize(text))
	if len(pieces) > maxSeqLen-2 {
		pieces = pieces[:maxSeqLen-2]
	}

	ids := make([]int64, 0, len(pieces)+2)
	ids = append(ids, t.vocab.clsID)
	for _, p := range pieces {
		ids = append(ids, t.vocab.lookup(p))
	}
	return append(ids, t.vocab.sepID)
}

// tokenizeBatch encodes texts and pads them to the longest sequence.
// Token type ids are all zero (single-segment input).
func (t *tokenizer) tokenizeBatch(texts []string) tokenized {
	if len(texts) == 0 {
		return tokenized{}
	}

	seqs := make([][]int64, len(texts))
	var seqLen int
	for i, text := range texts {
		seqs[i] = t.encode(text)
		seqLen = max(seqLen, len(seqs[i]))
	}

	total := len(texts) * seqLen
	out := tokenized{
		inputIDs:      make([]int64, total),
		attentionMask: make([]int64, total),
		tokenTypeIDs:  make([]int64, total),
		batchSize:     int64(len(texts)),
		seqLen:        int64(seqLen),
	}
	for i, ids := range seqs {
		row := i * seqLen
		for j, id := range ids {
			out.inputIDs[row+j] = id
			out.attentionMask[row+j] = 1
		}
		for j := len(ids); j < seqLen; j++ {
			out.inputIDs[row+j] = t.vocab.padID
		}
	}
	return out
}

// basicTokenize cleans text, isolates CJK ideographs and punctuation, and
// splits on whitespace.
func (t *tokenizer) basicTokenize(text string) []string {
	text = cleanText(text)
	text = tokenizeChineseChars(text)
	if t.lower {
		text = stripAccents(strings.ToLower(text))
	}

	var tokens []string
	for _, word := range strings.Fields(text) {
		tokens = append(tokens, splitOnPunctuation(word)...)
	}
	return tokens
}

// wordpiece splits each basic token greedily into the longest known
// subwords, continuing pieces prefixed with "##". A word that cannot be
// covered becomes a single [UNK].
func (t *tokenizer) wordpiece(words []string) []string {
	var out []string
	for _, word := range words {
		runes := []rune(word)
		if len(runes) > maxWordRunes {
			out = append(out, unkToken)
			continue
		}

		var pieces []string
		for start := 0; start < len(runes); {
			end := len(runes)
			var piece string
			for ; end > start; end-- {
				sub := string(runes[start:end])
				if start > 0 {
					sub = "##" + sub
				}
				if t.vocab.contains(sub) {
					piece = sub
					break
				}
			}
			if piece == "" {
				pieces = []string{unkToken}
				break
			}
			pieces = append(pieces, piece)
			start = end
		}
		out = append(out, pieces...)
	}
	return out
}

// cleanText drops NUL, U+FFFD and control characters and maps whitespace to ' '.
func cleanText(text string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r == 0 || r == unicode.ReplacementChar || isControl(r):
			return -1
		case isWhitespace(r):
			return ' '
		}
		return r
	}, text)
}

// stripAccents removes combining marks after NFD decomposition.
func stripAccents(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.Is(unicode.Mn, r) {
			return -1
		}
		return r
	}, norm.NFD.String(text))
}

// tokenizeChineseChars surrounds CJK ideographs with spaces.
func tokenizeChineseChars(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if isChineseChar(r) {
			b.WriteByte(' ')
			b.WriteRune(r)
			b.WriteByte(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// splitOnPunctuation emits each punctuation rune as its own token.
func splitOnPunctuation(word string) []string {
	var tokens []string
	start := 0
	for i, r := range word {
		if !isPunctuation(r) {
			continue
		}
		if i > start {
			tokens = append(tokens, word[start:i])
		}
		tokens = append(tokens, string(r))
		start = i + len(string(r))
	}
	if start < len(word) {
		tokens = append(tokens, word[start:])
	}
	return tokens
}

func isWhitespace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || unicode.Is(unicode.Zs, r)
}

func isControl(r rune) bool {
	if r == '\t' || r == '\n' || r == '\r' {
		return false
	}
	return unicode.IsControl(r)
}

// isPunctuation treats all non-alphanumeric ASCII as punctuation, as BERT does.
func isPunctuation(r rune) bool {
	if (r >= 33 && r <= 47) || (r >= 58 && r <= 64) ||
		(r >= 91 && r <= 96) || (r >= 123 && r <= 126) {
		return true
	}
	return unicode.IsPunct(r)
}

var cjkRanges = [][2]rune{
	{0x4E00, 0x9FFF},
	{0x3400, 0x4DBF},
	{0x20000, 0x2A6DF},
	{0x2A700, 0x2B73F},
	{0x2B740, 0x2B81F},
	{0x2B820, 0x2CEAF},
	{0xF900, 0xFAFF},
	{0x2F800, 0x2FA1F},
}

func isChineseChar(r rune) bool {
	for _, rg := range cjkRanges {
		if r >= rg[0] && r <= rg[1] {
			return true
		}
	}
	return false
}
