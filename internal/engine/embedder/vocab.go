package embedder

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"unicode"
)

const (
	padToken = "[PAD]"
	unkToken = "[UNK]"
	clsToken = "[CLS]"
	sepToken = "[SEP]"
)

// vocab is a WordPiece vocabulary; a token's id is its 0-based line number.
type vocab struct {
	ids   map[string]int64
	lines int
	cased bool // contains uppercase word pieces

	padID int64
	unkID int64
	clsID int64
	sepID int64
}

func loadVocab(path string) (*vocab, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("vocab: %w", err)
	}
	defer f.Close()

	v := &vocab{ids: make(map[string]int64, 32000)}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		tok := scanner.Text()
		v.ids[tok] = int64(v.lines)
		v.lines++
		if !v.cased && !isSpecial(tok) && strings.IndexFunc(tok, unicode.IsUpper) >= 0 {
			v.cased = true
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("vocab: read error: %w", err)
	}
	if v.lines == 0 {
		return nil, fmt.Errorf("vocab: file is empty: %s", path)
	}

	for name, dest := range map[string]*int64{
		padToken: &v.padID,
		unkToken: &v.unkID,
		clsToken: &v.clsID,
		sepToken: &v.sepID,
	} {
		id, ok := v.ids[name]
		if !ok {
			return nil, fmt.Errorf("vocab: missing special token %s", name)
		}
		*dest = id
	}
	return v, nil
}

func isSpecial(tok string) bool {
	return strings.HasPrefix(tok, "[") && strings.HasSuffix(tok, "]")
}

// lookup returns the id of token, or the [UNK] id.
func (v *vocab) lookup(token string) int64 {
	if id, ok := v.ids[token]; ok {
		return id
	}
	return v.unkID
}

func (v *vocab) contains(token string) bool {
	_, ok := v.ids[token]
	return ok
}

func (v *vocab) size() int {
	return v.lines
}
