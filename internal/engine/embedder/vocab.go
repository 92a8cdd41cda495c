package embedder

import (
	"bufio"
	"fmt"
	"io"
	"os"
)

// vocab is a WordPiece vocabulary: one token per line, the 0-based line
// number being the token ID.
type vocab struct {
	tokenToID map[string]int64
	idToToken []string

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

	v, err := parseVocab(f)
	if err != nil {
		return nil, fmt.Errorf("vocab %s: %w", path, err)
	}
	return v, nil
}

func parseVocab(r io.Reader) (*vocab, error) {
	v := &vocab{tokenToID: make(map[string]int64, 32000)}

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		tok := scanner.Text()
		v.tokenToID[tok] = int64(len(v.idToToken))
		v.idToToken = append(v.idToToken, tok)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read error: %w", err)
	}
	if len(v.idToToken) == 0 {
		return nil, fmt.Errorf("empty vocabulary")
	}

	for name, dest := range map[string]*int64{
		"[PAD]": &v.padID,
		"[UNK]": &v.unkID,
		"[CLS]": &v.clsID,
		"[SEP]": &v.sepID,
	} {
		id, ok := v.tokenToID[name]
		if !ok {
			return nil, fmt.Errorf("missing special token %s", name)
		}
		*dest = id
	}
	return v, nil
}

// lookup returns the token ID, or the [UNK] ID if the token is unknown.
func (v *vocab) lookup(token string) int64 {
	if id, ok := v.tokenToID[token]; ok {
		return id
	}
	return v.unkID
}

func (v *vocab) contains(token string) bool {
	_, ok := v.tokenToID[token]
	return ok
}

func (v *vocab) size() int {
	return len(v.idToToken)
}
