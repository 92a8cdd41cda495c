package embedder

const (
	maxSeqLen      = 128
	maxWordRunes   = 200
	unknownToken   = "[UNK]"
	continuationOf = "##"
)

// tokenized is a padded batch ready for ONNX inference. All slices are flat
// [batchSize * seqLen].
type tokenized struct {
	inputIDs      []int64
	attentionMask []int64
	tokenTypeIDs  []int64
	batchSize     int64
	seqLen        int64
}

// tokenizer performs BERT-style WordPiece tokenisation.
type tokenizer struct {
	vocab *vocab
}

func newTokenizer(vocabPath string) (*tokenizer, error) {
	v, err := loadVocab(vocabPath)
	if err != nil {
		return nil, err
	}
	return &tokenizer{vocab: v}, nil
}

// encode returns [CLS] wordpieces... [SEP] as token IDs, truncated so the
// whole sequence fits in maxSeqLen.
func (t *tokenizer) encode(text string) []int64 {
	pieces := t.wordpiece(basicTokens(text))
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

// tokenize encodes a single text padded to maxSeqLen.
func (t *tokenizer) tokenize(text string) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	ids := t.encode(text)
	inputIDs = make([]int64, maxSeqLen)
	attentionMask = make([]int64, maxSeqLen)
	tokenTypeIDs = make([]int64, maxSeqLen)
	copy(inputIDs, ids)
	for i := range ids {
		attentionMask[i] = 1
	}
	return inputIDs, attentionMask, tokenTypeIDs
}

// tokenizeBatch encodes texts and pads them to the longest sequence in the
// batch rather than to maxSeqLen.
func (t *tokenizer) tokenizeBatch(texts []string) tokenized {
	if len(texts) == 0 {
		return tokenized{}
	}

	seqs := make([][]int64, len(texts))
	longest := 0
	for i, text := range texts {
		seqs[i] = t.encode(text)
		longest = max(longest, len(seqs[i]))
	}

	out := tokenized{
		batchSize: int64(len(texts)),
		seqLen:    int64(longest),
	}
	total := len(texts) * longest
	out.inputIDs = make([]int64, total)
	out.attentionMask = make([]int64, total)
	out.tokenTypeIDs = make([]int64, total)
	for i, ids := range seqs {
		row := i * longest
		copy(out.inputIDs[row:], ids)
		for j := range ids {
			out.attentionMask[row+j] = 1
		}
	}
	return out
}

// wordpiece splits each basic token into the longest vocabulary subwords,
// greedily from the left. A word that cannot be fully covered becomes [UNK].
func (t *tokenizer) wordpiece(words []string) []string {
	var out []string
	for _, w := range words {
		if w == "" {
			continue
		}
		out = append(out, t.splitWord(w)...)
	}
	return out
}

func (t *tokenizer) splitWord(word string) []string {
	runes := []rune(word)
	if len(runes) > maxWordRunes {
		return []string{unknownToken}
	}

	var pieces []string
	for start := 0; start < len(runes); {
		end := len(runes)
		var piece string
		for ; end > start; end-- {
			candidate := string(runes[start:end])
			if start > 0 {
				candidate = continuationOf + candidate
			}
			if t.vocab.contains(candidate) {
				piece = candidate
				break
			}
		}
		if piece == "" {
			return []string{unknownToken}
		}
		pieces = append(pieces, piece)
		start = end
	}
	return pieces
}
