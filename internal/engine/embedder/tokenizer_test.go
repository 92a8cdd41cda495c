package embedder

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// testVocab is a miniature WordPiece vocabulary; a token's ID is its index.
var testVocab = []string{
	"[PAD]", "[UNK]", "[CLS]", "[SEP]",
	"how", "to", "parse", "json", "in", "php", "##s", "rails", "?", ".", "cafe",
}

func testTokenizer(t *testing.T) *tokenizer {
	t.Helper()
	path := filepath.Join(t.TempDir(), "vocab.txt")
	if err := os.WriteFile(path, []byte(strings.Join(testVocab, "\n")+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	tok, err := newTokenizer(path)
	if err != nil {
		t.Fatalf("failed to create tokenizer: %v", err)
	}
	return tok
}

func TestVocabLoad(t *testing.T) {
	tok := testTokenizer(t)
	v := tok.vocab
	if v.size() != len(testVocab) {
		t.Errorf("expected %d tokens, got %d", len(testVocab), v.size())
	}
	if v.padID != 0 || v.unkID != 1 || v.clsID != 2 || v.sepID != 3 {
		t.Errorf("special IDs = %d/%d/%d/%d, want 0/1/2/3", v.padID, v.unkID, v.clsID, v.sepID)
	}
	if got := v.lookup("nope"); got != v.unkID {
		t.Errorf("lookup(unknown) = %d, want [UNK]", got)
	}
}

func TestParseVocabErrors(t *testing.T) {
	if _, err := parseVocab(strings.NewReader("")); err == nil {
		t.Error("expected error for empty vocabulary")
	}
	if _, err := parseVocab(strings.NewReader("[PAD]\n[UNK]\n[CLS]\n")); err == nil {
		t.Error("expected error for missing [SEP]")
	}
	if _, err := loadVocab(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for missing file")
	}
}

var tokenizeTests = []struct {
	name string
	text string
	ids  []int64 // non-padding portion
}{
	{"question", "How to parse JSON in PHP?", []int64{2, 4, 5, 6, 7, 8, 9, 12, 3}},
	{"empty string", "", []int64{2, 3}},
	{"accents stripped", "Café", []int64{2, 14, 3}},
	{"continuation piece", "parses", []int64{2, 6, 10, 3}},
	{"unknown word", "xyz rails", []int64{2, 1, 11, 3}},
	{"cjk isolated", "你好", []int64{2, 1, 1, 3}},
	{"punctuation split", "php.rails", []int64{2, 9, 13, 11, 3}},
}

func TestTokenize(t *testing.T) {
	tok := testTokenizer(t)

	for _, tc := range tokenizeTests {
		t.Run(tc.name, func(t *testing.T) {
			ids, mask, typeIDs := tok.tokenize(tc.text)
			if len(ids) != maxSeqLen || len(mask) != maxSeqLen || len(typeIDs) != maxSeqLen {
				t.Fatalf("expected length %d, got ids=%d mask=%d typeIDs=%d",
					maxSeqLen, len(ids), len(mask), len(typeIDs))
			}

			n := len(tc.ids)
			if !reflect.DeepEqual(ids[:n], tc.ids) {
				t.Errorf("input_ids mismatch\n  want: %v\n  got:  %v", tc.ids, ids[:n])
			}
			for i := 0; i < maxSeqLen; i++ {
				wantMask := int64(0)
				if i < n {
					wantMask = 1
				}
				if mask[i] != wantMask {
					t.Errorf("attention_mask[%d] = %d, want %d", i, mask[i], wantMask)
				}
				if i >= n && ids[i] != 0 {
					t.Errorf("input_ids[%d] = %d, want padding", i, ids[i])
				}
				if typeIDs[i] != 0 {
					t.Errorf("token_type_ids[%d] = %d, want 0", i, typeIDs[i])
				}
			}
		})
	}
}

func TestTokenizeTruncation(t *testing.T) {
	tok := testTokenizer(t)

	ids, mask, _ := tok.tokenize(strings.Repeat("php ", 200))
	if ids[0] != 2 {
		t.Errorf("expected [CLS] first, got %d", ids[0])
	}
	if ids[maxSeqLen-1] != 3 {
		t.Errorf("expected [SEP] at %d, got %d", maxSeqLen-1, ids[maxSeqLen-1])
	}
	var real int
	for _, m := range mask {
		real += int(m)
	}
	if real != maxSeqLen {
		t.Errorf("expected %d real tokens, got %d", maxSeqLen, real)
	}
}

func TestTokenizeBatch(t *testing.T) {
	tok := testTokenizer(t)

	got := tok.tokenizeBatch([]string{"php", "how to parse json"})
	if got.batchSize != 2 || got.seqLen != 6 {
		t.Fatalf("batch=%d seq=%d, want 2/6", got.batchSize, got.seqLen)
	}
	wantIDs := []int64{
		2, 9, 3, 0, 0, 0,
		2, 4, 5, 6, 7, 3,
	}
	if !reflect.DeepEqual(got.inputIDs, wantIDs) {
		t.Errorf("input_ids = %v, want %v", got.inputIDs, wantIDs)
	}
	wantMask := []int64{
		1, 1, 1, 0, 0, 0,
		1, 1, 1, 1, 1, 1,
	}
	if !reflect.DeepEqual(got.attentionMask, wantMask) {
		t.Errorf("attention_mask = %v, want %v", got.attentionMask, wantMask)
	}
	if len(got.tokenTypeIDs) != 12 {
		t.Errorf("token_type_ids len = %d, want 12", len(got.tokenTypeIDs))
	}
}

func TestTokenizeBatchEmpty(t *testing.T) {
	tok := testTokenizer(t)
	if got := tok.tokenizeBatch(nil); got.batchSize != 0 {
		t.Errorf("expected empty batch, got batchSize=%d", got.batchSize)
	}
}
