package embedder

import (
	"fmt"
	"math"

	"github.com/cespare/xxhash/v2"
)

// HashEmbedder projects the unigrams and bigrams of a text into a fixed
// number of signed buckets and L2-normalises the result. It needs no model
// files and is deterministic across processes.
type HashEmbedder struct {
	dim int
}

// NewHash returns a hashing embedder with dim buckets.
func NewHash(dim int) (*HashEmbedder, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("embedder: hash dim must be positive, got %d", dim)
	}
	return &HashEmbedder{dim: dim}, nil
}

// Dim returns the number of buckets.
func (h *HashEmbedder) Dim() int {
	return h.dim
}

// Embed hashes the text's features. A text with no tokens embeds to the
// zero vector.
func (h *HashEmbedder) Embed(text string) ([]float32, error) {
	vec := make([]float32, h.dim)
	tokens := basicTokens(text)
	for i, tok := range tokens {
		h.add(vec, tok)
		if i > 0 {
			h.add(vec, tokens[i-1]+" "+tok)
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text independently.
func (h *HashEmbedder) EmbedBatch(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := h.Embed(t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Close is a no-op.
func (h *HashEmbedder) Close() error {
	return nil
}

func (h *HashEmbedder) add(vec []float32, feature string) {
	sum := xxhash.Sum64String(feature)
	bucket := sum % uint64(h.dim)
	if sum>>63 == 1 {
		vec[bucket]--
	} else {
		vec[bucket]++
	}
}
