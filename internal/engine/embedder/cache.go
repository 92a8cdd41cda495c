package embedder

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cached memoises another embedder's vectors in an LRU keyed by text.
// It is safe for concurrent use if the wrapped embedder is.
type Cached struct {
	Embedder
	cache *lru.Cache[string, []float32]
}

// NewCached wraps e with an LRU holding up to size vectors.
func NewCached(e Embedder, size int) (*Cached, error) {
	c, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("embedder: cache: %w", err)
	}
	return &Cached{Embedder: e, cache: c}, nil
}

// Embed returns the cached vector for text, computing it on a miss.
func (c *Cached) Embed(text string) ([]float32, error) {
	if v, ok := c.cache.Get(text); ok {
		return clone(v), nil
	}
	v, err := c.Embedder.Embed(text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, clone(v))
	return v, nil
}

// EmbedBatch serves hits from the cache and embeds the misses in a single
// call to the wrapped embedder.
func (c *Cached) EmbedBatch(texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missText []string
	var missAt []int
	for i, t := range texts {
		if v, ok := c.cache.Get(t); ok {
			out[i] = clone(v)
			continue
		}
		missText = append(missText, t)
		missAt = append(missAt, i)
	}
	if len(missText) == 0 {
		return out, nil
	}

	vecs, err := c.Embedder.EmbedBatch(missText)
	if err != nil {
		return nil, err
	}
	for j, v := range vecs {
		c.cache.Add(missText[j], clone(v))
		out[missAt[j]] = v
	}
	return out, nil
}

// Len returns the number of cached vectors.
func (c *Cached) Len() int {
	return c.cache.Len()
}

func clone(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return out
}
