package pipeline

// batcher accumulates texts until a batch is full.
type batcher struct {
	size    int
	pending []string
}

func newBatcher(size int) *batcher {
	return &batcher{size: size, pending: make([]string, 0, size)}
}

// add appends a text and reports whether the batch is now full.
func (b *batcher) add(text string) bool {
	b.pending = append(b.pending, text)
	return len(b.pending) >= b.size
}

// drain returns the pending texts and starts a new batch.
func (b *batcher) drain() []string {
	out := b.pending
	b.pending = make([]string, 0, b.size)
	return out
}
