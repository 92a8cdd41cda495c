package stacktag

type options struct {
	artefactDir string
	topK        int
	cacheSize   int
	threshold   float64
}

// Option configures a Tagger.
type Option func(*options)

// WithArtefactDir sets the model bundle to load. It may also be a directory
// of timestamped bundles, in which case the newest is used.
// Default: "artefacts".
func WithArtefactDir(dir string) Option {
	return func(o *options) {
		o.artefactDir = dir
	}
}

// WithTopK sets how many tags Predict returns per text. Default: 5.
func WithTopK(k int) Option {
	return func(o *options) {
		o.topK = k
	}
}

// WithCacheSize keeps embeddings of the last n distinct texts. Default: 0
// (no cache).
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// WithThreshold drops tags whose confidence is below t. Default: 0.
func WithThreshold(t float64) Option {
	return func(o *options) {
		o.threshold = t
	}
}

func defaultOptions() options {
	return options{
		artefactDir: "artefacts",
		topK:        5,
	}
}
