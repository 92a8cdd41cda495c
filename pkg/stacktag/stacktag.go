package stacktag

import (
	"context"
	"fmt"

	"github.com/crimson-sun/stacktag/internal/artefact"
	"github.com/crimson-sun/stacktag/internal/engine"
	"github.com/crimson-sun/stacktag/internal/trainer"
)

// Tagger predicts tags with a trained model. Safe for concurrent use.
type Tagger struct {
	engine *engine.Engine
	topK   int
}

// New loads the model bundle selected by the options.
func New(opts ...Option) (*Tagger, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.topK <= 0 {
		return nil, fmt.Errorf("stacktag: top k must be positive, got %d", o.topK)
	}

	dir, err := artefact.Latest(o.artefactDir)
	if err != nil {
		return nil, fmt.Errorf("stacktag: %w", err)
	}
	eng, err := engine.FromArtefacts(dir, engine.Options{
		CacheSize: o.cacheSize,
		Threshold: o.threshold,
	})
	if err != nil {
		return nil, fmt.Errorf("stacktag: %w", err)
	}
	return &Tagger{engine: eng, topK: o.topK}, nil
}

// Predict returns the most likely tags for text, best first.
func (t *Tagger) Predict(ctx context.Context, text string) ([]Tag, error) {
	tags, err := t.PredictBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return tags[0], nil
}

// PredictBatch predicts tags for several texts in one inference pass.
func (t *Tagger) PredictBatch(ctx context.Context, texts []string) ([][]Tag, error) {
	results, err := t.engine.PredictScored(ctx, texts, t.topK)
	if err != nil {
		return nil, fmt.Errorf("stacktag: %w", err)
	}
	out := make([][]Tag, len(results))
	for i, row := range results {
		tags := make([]Tag, len(row))
		for j, r := range row {
			tags[j] = Tag{Name: r.Label, Confidence: r.Confidence}
		}
		out[i] = tags
	}
	return out, nil
}

// Labels returns every tag the model knows, in index order.
func (t *Tagger) Labels() []string {
	return t.engine.Labels()
}

// Close releases model resources.
func (t *Tagger) Close() error {
	return t.engine.Close()
}

// Train fits a model on the corpus at dataset (CSV, CSV.xz or SQLite) and
// writes it to a new timestamped bundle under artefactDir.
func Train(ctx context.Context, dataset, artefactDir string, params TrainParams) (Report, error) {
	out, dir, err := trainer.Run(ctx, dataset, params, artefactDir, true)
	if err != nil {
		return Report{}, fmt.Errorf("stacktag: %w", err)
	}
	return Report{
		RunID:    out.RunID,
		Dir:      dir,
		Accuracy: out.TestAccuracy,
		Loss:     out.TrainLoss,
	}, nil
}
