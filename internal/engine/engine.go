// Package engine turns question titles into ranked tag predictions.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crimson-sun/stacktag/internal/artefact"
	"github.com/crimson-sun/stacktag/internal/engine/classifier"
	"github.com/crimson-sun/stacktag/internal/engine/embedder"
	"github.com/crimson-sun/stacktag/internal/metrics"
	"github.com/crimson-sun/stacktag/internal/model"
)

// Options tunes an Engine built from artefacts.
type Options struct {
	// CacheSize wraps the embedder in an LRU of that many texts; 0 disables it.
	CacheSize int
	// Threshold drops candidates below this probability.
	Threshold float64
}

// Engine orchestrates the embed → classify pipeline. It is safe for
// concurrent use.
type Engine struct {
	embedder   embedder.Embedder
	classifier *classifier.Classifier
	params     model.Params
}

// New creates an Engine with the provided components.
func New(emb embedder.Embedder, cls *classifier.Classifier) (*Engine, error) {
	if emb.Dim() != cls.Network().InputDim() {
		return nil, fmt.Errorf("engine: embedder dim %d != network input dim %d",
			emb.Dim(), cls.Network().InputDim())
	}
	return &Engine{embedder: emb, classifier: cls}, nil
}

// FromArtefacts loads the bundle in dir and rebuilds the embedder it was
// trained with.
func FromArtefacts(dir string, opts Options) (*Engine, error) {
	b, err := artefact.Load(dir)
	if err != nil {
		return nil, err
	}

	var emb embedder.Embedder
	emb, err = embedder.Open(b.Params.Embedder)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if opts.CacheSize > 0 {
		cached, err := embedder.NewCached(emb, opts.CacheSize)
		if err != nil {
			emb.Close()
			return nil, fmt.Errorf("engine: %w", err)
		}
		emb = cached
	}

	cls, err := classifier.New(b.Network, b.Labels, opts.Threshold)
	if err != nil {
		emb.Close()
		return nil, fmt.Errorf("engine: %w", err)
	}
	eng, err := New(emb, cls)
	if err != nil {
		emb.Close()
		return nil, err
	}
	eng.params = b.Params

	slog.Info("model loaded",
		"dir", dir,
		"labels", b.Labels.Len(),
		"embedder", b.Params.Embedder.Kind,
		"run_id", b.Output.RunID,
	)
	return eng, nil
}

// Labels returns the labels the engine can predict, by index.
func (e *Engine) Labels() []string {
	return e.classifier.Labels().Labels()
}

// Params returns the training parameters of a model loaded from artefacts.
func (e *Engine) Params() model.Params {
	return e.params
}

// PredictScored returns up to k ranked results per text.
func (e *Engine) PredictScored(ctx context.Context, texts []string, k int) ([][]classifier.Result, error) {
	if len(texts) == 0 {
		return [][]classifier.Result{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	results, err := e.predict(texts, k)
	metrics.RecordPrediction(len(texts), time.Since(start), err)
	return results, err
}

func (e *Engine) predict(texts []string, k int) ([][]classifier.Result, error) {
	vecs, err := e.embedder.EmbedBatch(texts)
	if err != nil {
		return nil, fmt.Errorf("engine: embed: %w", err)
	}
	results, err := e.classifier.TopK(vecs, k)
	if err != nil {
		return nil, fmt.Errorf("engine: classify: %w", err)
	}
	return results, nil
}

// Predict returns up to k label names per text, best first.
func (e *Engine) Predict(ctx context.Context, texts []string, k int) ([][]string, error) {
	scored, err := e.PredictScored(ctx, texts, k)
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(scored))
	for i, row := range scored {
		labels := make([]string, len(row))
		for j, r := range row {
			labels[j] = r.Label
		}
		out[i] = labels
	}
	return out, nil
}

// Close releases the embedder.
func (e *Engine) Close() error {
	return e.embedder.Close()
}
