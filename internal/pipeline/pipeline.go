// Package pipeline runs batch prediction: texts in, one Prediction per text
// out to an output.Output.
package pipeline

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/crimson-sun/stacktag/internal/engine/classifier"
	"github.com/crimson-sun/stacktag/internal/model"
	"github.com/crimson-sun/stacktag/internal/output"
)

// DefaultBatchSize is the number of texts sent to the predictor at once.
const DefaultBatchSize = 64

// Predictor ranks labels for a batch of texts. *engine.Engine implements it.
type Predictor interface {
	PredictScored(ctx context.Context, texts []string, k int) ([][]classifier.Result, error)
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithBatchSize sets how many texts are predicted per call.
func WithBatchSize(n int) Option {
	return func(p *Pipeline) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// Pipeline connects a predictor and an output.
type Pipeline struct {
	predictor Predictor
	output    output.Output
	batchSize int
	now       func() time.Time
}

// New creates a Pipeline from the given components.
func New(pred Predictor, out output.Output, opts ...Option) *Pipeline {
	p := &Pipeline{
		predictor: pred,
		output:    out,
		batchSize: DefaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run predicts up to k labels for every text and writes the results in
// input order. It returns the number of predictions written.
func (p *Pipeline) Run(ctx context.Context, texts []string, k int) (int, error) {
	var written int
	for start := 0; start < len(texts); start += p.batchSize {
		end := min(start+p.batchSize, len(texts))
		n, err := p.flush(ctx, texts[start:end], k)
		written += n
		if err != nil {
			return written, err
		}
	}
	return written, nil
}

// RunReader reads one text per line from r, skipping blank lines, and
// predicts them in batches as they arrive.
func (p *Pipeline) RunReader(ctx context.Context, r io.Reader, k int) (int, error) {
	b := newBatcher(p.batchSize)
	var written int

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !b.add(line) {
			continue
		}
		n, err := p.flush(ctx, b.drain(), k)
		written += n
		if err != nil {
			return written, err
		}
	}
	if err := scanner.Err(); err != nil {
		return written, fmt.Errorf("pipeline read: %w", err)
	}

	n, err := p.flush(ctx, b.drain(), k)
	return written + n, err
}

func (p *Pipeline) flush(ctx context.Context, texts []string, k int) (int, error) {
	if len(texts) == 0 {
		return 0, nil
	}
	results, err := p.predictor.PredictScored(ctx, texts, k)
	if err != nil {
		return 0, fmt.Errorf("pipeline predict: %w", err)
	}

	ts := p.now().UTC()
	for i, row := range results {
		pred := model.Prediction{
			Text:      texts[i],
			Labels:    make([]string, len(row)),
			Scores:    make([]float64, len(row)),
			Timestamp: ts,
		}
		for j, r := range row {
			pred.Labels[j] = r.Label
			pred.Scores[j] = r.Confidence
		}
		if err := p.output.Write(ctx, pred); err != nil {
			return i, fmt.Errorf("pipeline output: %w", err)
		}
	}
	slog.Debug("batch predicted", "texts", len(texts))
	return len(results), nil
}

// Close shuts down the output.
func (p *Pipeline) Close() error {
	return p.output.Close()
}
