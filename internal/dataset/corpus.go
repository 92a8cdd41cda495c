package dataset

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/crimson-sun/stacktag/internal/model"
)

// Options configures a Corpus.
type Options struct {
	BatchSize          int
	TrainRatio         float64
	MinSamplesPerLabel int
}

// Corpus is a fully materialised dataset loaded from a Source. The filtered
// samples and label index never change after construction; only the batch
// cursors move. A Corpus is not safe for concurrent use.
type Corpus struct {
	*Base

	samples []model.Sample
	labels  LabelIndex

	trainCursor int
	testCursor  int
}

// Open resolves location with OpenSource and loads it.
func Open(ctx context.Context, location string, opts Options) (*Corpus, error) {
	src, err := OpenSource(location)
	if err != nil {
		return nil, err
	}
	return NewCorpus(ctx, src, opts)
}

// NewCorpus loads every record from src, keeps primary-tag rows, then drops
// labels seen fewer than opts.MinSamplesPerLabel times.
func NewCorpus(ctx context.Context, src Source, opts Options) (*Corpus, error) {
	records, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("dataset: load: %w", err)
	}
	return newCorpus(records, opts)
}

func newCorpus(records []model.Record, opts Options) (*Corpus, error) {
	samples := Filter(records, opts.MinSamplesPerLabel)

	var order []string
	seen := make(map[string]bool)
	for _, s := range samples {
		if !seen[s.Label] {
			seen[s.Label] = true
			order = append(order, s.Label)
		}
	}
	labels, err := NewLabelIndex(order)
	if err != nil {
		return nil, err
	}

	c := &Corpus{samples: samples, labels: labels}
	base, err := NewBase(c, opts.BatchSize, opts.TrainRatio)
	if err != nil {
		return nil, err
	}
	c.Base = base

	slog.Debug("corpus loaded",
		"records", len(records),
		"samples", len(samples),
		"labels", labels.Len(),
		"train_batches", c.TrainBatchCount(),
		"test_batches", c.TestBatchCount(),
	)
	return c, nil
}

// Filter keeps primary-tag records whose label occurs at least minPerLabel
// times among them. Relative order is preserved.
func Filter(records []model.Record, minPerLabel int) []model.Sample {
	primary := make([]model.Sample, 0, len(records))
	counts := make(map[string]int)
	for _, r := range records {
		if !r.IsPrimary() {
			continue
		}
		primary = append(primary, model.Sample{Text: r.Title, Label: r.TagName})
		counts[r.TagName]++
	}

	out := primary[:0]
	for _, s := range primary {
		if counts[s.Label] >= minPerLabel {
			out = append(out, s)
		}
	}
	return out
}

// TotalSampleCount returns the number of filtered samples.
func (c *Corpus) TotalSampleCount() int {
	return len(c.samples)
}

// LabelList returns the labels in first-occurrence order.
func (c *Corpus) LabelList() []string {
	return c.labels.Labels()
}

// LabelIndex returns the index built at load time.
func (c *Corpus) LabelIndex() (LabelIndex, error) {
	return c.labels, nil
}

// Index returns the index built at load time.
func (c *Corpus) Index() LabelIndex {
	return c.labels
}

// EncodeLabels maps labels to their codes.
func (c *Corpus) EncodeLabels(labels []string) ([]int, error) {
	return c.labels.Encode(labels)
}

// Samples returns a copy of the filtered corpus.
func (c *Corpus) Samples() []model.Sample {
	out := make([]model.Sample, len(c.samples))
	copy(out, c.samples)
	return out
}

// TrainBatch returns the next batch of the train prefix. The cursor wraps
// after the last full batch.
func (c *Corpus) TrainBatch() (Batch, error) {
	b, err := c.batch(0, c.TrainBatchCount(), c.trainCursor)
	if err != nil {
		return Batch{}, fmt.Errorf("train batch: %w", err)
	}
	c.trainCursor = (c.trainCursor + 1) % c.TrainBatchCount()
	return b, nil
}

// TestBatch returns the next batch of the test suffix. The cursor wraps
// after the last full batch.
func (c *Corpus) TestBatch() (Batch, error) {
	b, err := c.batch(c.TrainSampleCount(), c.TestBatchCount(), c.testCursor)
	if err != nil {
		return Batch{}, fmt.Errorf("test batch: %w", err)
	}
	c.testCursor = (c.testCursor + 1) % c.TestBatchCount()
	return b, nil
}

// Reset rewinds both batch cursors.
func (c *Corpus) Reset() {
	c.trainCursor = 0
	c.testCursor = 0
}

func (c *Corpus) batch(offset, count, cursor int) (Batch, error) {
	if len(c.samples) == 0 {
		return Batch{}, ErrEmptyCorpus
	}
	if count == 0 {
		return Batch{}, ErrNoBatches
	}

	start := offset + cursor*c.batchSize
	rows := c.samples[start : start+c.batchSize]

	b := Batch{
		Texts:  make([]string, len(rows)),
		Labels: make([]int, len(rows)),
	}
	for i, s := range rows {
		code, ok := c.labels.Index(s.Label)
		if !ok {
			return Batch{}, fmt.Errorf("%w %q", ErrUnknownLabel, s.Label)
		}
		b.Texts[i] = s.Text
		b.Labels[i] = code
	}
	return b, nil
}
