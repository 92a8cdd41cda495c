// Package dataset turns a tagged-posts corpus into train/test batches.
//
// A Dataset only has to report its size and its labels; Base derives the
// split and batch arithmetic from those two hooks, and Corpus is the
// in-memory implementation backed by a Source.
package dataset

import (
	"fmt"
)

// Dataset is the capability Base needs from a concrete dataset.
type Dataset interface {
	// TotalSampleCount returns the number of samples after filtering.
	TotalSampleCount() int
	// LabelList returns the distinct labels in a deterministic order.
	LabelList() []string
}

// Batch is a contiguous run of samples from one partition. Labels are
// encoded through the dataset's label index.
type Batch struct {
	Texts  []string
	Labels []int
}

// Len returns the number of samples in the batch.
func (b Batch) Len() int {
	return len(b.Texts)
}

// Base implements the split and batch-count arithmetic on top of a Dataset.
type Base struct {
	data       Dataset
	batchSize  int
	trainRatio float64
}

// NewBase wraps data with the given batch size and train ratio.
func NewBase(data Dataset, batchSize int, trainRatio float64) (*Base, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("%w: batch size %d", ErrInvalidSplit, batchSize)
	}
	if !(trainRatio > 0 && trainRatio < 1) {
		return nil, fmt.Errorf("%w: train ratio %v", ErrInvalidSplit, trainRatio)
	}
	return &Base{data: data, batchSize: batchSize, trainRatio: trainRatio}, nil
}

// BatchSize returns the configured batch size.
func (b *Base) BatchSize() int {
	return b.batchSize
}

// TrainRatio returns the configured train ratio.
func (b *Base) TrainRatio() float64 {
	return b.trainRatio
}

// TrainSampleCount returns floor(total * trainRatio).
func (b *Base) TrainSampleCount() int {
	return int(float64(b.data.TotalSampleCount()) * b.trainRatio)
}

// TestSampleCount returns the samples left after the train prefix.
func (b *Base) TestSampleCount() int {
	return b.data.TotalSampleCount() - b.TrainSampleCount()
}

// TrainBatchCount returns the number of full batches in the train prefix.
func (b *Base) TrainBatchCount() int {
	return b.TrainSampleCount() / b.batchSize
}

// TestBatchCount returns the number of full batches in the test suffix.
func (b *Base) TestBatchCount() int {
	return b.TestSampleCount() / b.batchSize
}

// LabelIndex builds the label index from the dataset's label list.
func (b *Base) LabelIndex() (LabelIndex, error) {
	return NewLabelIndex(b.data.LabelList())
}

// EncodeLabels maps labels to their codes.
func (b *Base) EncodeLabels(labels []string) ([]int, error) {
	idx, err := b.LabelIndex()
	if err != nil {
		return nil, err
	}
	return idx.Encode(labels)
}
