package dataset

import (
	"errors"
	"fmt"
)

// ErrPrecondition is wrapped by every error that signals a misconfigured
// pipeline rather than a transient fault. Callers should not retry.
var ErrPrecondition = errors.New("dataset: precondition failed")

var (
	// ErrEmptyCorpus is returned when batches are requested from a corpus
	// with no samples left after filtering.
	ErrEmptyCorpus = fmt.Errorf("%w: filtered corpus is empty", ErrPrecondition)

	// ErrNoBatches is returned when a partition holds fewer samples than
	// one batch.
	ErrNoBatches = fmt.Errorf("%w: partition is smaller than one batch", ErrPrecondition)

	// ErrUnknownLabel is returned when encoding a label absent from the index.
	ErrUnknownLabel = fmt.Errorf("%w: unknown label", ErrPrecondition)

	// ErrSchema is returned when a source does not have the expected columns
	// or a cell cannot be parsed.
	ErrSchema = fmt.Errorf("%w: malformed source schema", ErrPrecondition)

	// ErrInvalidSplit is returned for a non-positive batch size or a train
	// ratio outside (0, 1).
	ErrInvalidSplit = fmt.Errorf("%w: invalid batch size or train ratio", ErrPrecondition)
)
