// Package multi writes each prediction to several outputs.
package multi

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimson-sun/stacktag/internal/model"
	"github.com/crimson-sun/stacktag/internal/output"
)

// Multi fans predictions out to every wrapped output in order. A failing
// output does not stop delivery to the others.
type Multi struct {
	outputs []output.Output
}

// New returns a Multi over outputs.
func New(outputs ...output.Output) *Multi {
	return &Multi{outputs: outputs}
}

// Write delivers p to every output and joins their errors.
func (m *Multi) Write(ctx context.Context, p model.Prediction) error {
	var errs []error
	for i, o := range m.outputs {
		if err := o.Write(ctx, p); err != nil {
			errs = append(errs, fmt.Errorf("output %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Close closes every output and joins their errors.
func (m *Multi) Close() error {
	var errs []error
	for i, o := range m.outputs {
		if err := o.Close(); err != nil {
			errs = append(errs, fmt.Errorf("output %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}
