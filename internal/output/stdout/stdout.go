package stdout

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/goccy/go-json"

	"github.com/crimson-sun/stacktag/internal/model"
	"github.com/crimson-sun/stacktag/internal/output"
)

// Output writes JSON-encoded predictions to stdout, one per line unless
// pretty printing is enabled.
type Output struct {
	mu         sync.Mutex
	enc        *json.Encoder
	withScores bool
}

// New creates a stdout Output.
func New(pretty, withScores bool) *Output {
	return NewWriter(os.Stdout, pretty, withScores)
}

// NewWriter creates an Output on an arbitrary writer.
func NewWriter(w io.Writer, pretty, withScores bool) *Output {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	return &Output{enc: enc, withScores: withScores}
}

func (o *Output) Write(_ context.Context, p model.Prediction) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.enc.Encode(output.Format(p, o.withScores)); err != nil {
		return fmt.Errorf("stdout output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
