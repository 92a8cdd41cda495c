// Package output defines destinations for batch predictions.
package output

import (
	"context"

	"github.com/crimson-sun/stacktag/internal/model"
)

// Output receives one prediction per classified text.
type Output interface {
	Write(ctx context.Context, p model.Prediction) error
	Close() error
}

// Format returns a copy of p ready for writing. Scores are dropped unless
// withScores is set, so the default record carries only text and labels.
func Format(p model.Prediction, withScores bool) model.Prediction {
	if !withScores {
		p.Scores = nil
	}
	return p
}
