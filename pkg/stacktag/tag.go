package stacktag

import (
	"github.com/crimson-sun/stacktag/internal/config"
	"github.com/crimson-sun/stacktag/internal/model"
)

// Tag is one predicted tag.
type Tag struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// TrainParams are the hyper-parameters of a training run.
type TrainParams = model.Params

// DefaultTrainParams returns the parameters the CLI trains with when no
// configuration is given.
func DefaultTrainParams() TrainParams {
	return config.Default().Params()
}

// Report summarises a finished training run.
type Report struct {
	RunID    string
	Dir      string
	Accuracy float64
	Loss     float64
}
