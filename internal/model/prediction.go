package model

import "time"

// Prediction is the ranked tag prediction for a single text.
type Prediction struct {
	Text      string    `json:"text"`
	Labels    []string  `json:"labels"`
	Scores    []float64 `json:"scores,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// EpochStat records the mean training loss of one epoch.
type EpochStat struct {
	Epoch int     `json:"epoch"`
	Loss  float64 `json:"loss"`
}

// TrainOutput summarises a training run. It is persisted as train_output.json.
type TrainOutput struct {
	RunID        string      `json:"run_id"`
	TestAccuracy float64     `json:"test_accuracy"`
	TrainLoss    float64     `json:"train_loss"`
	Samples      int         `json:"samples"`
	Labels       int         `json:"labels"`
	TrainBatches int         `json:"train_batches"`
	TestBatches  int         `json:"test_batches"`
	History      []EpochStat `json:"history"`
	StartedAt    time.Time   `json:"started_at"`
	FinishedAt   time.Time   `json:"finished_at"`
}
