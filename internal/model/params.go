package model

// Embedder kinds understood by the engine.
const (
	EmbedderHash = "hash"
	EmbedderONNX = "onnx"
)

// EmbedderSpec identifies the featuriser a model was trained with so that
// prediction can rebuild exactly the same one.
type EmbedderSpec struct {
	Kind           string `json:"kind"`
	Dim            int    `json:"dim,omitempty"`
	ModelPath      string `json:"model_path,omitempty"`
	VocabPath      string `json:"vocab_path,omitempty"`
	ProjectionPath string `json:"projection_path,omitempty"`
}

// Params holds the training hyper-parameters persisted next to a model.
type Params struct {
	BatchSize          int          `json:"batch_size" validate:"min=1"`
	Epochs             int          `json:"epochs" validate:"min=1"`
	DenseDim           int          `json:"dense_dim" validate:"min=1"`
	MinSamplesPerLabel int          `json:"min_samples_per_label" validate:"min=1"`
	TrainRatio         float64      `json:"train_ratio" validate:"gt=0,lt=1"`
	LearningRate       float64      `json:"learning_rate" validate:"gt=0"`
	Seed               uint64       `json:"seed"`
	Verbose            bool         `json:"verbose"`
	Embedder           EmbedderSpec `json:"embedder"`
}
