// Package config loads stacktag settings. Sources are layered, lowest
// priority first: built-in defaults, an optional YAML file, then
// STACKTAG_* environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"

	"github.com/crimson-sun/stacktag/internal/model"
	"github.com/crimson-sun/stacktag/internal/validation"
)

// PathEnvVar names the config file when no --config flag is given.
const PathEnvVar = "STACKTAG_CONFIG"

const envPrefix = "STACKTAG_"

// Config holds all stacktag configuration.
type Config struct {
	Train    TrainConfig    `koanf:"train"`
	Embedder EmbedderConfig `koanf:"embedder"`
	Server   ServerConfig   `koanf:"server"`
	Log      LogConfig      `koanf:"log"`
}

// TrainConfig holds the dataset location and training hyper-parameters.
type TrainConfig struct {
	DatasetPath        string  `koanf:"dataset_path" validate:"required"`
	ArtefactsDir       string  `koanf:"artefacts_dir" validate:"required"`
	AddTimestamp       bool    `koanf:"add_timestamp"`
	BatchSize          int     `koanf:"batch_size" validate:"min=1"`
	Epochs             int     `koanf:"epochs" validate:"min=1"`
	DenseDim           int     `koanf:"dense_dim" validate:"min=1"`
	MinSamplesPerLabel int     `koanf:"min_samples_per_label" validate:"min=1"`
	TrainRatio         float64 `koanf:"train_ratio" validate:"gt=0,lt=1"`
	LearningRate       float64 `koanf:"learning_rate" validate:"gt=0"`
	Seed               uint64  `koanf:"seed"`
	Verbose            bool    `koanf:"verbose"`
}

// EmbedderConfig selects the text featuriser.
type EmbedderConfig struct {
	Kind           string `koanf:"kind" validate:"oneof=hash onnx"`
	Dim            int    `koanf:"dim" validate:"min=0"`
	ModelPath      string `koanf:"model_path" validate:"required_if=Kind onnx"`
	VocabPath      string `koanf:"vocab_path" validate:"required_if=Kind onnx"`
	ProjectionPath string `koanf:"projection_path" validate:"required_if=Kind onnx"`
	CacheSize      int    `koanf:"cache_size" validate:"min=0"`
}

// ServerConfig holds HTTP serving settings.
type ServerConfig struct {
	Addr            string        `koanf:"addr" validate:"required"`
	ModelDir        string        `koanf:"model_dir" validate:"required"`
	TopK            int           `koanf:"top_k" validate:"min=1,max=100"`
	Threshold       float64       `koanf:"threshold" validate:"gte=0,lte=1"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=debug info warn warning error"`
	Format string `koanf:"format" validate:"oneof=json text"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Train: TrainConfig{
			DatasetPath:        "data/stackoverflow_posts.csv",
			ArtefactsDir:       "artefacts",
			AddTimestamp:       true,
			BatchSize:          32,
			Epochs:             5,
			DenseDim:           64,
			MinSamplesPerLabel: 10,
			TrainRatio:         0.8,
			LearningRate:       0.001,
			Seed:               42,
		},
		Embedder: EmbedderConfig{
			Kind: model.EmbedderHash,
			Dim:  512,
		},
		Server: ServerConfig{
			Addr:            ":5000",
			ModelDir:        "artefacts",
			TopK:            5,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration. path may be empty, in which case
// STACKTAG_CONFIG is consulted; no file at all is not an error.
func Load(path string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("config: load defaults: %w", err)
	}

	if path == "" {
		path = os.Getenv(PathEnvVar)
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("config: load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("config: load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges.
func (c Config) Validate() error {
	if err := validation.ValidateStruct(&c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// envSections are the config sections an environment variable may target.
var envSections = []string{"train", "embedder", "server", "log"}

// envKey maps STACKTAG_TRAIN_BATCH_SIZE to train.batch_size. Variables
// outside a known section are ignored.
func envKey(name string) string {
	key := strings.ToLower(strings.TrimPrefix(name, envPrefix))
	if key == "config" {
		return ""
	}
	for _, section := range envSections {
		if field, ok := strings.CutPrefix(key, section+"_"); ok && field != "" {
			return section + "." + field
		}
	}
	return ""
}

// Params converts the training section and embedder choice into the
// parameters persisted with a model.
func (c Config) Params() model.Params {
	return model.Params{
		BatchSize:          c.Train.BatchSize,
		Epochs:             c.Train.Epochs,
		DenseDim:           c.Train.DenseDim,
		MinSamplesPerLabel: c.Train.MinSamplesPerLabel,
		TrainRatio:         c.Train.TrainRatio,
		LearningRate:       c.Train.LearningRate,
		Seed:               c.Train.Seed,
		Verbose:            c.Train.Verbose,
		Embedder: model.EmbedderSpec{
			Kind:           c.Embedder.Kind,
			Dim:            c.Embedder.Dim,
			ModelPath:      c.Embedder.ModelPath,
			VocabPath:      c.Embedder.VocabPath,
			ProjectionPath: c.Embedder.ProjectionPath,
		},
	}
}
