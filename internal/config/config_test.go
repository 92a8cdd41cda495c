package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/crimson-sun/stacktag/internal/model"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stacktag.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(PathEnvVar, "")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg.Train != want.Train {
		t.Errorf("train = %+v, want %+v", cfg.Train, want.Train)
	}
	if cfg.Embedder != want.Embedder {
		t.Errorf("embedder = %+v, want %+v", cfg.Embedder, want.Embedder)
	}
	if cfg.Server != want.Server {
		t.Errorf("server = %+v, want %+v", cfg.Server, want.Server)
	}
	if cfg.Log != want.Log {
		t.Errorf("log = %+v, want %+v", cfg.Log, want.Log)
	}
}

func TestLoad_File(t *testing.T) {
	t.Setenv(PathEnvVar, "")
	path := writeConfig(t, `
train:
  dataset_path: posts.csv.xz
  batch_size: 8
  train_ratio: 0.5
server:
  addr: 127.0.0.1:8080
  read_timeout: 3s
log:
  format: json
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Train.DatasetPath != "posts.csv.xz" || cfg.Train.BatchSize != 8 || cfg.Train.TrainRatio != 0.5 {
		t.Errorf("train = %+v", cfg.Train)
	}
	if cfg.Server.Addr != "127.0.0.1:8080" || cfg.Server.ReadTimeout != 3*time.Second {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format = %q", cfg.Log.Format)
	}
	// Untouched keys keep their defaults.
	if cfg.Train.Epochs != Default().Train.Epochs {
		t.Errorf("epochs = %d, want default", cfg.Train.Epochs)
	}
}

func TestLoad_PathFromEnv(t *testing.T) {
	path := writeConfig(t, "train:\n  epochs: 9\n")
	t.Setenv(PathEnvVar, path)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Train.Epochs != 9 {
		t.Errorf("epochs = %d, want 9", cfg.Train.Epochs)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Setenv(PathEnvVar, "")
	path := writeConfig(t, "train:\n  batch_size: 8\nserver:\n  top_k: 3\n")
	t.Setenv("STACKTAG_TRAIN_BATCH_SIZE", "16")
	t.Setenv("STACKTAG_SERVER_WRITE_TIMEOUT", "1m")
	t.Setenv("STACKTAG_TRAIN_ADD_TIMESTAMP", "false")
	t.Setenv("STACKTAG_EMBEDDER_DIM", "128")
	t.Setenv("STACKTAG_UNRELATED", "x")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Train.BatchSize != 16 {
		t.Errorf("batch_size = %d, want env value 16", cfg.Train.BatchSize)
	}
	if cfg.Server.TopK != 3 {
		t.Errorf("top_k = %d, want file value 3", cfg.Server.TopK)
	}
	if cfg.Server.WriteTimeout != time.Minute {
		t.Errorf("write_timeout = %v, want 1m", cfg.Server.WriteTimeout)
	}
	if cfg.Train.AddTimestamp {
		t.Error("add_timestamp = true, want false")
	}
	if cfg.Embedder.Dim != 128 {
		t.Errorf("embedder dim = %d, want 128", cfg.Embedder.Dim)
	}
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv(PathEnvVar, "")
	tests := []struct {
		name    string
		body    string
		wantMsg string
	}{
		{"ratio out of range", "train:\n  train_ratio: 1.5\n", "train_ratio"},
		{"zero batch size", "train:\n  batch_size: 0\n", "batch_size"},
		{"unknown embedder", "embedder:\n  kind: word2vec\n", "kind"},
		{"onnx without assets", "embedder:\n  kind: onnx\n", "model_path"},
		{"top_k too large", "server:\n  top_k: 500\n", "top_k"},
		{"bad log format", "log:\n  format: xml\n", "format"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tc.body))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tc.wantMsg)
			}
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Setenv(PathEnvVar, "")
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestEnvKey(t *testing.T) {
	tests := map[string]string{
		"STACKTAG_TRAIN_BATCH_SIZE":    "train.batch_size",
		"STACKTAG_EMBEDDER_MODEL_PATH": "embedder.model_path",
		"STACKTAG_SERVER_ADDR":         "server.addr",
		"STACKTAG_LOG_LEVEL":           "log.level",
		"STACKTAG_CONFIG":              "",
		"STACKTAG_TRAIN_":              "",
		"STACKTAG_SOMETHING_ELSE":      "",
	}
	for in, want := range tests {
		if got := envKey(in); got != want {
			t.Errorf("envKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParams(t *testing.T) {
	cfg := Default()
	cfg.Embedder = EmbedderConfig{Kind: model.EmbedderONNX, ModelPath: "m.onnx", VocabPath: "v.txt", ProjectionPath: "p.st"}
	p := cfg.Params()

	if p.BatchSize != cfg.Train.BatchSize || p.DenseDim != cfg.Train.DenseDim || p.Seed != cfg.Train.Seed {
		t.Errorf("params = %+v", p)
	}
	want := model.EmbedderSpec{Kind: model.EmbedderONNX, ModelPath: "m.onnx", VocabPath: "v.txt", ProjectionPath: "p.st"}
	if p.Embedder != want {
		t.Errorf("embedder spec = %+v, want %+v", p.Embedder, want)
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv(PathEnvVar, "")

	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	want.Embedder.CacheSize = 1024
	if cfg.Train != want.Train || cfg.Server != want.Server || cfg.Embedder != want.Embedder {
		t.Errorf("example config drifted from defaults:\n got %+v\nwant %+v", cfg, want)
	}
}
