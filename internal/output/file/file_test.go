package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/crimson-sun/stacktag/internal/model"
)

func testPrediction(text string) model.Prediction {
	return model.Prediction{
		Text:      text,
		Labels:    []string{"python"},
		Scores:    []float64{0.97},
		Timestamp: time.Date(2026, 2, 28, 12, 0, 0, 0, time.UTC),
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimSpace(string(data)), "\n")
}

func TestWriteProducesValidNDJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	out, err := New(path)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := out.Write(context.Background(), testPrediction("Python list comprehension")); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	out.Close()

	lines := readLines(t, path)
	if len(lines) != 5 {
		t.Fatalf("got %d lines, want 5", len(lines))
	}
	for i, line := range lines {
		var p model.Prediction
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			t.Errorf("line %d: invalid JSON: %v", i, err)
		}
		if len(p.Labels) != 1 || p.Labels[0] != "python" {
			t.Errorf("line %d: labels = %v", i, p.Labels)
		}
		if p.Scores != nil {
			t.Errorf("line %d: scores written without WithScores", i)
		}
	}
}

func TestWithScores(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	out, err := New(path, WithScores())
	if err != nil {
		t.Fatal(err)
	}
	out.Write(context.Background(), testPrediction("x"))
	out.Close()

	var p model.Prediction
	json.Unmarshal([]byte(readLines(t, path)[0]), &p)
	if len(p.Scores) != 1 || p.Scores[0] != 0.97 {
		t.Errorf("scores = %v", p.Scores)
	}
}

func TestRotationTriggersAtMaxSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")

	// Each record is roughly 100 bytes, so every write past the first rotates.
	out, err := New(path, WithMaxSize(150))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	for i := 0; i < 5; i++ {
		if err := out.Write(context.Background(), testPrediction("Python asyncio gather exceptions")); err != nil {
			t.Fatalf("Write error: %v", err)
		}
	}
	out.Close()

	for _, name := range []string{path, path + ".1", path + ".4"} {
		info, err := os.Stat(name)
		if err != nil {
			t.Fatalf("stat %s: %v", name, err)
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
	if _, err := os.Stat(path + ".5"); !os.IsNotExist(err) {
		t.Error("unexpected fifth rotated file")
	}
}

func TestAppendsToExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	for i := 0; i < 2; i++ {
		out, err := New(path)
		if err != nil {
			t.Fatal(err)
		}
		out.Write(context.Background(), testPrediction("x"))
		out.Close()
	}
	if n := len(readLines(t, path)); n != 2 {
		t.Errorf("got %d lines, want 2", n)
	}
}

func TestCloseFlushesData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	out, err := New(path, WithBufSize(1<<20))
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	out.Write(context.Background(), testPrediction("x"))
	out.Close()

	data, _ := os.ReadFile(path)
	if len(data) == 0 {
		t.Error("file is empty; Close did not flush buffered data")
	}
}

func TestConcurrentWritesSafe(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.jsonl")
	out, err := New(path)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out.Write(context.Background(), testPrediction("x"))
		}()
	}
	wg.Wait()
	out.Close()

	if n := len(readLines(t, path)); n != 50 {
		t.Errorf("got %d lines, want 50", n)
	}
}

func TestNewInvalidPath(t *testing.T) {
	if _, err := New(filepath.Join(t.TempDir(), "missing", "out.jsonl")); err == nil {
		t.Error("expected error for missing directory")
	}
}
