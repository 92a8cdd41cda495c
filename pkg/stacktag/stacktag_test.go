package stacktag

import (
	"context"
	"errors"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/crimson-sun/stacktag/internal/artefact"
	"github.com/crimson-sun/stacktag/internal/testdata"
)

func trainTestModel(t *testing.T) string {
	t.Helper()
	corpus, err := testdata.WritePosts(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	params := DefaultTrainParams()
	params.BatchSize = 4
	params.Epochs = 10
	params.DenseDim = 32
	params.MinSamplesPerLabel = 2
	params.TrainRatio = 0.75
	params.LearningRate = 0.01
	params.Embedder.Dim = 128

	root := t.TempDir()
	report, err := Train(context.Background(), corpus, root, params)
	if err != nil {
		t.Fatalf("Train() error: %v", err)
	}
	if report.RunID == "" || filepath.Dir(report.Dir) != root {
		t.Errorf("report = %+v, want a bundle under %s", report, root)
	}
	return root
}

func TestNewBadPathReturnsError(t *testing.T) {
	_, err := New(WithArtefactDir("/nonexistent/path"))
	if !errors.Is(err, artefact.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestNewRejectsZeroTopK(t *testing.T) {
	if _, err := New(WithTopK(0)); err == nil {
		t.Fatal("expected error for top k 0")
	}
}

func TestTrainAndPredict(t *testing.T) {
	root := trainTestModel(t)

	tg, err := New(WithArtefactDir(root), WithTopK(2), WithCacheSize(16))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer tg.Close()

	if got := tg.Labels(); !slices.Equal(got, testdata.PostsLabels) {
		t.Errorf("Labels() = %v, want %v", got, testdata.PostsLabels)
	}

	tags, err := tg.Predict(context.Background(), "php")
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("got %d tags, want 2", len(tags))
	}
	if tags[0].Confidence < tags[1].Confidence {
		t.Errorf("tags not sorted by confidence: %+v", tags)
	}
}

func TestPredictBatchConcurrent(t *testing.T) {
	root := trainTestModel(t)
	tg, err := New(WithArtefactDir(root), WithCacheSize(8))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer tg.Close()

	texts := []string{"php arrays", "rails routes", "python lists", "javascript promises"}
	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := tg.PredictBatch(context.Background(), texts)
			if err != nil {
				errs <- err
				return
			}
			if len(got) != len(texts) {
				errs <- errors.New("wrong batch length")
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}
}

func TestThresholdDropsTags(t *testing.T) {
	root := trainTestModel(t)
	tg, err := New(WithArtefactDir(root), WithTopK(4), WithThreshold(1.01))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer tg.Close()

	tags, err := tg.Predict(context.Background(), "php")
	if err != nil {
		t.Fatal(err)
	}
	if len(tags) != 0 {
		t.Errorf("got %d tags above an unreachable threshold", len(tags))
	}
}
