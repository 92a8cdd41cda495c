package dataset

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/crimson-sun/stacktag/internal/model"
)

// sixRows has primary tags at rows 0, 1, 2 and 5; labels a and b each keep
// two primary samples.
var sixRows = []model.Record{
	{PostID: "id_1", TagName: "a", TagID: 1, TagPosition: 0, Title: "title_1"},
	{PostID: "id_2", TagName: "b", TagID: 2, TagPosition: 0, Title: "title_2"},
	{PostID: "id_3", TagName: "a", TagID: 1, TagPosition: 0, Title: "title_3"},
	{PostID: "id_4", TagName: "a", TagID: 1, TagPosition: 2, Title: "title_4"},
	{PostID: "id_5", TagName: "b", TagID: 2, TagPosition: 1, Title: "title_5"},
	{PostID: "id_6", TagName: "b", TagID: 2, TagPosition: 0, Title: "title_6"},
}

func newTestCorpus(t *testing.T, records []model.Record, opts Options) *Corpus {
	t.Helper()
	c, err := NewCorpus(context.Background(), Records(records), opts)
	if err != nil {
		t.Fatalf("NewCorpus: %v", err)
	}
	return c
}

func TestFilterKeepsPrimaryTags(t *testing.T) {
	records := []model.Record{
		{PostID: "id_1", TagName: "tag_a", TagID: 1, TagPosition: 0, Title: "title_1"},
		{PostID: "id_2", TagName: "tag_b", TagID: 2, TagPosition: 1, Title: "title_2"},
	}
	got := Filter(records, 1)
	want := []model.Sample{{Text: "title_1", Label: "tag_a"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Filter() = %v, want %v", got, want)
	}
}

func TestFilterDropsRareLabels(t *testing.T) {
	records := []model.Record{
		{TagName: "a", Title: "1"},
		{TagName: "b", Title: "2"},
		{TagName: "a", Title: "3"},
		{TagName: "c", Title: "4"},
		{TagName: "a", Title: "5"},
		{TagName: "c", Title: "6"},
	}
	got := Filter(records, 2)
	want := []model.Sample{
		{Text: "1", Label: "a"},
		{Text: "3", Label: "a"},
		{Text: "4", Label: "c"},
		{Text: "5", Label: "a"},
		{Text: "6", Label: "c"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Filter() = %v, want %v", got, want)
	}
}

func TestCorpusSampleCount(t *testing.T) {
	c := newTestCorpus(t, sixRows, Options{BatchSize: 1, TrainRatio: 0.5, MinSamplesPerLabel: 2})
	if got := c.TotalSampleCount(); got != 4 {
		t.Fatalf("expected 4 samples, got %d", got)
	}
	wantTexts := []string{"title_1", "title_2", "title_3", "title_6"}
	for i, s := range c.Samples() {
		if s.Text != wantTexts[i] {
			t.Errorf("sample %d: expected %q, got %q", i, wantTexts[i], s.Text)
		}
	}
}

func TestCorpusTestBatchCount(t *testing.T) {
	c := newTestCorpus(t, sixRows, Options{BatchSize: 1, TrainRatio: 0.5, MinSamplesPerLabel: 2})
	// 4 samples, ratio 0.5, batch size 1 => 2 test batches
	if got := c.TestBatchCount(); got != 2 {
		t.Fatalf("expected 2 test batches, got %d", got)
	}
	if got := c.TrainBatchCount(); got != 2 {
		t.Fatalf("expected 2 train batches, got %d", got)
	}
}

func TestCorpusLabelListFirstOccurrence(t *testing.T) {
	c := newTestCorpus(t, sixRows, Options{BatchSize: 1, TrainRatio: 0.5, MinSamplesPerLabel: 2})
	if got := c.LabelList(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("expected [a b], got %v", got)
	}
	codes, err := c.EncodeLabels(c.LabelList())
	if err != nil {
		t.Fatalf("EncodeLabels: %v", err)
	}
	if !reflect.DeepEqual(codes, []int{0, 1}) {
		t.Fatalf("expected [0 1], got %v", codes)
	}
}

func TestCorpusBatchesAreSequentialAndWrap(t *testing.T) {
	c := newTestCorpus(t, sixRows, Options{BatchSize: 1, TrainRatio: 0.5, MinSamplesPerLabel: 2})

	wantTrain := []Batch{
		{Texts: []string{"title_1"}, Labels: []int{0}},
		{Texts: []string{"title_2"}, Labels: []int{1}},
		{Texts: []string{"title_1"}, Labels: []int{0}},
	}
	for i, want := range wantTrain {
		got, err := c.TrainBatch()
		if err != nil {
			t.Fatalf("TrainBatch #%d: %v", i, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("TrainBatch #%d = %+v, want %+v", i, got, want)
		}
	}

	wantTest := []Batch{
		{Texts: []string{"title_3"}, Labels: []int{0}},
		{Texts: []string{"title_6"}, Labels: []int{1}},
		{Texts: []string{"title_3"}, Labels: []int{0}},
	}
	for i, want := range wantTest {
		got, err := c.TestBatch()
		if err != nil {
			t.Fatalf("TestBatch #%d: %v", i, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("TestBatch #%d = %+v, want %+v", i, got, want)
		}
	}
}

func TestCorpusReset(t *testing.T) {
	c := newTestCorpus(t, sixRows, Options{BatchSize: 1, TrainRatio: 0.5, MinSamplesPerLabel: 2})
	if _, err := c.TrainBatch(); err != nil {
		t.Fatalf("TrainBatch: %v", err)
	}
	c.Reset()
	b, err := c.TrainBatch()
	if err != nil {
		t.Fatalf("TrainBatch: %v", err)
	}
	if b.Texts[0] != "title_1" {
		t.Fatalf("expected cursor to restart at title_1, got %q", b.Texts[0])
	}
}

func TestCorpusEmptyTrainBatchFails(t *testing.T) {
	c := newTestCorpus(t, nil, Options{BatchSize: 1, TrainRatio: 0.8, MinSamplesPerLabel: 1})

	b, err := c.TrainBatch()
	if !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
	if !errors.Is(err, ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
	if b.Len() != 0 {
		t.Fatalf("expected no batch alongside the error, got %+v", b)
	}

	if _, err := c.TestBatch(); !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus from TestBatch, got %v", err)
	}
}

func TestCorpusAllLabelsFilteredOut(t *testing.T) {
	c := newTestCorpus(t, sixRows, Options{BatchSize: 1, TrainRatio: 0.5, MinSamplesPerLabel: 3})
	if c.TotalSampleCount() != 0 {
		t.Fatalf("expected empty corpus, got %d samples", c.TotalSampleCount())
	}
	if _, err := c.TrainBatch(); !errors.Is(err, ErrEmptyCorpus) {
		t.Fatalf("expected ErrEmptyCorpus, got %v", err)
	}
}

func TestCorpusPartitionSmallerThanBatch(t *testing.T) {
	c := newTestCorpus(t, sixRows, Options{BatchSize: 3, TrainRatio: 0.5, MinSamplesPerLabel: 2})
	if _, err := c.TrainBatch(); !errors.Is(err, ErrNoBatches) {
		t.Fatalf("expected ErrNoBatches, got %v", err)
	}
}

func TestNewCorpusPropagatesSourceError(t *testing.T) {
	boom := errors.New("boom")
	src := SourceFunc(func(context.Context) ([]model.Record, error) { return nil, boom })
	_, err := NewCorpus(context.Background(), src, Options{BatchSize: 1, TrainRatio: 0.5, MinSamplesPerLabel: 1})
	if !errors.Is(err, boom) {
		t.Fatalf("expected source error, got %v", err)
	}
}

func TestNewCorpusRejectsInvalidOptions(t *testing.T) {
	_, err := NewCorpus(context.Background(), Records(sixRows), Options{BatchSize: 0, TrainRatio: 0.5, MinSamplesPerLabel: 1})
	if !errors.Is(err, ErrInvalidSplit) {
		t.Fatalf("expected ErrInvalidSplit, got %v", err)
	}
}
