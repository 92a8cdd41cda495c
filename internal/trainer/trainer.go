// Package trainer fits the tag classifier on a corpus, evaluates it on the
// held-out partition and persists the resulting artefacts.
package trainer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crimson-sun/stacktag/internal/artefact"
	"github.com/crimson-sun/stacktag/internal/dataset"
	"github.com/crimson-sun/stacktag/internal/engine/classifier"
	"github.com/crimson-sun/stacktag/internal/engine/embedder"
	"github.com/crimson-sun/stacktag/internal/metrics"
	"github.com/crimson-sun/stacktag/internal/model"
	"github.com/crimson-sun/stacktag/internal/validation"
)

// Dataset is the batch source Train consumes. *dataset.Corpus implements it.
type Dataset interface {
	TotalSampleCount() int
	TrainBatchCount() int
	TestBatchCount() int
	TrainBatch() (dataset.Batch, error)
	TestBatch() (dataset.Batch, error)
	Index() dataset.LabelIndex
}

// Run opens the corpus at location and the embedder named by params, then
// trains. It is the entry point used by the CLI and the public package.
func Run(ctx context.Context, location string, params model.Params, modelDir string, addTimestamp bool) (model.TrainOutput, string, error) {
	if err := validation.ValidateStruct(&params); err != nil {
		return model.TrainOutput{}, "", fmt.Errorf("trainer: params: %w", err)
	}

	corpus, err := dataset.Open(ctx, location, dataset.Options{
		BatchSize:          params.BatchSize,
		TrainRatio:         params.TrainRatio,
		MinSamplesPerLabel: params.MinSamplesPerLabel,
	})
	if err != nil {
		return model.TrainOutput{}, "", fmt.Errorf("trainer: %w", err)
	}

	emb, err := embedder.Open(params.Embedder)
	if err != nil {
		return model.TrainOutput{}, "", fmt.Errorf("trainer: %w", err)
	}
	defer emb.Close()

	return Train(ctx, corpus, emb, params, modelDir, addTimestamp)
}

// Train fits a fresh network on ds, evaluates it and saves the bundle
// under modelDir (or a timestamped directory beneath it). It returns the
// training report and the directory the bundle was written to.
func Train(ctx context.Context, ds Dataset, emb embedder.Embedder, params model.Params, modelDir string, addTimestamp bool) (model.TrainOutput, string, error) {
	if err := validation.ValidateStruct(&params); err != nil {
		return model.TrainOutput{}, "", fmt.Errorf("trainer: params: %w", err)
	}
	switch {
	case ds.TotalSampleCount() == 0:
		return model.TrainOutput{}, "", fmt.Errorf("trainer: %w", dataset.ErrEmptyCorpus)
	case ds.TrainBatchCount() == 0:
		return model.TrainOutput{}, "", fmt.Errorf("trainer: %w: train partition holds fewer than %d samples",
			dataset.ErrNoBatches, params.BatchSize)
	}

	labels := ds.Index()
	net, err := classifier.NewNetwork(classifier.NetworkConfig{
		InputDim:     emb.Dim(),
		HiddenDim:    params.DenseDim,
		Classes:      labels.Len(),
		LearningRate: params.LearningRate,
		Seed:         params.Seed,
	})
	if err != nil {
		return model.TrainOutput{}, "", fmt.Errorf("trainer: %w", err)
	}
	params.Embedder.Dim = emb.Dim()

	out := model.TrainOutput{
		RunID:        uuid.NewString(),
		Samples:      ds.TotalSampleCount(),
		Labels:       labels.Len(),
		TrainBatches: ds.TrainBatchCount(),
		TestBatches:  ds.TestBatchCount(),
		StartedAt:    time.Now().UTC(),
	}
	logger := slog.With("run_id", out.RunID)
	logger.Info("training started",
		"samples", out.Samples,
		"labels", out.Labels,
		"train_batches", out.TrainBatches,
		"test_batches", out.TestBatches,
		"embedder", params.Embedder.Kind,
	)

	for epoch := 1; epoch <= params.Epochs; epoch++ {
		loss, err := fitEpoch(ctx, ds, emb, net)
		if err != nil {
			return model.TrainOutput{}, "", fmt.Errorf("trainer: epoch %d: %w", epoch, err)
		}
		out.History = append(out.History, model.EpochStat{Epoch: epoch, Loss: loss})
		out.TrainLoss = loss
		metrics.RecordEpoch(loss)

		level := slog.LevelDebug
		if params.Verbose {
			level = slog.LevelInfo
		}
		logger.Log(ctx, level, "epoch complete", "epoch", epoch, "epochs", params.Epochs, "loss", loss)
	}

	acc, err := evaluate(ctx, ds, emb, net)
	if err != nil {
		return model.TrainOutput{}, "", fmt.Errorf("trainer: evaluate: %w", err)
	}
	if out.TestBatches == 0 {
		logger.Warn("no test batches; reporting zero accuracy", "batch_size", params.BatchSize)
	}
	out.TestAccuracy = acc
	out.FinishedAt = time.Now().UTC()
	metrics.RecordEvaluation(acc)

	bundle := artefact.Bundle{
		Network: net,
		Labels:  labels,
		Params:  params,
		Output:  out,
	}
	dir := modelDir
	if addTimestamp {
		dir = artefact.TimestampedDir(modelDir, out.FinishedAt)
		err = artefact.Create(dir, bundle)
	} else {
		err = artefact.Save(dir, bundle)
	}
	if err != nil {
		return model.TrainOutput{}, "", fmt.Errorf("trainer: %w", err)
	}

	logger.Info("training complete",
		"accuracy", acc,
		"loss", out.TrainLoss,
		"dir", dir,
		"elapsed", out.FinishedAt.Sub(out.StartedAt).Round(time.Millisecond),
	)
	return out, dir, nil
}

// fitEpoch runs one optimiser step per train batch and returns the mean
// batch loss.
func fitEpoch(ctx context.Context, ds Dataset, emb embedder.Embedder, net *classifier.Network) (float64, error) {
	n := ds.TrainBatchCount()
	var total float64
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		batch, err := ds.TrainBatch()
		if err != nil {
			return 0, err
		}
		vecs, err := emb.EmbedBatch(batch.Texts)
		if err != nil {
			return 0, fmt.Errorf("embed: %w", err)
		}
		loss, err := net.Fit(vecs, batch.Labels)
		if err != nil {
			return 0, err
		}
		total += loss
		metrics.RecordBatch("train")
	}
	return total / float64(n), nil
}

// evaluate returns the share of test samples whose top prediction is the
// true label, or 0 when there are no test batches.
func evaluate(ctx context.Context, ds Dataset, emb embedder.Embedder, net *classifier.Network) (float64, error) {
	var correct, seen int
	for i := 0; i < ds.TestBatchCount(); i++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		batch, err := ds.TestBatch()
		if err != nil {
			return 0, err
		}
		vecs, err := emb.EmbedBatch(batch.Texts)
		if err != nil {
			return 0, fmt.Errorf("embed: %w", err)
		}
		preds, err := net.Predict(vecs)
		if err != nil {
			return 0, err
		}
		for j, p := range preds {
			if p == batch.Labels[j] {
				correct++
			}
		}
		seen += len(preds)
		metrics.RecordBatch("test")
	}
	if seen == 0 {
		return 0, nil
	}
	return float64(correct) / float64(seen), nil
}
