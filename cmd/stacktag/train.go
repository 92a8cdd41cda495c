package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/stacktag/internal/trainer"
)

func trainCmd(a *app) *cobra.Command {
	var (
		dataset     string
		artefacts   string
		epochs      int
		batchSize   int
		noTimestamp bool
		verbose     bool
	)

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model and write its artefacts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			flags := cmd.Flags()
			if flags.Changed("dataset") {
				cfg.Train.DatasetPath = dataset
			}
			if flags.Changed("artefacts") {
				cfg.Train.ArtefactsDir = artefacts
			}
			if flags.Changed("epochs") {
				cfg.Train.Epochs = epochs
			}
			if flags.Changed("batch-size") {
				cfg.Train.BatchSize = batchSize
			}
			if noTimestamp {
				cfg.Train.AddTimestamp = false
			}
			if verbose {
				cfg.Train.Verbose = true
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			out, dir, err := trainer.Run(cmd.Context(), cfg.Train.DatasetPath, cfg.Params(),
				cfg.Train.ArtefactsDir, cfg.Train.AddTimestamp)
			if err != nil {
				return err
			}
			slog.Info("training complete",
				"run_id", out.RunID,
				"dir", dir,
				"accuracy", out.TestAccuracy,
				"loss", out.TrainLoss,
			)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&dataset, "dataset", "", "CSV, CSV.xz or SQLite corpus to train on")
	f.StringVar(&artefacts, "artefacts", "", "directory to write the model bundle to")
	f.IntVar(&epochs, "epochs", 0, "number of training epochs")
	f.IntVar(&batchSize, "batch-size", 0, "samples per batch")
	f.BoolVar(&noTimestamp, "no-timestamp", false, "write directly into --artefacts instead of a timestamped subdirectory")
	f.BoolVarP(&verbose, "verbose", "v", false, "log per-epoch loss")
	return cmd
}
