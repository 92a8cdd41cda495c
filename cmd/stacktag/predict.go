package main

import (
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/stacktag/internal/output"
	"github.com/crimson-sun/stacktag/internal/output/file"
	"github.com/crimson-sun/stacktag/internal/output/multi"
	"github.com/crimson-sun/stacktag/internal/output/stdout"
	"github.com/crimson-sun/stacktag/internal/output/webhook"
	"github.com/crimson-sun/stacktag/internal/pipeline"
)

func predictCmd(a *app) *cobra.Command {
	var (
		modelDir string
		topK     int
		outPath  string
		maxSize  int64
		hookURL  string
		pretty   bool
		scores   bool
	)

	cmd := &cobra.Command{
		Use:   "predict [TEXT...]",
		Short: "Predict tags for the given texts, or one text per line of stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("model-dir") {
				cfg.Server.ModelDir = modelDir
			}
			if cmd.Flags().Changed("top-k") {
				cfg.Server.TopK = topK
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			eng, err := loadEngine(cfg.Server.ModelDir, cfg.Embedder.CacheSize, cfg.Server.Threshold)
			if err != nil {
				return err
			}
			defer eng.Close()

			out, err := buildOutput(outPath, maxSize, hookURL, pretty, scores)
			if err != nil {
				return err
			}
			p := pipeline.New(eng, out, pipeline.WithBatchSize(cfg.Train.BatchSize))

			var n int
			if len(args) > 0 {
				texts := make([]string, 0, len(args))
				for _, arg := range args {
					if s := strings.TrimSpace(arg); s != "" {
						texts = append(texts, s)
					}
				}
				n, err = p.Run(cmd.Context(), texts, cfg.Server.TopK)
			} else {
				n, err = p.RunReader(cmd.Context(), os.Stdin, cfg.Server.TopK)
			}
			if cerr := p.Close(); err == nil {
				err = cerr
			}
			if err != nil {
				return err
			}
			slog.Debug("predictions written", "count", n)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&modelDir, "model-dir", "", "model bundle, or a directory of timestamped bundles")
	f.IntVarP(&topK, "top-k", "k", 0, "tags to return per text")
	f.StringVarP(&outPath, "output", "o", "", "write NDJSON to this file instead of stdout")
	f.Int64Var(&maxSize, "max-size", 0, "rotate the output file after this many bytes (0 disables)")
	f.StringVar(&hookURL, "webhook", "", "POST prediction batches to this URL")
	f.BoolVar(&pretty, "pretty", false, "indent stdout JSON")
	f.BoolVar(&scores, "scores", false, "include confidences")
	return cmd
}

// buildOutput writes to the file and webhook sinks that are set, or to
// stdout when neither is.
func buildOutput(path string, maxSize int64, hookURL string, pretty, scores bool) (output.Output, error) {
	var outs []output.Output
	if path != "" {
		opts := []file.Option{file.WithMaxSize(maxSize)}
		if scores {
			opts = append(opts, file.WithScores())
		}
		fo, err := file.New(path, opts...)
		if err != nil {
			return nil, err
		}
		outs = append(outs, fo)
	}
	if hookURL != "" {
		var opts []webhook.Option
		if scores {
			opts = append(opts, webhook.WithScores())
		}
		outs = append(outs, webhook.New(hookURL, opts...))
	}

	switch len(outs) {
	case 0:
		return stdout.New(pretty, scores), nil
	case 1:
		return outs[0], nil
	default:
		return multi.New(outs...), nil
	}
}
