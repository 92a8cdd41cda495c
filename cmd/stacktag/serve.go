package main

import (
	"github.com/spf13/cobra"

	"github.com/crimson-sun/stacktag/internal/api"
	"github.com/crimson-sun/stacktag/internal/artefact"
	"github.com/crimson-sun/stacktag/internal/engine"
)

func serveCmd(a *app) *cobra.Command {
	var (
		addr     string
		modelDir string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := a.cfg
			if cmd.Flags().Changed("addr") {
				cfg.Server.Addr = addr
			}
			if cmd.Flags().Changed("model-dir") {
				cfg.Server.ModelDir = modelDir
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			eng, err := loadEngine(cfg.Server.ModelDir, cfg.Embedder.CacheSize, cfg.Server.Threshold)
			if err != nil {
				return err
			}
			defer eng.Close()

			return api.New(eng, cfg.Server).Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address")
	cmd.Flags().StringVar(&modelDir, "model-dir", "", "model bundle, or a directory of timestamped bundles")
	return cmd
}

// loadEngine resolves the newest bundle under dir and loads it.
func loadEngine(dir string, cacheSize int, threshold float64) (*engine.Engine, error) {
	bundle, err := artefact.Latest(dir)
	if err != nil {
		return nil, err
	}
	return engine.FromArtefacts(bundle, engine.Options{
		CacheSize: cacheSize,
		Threshold: threshold,
	})
}
