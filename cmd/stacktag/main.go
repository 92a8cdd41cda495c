// Command stacktag trains and serves a Stack Overflow tag classifier.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crimson-sun/stacktag/internal/config"
	"github.com/crimson-sun/stacktag/internal/logging"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "stacktag: %v\n", err)
		os.Exit(1)
	}
}

// app carries state shared by the subcommands.
type app struct {
	configPath string
	cfg        config.Config
}

func rootCmd() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:           "stacktag",
		Short:         "Predict Stack Overflow tags from question titles",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			a.cfg = cfg
			logging.Init(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "",
		"YAML config file (default $"+config.PathEnvVar+")")

	cmd.AddCommand(trainCmd(a), serveCmd(a), predictCmd(a))
	return cmd
}
