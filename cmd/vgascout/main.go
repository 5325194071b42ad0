// Command vgascout scrapes NVIDIA graphics-card listings and writes them
// to a JSON file, once from the command line or on demand over HTTP.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/vgascout/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		slog.Error("vgascout failed", "error", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	run := newRunCmd()

	root := &cobra.Command{
		Use:           "vgascout",
		Short:         "Scrape NVIDIA graphics-card listings into resultado_placas.json",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run.RunE,
	}
	root.Flags().AddFlagSet(run.Flags())
	root.AddCommand(run, newServeCmd())
	return root
}

// loadConfig loads configuration and installs the logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	initLogger(cfg.Log)
	if cfg.LLM.APIKey == "" {
		slog.Warn("OPENAI_API_KEY is not set, extraction calls will fail")
	}
	return cfg, nil
}

// initLogger configures slog based on the LogConfig.
func initLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	// Logs go to stderr; stdout carries the run summary.
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}
