// Package cmd contains the CLI entry points.
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/pubdex/pubdex/internal/config"
	"github.com/pubdex/pubdex/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "pubdex",
	Short: "pubdex ingests publications and serves hybrid retrieval",
	Long: `pubdex turns crawled PDF publications into a searchable vector index
and answers natural-language queries with two-stage retrieval: a kNN
vector search followed by cross-encoder re-ranking.`,
	SilenceUsage: true,
}

var verbose bool

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadConfig loads and validates the configuration, and builds the process
// logger.
func loadConfig() (*config.Config, log.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("validating config: %w", err)
	}

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := log.New(log.Config{Level: level})
	return cfg, logger, nil
}
