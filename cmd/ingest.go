package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pubdex/pubdex/internal/app"
	"github.com/pubdex/pubdex/internal/record"
)

var ingestSkipSync bool

var ingestCmd = &cobra.Command{
	Use:   "ingest <records.json>",
	Short: "Ingest a crawler record file into the vector index",
	Long: `Reads a JSON file of publication records produced by the crawler,
downloads each document with bounded retries, extracts and cleans its text,
segments it into title-bounded chunks, embeds them, and indexes them.

A failed source is logged and skipped; it never aborts the batch.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runIngest(cmd.Context(), args[0])
	},
}

func init() {
	ingestCmd.Flags().BoolVar(&ingestSkipSync, "skip-source-sync", false,
		"do not register new sources before ingesting")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(parent context.Context, recordsPath string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// A malformed record file is fatal: it means the crawler contract
	// changed, and silently ingesting nothing would mask that.
	records, err := record.DecodeFile(recordsPath)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		logger.Info("record file contains no publications", "path", recordsPath)
		return nil
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() { _ = a.Close() }()

	if !ingestSkipSync {
		if err := a.Pipeline.SyncSources(ctx, records); err != nil {
			return err
		}
	}

	stats, err := a.Pipeline.Run(ctx, records)
	if err != nil {
		return err
	}

	fmt.Printf("Ingested %d of %d sources (%d chunks, %d skipped)\n",
		stats.Ingested, stats.Sources, stats.Chunks, stats.Skipped)
	return nil
}
