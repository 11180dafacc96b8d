package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pubdex/pubdex/internal/app"
	"github.com/pubdex/pubdex/internal/retrieve"
	"github.com/pubdex/pubdex/internal/store"
)

var (
	queryK       int
	queryTitles  []string
	queryFrom    string
	queryTo      string
	queryMeasure string
)

var queryCmd = &cobra.Command{
	Use:   "query <text>",
	Short: "Run a hybrid retrieval query against the index",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runQuery(cmd.Context(), args[0])
	},
}

func init() {
	queryCmd.Flags().IntVarP(&queryK, "top-k", "k", 0,
		"number of candidates to fetch from the vector index (default from config)")
	queryCmd.Flags().StringSliceVar(&queryTitles, "title", nil,
		"restrict results to sources with this exact title (repeatable)")
	queryCmd.Flags().StringVar(&queryFrom, "downloaded-from", "",
		"only sources downloaded at or after this RFC 3339 timestamp")
	queryCmd.Flags().StringVar(&queryTo, "downloaded-to", "",
		"only sources downloaded before this RFC 3339 timestamp")
	queryCmd.Flags().StringVar(&queryMeasure, "measure", "",
		"similarity measure: max_inner_product, cosine, or euclidean")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(ctx context.Context, query string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}

	opts, err := queryOptions(cfg.RetrievalTopK)
	if err != nil {
		return err
	}

	a, err := app.Setup(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer func() { _ = a.Close() }()

	results, err := a.Retriever.Retrieve(ctx, query, opts...)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, res := range results {
		fmt.Printf("%2d. [%.4f] %s\n", i+1, res.Score, res.Text)
		if res.SourceTitle != "" {
			fmt.Printf("    source: %s", res.SourceTitle)
			if res.SourceURL != "" {
				fmt.Printf(" <%s>", res.SourceURL)
			}
			fmt.Println()
		}
	}
	return nil
}

func queryOptions(defaultK int) ([]retrieve.Option, error) {
	k := queryK
	if k == 0 {
		k = defaultK
	}
	opts := []retrieve.Option{retrieve.WithK(k)}

	if len(queryTitles) > 0 {
		opts = append(opts, retrieve.WithTitles(queryTitles...))
	}

	var from, to time.Time
	if queryFrom != "" {
		t, err := time.Parse(time.RFC3339, queryFrom)
		if err != nil {
			return nil, fmt.Errorf("parsing --downloaded-from: %w", err)
		}
		from = t
	}
	if queryTo != "" {
		t, err := time.Parse(time.RFC3339, queryTo)
		if err != nil {
			return nil, fmt.Errorf("parsing --downloaded-to: %w", err)
		}
		to = t
	}
	if !from.IsZero() || !to.IsZero() {
		opts = append(opts, retrieve.WithDownloadedRange(from, to))
	}

	if queryMeasure != "" {
		measure, err := store.ParseMeasure(queryMeasure)
		if err != nil {
			return nil, err
		}
		opts = append(opts, retrieve.WithMeasure(measure))
	}
	return opts, nil
}
