package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/newstools/docketwatch/internal/fetcher"
	"github.com/newstools/docketwatch/internal/indexer"
	"github.com/newstools/docketwatch/internal/track"
)

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Run one ingestion pass over all court feeds",
	Long:  "Downloads every court feed in parallel, extracts new cases and docket entries, writes them to Postgres, and advances per-court watermarks.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		pool, err := openPool(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()

		if err := track.Migrate(ctx, pool); err != nil {
			return err
		}

		if err := os.MkdirAll(cfg.Fetch.StagingDir, 0o755); err != nil {
			return eris.Wrap(err, "create staging dir")
		}

		f := fetcher.NewHTTPFetcher(fetcher.HTTPOptions{
			UserAgent:  cfg.Fetch.UserAgent,
			Timeout:    cfg.Fetch.Timeout(),
			MaxRetries: cfg.Fetch.MaxRetries,
		})

		var idx indexer.Indexer = indexer.Noop{}
		if cfg.Indexer.WebhookURL != "" {
			idx = indexer.NewWebhook(cfg.Indexer.WebhookURL, cfg.Indexer.Timeout())
		}

		store := track.NewPostgresStore(pool)
		tracker := track.NewTracker(store, f, track.NewRunLog(pool), idx, track.Options{
			Workers:    cfg.Fetch.Workers,
			BatchSize:  cfg.Track.BatchSize,
			StagingDir: cfg.Fetch.StagingDir,
		})

		stats, err := tracker.Run(ctx)
		if err != nil {
			return eris.Wrap(err, "track")
		}

		return printJSON(os.Stdout, stats)
	},
}

func init() {
	rootCmd.AddCommand(trackCmd)
}
