package track

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/newstools/docketwatch/internal/extract"
	"github.com/newstools/docketwatch/internal/feed"
	"github.com/newstools/docketwatch/internal/fetcher"
	"github.com/newstools/docketwatch/internal/indexer"
	"github.com/newstools/docketwatch/internal/model"
)

// Options tunes one ingestion pass.
type Options struct {
	// Workers caps concurrent feed downloads.
	Workers int
	// BatchSize is the flush threshold for accumulated candidates.
	BatchSize int
	// StagingDir receives raw feed documents.
	StagingDir string
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 30
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 500
	}
	if o.StagingDir == "" {
		o.StagingDir = os.TempDir()
	}
	return o
}

// Tracker drives the full ingestion pass: parallel fetch, then sequential
// per-court parse, extract, and batch write. Parallelism stays confined to
// the fetch stage so watermark and dedup reasoning stays single-threaded
// per court.
type Tracker struct {
	store   Store
	fetch   fetcher.Fetcher
	writer  *Writer
	runLog  *RunLog
	indexer indexer.Indexer
	opts    Options
	log     *zap.Logger
}

// NewTracker wires a Tracker. runLog and idx may be nil, which disables run
// logging and the reindex trigger respectively.
func NewTracker(store Store, f fetcher.Fetcher, runLog *RunLog, idx indexer.Indexer, opts Options) *Tracker {
	if idx == nil {
		idx = indexer.Noop{}
	}
	return &Tracker{
		store:   store,
		fetch:   f,
		writer:  NewWriter(store),
		runLog:  runLog,
		indexer: idx,
		opts:    opts.withDefaults(),
		log:     zap.L().With(zap.String("component", "track")),
	}
}

// Run executes one full ingestion pass over every court with a feed and
// returns the aggregated counters. Individual court failures are isolated
// and counted; only configuration-level failures (no court list, no store)
// fail the run itself.
func (t *Tracker) Run(ctx context.Context) (*RunStats, error) {
	stats := &RunStats{StartedAt: time.Now().UTC()}

	var runID int64
	if t.runLog != nil {
		id, err := t.runLog.Start(ctx, stats.StartedAt)
		if err != nil {
			return nil, eris.Wrap(err, "track: record run start")
		}
		runID = id
	}

	courts, err := t.store.ListCourts(ctx, true)
	if err != nil {
		t.failRun(ctx, runID, err)
		return nil, eris.Wrap(err, "track: list courts")
	}
	t.log.Info("starting ingestion pass", zap.Int("courts", len(courts)))

	downloadStart := time.Now()
	results, err := fetcher.FetchAll(ctx, t.fetch, courts, t.opts.StagingDir, t.opts.Workers)
	if err != nil {
		t.failRun(ctx, runID, err)
		return nil, eris.Wrap(err, "track: fetch feeds")
	}
	t.log.Info("download stage complete",
		zap.Int("courts", len(results)),
		zap.Duration("elapsed", time.Since(downloadStart)),
	)

	for _, res := range results {
		select {
		case <-ctx.Done():
			t.failRun(ctx, runID, ctx.Err())
			return stats, ctx.Err()
		default:
		}

		if res.Err != nil {
			stats.CourtsBroken++
			continue
		}
		stats.CourtsFetched++

		if err := t.processCourt(ctx, res.Court, res.Path, stats); err != nil {
			courtLog := t.log.With(zap.String("court", res.Court.Label()))
			switch {
			case errors.Is(err, feed.ErrNoFeed):
				courtLog.Warn("no feed or entries")
				stats.CourtsBroken++
			case errors.Is(err, feed.ErrBadBuildTime):
				courtLog.Warn("could not read feed build time")
				stats.CourtsBroken++
			default:
				courtLog.Error("court ingestion failed", zap.Error(err))
				stats.CourtsBroken++
			}
		}
	}

	stats.Elapsed = time.Since(stats.StartedAt)

	// Point the downstream indexer at everything this pass changed.
	if err := t.indexer.Reindex(ctx, stats.StartedAt); err != nil {
		t.log.Warn("reindex trigger failed", zap.Error(err))
	}

	if t.runLog != nil {
		if err := t.runLog.Complete(ctx, runID, stats); err != nil {
			t.log.Warn("failed to record run completion", zap.Error(err))
		}
	}

	t.log.Info("ingestion pass complete", zap.Object("stats", stats))
	return stats, nil
}

// processCourt parses one staged document and flushes its items in batches.
// The watermark advances only after every batch is durably flushed, and
// staleness is always judged against the watermark as read at entry.
func (t *Tracker) processCourt(ctx context.Context, court model.Court, path string, stats *RunStats) error {
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "track: open staged feed for %s", court.Label())
	}
	defer f.Close() //nolint:errcheck

	doc, err := feed.Parse(f)
	if err != nil {
		return err
	}

	watermark := court.LastUpdated
	if watermark != nil && !doc.BuiltAt.After(*watermark) {
		stats.CourtsStale++
		return nil
	}

	courtLog := t.log.With(zap.String("court", court.Label()))

	// Run-local flushed keys. The set is scoped to this court and thrown
	// away afterwards; feeds never share entries across courts.
	flushed := make(map[uuid.UUID]bool)
	batch := make([]model.Candidate, 0, t.opts.BatchSize)

	flush := func() error {
		fs, err := t.writer.Flush(ctx, batch, flushed)
		stats.AddFlush(fs)
		if err != nil {
			return err
		}
		batch = batch[:0]
		return nil
	}

	for item := range doc.Items() {
		cand, err := extract.Candidate(item, court, watermark)
		switch {
		case err == nil:
			batch = append(batch, *cand)
		case errors.Is(err, extract.ErrStale):
			stats.EntriesOld++
			continue
		default:
			stats.EntriesBroken++
			courtLog.Warn("skipping broken item",
				zap.String("title", item.Title),
				zap.Error(err),
			)
			continue
		}

		if len(batch) >= t.opts.BatchSize {
			if err := flush(); err != nil {
				return eris.Wrapf(err, "track: flush batch for %s", court.Label())
			}
		}
	}

	// The tail batch must land before the watermark may move.
	if err := flush(); err != nil {
		return eris.Wrapf(err, "track: flush final batch for %s", court.Label())
	}

	if err := t.store.AdvanceWatermark(ctx, court.ID, doc.BuiltAt); err != nil {
		return eris.Wrapf(err, "track: advance watermark for %s", court.Label())
	}

	return nil
}

func (t *Tracker) failRun(ctx context.Context, runID int64, cause error) {
	if t.runLog == nil || runID == 0 {
		return
	}
	if err := t.runLog.Fail(ctx, runID, cause.Error()); err != nil {
		t.log.Warn("failed to record run failure", zap.Error(err))
	}
}
