package fetcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newstools/docketwatch/internal/model"
)

// FetchResult is the outcome of downloading one court's feed. Err is set when
// the download failed after all retries; Path points at the staged document
// otherwise.
type FetchResult struct {
	Court   model.Court
	Path    string
	Bytes   int64
	Elapsed time.Duration
	Err     error
}

// FetchAll downloads every court's feed into stagingDir with at most workers
// concurrent requests. One court failing never cancels or delays the others;
// failures come back inside the result slice. Results are returned in the
// input court order.
func FetchAll(ctx context.Context, f Fetcher, courts []model.Court, stagingDir string, workers int) ([]FetchResult, error) {
	if workers <= 0 {
		workers = 30
	}

	if err := os.MkdirAll(stagingDir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "fetcher: create staging dir %s", stagingDir)
	}

	log := zap.L().With(zap.String("component", "fetcher"))
	results := make([]FetchResult, len(courts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, court := range courts {
		g.Go(func() error {
			start := time.Now()
			path := StagingPath(stagingDir, court)

			n, err := f.DownloadToFile(gctx, court.FeedURL, path)
			results[i] = FetchResult{
				Court:   court,
				Path:    path,
				Bytes:   n,
				Elapsed: time.Since(start),
				Err:     err,
			}
			if err != nil {
				log.Warn("feed download failed",
					zap.String("court", court.Label()),
					zap.Error(err),
				)
			}
			// Failures are collected, not raised.
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "fetcher: fetch all")
	}

	return results, nil
}

// StagingPath returns the staging file path for a court's raw feed document.
func StagingPath(stagingDir string, court model.Court) string {
	name := sanitizeFilename(court.Name)
	return filepath.Join(stagingDir, fmt.Sprintf("%d - %s.xml", court.ID, name))
}

func sanitizeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}
