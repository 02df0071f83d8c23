package track

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/newstools/docketwatch/internal/db"
)

// RunEntry represents a row in docket.run_log.
type RunEntry struct {
	ID          int64      `json:"id"`
	Status      string     `json:"status"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Stats       *RunStats  `json:"stats,omitempty"`
	Error       string     `json:"error,omitempty"`
}

// RunLog records every ingestion pass in docket.run_log.
type RunLog struct {
	pool db.Pool
}

// NewRunLog creates a RunLog backed by the given connection pool.
func NewRunLog(pool db.Pool) *RunLog {
	return &RunLog{pool: pool}
}

// Start records the beginning of a run and returns its ID.
func (r *RunLog) Start(ctx context.Context, startedAt time.Time) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO docket.run_log (status, started_at)
		 VALUES ('running', $1) RETURNING id`,
		startedAt,
	).Scan(&id)
	if err != nil {
		return 0, eris.Wrap(err, "runlog: start run")
	}
	return id, nil
}

// Complete marks a run as successfully completed with its final counters.
func (r *RunLog) Complete(ctx context.Context, runID int64, stats *RunStats) error {
	statsJSON, err := json.Marshal(stats)
	if err != nil {
		return eris.Wrap(err, "runlog: marshal stats")
	}

	_, err = r.pool.Exec(ctx,
		`UPDATE docket.run_log
		 SET status = 'complete', completed_at = now(), stats = $1
		 WHERE id = $2`,
		statsJSON, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: complete run %d", runID)
	}
	return nil
}

// Fail marks a run as failed with an error message.
func (r *RunLog) Fail(ctx context.Context, runID int64, errMsg string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE docket.run_log
		 SET status = 'failed', completed_at = now(), error = $1
		 WHERE id = $2`,
		errMsg, runID,
	)
	if err != nil {
		return eris.Wrapf(err, "runlog: fail run %d", runID)
	}
	return nil
}

// ListRecent returns the most recent runs, newest first.
func (r *RunLog) ListRecent(ctx context.Context, limit int) ([]RunEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, status, started_at, completed_at, stats, error
		 FROM docket.run_log ORDER BY started_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "runlog: list recent")
	}
	defer rows.Close()

	var entries []RunEntry
	for rows.Next() {
		var e RunEntry
		var completedAt *time.Time
		var errStr *string
		var statsJSON []byte
		if err := rows.Scan(&e.ID, &e.Status, &e.StartedAt, &completedAt, &statsJSON, &errStr); err != nil {
			return nil, eris.Wrap(err, "runlog: scan entry")
		}
		e.CompletedAt = completedAt
		if errStr != nil {
			e.Error = *errStr
		}
		if statsJSON != nil {
			_ = json.Unmarshal(statsJSON, &e.Stats)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
