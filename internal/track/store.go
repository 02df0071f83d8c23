// Package track ingests court feeds into the docket store: deduplicated
// batch writes, per-court watermarks, and the run orchestrator.
package track

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/newstools/docketwatch/internal/model"
)

// Store is the persistence interface for courts, cases, and entries. Every
// lookup takes a key set so batches hit the database a constant number of
// times regardless of size.
type Store interface {
	// ListCourts returns courts ordered by id. When feedOnly is set, only
	// courts with a feed are returned.
	ListCourts(ctx context.Context, feedOnly bool) ([]model.Court, error)

	// UpsertCourts creates or updates the court roster. Watermarks are
	// never touched by an upsert.
	UpsertCourts(ctx context.Context, courts []model.Court) (int64, error)

	// ExistingEntryIDs reports which of the given entry ids are already
	// persisted.
	ExistingEntryIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error)

	// CasesByID fetches existing cases for the given composite ids.
	CasesByID(ctx context.Context, ids []int64) (map[int64]model.Case, error)

	// CreateCases bulk-creates cases. A unique violation means another run
	// created one of them concurrently; the caller re-queries and retries
	// with the shrunken set.
	CreateCases(ctx context.Context, cases []model.Case) error

	// UpdateCaseHeader rewrites a case's mutable title, number, and name.
	UpdateCaseHeader(ctx context.Context, c model.Case) error

	// CreateEntries bulk-creates entries. Callers guarantee the ids are not
	// yet persisted and the referenced cases exist.
	CreateEntries(ctx context.Context, entries []model.Entry) error

	// TouchCases sets updated_time on every given case.
	TouchCases(ctx context.Context, ids []int64, at time.Time) error

	// AdvanceWatermark moves a court's last-seen build time forward. Older
	// or equal values are a no-op; the watermark never regresses.
	AdvanceWatermark(ctx context.Context, courtID int64, builtAt time.Time) error
}
