package track

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/newstools/docketwatch/internal/model"
	"github.com/newstools/docketwatch/internal/resilience"
)

// maxCreateAttempts bounds the create-case conflict loop. The missing set
// strictly shrinks every iteration, so the loop converges long before this;
// the cap only guards against a store that keeps reporting conflicts for
// rows it refuses to reveal.
const maxCreateAttempts = 5

// FlushStats counts the outcome of one batch flush.
type FlushStats struct {
	EntriesDuplicate int
	EntriesCreated   int
	CasesCreated     int
	CasesUpdated     int
}

// Writer collapses duplicate candidates and applies a batch to the store.
// The store is shared with concurrently scheduled runs; correctness comes
// from idempotent keys plus the create-conflict retry, not from locking.
type Writer struct {
	store Store
	log   *zap.Logger
}

// NewWriter creates a batch writer over the given store.
func NewWriter(store Store) *Writer {
	return &Writer{
		store: store,
		log:   zap.L().With(zap.String("component", "track.writer")),
	}
}

// Flush deduplicates and persists one batch of candidates for a single
// court. flushed is the run-local set of entry ids already written earlier
// in this court's run; survivors of this batch are added to it. The store
// read alone is not enough: under the isolation levels in play a previous
// batch's rows may not be visible yet, so the in-memory set is load-bearing.
func (w *Writer) Flush(ctx context.Context, batch []model.Candidate, flushed map[uuid.UUID]bool) (FlushStats, error) {
	var stats FlushStats
	if len(batch) == 0 {
		return stats, nil
	}

	// In-batch duplicates: keep the first occurrence of each entry id.
	seen := make(map[uuid.UUID]bool, len(batch))
	unique := batch[:0:0]
	for _, cand := range batch {
		if seen[cand.Entry.ID] || flushed[cand.Entry.ID] {
			stats.EntriesDuplicate++
			continue
		}
		seen[cand.Entry.ID] = true
		unique = append(unique, cand)
	}
	if len(unique) == 0 {
		return stats, nil
	}

	// Drop anything the store already has.
	ids := make([]uuid.UUID, len(unique))
	for i, cand := range unique {
		ids[i] = cand.Entry.ID
	}
	existing, err := resilience.DoVal(ctx, storageRetry("existing_entries"), func(ctx context.Context) (map[uuid.UUID]bool, error) {
		return w.store.ExistingEntryIDs(ctx, ids)
	})
	if err != nil {
		return stats, eris.Wrap(err, "writer: check existing entries")
	}

	survivors := unique[:0:0]
	for _, cand := range unique {
		if existing[cand.Entry.ID] {
			stats.EntriesDuplicate++
			continue
		}
		flushed[cand.Entry.ID] = true
		survivors = append(survivors, cand)
	}
	if len(survivors) == 0 {
		return stats, nil
	}

	touched, err := w.writeCases(ctx, survivors, &stats)
	if err != nil {
		return stats, err
	}

	entries := make([]model.Entry, len(survivors))
	for i, cand := range survivors {
		entries[i] = cand.Entry
	}
	err = resilience.Do(ctx, storageRetry("create_entries"), func(ctx context.Context) error {
		return w.store.CreateEntries(ctx, entries)
	})
	if err != nil {
		return stats, eris.Wrap(err, "writer: create entries")
	}
	stats.EntriesCreated += len(entries)

	err = resilience.Do(ctx, storageRetry("touch_cases"), func(ctx context.Context) error {
		return w.store.TouchCases(ctx, touched, time.Now().UTC())
	})
	if err != nil {
		return stats, eris.Wrap(err, "writer: touch cases")
	}

	return stats, nil
}

// writeCases ensures every case referenced by the surviving candidates
// exists and is current, returning the ids of all touched cases.
func (w *Writer) writeCases(ctx context.Context, survivors []model.Candidate, stats *FlushStats) ([]int64, error) {
	// One candidate per case id, first occurrence wins.
	byCase := make(map[int64]model.Candidate, len(survivors))
	caseIDs := make([]int64, 0, len(survivors))
	for _, cand := range survivors {
		if _, ok := byCase[cand.CaseID]; ok {
			continue
		}
		byCase[cand.CaseID] = cand
		caseIDs = append(caseIDs, cand.CaseID)
	}

	existing, err := resilience.DoVal(ctx, storageRetry("fetch_cases"), func(ctx context.Context) (map[int64]model.Case, error) {
		return w.store.CasesByID(ctx, caseIDs)
	})
	if err != nil {
		return nil, eris.Wrap(err, "writer: fetch cases")
	}

	// Update headers that drifted: a later filing can retitle a case.
	for id, cand := range byCase {
		current, ok := existing[id]
		if !ok || current.Title == cand.CaseTitle {
			continue
		}
		current.Title = cand.CaseTitle
		current.Number = cand.CaseNumber
		current.Name = cand.CaseName
		if err := w.store.UpdateCaseHeader(ctx, current); err != nil {
			return nil, eris.Wrap(err, "writer: update case header")
		}
		stats.CasesUpdated++
	}

	// Create the rest. A concurrent run may win the race on any subset;
	// each pass re-queries and retries with the strictly smaller remainder.
	missing := make([]model.Case, 0)
	for _, id := range caseIDs {
		if _, ok := existing[id]; ok {
			continue
		}
		cand := byCase[id]
		missing = append(missing, model.Case{
			ID:          cand.CaseID,
			CourtID:     cand.CourtID,
			Title:       cand.CaseTitle,
			Number:      cand.CaseNumber,
			Name:        cand.CaseName,
			Type:        cand.CaseType,
			Website:     cand.CaseWebsite,
			IsDateFiled: cand.IsDateFiled,
		})
	}

	for attempt := 0; len(missing) > 0; attempt++ {
		err := w.store.CreateCases(ctx, missing)
		if err == nil {
			stats.CasesCreated += len(missing)
			break
		}
		if !resilience.IsPgUniqueViolation(err) || attempt >= maxCreateAttempts {
			return nil, eris.Wrap(err, "writer: create cases")
		}

		w.log.Warn("case create conflict, re-querying",
			zap.Int("attempt", attempt+1),
			zap.Int("missing", len(missing)),
		)

		ids := make([]int64, len(missing))
		for i, c := range missing {
			ids[i] = c.ID
		}
		nowExisting, qerr := w.store.CasesByID(ctx, ids)
		if qerr != nil {
			return nil, eris.Wrap(qerr, "writer: re-query cases after conflict")
		}

		remaining := missing[:0:0]
		for _, c := range missing {
			if _, ok := nowExisting[c.ID]; !ok {
				remaining = append(remaining, c)
			}
		}
		if len(remaining) == len(missing) {
			// No progress: the conflict is not about these ids.
			return nil, eris.Wrap(err, "writer: create cases (conflict did not resolve)")
		}
		missing = remaining
	}

	return caseIDs, nil
}

func storageRetry(operation string) resilience.RetryConfig {
	cfg := resilience.StorageRetryConfig()
	cfg.OnRetry = resilience.RetryLogger("track.writer", operation)
	return cfg
}
