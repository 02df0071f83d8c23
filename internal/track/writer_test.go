package track

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newstools/docketwatch/internal/model"
)

var filedAt = time.Date(2026, 8, 29, 16, 0, 0, 0, time.UTC)

func TestWriter_FlushEmptyBatch(t *testing.T) {
	store := newFakeStore()
	w := NewWriter(store)

	stats, err := w.Flush(context.Background(), nil, map[uuid.UUID]bool{})
	require.NoError(t, err)
	assert.Zero(t, stats)
	assert.Empty(t, store.entries)
}

func TestWriter_FlushCreatesCasesAndEntries(t *testing.T) {
	store := newFakeStore()
	w := NewWriter(store)

	batch := []model.Candidate{
		candidate(101, 1, "1:26-cv-00001 A v. B", "Complaint", filedAt),
		candidate(101, 1, "1:26-cv-00001 A v. B", "Summons Issued", filedAt),
		candidate(102, 1, "1:26-cv-00002 C v. D", "Complaint", filedAt),
	}

	stats, err := w.Flush(context.Background(), batch, map[uuid.UUID]bool{})
	require.NoError(t, err)

	assert.Equal(t, 3, stats.EntriesCreated)
	assert.Equal(t, 2, stats.CasesCreated)
	assert.Equal(t, 0, stats.EntriesDuplicate)
	assert.Equal(t, 0, stats.CasesUpdated)

	assert.Len(t, store.entries, 3)
	assert.Len(t, store.cases, 2)
	assert.ElementsMatch(t, []int64{101, 102}, store.touched)
}

func TestWriter_InBatchDuplicateFirstWins(t *testing.T) {
	store := newFakeStore()
	w := NewWriter(store)

	first := candidate(101, 1, "1:26-cv-00001 A v. B", "Complaint", filedAt)
	dup := first

	stats, err := w.Flush(context.Background(), []model.Candidate{first, dup}, map[uuid.UUID]bool{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.EntriesCreated)
	assert.Equal(t, 1, stats.EntriesDuplicate)
	assert.Len(t, store.entries, 1)
}

func TestWriter_FlushedSetSpansBatches(t *testing.T) {
	store := newFakeStore()
	w := NewWriter(store)
	flushed := map[uuid.UUID]bool{}

	cand := candidate(101, 1, "1:26-cv-00001 A v. B", "Complaint", filedAt)

	stats, err := w.Flush(context.Background(), []model.Candidate{cand}, flushed)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EntriesCreated)

	// Simulate an isolation level where the first batch's rows are not yet
	// visible to reads: the run-local set alone must stop the replay.
	store.mu.Lock()
	store.entries = make(map[uuid.UUID]model.Entry)
	store.mu.Unlock()

	stats, err = w.Flush(context.Background(), []model.Candidate{cand}, flushed)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.EntriesCreated)
	assert.Equal(t, 1, stats.EntriesDuplicate)
}

func TestWriter_StoreDuplicateSkipped(t *testing.T) {
	store := newFakeStore()
	w := NewWriter(store)

	cand := candidate(101, 1, "1:26-cv-00001 A v. B", "Complaint", filedAt)
	store.entries[cand.Entry.ID] = cand.Entry

	stats, err := w.Flush(context.Background(), []model.Candidate{cand}, map[uuid.UUID]bool{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.EntriesCreated)
	assert.Equal(t, 1, stats.EntriesDuplicate)
	assert.Empty(t, store.touched)
}

func TestWriter_IdempotentReplay(t *testing.T) {
	store := newFakeStore()
	w := NewWriter(store)

	batch := []model.Candidate{
		candidate(101, 1, "1:26-cv-00001 A v. B", "Complaint", filedAt),
		candidate(102, 1, "1:26-cv-00002 C v. D", "Answer", filedAt),
	}

	_, err := w.Flush(context.Background(), batch, map[uuid.UUID]bool{})
	require.NoError(t, err)

	// Replaying the same batch in a fresh run creates nothing.
	stats, err := w.Flush(context.Background(), batch, map[uuid.UUID]bool{})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.EntriesCreated)
	assert.Equal(t, 0, stats.CasesCreated)
	assert.Equal(t, 2, stats.EntriesDuplicate)
	assert.Len(t, store.entries, 2)
}

func TestWriter_UpdatesCaseHeaderOnTitleChange(t *testing.T) {
	store := newFakeStore()
	store.cases[101] = model.Case{
		ID: 101, CourtID: 1,
		Title:  "1:26-cv-00001 A v. B",
		Number: "1:26-cv-00001",
		Name:   "A v. B",
		Type:   model.CaseCivil,
	}
	w := NewWriter(store)

	renamed := candidate(101, 1, "1:26-cv-00001 A v. B et al", "Amended Complaint", filedAt)

	stats, err := w.Flush(context.Background(), []model.Candidate{renamed}, map[uuid.UUID]bool{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.CasesUpdated)
	assert.Equal(t, 0, stats.CasesCreated)
	assert.Equal(t, "1:26-cv-00001 A v. B et al", store.cases[101].Title)
	require.Len(t, store.headerUpdates, 1)
}

func TestWriter_NoHeaderUpdateWhenTitleUnchanged(t *testing.T) {
	store := newFakeStore()
	store.cases[101] = model.Case{
		ID: 101, CourtID: 1,
		Title: "1:26-cv-00001 A v. B",
		Type:  model.CaseCivil,
	}
	w := NewWriter(store)

	same := candidate(101, 1, "1:26-cv-00001 A v. B", "Motion", filedAt)

	stats, err := w.Flush(context.Background(), []model.Candidate{same}, map[uuid.UUID]bool{})
	require.NoError(t, err)

	assert.Equal(t, 0, stats.CasesUpdated)
	assert.Empty(t, store.headerUpdates)
}

func TestWriter_RetriesTransientReadErrors(t *testing.T) {
	store := newFakeStore()
	w := NewWriter(store)

	// Serialization failures on the read side resolve on replay.
	store.existingEntriesHook = func([]uuid.UUID) error {
		store.existingEntriesHook = nil
		return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	}
	store.casesByIDHook = func([]int64) error {
		store.casesByIDHook = nil
		return &pgconn.PgError{Code: "40001", Message: "could not serialize access"}
	}

	batch := []model.Candidate{
		candidate(101, 1, "1:26-cv-00001 A v. B", "Complaint", filedAt),
	}

	stats, err := w.Flush(context.Background(), batch, map[uuid.UUID]bool{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.EntriesCreated)
	assert.Equal(t, 1, stats.CasesCreated)
	assert.Equal(t, 2, store.existingEntryCalls)
	assert.Equal(t, 2, store.casesByIDCalls)
}

func TestWriter_PermanentReadErrorFails(t *testing.T) {
	store := newFakeStore()
	w := NewWriter(store)

	store.existingEntriesHook = func([]uuid.UUID) error {
		return &pgconn.PgError{Code: "42P01", Message: "relation does not exist"}
	}

	batch := []model.Candidate{
		candidate(101, 1, "1:26-cv-00001 A v. B", "Complaint", filedAt),
	}

	_, err := w.Flush(context.Background(), batch, map[uuid.UUID]bool{})
	require.Error(t, err)
	assert.Equal(t, 1, store.existingEntryCalls)
}

func TestWriter_CaseCreateConflictRetries(t *testing.T) {
	store := newFakeStore()
	w := NewWriter(store)

	// A concurrent run wins the race on case 101: the first create fails
	// with a unique violation and the case is visible on re-query.
	store.createCasesHook = func(cases []model.Case) error {
		store.createCasesHook = nil
		store.cases[101] = model.Case{ID: 101, CourtID: 1, Title: "1:26-cv-00001 A v. B", Type: model.CaseCivil}
		return &pgconn.PgError{Code: "23505", ConstraintName: "cases_pkey"}
	}

	batch := []model.Candidate{
		candidate(101, 1, "1:26-cv-00001 A v. B", "Complaint", filedAt),
		candidate(102, 1, "1:26-cv-00002 C v. D", "Complaint", filedAt),
	}

	stats, err := w.Flush(context.Background(), batch, map[uuid.UUID]bool{})
	require.NoError(t, err)

	assert.Equal(t, 1, stats.CasesCreated)
	assert.Equal(t, 2, stats.EntriesCreated)
	assert.Len(t, store.cases, 2)
	assert.Equal(t, 2, store.createCasesCalls)
}

func TestWriter_CaseCreateConflictWithoutProgressFails(t *testing.T) {
	store := newFakeStore()
	w := NewWriter(store)

	// Unique violation but the conflicting row never becomes visible.
	store.createCasesHook = func(cases []model.Case) error {
		return &pgconn.PgError{Code: "23505"}
	}

	batch := []model.Candidate{
		candidate(101, 1, "1:26-cv-00001 A v. B", "Complaint", filedAt),
	}

	_, err := w.Flush(context.Background(), batch, map[uuid.UUID]bool{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflict did not resolve")
}

func TestWriter_NonConflictCreateErrorFails(t *testing.T) {
	store := newFakeStore()
	w := NewWriter(store)

	store.createCasesHook = func(cases []model.Case) error {
		return &pgconn.PgError{Code: "53300", Message: "too many connections"}
	}

	batch := []model.Candidate{
		candidate(101, 1, "1:26-cv-00001 A v. B", "Complaint", filedAt),
	}

	_, err := w.Flush(context.Background(), batch, map[uuid.UUID]bool{})
	require.Error(t, err)
	assert.Equal(t, 1, store.createCasesCalls)
}
