package track

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// RunStats aggregates counters across one full ingestion pass.
type RunStats struct {
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`

	CourtsFetched int `json:"courts_fetched"`
	CourtsBroken  int `json:"courts_broken"`
	CourtsStale   int `json:"courts_stale"`

	EntriesCreated   int `json:"entries_created"`
	EntriesOld       int `json:"entries_old"`
	EntriesDuplicate int `json:"entries_duplicate"`
	EntriesBroken    int `json:"entries_broken"`

	CasesCreated int `json:"cases_created"`
	CasesUpdated int `json:"cases_updated"`
}

// AddFlush folds one batch flush into the run totals.
func (s *RunStats) AddFlush(f FlushStats) {
	s.EntriesCreated += f.EntriesCreated
	s.EntriesDuplicate += f.EntriesDuplicate
	s.CasesCreated += f.CasesCreated
	s.CasesUpdated += f.CasesUpdated
}

// MarshalLogObject lets RunStats embed directly into zap fields.
func (s *RunStats) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddTime("started_at", s.StartedAt)
	enc.AddDuration("elapsed", s.Elapsed)
	enc.AddInt("courts_fetched", s.CourtsFetched)
	enc.AddInt("courts_broken", s.CourtsBroken)
	enc.AddInt("courts_stale", s.CourtsStale)
	enc.AddInt("entries_created", s.EntriesCreated)
	enc.AddInt("entries_old", s.EntriesOld)
	enc.AddInt("entries_duplicate", s.EntriesDuplicate)
	enc.AddInt("entries_broken", s.EntriesBroken)
	enc.AddInt("cases_created", s.CasesCreated)
	enc.AddInt("cases_updated", s.CasesUpdated)
	return nil
}

var _ zapcore.ObjectMarshaler = (*RunStats)(nil)
