package model

import (
	"time"

	"github.com/google/uuid"
)

// Entry is one immutable docket filing under a case. ID is the idempotency
// key: two entries with the same ID are the same filing, across runs and
// across concurrently running trackers.
type Entry struct {
	ID          uuid.UUID `json:"id"`
	CaseID      int64     `json:"case_id"`
	Description string    `json:"description"`
	Number      *int      `json:"number,omitempty"`
	Website     *string   `json:"website,omitempty"`
	TimeFiled   time.Time `json:"time_filed"`
}

// Candidate is an extracted entry that has not been persisted yet. It carries
// the case header fields alongside the entry so a flush can create or update
// the case in the same pass. Candidates live only until their batch flushes.
type Candidate struct {
	Entry

	CourtID     int64
	CaseTitle   string
	CaseNumber  string
	CaseName    string
	CaseType    CaseType
	CaseWebsite string
	IsDateFiled bool
}
