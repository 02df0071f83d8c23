package track

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/newstools/docketwatch/internal/model"
)

// fakeStore is an in-memory Store for writer and tracker tests. Hooks let
// individual tests inject failures or simulate concurrent writers.
type fakeStore struct {
	mu      sync.Mutex
	courts  []model.Court
	cases   map[int64]model.Case
	entries map[uuid.UUID]model.Entry

	touched       []int64
	headerUpdates []model.Case
	watermarks    map[int64]time.Time

	createCasesHook     func(cases []model.Case) error
	createEntriesHook   func(entries []model.Entry) error
	existingEntriesHook func(ids []uuid.UUID) error
	casesByIDHook       func(ids []int64) error
	createCasesCalls    int
	existingEntryCalls  int
	casesByIDCalls      int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		cases:      make(map[int64]model.Case),
		entries:    make(map[uuid.UUID]model.Entry),
		watermarks: make(map[int64]time.Time),
	}
}

func (s *fakeStore) ListCourts(_ context.Context, feedOnly bool) ([]model.Court, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Court
	for _, c := range s.courts {
		if feedOnly && !c.HasFeed {
			continue
		}
		if wm, ok := s.watermarks[c.ID]; ok {
			at := wm
			c.LastUpdated = &at
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *fakeStore) UpsertCourts(_ context.Context, courts []model.Court) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.courts = append(s.courts, courts...)
	return int64(len(courts)), nil
}

func (s *fakeStore) ExistingEntryIDs(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.existingEntryCalls++
	if s.existingEntriesHook != nil {
		if err := s.existingEntriesHook(ids); err != nil {
			return nil, err
		}
	}
	existing := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if _, ok := s.entries[id]; ok {
			existing[id] = true
		}
	}
	return existing, nil
}

func (s *fakeStore) CasesByID(_ context.Context, ids []int64) (map[int64]model.Case, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.casesByIDCalls++
	if s.casesByIDHook != nil {
		if err := s.casesByIDHook(ids); err != nil {
			return nil, err
		}
	}
	out := make(map[int64]model.Case)
	for _, id := range ids {
		if c, ok := s.cases[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (s *fakeStore) CreateCases(_ context.Context, cases []model.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCasesCalls++
	if s.createCasesHook != nil {
		if err := s.createCasesHook(cases); err != nil {
			return err
		}
	}
	for _, c := range cases {
		if _, ok := s.cases[c.ID]; ok {
			return fmt.Errorf("duplicate case %d", c.ID)
		}
		s.cases[c.ID] = c
	}
	return nil
}

func (s *fakeStore) UpdateCaseHeader(_ context.Context, c model.Case) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	current, ok := s.cases[c.ID]
	if !ok {
		return fmt.Errorf("no such case %d", c.ID)
	}
	current.Title = c.Title
	current.Number = c.Number
	current.Name = c.Name
	s.cases[c.ID] = current
	s.headerUpdates = append(s.headerUpdates, c)
	return nil
}

func (s *fakeStore) CreateEntries(_ context.Context, entries []model.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createEntriesHook != nil {
		if err := s.createEntriesHook(entries); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if _, ok := s.entries[e.ID]; ok {
			return fmt.Errorf("duplicate entry %s", e.ID)
		}
		s.entries[e.ID] = e
	}
	return nil
}

func (s *fakeStore) TouchCases(_ context.Context, ids []int64, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touched = append(s.touched, ids...)
	return nil
}

func (s *fakeStore) AdvanceWatermark(_ context.Context, courtID int64, builtAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if current, ok := s.watermarks[courtID]; ok && !builtAt.After(current) {
		return nil
	}
	s.watermarks[courtID] = builtAt
	return nil
}

var _ Store = (*fakeStore)(nil)

func testCase() model.Case {
	return model.Case{
		ID:      120501,
		CourtID: 12,
		Title:   "1:26-cv-00001 A v. B et al",
		Number:  "1:26-cv-00001",
		Name:    "A v. B et al",
		Type:    model.CaseCivil,
	}
}

// candidate builds a distinct test candidate; the entry id is derived from
// the doc website so equal inputs collide the way real extraction does.
func candidate(caseID int64, courtID int64, title, description string, filed time.Time) model.Candidate {
	website := fmt.Sprintf("https://ecf.example.gov/doc1/%d-%s", caseID, description)
	id := uuid.NewSHA1(uuid.NameSpaceURL, []byte(website+filed.String()))

	number, name := title, ""
	if i := len("1:26-cv-00001"); len(title) > i {
		number, name = title[:i], title[i+1:]
	}

	return model.Candidate{
		Entry: model.Entry{
			ID:          id,
			CaseID:      caseID,
			Description: description,
			Website:     &website,
			TimeFiled:   filed,
		},
		CourtID:     courtID,
		CaseTitle:   title,
		CaseNumber:  number,
		CaseName:    name,
		CaseType:    model.CaseCivil,
		CaseWebsite: fmt.Sprintf("https://ecf.example.gov/DktRpt.pl?%d", caseID),
	}
}
