package track

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/newstools/docketwatch/internal/db"
	"github.com/newstools/docketwatch/internal/model"
)

// PostgresStore implements Store against the docket schema.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a PostgresStore backed by the given pool.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) ListCourts(ctx context.Context, feedOnly bool) ([]model.Court, error) {
	query := `SELECT id, name, type, has_feed, feed_url, website, last_updated
		 FROM docket.courts`
	if feedOnly {
		query += ` WHERE has_feed`
	}
	query += ` ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrap(err, "store: list courts")
	}
	defer rows.Close()

	var courts []model.Court
	for rows.Next() {
		var c model.Court
		var courtType string
		if err := rows.Scan(&c.ID, &c.Name, &courtType, &c.HasFeed, &c.FeedURL, &c.Website, &c.LastUpdated); err != nil {
			return nil, eris.Wrap(err, "store: scan court")
		}
		c.Type = model.CourtType(courtType)
		courts = append(courts, c)
	}
	return courts, rows.Err()
}

func (s *PostgresStore) UpsertCourts(ctx context.Context, courts []model.Court) (int64, error) {
	rows := make([][]any, 0, len(courts))
	for _, c := range courts {
		rows = append(rows, []any{c.ID, c.Name, string(c.Type), c.HasFeed, c.FeedURL, c.Website})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "docket.courts",
		Columns:      []string{"id", "name", "type", "has_feed", "feed_url", "website"},
		ConflictKeys: []string{"id"},
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "store: upsert courts")
	}
	return n, nil
}

func (s *PostgresStore) ExistingEntryIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]bool, error) {
	existing := make(map[uuid.UUID]bool, len(ids))
	if len(ids) == 0 {
		return existing, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id FROM docket.entries WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, eris.Wrap(err, "store: existing entry ids")
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, eris.Wrap(err, "store: scan entry id")
		}
		existing[id] = true
	}
	return existing, rows.Err()
}

func (s *PostgresStore) CasesByID(ctx context.Context, ids []int64) (map[int64]model.Case, error) {
	cases := make(map[int64]model.Case, len(ids))
	if len(ids) == 0 {
		return cases, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, court_id, title, number, name, type, website, is_date_filed, updated_time
		 FROM docket.cases WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, eris.Wrap(err, "store: cases by id")
	}
	defer rows.Close()

	for rows.Next() {
		var c model.Case
		var caseType string
		if err := rows.Scan(&c.ID, &c.CourtID, &c.Title, &c.Number, &c.Name, &caseType, &c.Website, &c.IsDateFiled, &c.UpdatedTime); err != nil {
			return nil, eris.Wrap(err, "store: scan case")
		}
		c.Type = model.CaseType(caseType)
		cases[c.ID] = c
	}
	return cases, rows.Err()
}

func (s *PostgresStore) CreateCases(ctx context.Context, cases []model.Case) error {
	rows := make([][]any, 0, len(cases))
	for _, c := range cases {
		rows = append(rows, []any{c.ID, c.CourtID, c.Title, c.Number, c.Name, string(c.Type), c.Website, c.IsDateFiled})
	}

	_, err := db.CopyFromSchema(ctx, s.pool, "docket", "cases",
		[]string{"id", "court_id", "title", "number", "name", "type", "website", "is_date_filed"},
		rows)
	if err != nil {
		return eris.Wrap(err, "store: create cases")
	}
	return nil
}

func (s *PostgresStore) UpdateCaseHeader(ctx context.Context, c model.Case) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE docket.cases SET title = $1, number = $2, name = $3 WHERE id = $4`,
		c.Title, c.Number, c.Name, c.ID)
	if err != nil {
		return eris.Wrapf(err, "store: update case %d", c.ID)
	}
	return nil
}

func (s *PostgresStore) CreateEntries(ctx context.Context, entries []model.Entry) error {
	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []any{e.ID, e.CaseID, e.Description, e.Number, e.Website, e.TimeFiled})
	}

	_, err := db.CopyFromSchema(ctx, s.pool, "docket", "entries",
		[]string{"id", "case_id", "description", "number", "website", "time_filed"},
		rows)
	if err != nil {
		return eris.Wrap(err, "store: create entries")
	}
	return nil
}

func (s *PostgresStore) TouchCases(ctx context.Context, ids []int64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE docket.cases SET updated_time = $1 WHERE id = ANY($2)`,
		at, ids)
	if err != nil {
		return eris.Wrap(err, "store: touch cases")
	}
	return nil
}

func (s *PostgresStore) AdvanceWatermark(ctx context.Context, courtID int64, builtAt time.Time) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE docket.courts SET last_updated = $1
		 WHERE id = $2 AND (last_updated IS NULL OR last_updated < $1)`,
		builtAt, courtID)
	if err != nil {
		return eris.Wrapf(err, "store: advance watermark for court %d", courtID)
	}
	return nil
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)
