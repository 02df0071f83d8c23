// Package courtload reads a court roster from CSV and loads it into the
// store. The expected columns are id, name, type, has_feed, feed_url,
// website, with a header row.
package courtload

import (
	"context"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/newstools/docketwatch/internal/model"
	"github.com/newstools/docketwatch/internal/track"
)

// Load parses the roster CSV from r and upserts every row. It returns the
// number of courts written. Any malformed row fails the load; a partial
// roster is worse than no roster.
func Load(ctx context.Context, store track.Store, r io.Reader) (int64, error) {
	courts, err := ParseRoster(r)
	if err != nil {
		return 0, err
	}
	if len(courts) == 0 {
		return 0, eris.New("courtload: roster is empty")
	}

	n, err := store.UpsertCourts(ctx, courts)
	if err != nil {
		return 0, eris.Wrap(err, "courtload: upsert courts")
	}
	zap.L().Info("loaded court roster",
		zap.String("component", "courtload"),
		zap.Int64("courts", n),
	)
	return n, nil
}

// ParseRoster decodes the roster CSV into courts without touching storage.
func ParseRoster(r io.Reader) ([]model.Court, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = 6
	reader.TrimLeadingSpace = true

	var (
		courts []model.Court
		line   int
	)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return courts, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "courtload: read row")
		}
		line++

		// Header row.
		if line == 1 && strings.EqualFold(record[0], "id") {
			continue
		}

		court, err := parseRow(record)
		if err != nil {
			return nil, eris.Wrapf(err, "courtload: row %d", line)
		}
		courts = append(courts, court)
	}
}

func parseRow(record []string) (model.Court, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(record[0]), 10, 64)
	if err != nil {
		return model.Court{}, eris.Wrapf(err, "bad court id %q", record[0])
	}

	typ := model.CourtType(strings.ToUpper(strings.TrimSpace(record[2])))
	if !typ.Valid() {
		return model.Court{}, eris.Errorf("unknown court type %q", record[2])
	}

	hasFeed, err := parseBool(record[3])
	if err != nil {
		return model.Court{}, eris.Wrapf(err, "bad has_feed %q", record[3])
	}

	court := model.Court{
		ID:      id,
		Name:    strings.TrimSpace(record[1]),
		Type:    typ,
		HasFeed: hasFeed,
		FeedURL: strings.TrimSpace(record[4]),
		Website: strings.TrimSpace(record[5]),
	}
	if court.Name == "" {
		return model.Court{}, eris.New("missing court name")
	}
	if court.HasFeed && court.FeedURL == "" {
		return model.Court{}, eris.Errorf("court %d has_feed set but no feed_url", id)
	}
	return court, nil
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "1":
		return true, nil
	case "false", "f", "no", "n", "0", "":
		return false, nil
	}
	return false, eris.Errorf("not a boolean: %q", s)
}
