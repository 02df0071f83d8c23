package feed

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Court feeds timestamp with US timezone abbreviations on the court's own
// clock. Go resolves unknown abbreviations to a zero offset, so known ones
// are pinned to their fixed UTC offsets here.
var tzOffsets = map[string]int{
	"EDT": -4 * 3600,
	"EST": -5 * 3600,
	"CDT": -5 * 3600,
	"CST": -6 * 3600,
	"MDT": -6 * 3600,
	"MST": -7 * 3600,
	"PDT": -7 * 3600,
	"PST": -8 * 3600,
	"GMT": 0,
	"UTC": 0,
	"UT":  0,
}

var feedTimeLayouts = []string{
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04 MST",
	"2006-01-02T15:04:05Z07:00",
}

// ParseFeedTime parses an RSS-style timestamp, resolving US timezone
// abbreviations to their fixed offsets. The returned instant stays on the
// source clock's timebase.
func ParseFeedTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, eris.New("feed: empty timestamp")
	}

	for _, layout := range feedTimeLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		return resolveZone(t), nil
	}
	return time.Time{}, eris.Errorf("feed: unparseable timestamp %q", s)
}

// resolveZone pins abbreviation-only zones to their fixed offsets. time.Parse
// keeps the name but assigns offset zero when the abbreviation is not the
// local zone's.
func resolveZone(t time.Time) time.Time {
	name, offset := t.Zone()
	want, known := tzOffsets[name]
	if !known || offset == want {
		return t
	}
	loc := time.FixedZone(name, want)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
}
