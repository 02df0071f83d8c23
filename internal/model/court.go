// Package model defines the court, case, and docket entry domain types.
package model

import "time"

// CourtType is the single-letter court classification.
type CourtType string

const (
	CourtSupreme       CourtType = "S"
	CourtAppeals       CourtType = "A"
	CourtMultidistrict CourtType = "M"
	CourtFederalClaims CourtType = "F"
	CourtIntlTrade     CourtType = "I"
	CourtDistrict      CourtType = "D"
	CourtBankruptcy    CourtType = "B"
)

var courtTypeNames = map[CourtType]string{
	CourtSupreme:       "Supreme Court",
	CourtAppeals:       "Appeals Court",
	CourtMultidistrict: "Judicial Panel on Multidistrict Litigation",
	CourtFederalClaims: "Federal Claims Court",
	CourtIntlTrade:     "International Trade Court",
	CourtDistrict:      "District Court",
	CourtBankruptcy:    "Bankruptcy Court",
}

// Display returns the human-readable court type name.
func (t CourtType) Display() string {
	if name, ok := courtTypeNames[t]; ok {
		return name
	}
	return string(t)
}

// Valid reports whether t is a known court type.
func (t CourtType) Valid() bool {
	_, ok := courtTypeNames[t]
	return ok
}

// Court is one feed source. The tracker treats it as read-only except for
// the LastUpdated watermark.
type Court struct {
	ID      int64     `json:"id"`
	Name    string    `json:"name"`
	Type    CourtType `json:"type"`
	HasFeed bool      `json:"has_feed"`
	FeedURL string    `json:"feed_url"`
	Website string    `json:"website"`

	// LastUpdated is the build time of the newest fully-ingested feed
	// document, on the court's clock. Nil before the first successful pass.
	LastUpdated *time.Time `json:"last_updated,omitempty"`
}

// Label returns the "Type: Name" form used in logs and staging filenames.
func (c Court) Label() string {
	return c.Type.Display() + ": " + c.Name
}
