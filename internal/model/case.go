package model

import "time"

// CaseType is the three-character case classification. The leading digit
// keeps the historical sort order.
type CaseType string

const (
	CaseCivil         CaseType = "1CV"
	CaseCriminal      CaseType = "2CR"
	CaseBankruptcy    CaseType = "3BK"
	CaseAppeals       CaseType = "4AP"
	CaseMultidistrict CaseType = "5MD"
	CaseVaccine       CaseType = "6VC"
	CaseCongressional CaseType = "7CG"
)

var caseTypeNames = map[CaseType]string{
	CaseCivil:         "Civil",
	CaseCriminal:      "Criminal",
	CaseBankruptcy:    "Bankruptcy",
	CaseAppeals:       "Appeals",
	CaseMultidistrict: "Multi-District Litigation",
	CaseVaccine:       "Vaccine",
	CaseCongressional: "Congressional Record",
}

// Display returns the human-readable case type name.
func (t CaseType) Display() string {
	if name, ok := caseTypeNames[t]; ok {
		return name
	}
	return string(t)
}

// Case groups all docket entries sharing one composite case id. The id is a
// concatenation of the court id, a literal zero, and the numeric token from
// the case's docket report URL, so an id can never migrate between courts.
type Case struct {
	ID          int64     `json:"id"`
	CourtID     int64     `json:"court_id"`
	Title       string    `json:"title"`
	Number      string    `json:"number"`
	Name        string    `json:"name"`
	Type        CaseType  `json:"type"`
	Website     string    `json:"website"`
	IsDateFiled bool      `json:"is_date_filed"`
	UpdatedTime time.Time `json:"updated_time"`
}
