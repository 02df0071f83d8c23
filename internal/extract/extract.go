// Package extract converts raw feed items into candidate docket entries:
// composite case identifier, case-type classification, description fields
// from embedded markup, and the entry idempotency key.
package extract

import (
	"crypto/md5"
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/newstools/docketwatch/internal/feed"
	"github.com/newstools/docketwatch/internal/model"
)

var (
	// ErrStale marks an item at or before the court's watermark. Not an
	// error condition; the item was simply seen in an earlier run.
	ErrStale = eris.New("extract: item not newer than watermark")

	ErrBadTimeFiled   = eris.New("extract: invalid pub date")
	ErrBadTitle       = eris.New("extract: could not get case title, website or id")
	ErrBadCaseNumber  = eris.New("extract: could not get case type")
	ErrBadDescription = eris.New("extract: could not get description, doc number or doc url")
)

var (
	digitRun    = regexp.MustCompile(`[0-9]+`)
	bracketed   = regexp.MustCompile(`\[(.+)\]`)
	trusteeDesc = regexp.MustCompile(`Trustee: .+\]`)
)

// Candidate converts one raw item into a candidate entry. watermark is the
// court's last-seen build time as read at the start of the run; items at or
// before it return ErrStale.
func Candidate(item feed.RawItem, court model.Court, watermark *time.Time) (*model.Candidate, error) {
	timeFiled, err := feed.ParseFeedTime(item.PubDate)
	if err != nil {
		return nil, ErrBadTimeFiled
	}

	if watermark != nil && !timeFiled.After(*watermark) {
		return nil, ErrStale
	}

	title := strings.TrimSpace(item.Title)
	caseWebsite := strings.TrimSpace(item.Link)
	if title == "" || caseWebsite == "" {
		return nil, ErrBadTitle
	}

	caseID, err := CaseID(court.ID, caseWebsite)
	if err != nil {
		return nil, ErrBadTitle
	}

	caseNumber, caseName, _ := strings.Cut(title, " ")
	caseName = strings.TrimSpace(caseName)

	caseType, err := ClassifyCase(caseNumber, court.Type)
	if err != nil {
		return nil, ErrBadCaseNumber
	}

	description, docNumber, docWebsite, err := EntryInfo(item.Description)
	if err != nil {
		return nil, ErrBadDescription
	}

	// Document number 1 is the initiating filing: only the date, not the
	// time, is authoritative for when the case was opened.
	isDateFiled := docNumber != nil && *docNumber == 1

	cand := &model.Candidate{
		Entry: model.Entry{
			ID:          EntryID(caseWebsite, description, docNumber, docWebsite, timeFiled),
			CaseID:      caseID,
			Description: description,
			Number:      docNumber,
			Website:     docWebsite,
			TimeFiled:   timeFiled,
		},
		CourtID:     court.ID,
		CaseTitle:   title,
		CaseNumber:  caseNumber,
		CaseName:    caseName,
		CaseType:    caseType,
		CaseWebsite: caseWebsite,
		IsDateFiled: isDateFiled,
	}
	return cand, nil
}

// CaseID derives the composite case identifier: the court id, a separator
// zero, and the first maximal digit run in the hyphen-stripped link that ends
// the link or abuts a querystring boundary. Deterministic, and collision-free
// within one court for every observed feed URL shape.
func CaseID(courtID int64, caseWebsite string) (int64, error) {
	stripped := strings.ReplaceAll(caseWebsite, "-", "")

	token := ""
	for _, loc := range digitRun.FindAllStringIndex(stripped, -1) {
		if loc[1] == len(stripped) || stripped[loc[1]] == '&' {
			token = stripped[loc[0]:loc[1]]
			break
		}
	}
	if token == "" {
		return 0, eris.Errorf("extract: no case id token in %q", caseWebsite)
	}

	id, err := strconv.ParseInt(fmt.Sprintf("%d0%s", courtID, token), 10, 64)
	if err != nil {
		return 0, eris.Wrapf(err, "extract: case id overflow for %q", caseWebsite)
	}
	return id, nil
}

// EntryInfo pulls the bracketed description, the optional document number,
// and the optional document link out of the item's escaped-HTML description.
func EntryInfo(rawDescription string) (string, *int, *string, error) {
	summary := html.UnescapeString(rawDescription)
	// Single quotes are normalized to double quotes; historical entry
	// identifiers were computed over the normalized form.
	summary = strings.ReplaceAll(summary, "'", `"`)

	var description string
	if strings.Contains(summary, "Trustee: ") {
		// Bankruptcy items carry the trustee name outside the brackets; the
		// stored description keeps the closing bracket.
		description = trusteeDesc.FindString(summary)
	} else if m := bracketed.FindStringSubmatch(summary); m != nil {
		description = m[1]
	}
	if description == "" {
		return "", nil, nil, eris.New("extract: no bracketed description")
	}

	docNumber, docWebsite := entryAnchor(summary)
	return description, docNumber, docWebsite, nil
}

// entryAnchor finds the embedded document link. The description markup is
// whatever the court's CM/ECF emits, so it goes through a tag-soup parse
// rather than assuming well-formed HTML.
func entryAnchor(summary string) (*int, *string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(summary))
	if err != nil {
		return nil, nil
	}

	anchor := doc.Find("a").First()
	if anchor.Length() == 0 {
		return nil, nil
	}

	href, ok := anchor.Attr("href")
	if !ok {
		return nil, nil
	}

	var number *int
	if n, err := strconv.Atoi(strings.TrimSpace(anchor.Text())); err == nil {
		number = &n
	}
	return number, &href
}

// EntryID computes the entry idempotency key: an MD5 of the case link,
// description, document number, document link, and filed time, rendered as
// a UUID. The case link is part of the input so entries with no embedded
// anchor still get distinct keys across cases. Historical keys were
// computed over exactly this concatenation; changing the input would
// re-create every previously seen entry.
func EntryID(caseWebsite, description string, docNumber *int, docWebsite *string, timeFiled time.Time) uuid.UUID {
	docLink := "none"
	if docWebsite != nil {
		docLink = *docWebsite
	}
	number := "none"
	if docNumber != nil {
		number = strconv.Itoa(*docNumber)
	}

	var sb strings.Builder
	sb.WriteString(caseWebsite)
	sb.WriteString(description)
	sb.WriteString(number)
	sb.WriteString(docLink)
	sb.WriteString(timeFiled.UTC().Format(time.RFC3339))

	sum := md5.Sum([]byte(sb.String()))
	id, _ := uuid.FromBytes(sum[:])
	return id
}
