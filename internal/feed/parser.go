// Package feed parses raw court feed documents into a build time and an
// ordered sequence of raw items. Court feeds are published by hundreds of
// independent CM/ECF installations and arrive malformed, truncated, or as
// HTML error pages; parsing is best-effort and rejection is a per-court,
// per-run condition rather than a failure of the pass.
package feed

import (
	"bytes"
	"encoding/xml"
	"io"
	"iter"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
)

var (
	// ErrNoFeed means the document has no recognizable channel title or is a
	// known error page (404/500/503 in the title).
	ErrNoFeed = eris.New("feed: no feed or entries")

	// ErrBadBuildTime means the channel build time is missing or unparseable.
	// Without a comparable build time the court cannot be trusted for this
	// run, so the whole document is rejected.
	ErrBadBuildTime = eris.New("feed: missing or invalid build time")
)

// RawItem is one undecoded feed item, in document order.
type RawItem struct {
	Title       string
	Link        string
	PubDate     string
	Description string
}

// Document is a parsed feed: the channel build time plus a restartable view
// over the raw items.
type Document struct {
	BuiltAt time.Time

	raw []byte
}

// Parse reads a raw feed document. It returns ErrNoFeed for empty documents,
// HTML error pages, and markup with no channel title, and ErrBadBuildTime
// when lastBuildDate is absent or unparseable. Item decoding is deferred to
// Items.
func Parse(r io.Reader) (*Document, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "feed: read document")
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, ErrNoFeed
	}

	title, buildDate, sawItem := scanHeader(raw)

	if title == "" && !sawItem {
		return nil, ErrNoFeed
	}
	for _, marker := range []string{"404", "500", "503"} {
		if strings.Contains(title, marker) {
			return nil, ErrNoFeed
		}
	}

	builtAt, err := ParseFeedTime(buildDate)
	if err != nil {
		return nil, ErrBadBuildTime
	}

	return &Document{BuiltAt: builtAt, raw: raw}, nil
}

// Items returns the feed's items in document order. The sequence is
// restartable: each call re-decodes from the raw document.
func (d *Document) Items() iter.Seq[RawItem] {
	return func(yield func(RawItem) bool) {
		dec := newDecoder(bytes.NewReader(d.raw))
		for {
			tok, err := dec.Token()
			if err != nil {
				return
			}
			se, ok := tok.(xml.StartElement)
			if !ok || !strings.EqualFold(se.Name.Local, "item") {
				continue
			}
			item, err := decodeItem(dec, se.Name.Local)
			if err != nil {
				return
			}
			if !yield(item) {
				return
			}
		}
	}
}

// newDecoder builds a tolerant XML decoder: non-strict mode survives bare
// ampersands and unknown entities, and the charset reader handles the
// windows-1252 declarations some courts still emit.
func newDecoder(r io.Reader) *xml.Decoder {
	dec := xml.NewDecoder(r)
	dec.Strict = false
	dec.AutoClose = xml.HTMLAutoClose
	dec.Entity = xml.HTMLEntity
	dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		enc, err := htmlindex.Get(charset)
		if err != nil {
			return nil, eris.Wrapf(err, "feed: unsupported charset %q", charset)
		}
		return enc.NewDecoder().Reader(input), nil
	}
	return dec
}

// scanHeader walks the document once, collecting the channel title and
// lastBuildDate. It stops early at the first item since the header always
// precedes the item list.
func scanHeader(raw []byte) (title, buildDate string, sawItem bool) {
	dec := newDecoder(bytes.NewReader(raw))
	for {
		tok, err := dec.Token()
		if err != nil {
			return title, buildDate, sawItem
		}
		se, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch {
		case strings.EqualFold(se.Name.Local, "item"):
			sawItem = true
			return title, buildDate, sawItem
		case strings.EqualFold(se.Name.Local, "title"):
			if title == "" {
				title = elementText(dec, se.Name.Local)
			}
		case strings.EqualFold(se.Name.Local, "lastBuildDate"):
			if buildDate == "" {
				buildDate = elementText(dec, se.Name.Local)
			}
		}
	}
}

// decodeItem consumes tokens until the matching end element, capturing the
// child fields the extractor needs. Child names are matched
// case-insensitively because feed casing varies between installations.
func decodeItem(dec *xml.Decoder, itemName string) (RawItem, error) {
	var item RawItem
	for {
		tok, err := dec.Token()
		if err != nil {
			return item, eris.Wrap(err, "feed: decode item")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case strings.EqualFold(t.Name.Local, "title"):
				item.Title = elementText(dec, t.Name.Local)
			case strings.EqualFold(t.Name.Local, "link"):
				item.Link = elementText(dec, t.Name.Local)
			case strings.EqualFold(t.Name.Local, "pubDate"):
				item.PubDate = elementText(dec, t.Name.Local)
			case strings.EqualFold(t.Name.Local, "description"):
				item.Description = elementText(dec, t.Name.Local)
			default:
				_ = dec.Skip()
			}
		case xml.EndElement:
			if strings.EqualFold(t.Name.Local, itemName) {
				return item, nil
			}
		}
	}
}

// elementText collects the character data up to the element's end tag.
func elementText(dec *xml.Decoder, name string) string {
	var sb strings.Builder
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return strings.TrimSpace(sb.String())
		}
		switch t := tok.(type) {
		case xml.CharData:
			sb.Write(t)
		case xml.StartElement:
			depth++
		case xml.EndElement:
			if depth == 0 && strings.EqualFold(t.Name.Local, name) {
				return strings.TrimSpace(sb.String())
			}
			if depth > 0 {
				depth--
			}
		}
	}
}
