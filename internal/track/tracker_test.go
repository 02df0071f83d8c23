package track

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newstools/docketwatch/internal/model"
)

// fakeFetcher serves canned feed bodies by URL. URLs absent from the map
// fail the download.
type fakeFetcher struct {
	bodies map[string]string
}

func (f *fakeFetcher) Download(_ context.Context, rawURL string) (io.ReadCloser, error) {
	body, ok := f.bodies[rawURL]
	if !ok {
		return nil, eris.Errorf("no response for %s", rawURL)
	}
	return io.NopCloser(strings.NewReader(body)), nil
}

func (f *fakeFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	out, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	defer out.Close() //nolint:errcheck
	return io.Copy(out, body)
}

func feedDoc(buildDate string, items ...string) string {
	var sb strings.Builder
	sb.WriteString("<rss><channel><title>Test Court - Recent Entries</title>\n")
	fmt.Fprintf(&sb, "<lastBuildDate>%s</lastBuildDate>\n", buildDate)
	for _, item := range items {
		sb.WriteString(item)
		sb.WriteString("\n")
	}
	sb.WriteString("</channel></rss>")
	return sb.String()
}

func feedItem(caseNumber, caseName string, caseToken int, docNumber int, description, pubDate string) string {
	return fmt.Sprintf(`<item>
<title>%s %s</title>
<link>https://ecf.test.gov/DktRpt.pl?%d</link>
<description>&lt;a href="https://ecf.test.gov/doc1/%d%d"&gt;%d&lt;/a&gt; [%s]</description>
<pubDate>%s</pubDate>
</item>`, caseNumber, caseName, caseToken, caseToken, docNumber, docNumber, description, pubDate)
}

func testTracker(store *fakeStore, f *fakeFetcher, stagingDir string, batchSize int) *Tracker {
	return NewTracker(store, f, nil, nil, Options{
		Workers:    2,
		BatchSize:  batchSize,
		StagingDir: stagingDir,
	})
}

func TestTracker_Run(t *testing.T) {
	store := newFakeStore()
	store.courts = []model.Court{
		{ID: 12, Name: "Test District", Type: model.CourtDistrict, HasFeed: true, FeedURL: "https://court.test/feed"},
	}

	f := &fakeFetcher{bodies: map[string]string{
		"https://court.test/feed": feedDoc("Fri, 29 Aug 2026 17:05:00 GMT",
			feedItem("1:26-cv-00001", "A v. B", 501, 1, "Complaint", "Fri, 29 Aug 2026 16:30:00 GMT"),
			feedItem("1:26-cv-00001", "A v. B", 501, 2, "Summons Issued", "Fri, 29 Aug 2026 16:45:00 GMT"),
			feedItem("1:26-cr-00002", "USA v. C", 502, 3, "Indictment", "Fri, 29 Aug 2026 16:59:00 GMT"),
		),
	}}

	tr := testTracker(store, f, t.TempDir(), 500)
	stats, err := tr.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.CourtsFetched)
	assert.Equal(t, 0, stats.CourtsBroken)
	assert.Equal(t, 0, stats.CourtsStale)
	assert.Equal(t, 3, stats.EntriesCreated)
	assert.Equal(t, 2, stats.CasesCreated)
	assert.Equal(t, 0, stats.EntriesBroken)

	// Watermark moved to the document build time.
	wm, ok := store.watermarks[12]
	require.True(t, ok)
	assert.True(t, wm.Equal(time.Date(2026, 8, 29, 17, 5, 0, 0, time.UTC)))

	// Case types flow through from extraction.
	assert.Equal(t, model.CaseCivil, store.cases[120501].Type)
	assert.Equal(t, model.CaseCriminal, store.cases[120502].Type)
}

func TestTracker_SecondRunIsStale(t *testing.T) {
	store := newFakeStore()
	store.courts = []model.Court{
		{ID: 12, Name: "Test District", Type: model.CourtDistrict, HasFeed: true, FeedURL: "https://court.test/feed"},
	}

	doc := feedDoc("Fri, 29 Aug 2026 17:05:00 GMT",
		feedItem("1:26-cv-00001", "A v. B", 501, 1, "Complaint", "Fri, 29 Aug 2026 16:30:00 GMT"),
	)
	f := &fakeFetcher{bodies: map[string]string{"https://court.test/feed": doc}}

	dir := t.TempDir()
	tr := testTracker(store, f, dir, 500)

	_, err := tr.Run(context.Background())
	require.NoError(t, err)

	// Unchanged document on the next pass: skipped without item work.
	stats, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.CourtsStale)
	assert.Equal(t, 0, stats.EntriesCreated)
	assert.Equal(t, 0, stats.EntriesOld)
	assert.Len(t, store.entries, 1)
}

func TestTracker_NewerBuildOldItems(t *testing.T) {
	store := newFakeStore()
	store.courts = []model.Court{
		{ID: 12, Name: "Test District", Type: model.CourtDistrict, HasFeed: true, FeedURL: "https://court.test/feed"},
	}

	f := &fakeFetcher{bodies: map[string]string{
		"https://court.test/feed": feedDoc("Fri, 29 Aug 2026 17:05:00 GMT",
			feedItem("1:26-cv-00001", "A v. B", 501, 1, "Complaint", "Fri, 29 Aug 2026 16:30:00 GMT"),
		),
	}}

	dir := t.TempDir()
	tr := testTracker(store, f, dir, 500)
	_, err := tr.Run(context.Background())
	require.NoError(t, err)

	// The rebuilt document repeats the old item alongside a new one.
	f.bodies["https://court.test/feed"] = feedDoc("Fri, 29 Aug 2026 18:05:00 GMT",
		feedItem("1:26-cv-00001", "A v. B", 501, 1, "Complaint", "Fri, 29 Aug 2026 16:30:00 GMT"),
		feedItem("1:26-cv-00001", "A v. B", 501, 2, "Answer", "Fri, 29 Aug 2026 17:45:00 GMT"),
	)

	stats, err := tr.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.EntriesCreated)
	assert.Equal(t, 1, stats.EntriesOld)
	assert.Len(t, store.entries, 2)

	wm := store.watermarks[12]
	assert.True(t, wm.Equal(time.Date(2026, 8, 29, 18, 5, 0, 0, time.UTC)))
}

func TestTracker_BrokenCourtIsolated(t *testing.T) {
	store := newFakeStore()
	store.courts = []model.Court{
		{ID: 11, Name: "Broken Court", Type: model.CourtDistrict, HasFeed: true, FeedURL: "https://broken.test/feed"},
		{ID: 12, Name: "Good Court", Type: model.CourtDistrict, HasFeed: true, FeedURL: "https://good.test/feed"},
		{ID: 13, Name: "Error Page Court", Type: model.CourtDistrict, HasFeed: true, FeedURL: "https://errorpage.test/feed"},
	}

	f := &fakeFetcher{bodies: map[string]string{
		// 11 is absent: the download itself fails.
		"https://good.test/feed": feedDoc("Fri, 29 Aug 2026 17:05:00 GMT",
			feedItem("1:26-cv-00001", "A v. B", 501, 1, "Complaint", "Fri, 29 Aug 2026 16:30:00 GMT"),
		),
		"https://errorpage.test/feed": `<html><head><title>503 Service Unavailable</title></head></html>`,
	}}

	tr := testTracker(store, f, t.TempDir(), 500)
	stats, err := tr.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, stats.CourtsBroken)
	assert.Equal(t, 2, stats.CourtsFetched)
	assert.Equal(t, 1, stats.EntriesCreated)

	// Only the healthy court's watermark moved.
	_, ok := store.watermarks[12]
	assert.True(t, ok)
	_, ok = store.watermarks[11]
	assert.False(t, ok)
	_, ok = store.watermarks[13]
	assert.False(t, ok)
}

func TestTracker_BrokenItemsCounted(t *testing.T) {
	store := newFakeStore()
	store.courts = []model.Court{
		{ID: 12, Name: "Test District", Type: model.CourtDistrict, HasFeed: true, FeedURL: "https://court.test/feed"},
	}

	badItem := `<item>
<title>1:26-cv-00009 Bad Pubdate</title>
<link>https://ecf.test.gov/DktRpt.pl?509</link>
<description>[Notice]</description>
<pubDate>not a date</pubDate>
</item>`

	f := &fakeFetcher{bodies: map[string]string{
		"https://court.test/feed": feedDoc("Fri, 29 Aug 2026 17:05:00 GMT",
			badItem,
			feedItem("1:26-cv-00001", "A v. B", 501, 1, "Complaint", "Fri, 29 Aug 2026 16:30:00 GMT"),
		),
	}}

	tr := testTracker(store, f, t.TempDir(), 500)
	stats, err := tr.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.EntriesBroken)
	assert.Equal(t, 1, stats.EntriesCreated)

	// A broken item never blocks the watermark.
	_, ok := store.watermarks[12]
	assert.True(t, ok)
}

func TestTracker_SmallBatchesFlushRepeatedly(t *testing.T) {
	store := newFakeStore()
	store.courts = []model.Court{
		{ID: 12, Name: "Test District", Type: model.CourtDistrict, HasFeed: true, FeedURL: "https://court.test/feed"},
	}

	items := make([]string, 0, 5)
	for i := range 5 {
		items = append(items, feedItem(
			"1:26-cv-00001", "A v. B", 501, i+2,
			fmt.Sprintf("Filing %d", i+2),
			fmt.Sprintf("Fri, 29 Aug 2026 16:%02d:00 GMT", 30+i),
		))
	}

	f := &fakeFetcher{bodies: map[string]string{
		"https://court.test/feed": feedDoc("Fri, 29 Aug 2026 17:05:00 GMT", items...),
	}}

	tr := testTracker(store, f, t.TempDir(), 2)
	stats, err := tr.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.EntriesCreated)
	assert.Equal(t, 1, stats.CasesCreated)
	assert.Len(t, store.entries, 5)
}
