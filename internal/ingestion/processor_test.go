package ingestion

import (
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowboard/backend/internal/storage/models"
	"github.com/flowboard/backend/internal/storage/sqlite"
)

const sampleExport = `
<html><body>
<table>
	<tr class="issue" data-key="TRK-101">
		<td class="title">Payment form rejects valid cards</td>
		<td class="product">shop</td>
		<td class="section">checkout</td>
		<td class="feature">payment</td>
		<td class="severity">Critical</td>
		<td class="status">Open</td>
	</tr>
	<tr class="issue" data-key="TRK-102" data-severity="minor" data-status="Resolved">
		<td class="title">Typo on receipt page</td>
		<td class="product">shop</td>
		<td class="section">checkout</td>
		<td class="feature">payment</td>
	</tr>
	<tr class="issue">
		<td class="severity">high</td>
	</tr>
</table>
</body></html>`

func parseExport(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestExtractBugs(t *testing.T) {
	p := &Processor{}
	bugs := p.extractBugs(parseExport(t, sampleExport), "https://tracker.example/export/7")

	// The title-less row is skipped.
	require.Len(t, bugs, 2)

	first := bugs[0]
	assert.Equal(t, "TRK-101", first.ID)
	assert.Equal(t, "TRK-101", first.SourceRef)
	assert.Equal(t, "Payment form rejects valid cards", first.Title)
	assert.Equal(t, "shop", first.Product)
	assert.Equal(t, "checkout", first.Section)
	assert.Equal(t, "payment", first.Feature)
	assert.Equal(t, "critical", first.Severity)
	assert.Equal(t, "open", first.Status)

	// Data attributes back up missing field elements, and labels normalize.
	second := bugs[1]
	assert.Equal(t, "TRK-102", second.ID)
	assert.Equal(t, "low", second.Severity)
	assert.Equal(t, "closed", second.Status)
}

func TestExtractBugsGeneratesStableIDs(t *testing.T) {
	html := `<ul><li class="issue"><span class="title">No key here</span></li></ul>`

	p := &Processor{}
	first := p.extractBugs(parseExport(t, html), "https://tracker.example/export/8")
	second := p.extractBugs(parseExport(t, html), "https://tracker.example/export/8")

	require.Len(t, first, 1)
	require.Len(t, second, 1)
	assert.NotEmpty(t, first[0].ID)
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestProcessExport(t *testing.T) {
	db, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())

	p := NewProcessor(db)

	imported, err := p.ProcessExport(context.Background(), "https://tracker.example/export/7", sampleExport)
	require.NoError(t, err)
	assert.Equal(t, 2, imported)

	bugs, err := db.QueryBugReports(context.Background(), models.BugFilter{Product: "shop"})
	require.NoError(t, err)
	assert.Len(t, bugs, 2)
}

func TestProcessExportEmpty(t *testing.T) {
	db, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.InitSchema())

	p := NewProcessor(db)

	_, err = p.ProcessExport(context.Background(), "https://tracker.example/export/9", "<html><body></body></html>")
	assert.Error(t, err)
}
