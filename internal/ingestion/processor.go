package ingestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flowboard/backend/internal/metrics"
	"github.com/flowboard/backend/internal/risk"
	"github.com/flowboard/backend/internal/storage/models"
	"github.com/flowboard/backend/internal/storage/sqlite"
	"github.com/flowboard/backend/pkg/logger"
	"github.com/flowboard/backend/pkg/utils"
)

// Processor imports defect reports from tracker HTML exports into the bug
// store. Exports list one element per issue; field values come from child
// elements by class, falling back to data attributes.
type Processor struct {
	db *sqlite.Client
}

func NewProcessor(db *sqlite.Client) *Processor {
	return &Processor{db: db}
}

// ProcessExport parses a tracker export and upserts every recognizable issue.
// Returns the number of reports imported. Issues with no title are skipped.
func (p *Processor) ProcessExport(ctx context.Context, sourceURL, htmlContent string) (int, error) {
	logger.Info("Processing bug export", zap.String("source_url", sourceURL))

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return 0, fmt.Errorf("failed to parse export HTML: %w", err)
	}

	bugs := p.extractBugs(doc, sourceURL)
	if len(bugs) == 0 {
		return 0, fmt.Errorf("no issues found in export")
	}

	imported := 0
	for _, bug := range bugs {
		if err := p.db.UpsertBugReport(ctx, bug); err != nil {
			logger.Warn("Failed to store bug report",
				zap.String("source_ref", bug.SourceRef),
				zap.Error(err),
			)
			continue
		}
		imported++
	}

	record := &models.ImportRecord{
		ID:        uuid.New().String(),
		SourceURL: sourceURL,
		BugCount:  imported,
		CreatedAt: time.Now(),
	}
	if err := p.db.InsertImportRecord(ctx, record); err != nil {
		logger.Warn("Failed to record import", zap.Error(err))
	}

	metrics.BugsImported.Add(float64(imported))

	logger.Info("Bug export processed",
		zap.String("import_id", record.ID),
		zap.Int("found", len(bugs)),
		zap.Int("imported", imported),
	)

	return imported, nil
}

func (p *Processor) extractBugs(doc *goquery.Document, sourceURL string) []*models.BugReport {
	now := time.Now()
	var bugs []*models.BugReport

	doc.Find(".issue, tr.issue, li.issue").Each(func(_ int, sel *goquery.Selection) {
		title := fieldValue(sel, "title")
		if title == "" {
			title = fieldValue(sel, "summary")
		}
		if title == "" {
			return
		}

		sourceRef := fieldValue(sel, "key")
		if sourceRef == "" {
			sourceRef, _ = sel.Attr("data-key")
		}

		id := sourceRef
		if id == "" {
			id = utils.HashString(sourceURL + "|" + title)
		}

		bug := &models.BugReport{
			ID:          id,
			Product:     fieldValue(sel, "product"),
			Section:     fieldValue(sel, "section"),
			Feature:     fieldValue(sel, "feature"),
			Severity:    string(risk.NormalizeSeverity(fieldValue(sel, "severity"))),
			Status:      string(risk.NormalizeStatus(fieldValue(sel, "status"))),
			Title:       title,
			Description: fieldValue(sel, "description"),
			SourceRef:   sourceRef,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		bugs = append(bugs, bug)
	})

	return bugs
}

// fieldValue reads an issue field, preferring a child element with the class
// name and falling back to a data attribute of the same name.
func fieldValue(sel *goquery.Selection, name string) string {
	value := strings.TrimSpace(sel.Find("." + name).First().Text())
	if value != "" {
		return value
	}

	attr, _ := sel.Attr("data-" + name)
	return strings.TrimSpace(attr)
}
