package providers

import (
	"context"
	"fmt"

	"github.com/flowboard/backend/internal/risk"
	"github.com/flowboard/backend/internal/storage/models"
	"github.com/flowboard/backend/internal/storage/sqlite"
)

// BugStore adapts the sqlite defect document store to the risk engine's
// BugProvider contract, normalizing severity and status on the way out.
type BugStore struct {
	db *sqlite.Client
}

func NewBugStore(db *sqlite.Client) *BugStore {
	return &BugStore{db: db}
}

func (s *BugStore) BugsByStatus(ctx context.Context, product string, status risk.BugStatus, section, feature string) ([]risk.BugRecord, error) {
	reports, err := s.db.QueryBugReports(ctx, models.BugFilter{
		Product: product,
		Status:  string(status),
		Section: section,
		Feature: feature,
	})
	if err != nil {
		return nil, fmt.Errorf("bug store query failed: %w", err)
	}

	bugs := make([]risk.BugRecord, 0, len(reports))
	for _, report := range reports {
		bugs = append(bugs, Normalize(report))
	}

	return bugs, nil
}

// Normalize converts a stored defect document into the engine's record type.
// Missing or unrecognized severity and status fall back to the neutral
// defaults (medium, open) rather than being rejected.
func Normalize(report models.BugReport) risk.BugRecord {
	return risk.BugRecord{
		ID:          report.ID,
		Severity:    risk.NormalizeSeverity(report.Severity),
		Status:      risk.NormalizeStatus(report.Status),
		Title:       report.Title,
		Description: report.Description,
		SourceRef:   report.SourceRef,
		CreatedAt:   report.CreatedAt,
		UpdatedAt:   report.UpdatedAt,
	}
}
