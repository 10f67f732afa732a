package risk

import (
	"strings"
	"time"

	"github.com/flowboard/backend/internal/flow"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

type BugStatus string

const (
	StatusOpen   BugStatus = "open"
	StatusClosed BugStatus = "closed"
)

type Level string

const (
	LevelLow    Level = "low"
	LevelMedium Level = "medium"
	LevelHigh   Level = "high"
)

// BugRecord is one defect report after normalization. Severity and status are
// always populated; unrecognized upstream values have already been mapped to
// the neutral defaults.
type BugRecord struct {
	ID          string    `json:"id"`
	Severity    Severity  `json:"severity"`
	Status      BugStatus `json:"status"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	SourceRef   string    `json:"source_ref,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TestStats is the per-feature result from the test-management service.
// Only Total participates in scoring; pass/fail incorporation is deferred.
type TestStats struct {
	Total   int `json:"total"`
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
}

// Score is the structured output of the scorer: the weighted composite, its
// classification, and the three raw sub-scores kept for transparency display.
type Score struct {
	Composite      float64 `json:"composite"`
	Level          Level   `json:"level"`
	BugRisk        float64 `json:"bug_risk"`
	CoverageRisk   float64 `json:"coverage_risk"`
	ComplexityRisk float64 `json:"complexity_risk"`
}

// FeatureBucket is one feature's fully materialized dashboard row.
type FeatureBucket struct {
	Key        string        `json:"key"`
	Feature    string        `json:"feature"`
	Product    string        `json:"product"`
	Section    string        `json:"section"`
	Screens    []flow.Screen `json:"screens"`
	Score      Score         `json:"score"`
	OpenBugs   []BugRecord   `json:"open_bugs"`
	ClosedBugs []BugRecord   `json:"closed_bugs"`
	TestCount  int           `json:"test_count"`
}

// Overview is the result of one aggregation run. Partial is an advisory flag
// meaning at least one provider fetch failed and was substituted with empty
// data; it never blocks the buckets that did populate.
type Overview struct {
	Buckets        []FeatureBucket `json:"buckets"`
	SkippedScreens []string        `json:"skipped_screens"`
	Partial        bool            `json:"partial"`
}

// ScreenRisk is the single-screen scoring result used by the detail panel.
type ScreenRisk struct {
	ScreenID  string      `json:"screen_id"`
	Score     Score       `json:"score"`
	OpenBugs  []BugRecord `json:"open_bugs"`
	TestCount int         `json:"test_count"`
	Partial   bool        `json:"partial"`
}

// NormalizeSeverity maps a raw upstream severity label to one of the four
// ordered levels, defaulting to medium when missing or unrecognized.
func NormalizeSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low", "minor", "trivial":
		return SeverityLow
	case "medium", "normal", "major":
		return SeverityMedium
	case "high":
		return SeverityHigh
	case "critical", "blocker":
		return SeverityCritical
	default:
		return SeverityMedium
	}
}

// NormalizeStatus maps a raw upstream status label to open or closed,
// defaulting to open when missing or unrecognized.
func NormalizeStatus(raw string) BugStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "closed", "resolved", "done", "fixed":
		return StatusClosed
	default:
		return StatusOpen
	}
}
