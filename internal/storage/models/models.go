package models

import "time"

// BugReport is the raw defect document as stored. Severity and status are
// kept exactly as imported; normalization to the fixed enums happens in the
// provider adapter, not here.
type BugReport struct {
	ID          string
	Product     string
	Section     string
	Feature     string
	Severity    string
	Status      string
	Title       string
	Description string
	SourceRef   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// BugFilter narrows bug queries. Empty fields are not filtered on.
type BugFilter struct {
	Product string
	Status  string
	Section string
	Feature string
	Limit   int
}

// ImportRecord tracks one tracker-export ingestion pass.
type ImportRecord struct {
	ID        string
	SourceURL string
	BugCount  int
	CreatedAt time.Time
}
