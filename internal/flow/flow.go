package flow

import "time"

// Screen is one visual node of the user-flow graph. Product, Section and
// Feature are optional; a screen missing any of the three stays viewable on
// its own but is excluded from feature-level aggregation.
type Screen struct {
	ID            string           `json:"id"`
	Label         string           `json:"label"`
	Description   string           `json:"description,omitempty"`
	Role          string           `json:"role"`
	Actions       []string         `json:"actions,omitempty"`
	Prerequisites []string         `json:"prerequisites,omitempty"`
	Product       string           `json:"product,omitempty"`
	Section       string           `json:"section,omitempty"`
	Feature       string           `json:"feature,omitempty"`
	Quality       *QualitySnapshot `json:"quality,omitempty"`
}

// QualitySnapshot is the last computed quality state attached to a screen.
// It is the only mutable part of a screen record and is refreshed per
// aggregation run.
type QualitySnapshot struct {
	BugCount   int       `json:"bug_count"`
	RiskLevel  string    `json:"risk_level"`
	ComputedAt time.Time `json:"computed_at"`
}

// Transition is one directed edge between two screens.
type Transition struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Label string `json:"label,omitempty"`
}

// Graph is the full flow definition, loaded once at startup and immutable
// afterwards.
type Graph struct {
	Screens     []Screen     `json:"screens"`
	Transitions []Transition `json:"transitions"`
}

// Screen roles used by the flow definitions.
const (
	RoleEntry        = "entry"
	RoleForm         = "form"
	RoleList         = "list"
	RoleDetail       = "detail"
	RoleConfirmation = "confirmation"
	RoleTerminal     = "terminal"
)
