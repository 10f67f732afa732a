package providers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowboard/backend/internal/risk"
	"github.com/flowboard/backend/internal/storage/models"
	"github.com/flowboard/backend/internal/storage/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Client {
	t.Helper()

	db, err := sqlite.NewClient(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, db.InitSchema())
	return db
}

func seedBug(t *testing.T, db *sqlite.Client, id, feature, severity, status string) {
	t.Helper()

	now := time.Now()
	err := db.UpsertBugReport(context.Background(), &models.BugReport{
		ID:        id,
		Product:   "shop",
		Section:   "checkout",
		Feature:   feature,
		Severity:  severity,
		Status:    status,
		Title:     "bug " + id,
		SourceRef: "TRK-" + id,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.NoError(t, err)
}

func TestBugsByStatus(t *testing.T) {
	db := newTestStore(t)
	seedBug(t, db, "1", "payment", "critical", "open")
	seedBug(t, db, "2", "payment", "low", "open")
	seedBug(t, db, "3", "payment", "high", "closed")
	seedBug(t, db, "4", "cart", "medium", "open")

	store := NewBugStore(db)

	open, err := store.BugsByStatus(context.Background(), "shop", risk.StatusOpen, "checkout", "payment")
	require.NoError(t, err)
	require.Len(t, open, 2)
	for _, bug := range open {
		assert.Equal(t, risk.StatusOpen, bug.Status)
	}

	closed, err := store.BugsByStatus(context.Background(), "shop", risk.StatusClosed, "checkout", "payment")
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, risk.SeverityHigh, closed[0].Severity)
	assert.Equal(t, "TRK-3", closed[0].SourceRef)
}

func TestBugsByStatusNoMatches(t *testing.T) {
	db := newTestStore(t)
	store := NewBugStore(db)

	bugs, err := store.BugsByStatus(context.Background(), "shop", risk.StatusOpen, "checkout", "payment")
	require.NoError(t, err)
	assert.Empty(t, bugs)
}

func TestCountBugsByStatus(t *testing.T) {
	db := newTestStore(t)
	seedBug(t, db, "1", "payment", "critical", "open")
	seedBug(t, db, "2", "payment", "low", "open")
	seedBug(t, db, "3", "cart", "high", "closed")

	counts, err := db.CountBugsByStatus(context.Background(), "shop")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"open": 2, "closed": 1}, counts)

	counts, err = db.CountBugsByStatus(context.Background(), "crm")
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestNormalizeDefaults(t *testing.T) {
	record := Normalize(models.BugReport{
		ID:       "x",
		Severity: "???",
		Status:   "",
		Title:    "weird one",
	})

	assert.Equal(t, risk.SeverityMedium, record.Severity)
	assert.Equal(t, risk.StatusOpen, record.Status)
	assert.Equal(t, "weird one", record.Title)
}
