package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/flowboard/backend/internal/storage/models"
	"github.com/flowboard/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS bug_reports (
		id TEXT PRIMARY KEY,
		product TEXT NOT NULL,
		section TEXT,
		feature TEXT,
		severity TEXT,
		status TEXT,
		title TEXT NOT NULL,
		description TEXT,
		source_ref TEXT,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_bugs_product ON bug_reports(product);
	CREATE INDEX IF NOT EXISTS idx_bugs_status ON bug_reports(status);
	CREATE INDEX IF NOT EXISTS idx_bugs_feature ON bug_reports(product, section, feature);
	CREATE INDEX IF NOT EXISTS idx_bugs_updated ON bug_reports(updated_at);

	CREATE TABLE IF NOT EXISTS bug_imports (
		id TEXT PRIMARY KEY,
		source_url TEXT,
		bug_count INTEGER NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_imports_created ON bug_imports(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) UpsertBugReport(ctx context.Context, bug *models.BugReport) error {
	query := `
		INSERT INTO bug_reports (id, product, section, feature, severity, status,
			title, description, source_ref, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			severity = excluded.severity,
			status = excluded.status,
			title = excluded.title,
			description = excluded.description,
			updated_at = excluded.updated_at
	`

	_, err := c.db.ExecContext(
		ctx,
		query,
		bug.ID,
		bug.Product,
		bug.Section,
		bug.Feature,
		bug.Severity,
		bug.Status,
		bug.Title,
		bug.Description,
		bug.SourceRef,
		bug.CreatedAt.Unix(),
		bug.UpdatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert bug report: %w", err)
	}

	logger.Debug("Bug report upserted", zap.String("bug_id", bug.ID), zap.String("source_ref", bug.SourceRef))
	return nil
}

func (c *Client) QueryBugReports(ctx context.Context, filter models.BugFilter) ([]models.BugReport, error) {
	query := `
		SELECT id, product, section, feature, severity, status,
			title, description, source_ref, created_at, updated_at
		FROM bug_reports
	`

	var conditions []string
	var args []interface{}

	if filter.Product != "" {
		conditions = append(conditions, "product = ?")
		args = append(args, filter.Product)
	}
	if filter.Status != "" {
		conditions = append(conditions, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.Section != "" {
		conditions = append(conditions, "section = ?")
		args = append(args, filter.Section)
	}
	if filter.Feature != "" {
		conditions = append(conditions, "feature = ?")
		args = append(args, filter.Feature)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY updated_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bug reports: %w", err)
	}
	defer rows.Close()

	var bugs []models.BugReport
	for rows.Next() {
		var bug models.BugReport
		var createdAt, updatedAt int64

		err := rows.Scan(
			&bug.ID,
			&bug.Product,
			&bug.Section,
			&bug.Feature,
			&bug.Severity,
			&bug.Status,
			&bug.Title,
			&bug.Description,
			&bug.SourceRef,
			&createdAt,
			&updatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		bug.CreatedAt = time.Unix(createdAt, 0)
		bug.UpdatedAt = time.Unix(updatedAt, 0)
		bugs = append(bugs, bug)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return bugs, nil
}

func (c *Client) InsertImportRecord(ctx context.Context, record *models.ImportRecord) error {
	query := `INSERT INTO bug_imports (id, source_url, bug_count, created_at) VALUES (?, ?, ?, ?)`

	_, err := c.db.ExecContext(
		ctx,
		query,
		record.ID,
		record.SourceURL,
		record.BugCount,
		record.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert import record: %w", err)
	}

	logger.Info("Bug import recorded",
		zap.String("import_id", record.ID),
		zap.Int("bug_count", record.BugCount),
	)

	return nil
}

func (c *Client) CountBugsByStatus(ctx context.Context, product string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM bug_reports WHERE product = ? GROUP BY status`

	rows, err := c.db.QueryContext(ctx, query, product)
	if err != nil {
		return nil, fmt.Errorf("failed to count bug reports: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
