package state

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rommsync/rommsync/internal/domain"
)

// DBFileName is the history database file inside the data directory
const DBFileName = "rommsync.db"

// Manager persists the history of sync runs
type Manager struct {
	db *sql.DB
}

// RunRecord represents a single executed sync run
type RunRecord struct {
	ID         int64
	RunID      string
	Direction  domain.SyncDirection
	StartTime  time.Time
	EndTime    time.Time
	Status     string // "success", "failed", "partial"
	Uploaded   int
	Downloaded int
	Skipped    int
	Errors     []string
}

// NewManager opens or creates the history database in dataDir
func NewManager(dataDir string) (*Manager, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dataDir, DBFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Limit connection pool to prevent "database is locked" errors
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA busy_timeout=5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode and busy timeout: %w", err)
	}

	manager := &Manager{db: db}
	if err := manager.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return manager, nil
}

func (m *Manager) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL UNIQUE,
		direction TEXT NOT NULL,
		start_time TIMESTAMP NOT NULL,
		end_time TIMESTAMP NOT NULL,
		status TEXT NOT NULL,
		uploaded INTEGER DEFAULT 0,
		downloaded INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		errors TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_runs_start ON runs(start_time DESC);
	CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
	`

	_, err := m.db.Exec(schema)
	return err
}

// SaveRun records a sync run
func (m *Manager) SaveRun(record RunRecord) error {
	switch record.Status {
	case domain.StatusSuccess, domain.StatusFailed, domain.StatusPartial:
	default:
		return fmt.Errorf("invalid status: %s (must be 'success', 'failed', or 'partial')", record.Status)
	}
	if record.RunID == "" {
		return fmt.Errorf("run id cannot be empty")
	}

	query := `
		INSERT INTO runs (run_id, direction, start_time, end_time, status, uploaded, downloaded, skipped, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := m.db.Exec(query,
		record.RunID,
		string(record.Direction),
		record.StartTime,
		record.EndTime,
		record.Status,
		record.Uploaded,
		record.Downloaded,
		record.Skipped,
		strings.Join(record.Errors, "\n"),
	)
	if err != nil {
		return fmt.Errorf("failed to save run record: %w", err)
	}

	return nil
}

// RecordResult stores the outcome of an executed sync
func (m *Manager) RecordResult(result domain.SyncResult) error {
	start := result.StartTime
	if start.IsZero() {
		start = time.Now().Add(-result.Duration)
	}

	return m.SaveRun(RunRecord{
		RunID:      result.RunID,
		Direction:  result.Direction,
		StartTime:  start,
		EndTime:    start.Add(result.Duration),
		Status:     result.Status(),
		Uploaded:   result.Uploaded,
		Downloaded: result.Downloaded,
		Skipped:    result.Skipped,
		Errors:     result.Errors,
	})
}

const selectRuns = `
	SELECT id, run_id, direction, start_time, end_time, status, uploaded, downloaded, skipped, errors
	FROM runs
`

// GetHistory returns the most recent runs, newest first
func (m *Manager) GetHistory(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := m.db.Query(selectRuns+`ORDER BY start_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return collect(rows)
}

// GetHistoryByDirection returns the most recent runs of one direction, newest first
func (m *Manager) GetHistoryByDirection(direction domain.SyncDirection, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	rows, err := m.db.Query(selectRuns+`WHERE direction = ? ORDER BY start_time DESC LIMIT ?`, string(direction), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	return collect(rows)
}

// GetLastSuccess returns the last successful run, or nil when there is none
func (m *Manager) GetLastSuccess() (*RunRecord, error) {
	rows, err := m.db.Query(selectRuns+`WHERE status = ? ORDER BY start_time DESC LIMIT 1`, domain.StatusSuccess)
	if err != nil {
		return nil, fmt.Errorf("failed to query last success: %w", err)
	}

	records, err := collect(rows)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}
	return &records[0], nil
}

func collect(rows *sql.Rows) ([]RunRecord, error) {
	defer rows.Close()

	var records []RunRecord
	for rows.Next() {
		var (
			record    RunRecord
			direction string
			errText   sql.NullString
		)
		err := rows.Scan(
			&record.ID,
			&record.RunID,
			&direction,
			&record.StartTime,
			&record.EndTime,
			&record.Status,
			&record.Uploaded,
			&record.Downloaded,
			&record.Skipped,
			&errText,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		record.Direction = domain.SyncDirection(direction)
		if errText.Valid && errText.String != "" {
			record.Errors = strings.Split(errText.String, "\n")
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

// Close closes the database connection
func (m *Manager) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}
