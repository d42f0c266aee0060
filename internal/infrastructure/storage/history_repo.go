// Package storage provides SQLite-based persistence for reload history.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/swiftwire/swiftwire/internal/application/ports"
	"github.com/swiftwire/swiftwire/internal/domain/change"
	domainErrors "github.com/swiftwire/swiftwire/internal/domain/errors"
	"github.com/swiftwire/swiftwire/internal/domain/reload"
)

// Compile-time check that HistoryRepository implements the HistoryStore port.
var _ ports.HistoryStore = (*HistoryRepository)(nil)

const historySchema = `
CREATE TABLE IF NOT EXISTS reload_history (
	cycle_id       TEXT PRIMARY KEY,
	success        INTEGER NOT NULL,
	strategy       TEXT NOT NULL,
	classification TEXT NOT NULL,
	file_count     INTEGER NOT NULL,
	duration_ms    INTEGER NOT NULL,
	started_at     TEXT NOT NULL,
	errors         TEXT,
	warnings       TEXT
);
CREATE INDEX IF NOT EXISTS idx_reload_history_started_at ON reload_history(started_at);
`

// HistoryRepository persists reload results in SQLite. The in-memory
// bounded history remains the source of truth; this repository exists so
// history survives restarts.
type HistoryRepository struct {
	db *sql.DB
}

// NewHistoryRepository opens (or creates) the history database at path.
func NewHistoryRepository(path string) (*HistoryRepository, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeStorage, "failed to open history database", err)
	}
	if _, err := db.Exec(historySchema); err != nil {
		db.Close()
		return nil, domainErrors.NewError(domainErrors.CodeStorage, "failed to initialize history schema", err)
	}
	return &HistoryRepository{db: db}, nil
}

// Save persists one reload result.
func (r *HistoryRepository) Save(ctx context.Context, result reload.Result) error {
	if result.CycleID == "" {
		return domainErrors.NewError(domainErrors.CodeValidation, "cycle ID is required", nil)
	}

	errorsJSON, err := json.Marshal(result.Errors)
	if err != nil {
		return fmt.Errorf("failed to marshal errors: %w", err)
	}
	warningsJSON, err := json.Marshal(result.Warnings)
	if err != nil {
		return fmt.Errorf("failed to marshal warnings: %w", err)
	}

	query := `
		INSERT OR REPLACE INTO reload_history
			(cycle_id, success, strategy, classification, file_count, duration_ms, started_at, errors, warnings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		result.CycleID,
		boolToInt(result.Success),
		string(result.Strategy),
		string(result.Classification),
		result.FileCount,
		result.Duration.Milliseconds(),
		result.StartedAt.UTC().Format(time.RFC3339Nano),
		string(errorsJSON),
		string(warningsJSON),
	)
	if err != nil {
		return domainErrors.NewError(domainErrors.CodeStorage, "failed to save reload result", err)
	}
	return nil
}

// Recent returns up to limit results, most recent first.
func (r *HistoryRepository) Recent(ctx context.Context, limit int) ([]reload.Result, error) {
	if limit <= 0 {
		limit = reload.DefaultHistoryCapacity
	}

	query := `
		SELECT cycle_id, success, strategy, classification, file_count, duration_ms, started_at, errors, warnings
		FROM reload_history
		ORDER BY started_at DESC
		LIMIT ?
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, domainErrors.NewError(domainErrors.CodeStorage, "failed to query reload history", err)
	}
	defer rows.Close()

	var results []reload.Result
	for rows.Next() {
		var (
			result       reload.Result
			success      int
			strategy     string
			class        string
			durationMS   int64
			startedAt    string
			errorsJSON   sql.NullString
			warningsJSON sql.NullString
		)
		if err := rows.Scan(&result.CycleID, &success, &strategy, &class,
			&result.FileCount, &durationMS, &startedAt, &errorsJSON, &warningsJSON); err != nil {
			return nil, domainErrors.NewError(domainErrors.CodeStorage, "failed to scan reload result", err)
		}

		result.Success = success != 0
		result.Strategy = reload.Strategy(strategy)
		result.Classification = change.Classification(class)
		result.Duration = time.Duration(durationMS) * time.Millisecond
		if t, err := time.Parse(time.RFC3339Nano, startedAt); err == nil {
			result.StartedAt = t
		}
		if errorsJSON.Valid && errorsJSON.String != "" {
			_ = json.Unmarshal([]byte(errorsJSON.String), &result.Errors)
		}
		if warningsJSON.Valid && warningsJSON.String != "" {
			_ = json.Unmarshal([]byte(warningsJSON.String), &result.Warnings)
		}
		results = append(results, result)
	}
	return results, rows.Err()
}

// Close closes the underlying database.
func (r *HistoryRepository) Close() error {
	return r.db.Close()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
