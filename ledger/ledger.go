// Package ledger records migration runs and per-record outcomes in SQLite so
// repeated runs can skip records that already reached the target.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/ledgerlift/erp-migrator/types"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
)

type ILedgerClient interface {
	StartRun(ctx context.Context, sourceDocType types.SourceDocType, targetDocType types.TargetDocType) (string, error)
	RecordOutcome(ctx context.Context, outcome types.RecordOutcome) error
	IsMigrated(ctx context.Context, targetDocType types.TargetDocType, sourceKey string) (bool, error)
	CompleteRun(ctx context.Context, summary types.RunSummary) error
}

type Run struct {
	ID            string
	SourceDocType types.SourceDocType
	TargetDocType types.TargetDocType
	Status        string
	Total         int
	Succeeded     int
	Failed        int
	Invalid       int
	Skipped       int
	StartedAt     time.Time
	CompletedAt   *time.Time
}

type LedgerClient struct {
	db     *sql.DB
	Now    func() time.Time
	Logger *logrus.Logger
}

// Open opens or creates the ledger database at path.
func Open(path string, logger *logrus.Logger) (*LedgerClient, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect ledger: %w", err)
	}
	// SQLite serializes writers.
	db.SetMaxOpenConns(1)

	if err := createTables(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("create ledger tables: %w", err)
	}

	return &LedgerClient{
		db:     db,
		Now:    time.Now,
		Logger: logger,
	}, nil
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS migration_runs (
		id TEXT PRIMARY KEY,
		source_doctype TEXT NOT NULL,
		target_doctype TEXT NOT NULL,
		status TEXT NOT NULL,
		total INTEGER DEFAULT 0,
		succeeded INTEGER DEFAULT 0,
		failed INTEGER DEFAULT 0,
		invalid INTEGER DEFAULT 0,
		skipped INTEGER DEFAULT 0,
		started_at TEXT NOT NULL,
		completed_at TEXT
	);

	CREATE TABLE IF NOT EXISTS record_outcomes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		source_doctype TEXT NOT NULL,
		target_doctype TEXT NOT NULL,
		source_key TEXT NOT NULL,
		target_name TEXT,
		status TEXT NOT NULL,
		error_message TEXT,
		created_at TEXT NOT NULL,
		FOREIGN KEY (run_id) REFERENCES migration_runs(id)
	);

	CREATE INDEX IF NOT EXISTS idx_record_outcomes_key
		ON record_outcomes (target_doctype, source_key, status);
	`

	_, err := db.Exec(schema)
	return err
}

func (ledgerClient *LedgerClient) Close() error {
	return ledgerClient.db.Close()
}

func (ledgerClient *LedgerClient) StartRun(ctx context.Context, sourceDocType types.SourceDocType, targetDocType types.TargetDocType) (string, error) {
	runID := uuid.NewString()
	query := `
	INSERT INTO migration_runs (id, source_doctype, target_doctype, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := ledgerClient.db.ExecContext(ctx, query,
		runID,
		string(sourceDocType),
		string(targetDocType),
		RunStatusRunning,
		formatTime(ledgerClient.Now()),
	)
	if err != nil {
		return "", fmt.Errorf("start run: %w", err)
	}

	ledgerClient.Logger.Debugf("Started run %s (%s -> %s)", runID, sourceDocType, targetDocType)
	return runID, nil
}

func (ledgerClient *LedgerClient) RecordOutcome(ctx context.Context, outcome types.RecordOutcome) error {
	createdAt := outcome.CreatedAt
	if createdAt.IsZero() {
		createdAt = ledgerClient.Now()
	}
	query := `
	INSERT INTO record_outcomes (run_id, source_doctype, target_doctype, source_key, target_name, status, error_message, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := ledgerClient.db.ExecContext(ctx, query,
		outcome.RunID,
		string(outcome.SourceDocType),
		string(outcome.TargetDocType),
		outcome.SourceKey,
		outcome.TargetName,
		string(outcome.Status),
		outcome.ErrorMessage,
		formatTime(createdAt),
	)
	if err != nil {
		return fmt.Errorf("record outcome for %s: %w", outcome.SourceKey, err)
	}
	return nil
}

// IsMigrated reports whether any run recorded a successful outcome for the
// source key and target doc type.
func (ledgerClient *LedgerClient) IsMigrated(ctx context.Context, targetDocType types.TargetDocType, sourceKey string) (bool, error) {
	query := `
	SELECT COUNT(*) FROM record_outcomes
		WHERE target_doctype = ? AND source_key = ? AND status = ?
	`

	var count int
	err := ledgerClient.db.QueryRowContext(ctx, query, string(targetDocType), sourceKey, string(types.OutcomeStatusSuccess)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("lookup %s %s: %w", targetDocType, sourceKey, err)
	}
	return count > 0, nil
}

func (ledgerClient *LedgerClient) CompleteRun(ctx context.Context, summary types.RunSummary) error {
	query := `
	UPDATE migration_runs
		SET status = ?, total = ?, succeeded = ?, failed = ?, invalid = ?, skipped = ?, completed_at = ?
		WHERE id = ?
	`

	result, err := ledgerClient.db.ExecContext(ctx, query,
		RunStatusCompleted,
		summary.Total,
		summary.Succeeded,
		summary.Failed,
		summary.Invalid,
		summary.Skipped,
		formatTime(ledgerClient.Now()),
		summary.RunID,
	)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", summary.RunID, err)
	}
	if rows, err := result.RowsAffected(); err == nil && rows == 0 {
		return fmt.Errorf("complete run %s: run not found", summary.RunID)
	}
	return nil
}

func (ledgerClient *LedgerClient) GetRun(ctx context.Context, runID string) (Run, error) {
	query := `
	SELECT id, source_doctype, target_doctype, status, total, succeeded, failed, invalid, skipped, started_at, completed_at
		FROM migration_runs WHERE id = ?
	`

	var (
		run         Run
		startedAt   string
		completedAt sql.NullString
	)
	err := ledgerClient.db.QueryRowContext(ctx, query, runID).Scan(
		&run.ID,
		&run.SourceDocType,
		&run.TargetDocType,
		&run.Status,
		&run.Total,
		&run.Succeeded,
		&run.Failed,
		&run.Invalid,
		&run.Skipped,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return Run{}, fmt.Errorf("get run %s: %w", runID, err)
	}

	run.StartedAt = parseTime(startedAt)
	if completedAt.Valid {
		completed := parseTime(completedAt.String)
		run.CompletedAt = &completed
	}
	return run, nil
}

func (ledgerClient *LedgerClient) GetOutcomes(ctx context.Context, runID string) ([]types.RecordOutcome, error) {
	query := `
	SELECT run_id, source_doctype, target_doctype, source_key, target_name, status, error_message, created_at
		FROM record_outcomes WHERE run_id = ? ORDER BY id
	`

	rows, err := ledgerClient.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("get outcomes of run %s: %w", runID, err)
	}
	defer rows.Close()

	var outcomes []types.RecordOutcome
	for rows.Next() {
		var (
			outcome      types.RecordOutcome
			targetName   sql.NullString
			errorMessage sql.NullString
			createdAt    string
		)
		err := rows.Scan(
			&outcome.RunID,
			&outcome.SourceDocType,
			&outcome.TargetDocType,
			&outcome.SourceKey,
			&targetName,
			&outcome.Status,
			&errorMessage,
			&createdAt,
		)
		if err != nil {
			return nil, err
		}
		outcome.TargetName = targetName.String
		outcome.ErrorMessage = errorMessage.String
		outcome.CreatedAt = parseTime(createdAt)
		outcomes = append(outcomes, outcome)
	}
	return outcomes, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
