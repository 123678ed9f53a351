package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sandbox-svc/app/domains"
)

// Store represents the SQLite metadata store. It holds session
// bookkeeping and execution history; workspace content itself lives in
// volumes, never here.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite store
func NewStore(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &Store{db: db}

	// Run migrations
	if err := store.runMigrations(); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// runMigrations runs SQL migrations
func (s *Store) runMigrations() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			session_id TEXT PRIMARY KEY,
			volume_name TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			last_used_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_last_used ON sessions(last_used_at)`,
		`CREATE TABLE IF NOT EXISTS executions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			execution_id TEXT UNIQUE NOT NULL,
			session_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			command TEXT NOT NULL,
			exit_code INTEGER,
			timed_out INTEGER NOT NULL DEFAULT 0,
			duration_ms INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_executions_session ON executions(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// SessionRow is one persisted session.
type SessionRow struct {
	SessionID  string
	VolumeName string
	CreatedAt  time.Time
	LastUsedAt time.Time
}

// UpsertSession inserts the session or refreshes its last-used time.
func (s *Store) UpsertSession(ctx context.Context, sessionID, volumeName string) error {
	query := `
		INSERT INTO sessions (session_id, volume_name)
		VALUES (?, ?)
		ON CONFLICT(session_id) DO UPDATE SET last_used_at = CURRENT_TIMESTAMP
	`
	_, err := s.db.ExecContext(ctx, query, sessionID, volumeName)
	return err
}

// TouchSession refreshes the session's last-used time.
func (s *Store) TouchSession(ctx context.Context, sessionID string) error {
	query := `UPDATE sessions SET last_used_at = CURRENT_TIMESTAMP WHERE session_id = ?`
	_, err := s.db.ExecContext(ctx, query, sessionID)
	return err
}

// GetSession retrieves one session, or nil when unknown.
func (s *Store) GetSession(ctx context.Context, sessionID string) (*SessionRow, error) {
	query := `
		SELECT session_id, volume_name, created_at, last_used_at
		FROM sessions
		WHERE session_id = ?
	`

	var row SessionRow
	err := s.db.QueryRowContext(ctx, query, sessionID).Scan(
		&row.SessionID, &row.VolumeName, &row.CreatedAt, &row.LastUsedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListSessions retrieves all known sessions, most recently used first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionRow, error) {
	query := `
		SELECT session_id, volume_name, created_at, last_used_at
		FROM sessions
		ORDER BY last_used_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []SessionRow
	for rows.Next() {
		var row SessionRow
		if err := rows.Scan(&row.SessionID, &row.VolumeName, &row.CreatedAt, &row.LastUsedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, row)
	}

	return sessions, rows.Err()
}

// ListIdleSessions retrieves sessions unused for longer than idleHours.
func (s *Store) ListIdleSessions(ctx context.Context, idleHours int) ([]SessionRow, error) {
	query := `
		SELECT session_id, volume_name, created_at, last_used_at
		FROM sessions
		WHERE datetime(last_used_at, '+' || ? || ' hours') < datetime('now')
		ORDER BY last_used_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, idleHours)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []SessionRow
	for rows.Next() {
		var row SessionRow
		if err := rows.Scan(&row.SessionID, &row.VolumeName, &row.CreatedAt, &row.LastUsedAt); err != nil {
			return nil, err
		}
		sessions = append(sessions, row)
	}

	return sessions, rows.Err()
}

// DeleteSession removes the session and its execution history.
func (s *Store) DeleteSession(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM executions WHERE session_id = ?`, sessionID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE session_id = ?`, sessionID)
	return err
}

// RecordExecution saves one completed run.
func (s *Store) RecordExecution(ctx context.Context, rec domains.ExecutionRecord) error {
	query := `
		INSERT INTO executions (execution_id, session_id, kind, command, exit_code, timed_out, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(execution_id) DO NOTHING
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ExecutionID, rec.SessionID, rec.Kind, rec.Command, rec.ExitCode, rec.TimedOut, rec.DurationMs,
	)
	return err
}

// ListExecutions retrieves the most recent runs for a session.
func (s *Store) ListExecutions(ctx context.Context, sessionID string, limit int) ([]domains.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, execution_id, session_id, kind, command, exit_code, timed_out, duration_ms, created_at
		FROM executions
		WHERE session_id = ?
		ORDER BY id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, sessionID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domains.ExecutionRecord
	for rows.Next() {
		var rec domains.ExecutionRecord
		err := rows.Scan(
			&rec.ID, &rec.ExecutionID, &rec.SessionID, &rec.Kind, &rec.Command,
			&rec.ExitCode, &rec.TimedOut, &rec.DurationMs, &rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	return records, rows.Err()
}

// CleanupOldExecutions deletes runs older than the specified hours.
func (s *Store) CleanupOldExecutions(ctx context.Context, olderThanHours int) error {
	query := `
		DELETE FROM executions
		WHERE datetime(created_at, '+' || ? || ' hours') < datetime('now')
	`
	_, err := s.db.ExecContext(ctx, query, olderThanHours)
	return err
}
