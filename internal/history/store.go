// Package history persists the record of completed pairings. The relay only
// writes at the moment a join succeeds; reads serve the past-sessions API.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	initiator  TEXT NOT NULL,
	responder  TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_initiator ON sessions (initiator);
CREATE INDEX IF NOT EXISTS idx_sessions_responder ON sessions (responder);
`

// Record is one past pairing.
type Record struct {
	ID        int64     `json:"id"`
	Initiator string    `json:"initiator"`
	Responder string    `json:"responder"`
	CreatedAt time.Time `json:"created_at"`
}

// Store provides SQLite-backed persistence for past sessions.
type Store struct {
	sqlDB *sql.DB
}

// Open opens and prepares a history SQLite store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history path is required")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// RecordSession appends one pairing and returns its id.
func (s *Store) RecordSession(ctx context.Context, initiatorName, responderName string) (int64, error) {
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("history is not configured")
	}
	res, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO sessions (initiator, responder, created_at) VALUES (?, ?, ?)`,
		initiatorName, responderName, time.Now().UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("record session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("record session id: %w", err)
	}
	return id, nil
}

// ListSessions returns every pairing the named participant took part in,
// on either side, newest first. Name matching is case-insensitive.
func (s *Store) ListSessions(ctx context.Context, participantName string) ([]Record, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("history is not configured")
	}
	name := strings.ToLower(strings.TrimSpace(participantName))
	if name == "" {
		return nil, fmt.Errorf("participant name is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, initiator, responder, created_at
		 FROM sessions
		 WHERE LOWER(initiator) = ? OR LOWER(responder) = ?
		 ORDER BY created_at DESC, id DESC`,
		name, name,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.Initiator, &rec.Responder, &createdAt); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return out, nil
}

// DeleteSession removes one pairing by id. Returns false when no row matched.
func (s *Store) DeleteSession(ctx context.Context, id int64) (bool, error) {
	if s == nil || s.sqlDB == nil {
		return false, fmt.Errorf("history is not configured")
	}
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete session rows: %w", err)
	}
	return n > 0, nil
}
