package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed width so stored UTC timestamps compare correctly as
// strings in SQL.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

const sessionSchema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id    TEXT PRIMARY KEY,
	user_id       TEXT,
	created_at    TEXT NOT NULL,
	last_accessed TEXT NOT NULL,
	metadata      TEXT NOT NULL,
	context       TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_last_accessed ON sessions(last_accessed);
`

// SQLiteBackend is a durable Backend backed by modernc.org/sqlite (pure Go,
// no cgo). Sessions survive process restarts.
//
// The connection pool is limited to one connection; combined with WAL mode
// this gives safe concurrent use from multiple goroutines.
type SQLiteBackend struct {
	db *sql.DB
}

// NewSQLiteBackend opens (or creates) the database at path and prepares the
// schema. Use ":memory:" for an ephemeral database in tests.
func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(sessionSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create sessions schema: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// Put inserts or replaces the session.
func (b *SQLiteBackend) Put(ctx context.Context, s Session) error {
	metadata, err := json.Marshal(s.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	sessionCtx, err := json.Marshal(s.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	_, err = b.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions
			(session_id, user_id, created_at, last_accessed, metadata, context)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.UserID,
		s.CreatedAt.UTC().Format(timeLayout),
		s.LastAccessed.UTC().Format(timeLayout),
		string(metadata), string(sessionCtx),
	)
	if err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Get returns the session or ErrNotFound.
func (b *SQLiteBackend) Get(ctx context.Context, id string) (Session, error) {
	row := b.db.QueryRowContext(ctx, `
		SELECT session_id, user_id, created_at, last_accessed, metadata, context
		FROM sessions WHERE session_id = ?`, id)

	s, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	if err != nil {
		return Session{}, fmt.Errorf("failed to load session: %w", err)
	}
	return s, nil
}

// Delete removes the session, reporting whether it existed.
func (b *SQLiteBackend) Delete(ctx context.Context, id string) (bool, error) {
	res, err := b.db.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", id)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return n > 0, nil
}

// ListByUser returns the user's sessions, most recently accessed first.
func (b *SQLiteBackend) ListByUser(ctx context.Context, userID string) ([]Session, error) {
	rows, err := b.db.QueryContext(ctx, `
		SELECT session_id, user_id, created_at, last_accessed, metadata, context
		FROM sessions WHERE user_id = ?
		ORDER BY last_accessed DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return out, nil
}

// DeleteExpiredBefore removes sessions last accessed before cutoff.
func (b *SQLiteBackend) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := b.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE last_accessed < ?",
		cutoff.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}
	return int(n), nil
}

// Count returns stored session and distinct user counts.
func (b *SQLiteBackend) Count(ctx context.Context) (int, int, error) {
	var sessions, users int
	err := b.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT user_id)
		FROM sessions WHERE user_id IS NOT NULL AND user_id != ''`).Scan(&sessions, &users)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count sessions: %w", err)
	}
	var anonymous int
	err = b.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE user_id IS NULL OR user_id = ''").Scan(&anonymous)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count anonymous sessions: %w", err)
	}
	return sessions + anonymous, users, nil
}

// Kind identifies the backend.
func (b *SQLiteBackend) Kind() string { return "sqlite" }

// Close closes the database.
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (Session, error) {
	var s Session
	var createdAt, lastAccessed, metadata, sessionCtx string
	if err := row.Scan(&s.ID, &s.UserID, &createdAt, &lastAccessed, &metadata, &sessionCtx); err != nil {
		return Session{}, err
	}

	var err error
	s.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return Session{}, fmt.Errorf("invalid created_at %q: %w", createdAt, err)
	}
	s.LastAccessed, err = time.Parse(timeLayout, lastAccessed)
	if err != nil {
		return Session{}, fmt.Errorf("invalid last_accessed %q: %w", lastAccessed, err)
	}
	if err := json.Unmarshal([]byte(metadata), &s.Metadata); err != nil {
		return Session{}, fmt.Errorf("invalid metadata: %w", err)
	}
	if err := json.Unmarshal([]byte(sessionCtx), &s.Context); err != nil {
		return Session{}, fmt.Errorf("invalid context: %w", err)
	}
	return s, nil
}
