package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteLog is a SQLite implementation of Log[S].
//
// It stores checkpoints in a single-file database. Designed for:
//   - Development and testing with zero setup
//   - Single-process deployments requiring checkpoint durability
//
// WAL mode is enabled so readers don't block the writer. State payloads
// are serialized as JSON.
//
// Schema:
//   - workflow_checkpoints(thread_id, seq, step_name, state, created_at)
//     with primary key (thread_id, seq)
type SQLiteLog[S any] struct {
	db *sql.DB
}

// NewSQLiteLog opens (or creates) the database at path and prepares the
// schema. Use ":memory:" for an in-memory database in tests.
func NewSQLiteLog[S any](path string) (*SQLiteLog[S], error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite connection: %w", err)
	}

	// SQLite supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx := context.Background()
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %s: %w", pragma, err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS workflow_checkpoints (
			thread_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			step_name TEXT NOT NULL,
			state TEXT NOT NULL,
			created_at TEXT NOT NULL,
			PRIMARY KEY (thread_id, seq)
		)
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create workflow_checkpoints table: %w", err)
	}

	return &SQLiteLog[S]{db: db}, nil
}

// Close releases the database connection.
func (s *SQLiteLog[S]) Close() error {
	return s.db.Close()
}

// Record assigns the next sequence number and inserts the checkpoint in a
// single transaction, keeping per-thread sequences strictly increasing
// even with concurrent threads sharing the store.
func (s *SQLiteLog[S]) Record(ctx context.Context, threadID, step string, state S) (Checkpoint[S], error) {
	var zero Checkpoint[S]

	payload, err := json.Marshal(state)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq) + 1, 0) FROM workflow_checkpoints WHERE thread_id = ?",
		threadID,
	).Scan(&seq)
	if err != nil {
		return zero, fmt.Errorf("failed to assign sequence number: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		"INSERT INTO workflow_checkpoints (thread_id, seq, step_name, state, created_at) VALUES (?, ?, ?, ?, ?)",
		threadID, seq, step, string(payload), now.Format(time.RFC3339Nano),
	)
	if err != nil {
		return zero, fmt.Errorf("failed to insert checkpoint: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return zero, fmt.Errorf("failed to commit checkpoint: %w", err)
	}

	return Checkpoint[S]{
		ThreadID:  threadID,
		Seq:       seq,
		Step:      step,
		State:     state,
		CreatedAt: now,
	}, nil
}

// Latest returns the highest-sequence checkpoint for the thread.
func (s *SQLiteLog[S]) Latest(ctx context.Context, threadID string) (Checkpoint[S], error) {
	var zero Checkpoint[S]

	row := s.db.QueryRowContext(ctx,
		"SELECT seq, step_name, state, created_at FROM workflow_checkpoints WHERE thread_id = ? ORDER BY seq DESC LIMIT 1",
		threadID,
	)

	cp, err := scanCheckpoint[S](threadID, row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, ErrNotFound
		}
		return zero, err
	}
	return cp, nil
}

// History returns all checkpoints for the thread, oldest first.
func (s *SQLiteLog[S]) History(ctx context.Context, threadID string) ([]Checkpoint[S], error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, step_name, state, created_at FROM workflow_checkpoints WHERE thread_id = ? ORDER BY seq ASC",
		threadID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoint history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Checkpoint[S]
	for rows.Next() {
		cp, err := scanCheckpoint[S](threadID, rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read checkpoint rows: %w", err)
	}
	return out, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCheckpoint[S any](threadID string, row rowScanner) (Checkpoint[S], error) {
	var zero Checkpoint[S]
	var (
		seq       int
		step      string
		payload   string
		createdAt string
	)
	if err := row.Scan(&seq, &step, &payload, &createdAt); err != nil {
		return zero, err
	}

	var state S
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return zero, fmt.Errorf("failed to unmarshal state: %w", err)
	}

	ts, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return zero, fmt.Errorf("failed to parse checkpoint timestamp: %w", err)
	}

	return Checkpoint[S]{
		ThreadID:  threadID,
		Seq:       seq,
		Step:      step,
		State:     state,
		CreatedAt: ts,
	}, nil
}
