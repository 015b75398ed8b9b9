package checkpoint

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLLog is a MySQL/MariaDB implementation of Log[S].
//
// Designed for:
//   - Production deployments requiring durable checkpoints
//   - Multiple worker processes sharing one checkpoint store
//
// Sequence assignment happens inside a transaction per Record call, which
// keeps per-thread sequences strictly increasing even across processes.
//
// DSN format (go-sql-driver/mysql):
//
//	user:password@tcp(localhost:3306)/research
//
// Never hardcode credentials; read the DSN from the environment.
type MySQLLog[S any] struct {
	db *sql.DB
}

// NewMySQLLog opens a pooled connection and prepares the schema.
func NewMySQLLog[S any](dsn string) (*MySQLLog[S], error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL: %w", err)
	}

	schema := `
		CREATE TABLE IF NOT EXISTS workflow_checkpoints (
			thread_id VARCHAR(255) NOT NULL,
			seq INT NOT NULL,
			step_name VARCHAR(255) NOT NULL,
			state JSON NOT NULL,
			created_at VARCHAR(64) NOT NULL,
			PRIMARY KEY (thread_id, seq)
		) ENGINE=InnoDB
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create workflow_checkpoints table: %w", err)
	}

	return &MySQLLog[S]{db: db}, nil
}

// Close releases the connection pool.
func (m *MySQLLog[S]) Close() error {
	return m.db.Close()
}

// Record assigns the next sequence number and inserts the checkpoint in a
// single transaction.
func (m *MySQLLog[S]) Record(ctx context.Context, threadID, step string, state S) (Checkpoint[S], error) {
	var zero Checkpoint[S]

	payload, err := json.Marshal(state)
	if err != nil {
		return zero, fmt.Errorf("failed to marshal state: %w", err)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return zero, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var seq int
	err = tx.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(seq) + 1, 0) FROM workflow_checkpoints WHERE thread_id = ? FOR UPDATE",
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
func (m *MySQLLog[S]) Latest(ctx context.Context, threadID string) (Checkpoint[S], error) {
	var zero Checkpoint[S]

	row := m.db.QueryRowContext(ctx,
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
func (m *MySQLLog[S]) History(ctx context.Context, threadID string) ([]Checkpoint[S], error) {
	rows, err := m.db.QueryContext(ctx,
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
