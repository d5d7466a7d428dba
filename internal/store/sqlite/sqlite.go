// internal/store/sqlite/sqlite.go
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/user/storyloom/internal/store"
	"github.com/user/storyloom/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id           TEXT PRIMARY KEY,
	title        TEXT NOT NULL,
	characters   INTEGER NOT NULL,
	history_len  INTEGER NOT NULL,
	last_updated TEXT NOT NULL,
	record       BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_last_updated ON sessions (last_updated DESC);
`

// Store is a SQLite-backed session store. The full session record is kept
// as a JSON blob; a few columns are denormalized for listing.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single writer keeps transactions from contending with each other.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save upserts the session record inside a transaction, so a reader never
// observes a partial record and a failed save leaves the previous row intact.
func (s *Store) Save(ctx context.Context, session *types.StorySession) error {
	record := session.Clone()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}
	sum := store.Summarize(record)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save tx: %w", err)
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sessions (id, title, characters, history_len, last_updated, record)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			characters = excluded.characters,
			history_len = excluded.history_len,
			last_updated = excluded.last_updated,
			record = excluded.record`,
		string(sum.ID), sum.Title, sum.Characters, sum.HistoryLen,
		sum.LastUpdated.Format(time.RFC3339Nano), data)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("upsert session %s: %w", session.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit session %s: %w", session.ID, err)
	}
	return nil
}

// Load reads the session record for the given ID.
func (s *Store) Load(ctx context.Context, id types.SessionID) (*types.StorySession, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT record FROM sessions WHERE id = ?`, string(id)).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session %s: %w", id, err)
	}

	var session types.StorySession
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, &store.CorruptError{ID: id, Err: err}
	}
	if session.ID == "" || session.World == nil {
		return nil, &store.CorruptError{ID: id, Err: fmt.Errorf("record missing id or world")}
	}
	return &session, nil
}

// List returns session summaries, newest first.
func (s *Store) List(ctx context.Context) ([]types.SessionSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, characters, history_len, last_updated
		FROM sessions ORDER BY last_updated DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []types.SessionSummary
	for rows.Next() {
		var sum types.SessionSummary
		var id, updated string
		if err := rows.Scan(&id, &sum.Title, &sum.Characters, &sum.HistoryLen, &updated); err != nil {
			return nil, fmt.Errorf("scan session row: %w", err)
		}
		sum.ID = types.SessionID(id)
		if sum.LastUpdated, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("parse last_updated for %s: %w", id, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the session row for the given ID.
func (s *Store) Delete(ctx context.Context, id types.SessionID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, string(id))
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return store.ErrNotFound
	}
	return nil
}
