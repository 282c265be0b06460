// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/goalwriter/internal/events"
	"github.com/pdiddy/goalwriter/pkg/types"
)

// SQLiteStore keeps documents and the event log in one SQLite database.
// It satisfies both DocumentStore and events.Sink.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database at path and its schema. The
// special path ":memory:" opens a private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	}

	s := &SQLiteStore{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			user_id TEXT PRIMARY KEY,
			goal_structure TEXT,
			editor_text TEXT,
			updated_at TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			details_json TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_user_id ON events(user_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Load returns the user's document, or nil when none has been saved.
func (s *SQLiteStore) Load(ctx context.Context, userID string) (*types.Document, error) {
	if userID == "" {
		return nil, ErrNoUser
	}
	var goal, text sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT goal_structure, editor_text FROM documents WHERE user_id = ?`, userID,
	).Scan(&goal, &text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading document for %s: %w", userID, err)
	}

	doc := types.NewDocument()
	doc.EditorText = text.String
	if goal.Valid && goal.String != "" {
		g, err := decodeGoalStructure([]byte(goal.String))
		if err != nil {
			return nil, fmt.Errorf("loading document for %s: %w", userID, err)
		}
		doc.GoalStructure = g
	}
	return doc, nil
}

// Save upserts the non-nil patch fields.
func (s *SQLiteStore) Save(ctx context.Context, userID string, patch types.DocumentPatch) error {
	if userID == "" {
		return ErrNoUser
	}
	var goal, text sql.NullString
	if patch.GoalStructure != nil {
		data, err := json.Marshal(patch.GoalStructure)
		if err != nil {
			return fmt.Errorf("encoding goal structure: %w", err)
		}
		goal = sql.NullString{String: string(data), Valid: true}
	}
	if patch.EditorText != nil {
		text = sql.NullString{String: *patch.EditorText, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (user_id, goal_structure, editor_text, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			goal_structure = COALESCE(excluded.goal_structure, documents.goal_structure),
			editor_text = COALESCE(excluded.editor_text, documents.editor_text),
			updated_at = excluded.updated_at`,
		userID, goal, text, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("saving document for %s: %w", userID, err)
	}
	return nil
}

// Append writes one event row.
func (s *SQLiteStore) Append(ctx context.Context, e events.Event) error {
	details, err := json.Marshal(e.Details)
	if err != nil {
		return fmt.Errorf("encoding event details: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO events (ts, user_id, name, details_json) VALUES (?, ?, ?, ?)`,
		e.At.UTC().Format(time.RFC3339Nano), e.UserID, e.Name, string(details),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// Events returns a user's events oldest first.
func (s *SQLiteStore) Events(ctx context.Context, userID string) ([]events.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, user_id, name, details_json FROM events WHERE user_id = ? ORDER BY id`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var out []events.Event
	for rows.Next() {
		var (
			e       events.Event
			ts      string
			details string
		)
		if err := rows.Scan(&e.ID, &ts, &e.UserID, &e.Name, &details); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		e.At, _ = time.Parse(time.RFC3339Nano, ts)
		if details != "" && details != "null" {
			if err := json.Unmarshal([]byte(details), &e.Details); err != nil {
				return nil, fmt.Errorf("decoding event %d: %w", e.ID, err)
			}
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
