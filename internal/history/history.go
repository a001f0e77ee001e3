// Package history persists conversation turns and their extracted actions
// to a local SQLite database, so a restarted chat can show what happened.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"contentpilot/internal/action"
	"contentpilot/internal/logging"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS turns (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	user_message   TEXT NOT NULL,
	assistant_text TEXT NOT NULL,
	created_at     TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS actions (
	id          TEXT PRIMARY KEY,
	turn_id     INTEGER NOT NULL REFERENCES turns(id) ON DELETE CASCADE,
	kind        TEXT NOT NULL,
	description TEXT NOT NULL,
	payload     TEXT NOT NULL,
	created_at  TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS actions_turn_idx ON actions(turn_id);
`

// TurnRecord is one persisted exchange.
type TurnRecord struct {
	ID            int64
	UserMessage   string
	AssistantText string
	CreatedAt     time.Time
	Actions       []action.Action
}

// Store is the SQLite-backed history store.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path, creating parent
// directories as needed.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create history dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}

	// Single writer with WAL keeps readers unblocked during saves.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma failed: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}

	logging.L(logging.CategorySession).Debug("history store opened")
	return &Store{db: db}, nil
}

// SaveTurn persists one exchange and its actions atomically.
func (s *Store) SaveTurn(ctx context.Context, userMessage, assistantText string, actions []action.Action) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin failed: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx,
		`INSERT INTO turns (user_message, assistant_text, created_at) VALUES (?, ?, ?)`,
		userMessage, assistantText, now)
	if err != nil {
		return fmt.Errorf("insert turn failed: %w", err)
	}
	turnID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get turn id: %w", err)
	}

	for _, a := range actions {
		payload, err := json.Marshal(a.Payload)
		if err != nil {
			return fmt.Errorf("failed to encode payload: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO actions (id, turn_id, kind, description, payload, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			a.ID, turnID, string(a.Kind), a.Description, string(payload), now); err != nil {
			return fmt.Errorf("insert action failed: %w", err)
		}
	}

	return tx.Commit()
}

// RecentTurns returns the latest n turns, oldest first, actions included.
func (s *Store) RecentTurns(ctx context.Context, n int) ([]TurnRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_message, assistant_text, created_at
		FROM turns ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("query turns failed: %w", err)
	}
	defer rows.Close()

	var turns []TurnRecord
	for rows.Next() {
		var t TurnRecord
		if err := rows.Scan(&t.ID, &t.UserMessage, &t.AssistantText, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan turn failed: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Reverse into chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}

	for i := range turns {
		actions, err := s.turnActions(ctx, turns[i].ID)
		if err != nil {
			return nil, err
		}
		turns[i].Actions = actions
	}
	return turns, nil
}

func (s *Store) turnActions(ctx context.Context, turnID int64) ([]action.Action, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, description, payload
		FROM actions WHERE turn_id = ? ORDER BY rowid`, turnID)
	if err != nil {
		return nil, fmt.Errorf("query actions failed: %w", err)
	}
	defer rows.Close()

	var out []action.Action
	for rows.Next() {
		var (
			a       action.Action
			kind    string
			payload string
		)
		if err := rows.Scan(&a.ID, &kind, &a.Description, &payload); err != nil {
			return nil, fmt.Errorf("scan action failed: %w", err)
		}
		a.Kind = action.Kind(kind)
		if err := json.Unmarshal([]byte(payload), &a.Payload); err != nil {
			return nil, fmt.Errorf("corrupt payload for %s: %w", a.ID, err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
