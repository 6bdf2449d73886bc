package memory

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS messages (
	seq          INTEGER PRIMARY KEY AUTOINCREMENT,
	id           TEXT NOT NULL UNIQUE,
	role         TEXT NOT NULL CHECK (role IN ('user', 'assistant', 'tool', 'system')),
	content      TEXT,
	tool_call_id TEXT,
	tool_calls   TEXT,
	refusal      TEXT,
	annotations  TEXT NOT NULL DEFAULT '[]',
	created_at   TEXT NOT NULL
)`

// createdAtLayout is fixed-width so lexical order on the column equals time order.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore keeps the conversation in a SQLite database file.
type SQLiteStore struct {
	db    *sql.DB
	clock Clock
}

// OpenSQLite opens (creating if needed) the database at path.
// Use ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, storeErr("open", err)
	}
	// One connection: single writer, and ":memory:" stays one database.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, storeErr("migrate", err)
	}
	return &SQLiteStore{db: db}, nil
}

// WithClock overrides the timestamp source; intended for tests.
func (s *SQLiteStore) WithClock(c Clock) *SQLiteStore {
	s.clock = c
	return s
}

// Append writes msgs in one transaction. Any row failure rolls back the batch.
func (s *SQLiteStore) Append(ctx context.Context, msgs ...Message) ([]Message, error) {
	if len(msgs) == 0 {
		return nil, nil
	}
	stamped := stamp(msgs, s.clock)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storeErr("append", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (id, role, content, tool_call_id, tool_calls, refusal, annotations, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return nil, storeErr("append", err)
	}
	defer stmt.Close()

	for i := range stamped {
		m := &stamped[i]
		if err := m.Validate(); err != nil {
			return nil, storeErr("append", err)
		}
		toolCalls, annotations, err := encodeColumns(*m)
		if err != nil {
			return nil, storeErr("append", err)
		}
		res, err := stmt.ExecContext(ctx,
			m.ID,
			string(m.Role),
			nullable(m.Content),
			nullableString(m.ToolCallID),
			toolCalls,
			nullable(m.Refusal),
			annotations,
			m.CreatedAt.Format(createdAtLayout),
		)
		if err != nil {
			return nil, storeErr("append", err)
		}
		if m.Seq, err = res.LastInsertId(); err != nil {
			return nil, storeErr("append", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, storeErr("append", err)
	}
	return stamped, nil
}

// List returns all messages ordered by created_at, then seq.
func (s *SQLiteStore) List(ctx context.Context) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, id, role, content, tool_call_id, tool_calls, refusal, annotations, created_at
		FROM messages ORDER BY created_at ASC, seq ASC`)
	if err != nil {
		return nil, storeErr("list", err)
	}
	defer rows.Close()

	out := []Message{}
	for rows.Next() {
		var m Message
		var role, createdAt string
		var content, toolCallID, toolCalls, refusal, annotations sql.NullString
		if err := rows.Scan(&m.Seq, &m.ID, &role, &content, &toolCallID, &toolCalls, &refusal, &annotations, &createdAt); err != nil {
			return nil, storeErr("list", err)
		}
		m.Role = Role(role)
		if content.Valid {
			m.Content = Text(content.String)
		}
		m.ToolCallID = toolCallID.String
		if refusal.Valid {
			m.Refusal = Text(refusal.String)
		}
		if toolCalls.Valid && toolCalls.String != "" {
			if err := json.Unmarshal([]byte(toolCalls.String), &m.ToolCalls); err != nil {
				return nil, storeErr("list", fmt.Errorf("decode tool_calls of %s: %w", m.ID, err))
			}
		}
		m.Annotations = []json.RawMessage{}
		if annotations.Valid && annotations.String != "" {
			if err := json.Unmarshal([]byte(annotations.String), &m.Annotations); err != nil {
				return nil, storeErr("list", fmt.Errorf("decode annotations of %s: %w", m.ID, err))
			}
		}
		if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, storeErr("list", fmt.Errorf("decode created_at of %s: %w", m.ID, err))
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list", err)
	}
	return out, nil
}

// Reset deletes every message.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages`)
	return storeErr("reset", err)
}

// Delete removes the messages with the given ids. Unknown ids are ignored.
func (s *SQLiteStore) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE id IN (`+placeholders+`)`, args...)
	return storeErr("delete", err)
}

func (s *SQLiteStore) Close() error {
	return storeErr("close", s.db.Close())
}

func encodeColumns(m Message) (toolCalls any, annotations string, err error) {
	if len(m.ToolCalls) > 0 {
		b, err := json.Marshal(m.ToolCalls)
		if err != nil {
			return nil, "", fmt.Errorf("encode tool_calls: %w", err)
		}
		toolCalls = string(b)
	}
	anns := m.Annotations
	if anns == nil {
		anns = []json.RawMessage{}
	}
	b, err := json.Marshal(anns)
	if err != nil {
		return nil, "", fmt.Errorf("encode annotations: %w", err)
	}
	return toolCalls, string(b), nil
}

func nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
