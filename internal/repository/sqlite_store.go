package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"ithakabot/internal/model"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS wizard_sessions (
	id TEXT PRIMARY KEY,
	conversation_id TEXT NOT NULL,
	version INTEGER NOT NULL,
	created_at INTEGER NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_conversation ON wizard_sessions(conversation_id, created_at DESC);

CREATE TABLE IF NOT EXISTS applications (
	id TEXT PRIMARY KEY,
	session_id TEXT NOT NULL UNIQUE,
	path TEXT NOT NULL,
	submitted_at INTEGER NOT NULL,
	data TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_applications_submitted ON applications(submitted_at DESC);
`

// SQLiteStore keeps sessions and applications in one local database file.
// It backs the CLI and single-node deployments.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens or creates the database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One writer keeps version checks and in-memory databases consistent
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}
	return &SQLiteStore{
		db:  db,
		now: func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) LoadByConversation(ctx context.Context, conversationID string) (*model.WizardSession, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM wizard_sessions
		WHERE conversation_id = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, conversationID).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var session model.WizardSession
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

func (s *SQLiteStore) Save(ctx context.Context, session *model.WizardSession) error {
	expected := session.Version
	next := *session
	next.Version = expected + 1
	next.UpdatedAt = s.now()

	data, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	if expected == 0 {
		_, err = s.db.ExecContext(ctx, `INSERT INTO wizard_sessions (id, conversation_id, version, created_at, data)
			VALUES (?, ?, ?, ?, ?)`, next.ID, next.ConversationID, next.Version, next.CreatedAt.UnixNano(), string(data))
		if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrVersionConflict
		}
		if err != nil {
			return fmt.Errorf("insert session: %w", err)
		}
	} else {
		res, err := s.db.ExecContext(ctx, `UPDATE wizard_sessions SET version = ?, data = ?
			WHERE id = ? AND version = ?`, next.Version, string(data), next.ID, expected)
		if err != nil {
			return fmt.Errorf("update session: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return ErrVersionConflict
		}
	}

	session.Version = next.Version
	session.UpdatedAt = next.UpdatedAt
	return nil
}

func (s *SQLiteStore) Store(ctx context.Context, record *model.ApplicationRecord) (*model.ApplicationRecord, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("encode application: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `INSERT OR IGNORE INTO applications (id, session_id, path, submitted_at, data)
		VALUES (?, ?, ?, ?, ?)`, record.ID, record.SessionID, string(record.Path), record.SubmittedAt.UnixNano(), string(data))
	if err != nil {
		return nil, fmt.Errorf("store application: %w", err)
	}
	return s.queryOne(ctx, `SELECT data FROM applications WHERE session_id = ?`, record.SessionID)
}

func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*model.ApplicationRecord, error) {
	return s.queryOne(ctx, `SELECT data FROM applications WHERE id = ?`, id)
}

func (s *SQLiteStore) List(ctx context.Context, filter model.ApplicationFilter) ([]*model.ApplicationRecord, error) {
	query := `SELECT data FROM applications`
	args := []any{}
	if filter.Path != "" {
		query += ` WHERE path = ?`
		args = append(args, string(filter.Path))
	}
	query += ` ORDER BY submitted_at DESC LIMIT ?`
	args = append(args, listLimit(filter))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	records := make([]*model.ApplicationRecord, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		var r model.ApplicationRecord
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("decode application: %w", err)
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) queryOne(ctx context.Context, query string, arg any) (*model.ApplicationRecord, error) {
	var data string
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get application: %w", err)
	}
	var r model.ApplicationRecord
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("decode application: %w", err)
	}
	return &r, nil
}
