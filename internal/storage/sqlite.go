package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jonztech/jz-cli/internal/logger"
	"github.com/jonztech/jz-cli/internal/session"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS chat_sessions (
	id         TEXT PRIMARY KEY,
	user_id    TEXT NOT NULL,
	title      TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_sessions_user ON chat_sessions(user_id, updated_at);

CREATE TABLE IF NOT EXISTS chat_messages (
	id                TEXT PRIMARY KEY,
	session_id        TEXT NOT NULL REFERENCES chat_sessions(id) ON DELETE CASCADE,
	user_id           TEXT NOT NULL,
	role              TEXT NOT NULL,
	content           TEXT NOT NULL,
	image_url         TEXT,
	document_url      TEXT,
	document_filename TEXT,
	created_at        INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_session ON chat_messages(session_id, created_at);
`

// SQLiteStore keeps sessions in a local SQLite file.
type SQLiteStore struct {
	db    *sql.DB
	owner string
	log   logger.Logger
	now   func() time.Time
}

// OpenSQLite opens (and creates) the database at path.
func OpenSQLite(path, owner string, log logger.Logger) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStore{db: db, owner: owner, log: log, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateSession(ctx context.Context, title string) (string, error) {
	if s.owner == "" {
		return "", nil
	}
	id := uuid.NewString()
	now := s.now().UnixNano()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_sessions (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		id, s.owner, title, now, now)
	if err != nil {
		return "", fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) SaveMessage(ctx context.Context, sessionID string, msg session.Message) (string, error) {
	if s.owner == "" {
		return "", nil
	}
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	var docURL, docName sql.NullString
	if msg.Document != nil {
		docURL = sql.NullString{String: msg.Document.URL, Valid: true}
		docName = sql.NullString{String: msg.Document.Filename, Valid: true}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE chat_sessions SET updated_at = ? WHERE id = ? AND user_id = ?`,
		s.now().UnixNano(), sessionID, s.owner)
	if err != nil {
		return "", fmt.Errorf("failed to touch session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", fmt.Errorf("session %s: %w", sessionID, session.ErrNotFound)
	}

	id := uuid.NewString()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO chat_messages (id, session_id, user_id, role, content, image_url, document_url, document_filename, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, sessionID, s.owner, string(msg.Role), msg.Content, nullString(msg.Image), docURL, docName, ts.UnixNano())
	if err != nil {
		return "", fmt.Errorf("failed to save message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit message: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) UpdateSessionTitle(ctx context.Context, sessionID, title string) error {
	if s.owner == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE chat_sessions SET title = ?, updated_at = ? WHERE id = ? AND user_id = ?`,
		title, s.now().UnixNano(), sessionID, s.owner)
	if err != nil {
		return fmt.Errorf("failed to update title: %w", err)
	}
	return nil
}

func (s *SQLiteStore) DeleteSession(ctx context.Context, sessionID string) error {
	if s.owner == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_sessions WHERE id = ? AND user_id = ?`, sessionID, s.owner)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ClearSessionMessages(ctx context.Context, sessionID string) error {
	if s.owner == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE session_id = ? AND user_id = ?`, sessionID, s.owner)
	if err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}

// LoadSessions returns the owner's sessions, most recently updated first,
// each with its messages in creation order.
func (s *SQLiteStore) LoadSessions(ctx context.Context) ([]session.Session, error) {
	if s.owner == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at FROM chat_sessions WHERE user_id = ? ORDER BY updated_at DESC`,
		s.owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	var sessions []session.Session
	index := make(map[string]int)
	for rows.Next() {
		var sess session.Session
		var created, updated int64
		if err := rows.Scan(&sess.ID, &sess.Title, &created, &updated); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sess.CreatedAt = time.Unix(0, created)
		sess.UpdatedAt = time.Unix(0, updated)
		index[sess.ID] = len(sessions)
		sessions = append(sessions, sess)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.QueryContext(ctx,
		`SELECT id, session_id, role, content, image_url, document_url, document_filename, created_at
		 FROM chat_messages WHERE user_id = ? ORDER BY created_at ASC, rowid ASC`,
		s.owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			msg                    session.Message
			sessionID, role        string
			image, docURL, docName sql.NullString
			created                int64
		)
		if err := rows.Scan(&msg.ID, &sessionID, &role, &msg.Content, &image, &docURL, &docName, &created); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		i, ok := index[sessionID]
		if !ok {
			continue
		}
		msg.Role = session.Role(role)
		msg.Image = image.String
		msg.Timestamp = time.Unix(0, created)
		if docURL.Valid {
			msg.Document = &session.DocumentRef{URL: docURL.String, Filename: docName.String}
		}
		sessions[i].Messages = append(sessions[i].Messages, msg)
	}
	return sessions, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
