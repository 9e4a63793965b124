// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package store persists analysis sessions in SQLite. Each session row
// holds the serialized ModelState and the stage it reached; the session's
// documents are mirrored into a separate table with a full-text index so
// they can be searched across sessions.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/gioia-engine/pkg/types"
)

const (
	dbFile    = "gioia.db"
	exportDir = "exports"

	defaultSearchLimit = 20

	// timeLayout is fixed width so timestamps sort lexically.
	timeLayout = "2006-01-02T15:04:05.000000000Z07:00"
)

// ErrNotFound is returned when a session ID does not exist.
var ErrNotFound = errors.New("session not found")

// Store manages the session database.
type Store struct {
	db  *sql.DB
	dir string

	// fts is false when the SQLite build lacks the FTS5 module; document
	// search then falls back to substring matching.
	fts bool

	now func() time.Time
}

// Session is one persisted analysis session.
type Session struct {
	ID      string           `json:"id" yaml:"id"`
	Name    string           `json:"name" yaml:"name"`
	Stage   string           `json:"stage" yaml:"stage"`
	State   types.ModelState `json:"state" yaml:"state"`
	Created time.Time        `json:"created" yaml:"created"`
	Updated time.Time        `json:"updated" yaml:"updated"`
}

// Summary is the listing view of a session.
type Summary struct {
	ID        string
	Name      string
	Stage     string
	Query     string
	Documents int
	Updated   time.Time
}

// NewStore opens or creates the session database at dir/gioia.db and
// creates the schema if it does not exist.
func NewStore(cfg types.StoreConfig) (*Store, error) {
	dir := cfg.Dir
	if dir == "" {
		dir = types.DefaultConfig().Store.Dir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating store directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db, dir: dir, now: time.Now}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the directory holding the database and exports.
func (s *Store) Dir() string { return s.dir }

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			stage TEXT NOT NULL,
			query TEXT,
			state TEXT NOT NULL,
			created TEXT NOT NULL,
			updated TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			doc_id TEXT NOT NULL,
			title TEXT,
			abstract TEXT,
			full_text TEXT,
			UNIQUE(session_id, doc_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_session ON documents(session_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='documents_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists > 0 {
		s.fts = true
		return nil
	}

	if _, err := s.db.Exec(
		`CREATE VIRTUAL TABLE documents_fts USING fts5(title, abstract, full_text, content=documents, content_rowid=rowid)`,
	); err != nil {
		if strings.Contains(err.Error(), "no such module") {
			return nil
		}
		return fmt.Errorf("creating FTS table: %w", err)
	}

	triggers := []string{
		`CREATE TRIGGER documents_ai AFTER INSERT ON documents BEGIN
			INSERT INTO documents_fts(rowid, title, abstract, full_text)
			VALUES (new.rowid, new.title, new.abstract, new.full_text);
		END`,
		`CREATE TRIGGER documents_ad AFTER DELETE ON documents BEGIN
			INSERT INTO documents_fts(documents_fts, rowid, title, abstract, full_text)
			VALUES ('delete', old.rowid, old.title, old.abstract, old.full_text);
		END`,
		`CREATE TRIGGER documents_au AFTER UPDATE ON documents BEGIN
			INSERT INTO documents_fts(documents_fts, rowid, title, abstract, full_text)
			VALUES ('delete', old.rowid, old.title, old.abstract, old.full_text);
			INSERT INTO documents_fts(rowid, title, abstract, full_text)
			VALUES (new.rowid, new.title, new.abstract, new.full_text);
		END`,
	}
	for _, stmt := range triggers {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("creating FTS infrastructure: %w", err)
		}
	}
	s.fts = true
	return nil
}

// NewSession creates an idle session for query and returns it.
func (s *Store) NewSession(ctx context.Context, name, query string) (Session, error) {
	now := s.now().UTC()
	sess := Session{
		ID:      uuid.NewString(),
		Name:    name,
		Stage:   "idle",
		State:   types.ModelState{Query: query},
		Created: now,
		Updated: now,
	}
	if sess.Name == "" {
		sess.Name = query
	}

	stateJSON, err := json.Marshal(sess.State)
	if err != nil {
		return Session{}, fmt.Errorf("marshaling state: %w", err)
	}
	ts := now.Format(timeLayout)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, name, stage, query, state, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Name, sess.Stage, query, string(stateJSON), ts, ts,
	); err != nil {
		return Session{}, fmt.Errorf("inserting session: %w", err)
	}
	return sess, nil
}

// SaveState stores state and stage for session id and re-indexes its
// documents. Documents no longer in the state are removed from the index.
func (s *Store) SaveState(ctx context.Context, id, stage string, state types.ModelState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("marshaling state: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE sessions SET stage = ?, query = ?, state = ?, updated = ? WHERE id = ?`,
		stage, state.Query, string(stateJSON), s.now().UTC().Format(timeLayout), id,
	)
	if err != nil {
		return fmt.Errorf("updating session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (session_id, doc_id, title, abstract, full_text)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(session_id, doc_id) DO UPDATE SET
			title=excluded.title, abstract=excluded.abstract, full_text=excluded.full_text`)
	if err != nil {
		return fmt.Errorf("preparing document upsert: %w", err)
	}
	defer stmt.Close()

	ids := make([]string, 0, len(state.Documents))
	for _, d := range state.Documents {
		if _, err := stmt.ExecContext(ctx, id, d.ID, d.Title, d.Abstract, d.FullText); err != nil {
			return fmt.Errorf("upserting document %s: %w", d.ID, err)
		}
		ids = append(ids, d.ID)
	}

	idsJSON, _ := json.Marshal(ids)
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM documents WHERE session_id = ?
		AND doc_id NOT IN (SELECT value FROM json_each(?))`,
		id, string(idsJSON),
	); err != nil {
		return fmt.Errorf("pruning documents: %w", err)
	}

	return tx.Commit()
}

// Load returns the session with the given ID.
func (s *Store) Load(ctx context.Context, id string) (Session, error) {
	var (
		sess             Session
		stateJSON        string
		created, updated string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, stage, state, created, updated FROM sessions WHERE id = ?`, id,
	).Scan(&sess.ID, &sess.Name, &sess.Stage, &stateJSON, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Session{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Session{}, fmt.Errorf("loading session %s: %w", id, err)
	}

	if err := json.Unmarshal([]byte(stateJSON), &sess.State); err != nil {
		return Session{}, fmt.Errorf("decoding state of session %s: %w", id, err)
	}
	sess.Created, _ = time.Parse(timeLayout, created)
	sess.Updated, _ = time.Parse(timeLayout, updated)
	return sess, nil
}

// List returns every session, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT s.id, s.name, s.stage, COALESCE(s.query, ''), s.updated,
			(SELECT count(*) FROM documents d WHERE d.session_id = s.id)
		FROM sessions s
		ORDER BY s.updated DESC, s.created DESC`)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			updated string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &sum.Stage, &sum.Query, &updated, &sum.Documents); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		sum.Updated, _ = time.Parse(timeLayout, updated)
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes a session and its indexed documents.
func (s *Store) Delete(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM documents WHERE session_id = ?`, id); err != nil {
		return fmt.Errorf("deleting documents: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting session %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return tx.Commit()
}
