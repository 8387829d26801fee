// Package sqlite stores transcripts, memory notes and profiles in a local SQLite file.
package sqlite

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

	"github.com/brightly-app/brightly/backend/internal/model/chat"
	"github.com/brightly-app/brightly/backend/internal/model/profile"
	"github.com/brightly-app/brightly/backend/internal/model/tab"
	"github.com/brightly-app/brightly/backend/internal/store"
)

// DB wraps the SQLite connection.
type DB struct {
	conn *sql.DB
}

// Open creates the database file if needed and runs migrations.
func Open(dbPath string) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite works best with a single writer connection.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS chat_transcripts (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL,
			tab TEXT NOT NULL,
			session_id TEXT NOT NULL,
			messages TEXT NOT NULL,
			last_updated DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_chat_transcripts_owner_tab ON chat_transcripts(owner_id, tab)`,
		`CREATE TABLE IF NOT EXISTS tab_memories (
			owner_id TEXT NOT NULL,
			tab TEXT NOT NULL,
			note TEXT NOT NULL,
			updated_at DATETIME NOT NULL,
			PRIMARY KEY (owner_id, tab)
		)`,
		`CREATE TABLE IF NOT EXISTS profiles (
			owner_id TEXT PRIMARY KEY,
			data TEXT NOT NULL,
			updated_at DATETIME NOT NULL
		)`,
	}

	for _, migration := range migrations {
		if _, err := db.conn.Exec(migration); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, migration)
		}
	}
	return nil
}

// Backend exposes the database through the store contracts.
func (db *DB) Backend() store.Backend {
	return store.Backend{
		Name:        "sqlite",
		Transcripts: &TranscriptStore{conn: db.conn},
		Memories:    &MemoryStore{conn: db.conn},
		Profiles:    &ProfileStore{conn: db.conn},
		Close:       db.Close,
	}
}

// TranscriptStore implements store.TranscriptStore.
type TranscriptStore struct {
	conn *sql.DB
}

func (s *TranscriptStore) Get(ctx context.Context, key chat.Key) (chat.Transcript, bool, error) {
	row := s.conn.QueryRowContext(ctx,
		"SELECT owner_id, tab, session_id, messages, last_updated FROM chat_transcripts WHERE id = ?",
		key.DocumentID(),
	)

	transcript, err := scanTranscript(row)
	if errors.Is(err, sql.ErrNoRows) {
		return chat.Transcript{}, false, nil
	}
	if err != nil {
		return chat.Transcript{}, false, fmt.Errorf("failed to get transcript: %w", err)
	}
	return transcript, true, nil
}

func (s *TranscriptStore) Put(ctx context.Context, transcript chat.Transcript) error {
	messages, err := json.Marshal(transcript.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO chat_transcripts (id, owner_id, tab, session_id, messages, last_updated)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET messages = excluded.messages, last_updated = excluded.last_updated`,
		transcript.Key().DocumentID(), transcript.OwnerID, string(transcript.Tab), transcript.SessionID,
		string(messages), transcript.LastUpdated.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to put transcript: %w", err)
	}
	return nil
}

func (s *TranscriptStore) Delete(ctx context.Context, key chat.Key) error {
	if _, err := s.conn.ExecContext(ctx, "DELETE FROM chat_transcripts WHERE id = ?", key.DocumentID()); err != nil {
		return fmt.Errorf("failed to delete transcript: %w", err)
	}
	return nil
}

func (s *TranscriptStore) Scan(ctx context.Context, query chat.Query) ([]chat.Transcript, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT owner_id, tab, session_id, messages, last_updated FROM chat_transcripts
		WHERE id LIKE ? ESCAPE '\' AND owner_id = ?`,
		store.LikePrefix(query.Prefix()), query.OwnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan transcripts: %w", err)
	}
	defer rows.Close()

	result := make([]chat.Transcript, 0)
	for rows.Next() {
		transcript, err := scanTranscript(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read transcript: %w", err)
		}
		if query.Matches(transcript) {
			result = append(result, transcript)
		}
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTranscript(row rowScanner) (chat.Transcript, error) {
	var (
		transcript chat.Transcript
		tabID      string
		messages   string
	)
	if err := row.Scan(&transcript.OwnerID, &tabID, &transcript.SessionID, &messages, &transcript.LastUpdated); err != nil {
		return chat.Transcript{}, err
	}
	transcript.Tab = tab.ID(tabID)
	if err := json.Unmarshal([]byte(messages), &transcript.Messages); err != nil {
		return chat.Transcript{}, fmt.Errorf("failed to decode messages: %w", err)
	}
	return transcript, nil
}

// MemoryStore implements store.MemoryStore.
type MemoryStore struct {
	conn *sql.DB
}

func (s *MemoryStore) Get(ctx context.Context, ownerID string, t tab.ID) (string, bool, error) {
	var note string
	err := s.conn.QueryRowContext(ctx,
		"SELECT note FROM tab_memories WHERE owner_id = ? AND tab = ?", ownerID, string(t),
	).Scan(&note)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get memory note: %w", err)
	}
	return note, true, nil
}

func (s *MemoryStore) Put(ctx context.Context, ownerID string, t tab.ID, note string) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO tab_memories (owner_id, tab, note, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, tab) DO UPDATE SET note = excluded.note, updated_at = excluded.updated_at`,
		ownerID, string(t), note, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to put memory note: %w", err)
	}
	return nil
}

// ProfileStore implements profile.Store.
type ProfileStore struct {
	conn *sql.DB
}

func (s *ProfileStore) Get(ctx context.Context, ownerID string) (profile.Profile, bool, error) {
	var data string
	err := s.conn.QueryRowContext(ctx, "SELECT data FROM profiles WHERE owner_id = ?", ownerID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, false, nil
	}
	if err != nil {
		return profile.Profile{}, false, fmt.Errorf("failed to get profile: %w", err)
	}

	var p profile.Profile
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return profile.Profile{}, false, fmt.Errorf("failed to decode profile: %w", err)
	}
	return p, true, nil
}

func (s *ProfileStore) Put(ctx context.Context, p profile.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}
	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO profiles (owner_id, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(owner_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		p.OwnerID, string(data), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to put profile: %w", err)
	}
	return nil
}
