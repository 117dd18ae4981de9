// internal/db/store.go
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

// Message is one persisted transcript turn
type Message struct {
	ID        int64
	Role      string // user, assistant
	Content   string
	Image     string // data URI, empty when none
	CreatedAt time.Time
}

// Open opens (creating if needed) the history database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return store, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		image TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// AddMessage appends a turn and returns its id
func (s *Store) AddMessage(ctx context.Context, role, content, image string) (int64, error) {
	var img sql.NullString
	if image != "" {
		img = sql.NullString{String: image, Valid: true}
	}

	result, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (role, content, image) VALUES (?, ?, ?)`,
		role, content, img,
	)
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// AddExchange stores a user turn and the assistant reply atomically
func (s *Store) AddExchange(ctx context.Context, user, assistant Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range []Message{user, assistant} {
		var img sql.NullString
		if m.Image != "" {
			img = sql.NullString{String: m.Image, Valid: true}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (role, content, image) VALUES (?, ?, ?)`,
			m.Role, m.Content, img,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Messages returns the whole history in insertion order
func (s *Store) Messages(ctx context.Context) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, image, created_at FROM messages ORDER BY id ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var m Message
		var image sql.NullString
		if err := rows.Scan(&m.ID, &m.Role, &m.Content, &image, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.Image = image.String
		messages = append(messages, m)
	}
	return messages, rows.Err()
}

// CountMessages returns the number of stored turns
func (s *Store) CountMessages(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM messages`).Scan(&n)
	return n, err
}

// ClearMessages deletes the whole history
func (s *Store) ClearMessages(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM messages`)
	return err
}
