// Package history is the best-effort durable log of winning lines. A write
// failure never blocks or breaks the live flow; callers log and move on.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mayuriWagh2002/crowd-music-mvp/internal/room"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS winners (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			room_id TEXT NOT NULL,
			round INTEGER NOT NULL,
			theme TEXT NOT NULL,
			text TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_winners_room ON winners(room_id, round);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to init schema: %w", err)
		}
	}
	return nil
}

// Append writes one winner row. Implements room.WinnerSink.
func (s *Store) Append(rec room.WinnerRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO winners (room_id, round, theme, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		rec.RoomID, rec.Round, rec.Theme, rec.Text, rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert winner: %w", err)
	}
	return nil
}

// ByRoom returns the room's winners ordered by round ascending.
func (s *Store) ByRoom(roomID string) ([]room.WinnerRecord, error) {
	rows, err := s.db.Query(
		`SELECT room_id, round, theme, text, created_at FROM winners WHERE room_id = ? ORDER BY round ASC`,
		roomID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query winners: %w", err)
	}
	defer rows.Close()

	var out []room.WinnerRecord
	for rows.Next() {
		var rec room.WinnerRecord
		var createdAt string
		if err := rows.Scan(&rec.RoomID, &rec.Round, &rec.Theme, &rec.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan winner: %w", err)
		}
		rec.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
