package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kmahone/strum/internal/tabs"
	"github.com/kmahone/strum/internal/track"
)

// Store persists the history and favorites tabs in SQLite. It is the
// file-backed collaborator behind the tab manager's Export/Import
// contract; the search tab is transient and never stored.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the track store at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA journal_mode = WAL",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			locator TEXT NOT NULL,
			title TEXT NOT NULL,
			uploader TEXT,
			duration REAL NOT NULL DEFAULT 0,
			played_at INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS favorites (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			locator TEXT NOT NULL,
			title TEXT NOT NULL,
			uploader TEXT,
			duration REAL NOT NULL DEFAULT 0,
			played_at INTEGER NOT NULL DEFAULT 0
		);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func tableFor(id tabs.ID) (string, error) {
	switch id {
	case tabs.History:
		return "history", nil
	case tabs.Favorites:
		return "favorites", nil
	default:
		return "", fmt.Errorf("tab %s is not persisted", id)
	}
}

// LoadTab reads a persisted tab's tracks in insertion order.
func (s *Store) LoadTab(ctx context.Context, id tabs.ID) ([]track.Track, error) {
	table, err := tableFor(id)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(
		"SELECT locator, title, uploader, duration, played_at FROM %s ORDER BY id", table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", table, err)
	}
	defer rows.Close()

	var tracks []track.Track
	for rows.Next() {
		var t track.Track
		var playedAt int64
		if err := rows.Scan(&t.Locator, &t.Title, &t.Uploader, &t.Duration, &playedAt); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		if playedAt > 0 {
			t.PlayedAt = time.Unix(playedAt, 0)
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

// SaveTab replaces a persisted tab's contents atomically.
func (s *Store) SaveTab(ctx context.Context, id tabs.ID, tracks []track.Track) error {
	table, err := tableFor(id)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("failed to clear %s: %w", table, err)
	}

	insert := fmt.Sprintf(
		"INSERT INTO %s (locator, title, uploader, duration, played_at) VALUES (?, ?, ?, ?, ?)", table)
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range tracks {
		var playedAt int64
		if !t.PlayedAt.IsZero() {
			playedAt = t.PlayedAt.Unix()
		}
		if _, err := stmt.ExecContext(ctx, t.Locator, t.Title, t.Uploader, t.Duration, playedAt); err != nil {
			return fmt.Errorf("failed to insert into %s: %w", table, err)
		}
	}

	return tx.Commit()
}
