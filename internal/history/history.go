// Package history records resolved videos in a local SQLite database.
// One row is kept per video ID; resolving the same video again refreshes it.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"odkdl/internal/config"
	"odkdl/internal/httputil"
	"odkdl/internal/media"
)

const schema = `
CREATE TABLE IF NOT EXISTS history (
	id          TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	series      TEXT NOT NULL DEFAULT '',
	episode     INTEGER NOT NULL DEFAULT 0,
	url         TEXT NOT NULL,
	resolved_at INTEGER NOT NULL
)`

// Store is an open history database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the history database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenDefault opens the history database at config.HistoryPath.
func OpenDefault(ctx context.Context) (*Store, error) {
	path, err := config.HistoryPath()
	if err != nil {
		return nil, err
	}
	return Open(ctx, path)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Save inserts entry or replaces the existing entry with the same ID.
func (s *Store) Save(ctx context.Context, entry media.HistoryEntry) error {
	if err := httputil.ValidateID(entry.ID); err != nil {
		return fmt.Errorf("invalid history entry: %w", err)
	}
	if entry.ResolvedAt.IsZero() {
		entry.ResolvedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO history (id, title, series, episode, url, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			series = excluded.series,
			episode = excluded.episode,
			url = excluded.url,
			resolved_at = excluded.resolved_at`,
		entry.ID, entry.Title, entry.Series, entry.Episode, entry.URL, entry.ResolvedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("saving history entry %s: %w", entry.ID, err)
	}
	return nil
}

// Load returns all entries, most recently resolved first.
func (s *Store) Load(ctx context.Context) ([]media.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, series, episode, url, resolved_at
		FROM history
		ORDER BY resolved_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	defer rows.Close()

	var entries []media.HistoryEntry
	for rows.Next() {
		var (
			e          media.HistoryEntry
			resolvedAt int64
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Series, &e.Episode, &e.URL, &resolvedAt); err != nil {
			return nil, fmt.Errorf("scanning history: %w", err)
		}
		e.ResolvedAt = time.Unix(0, resolvedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}

	return entries, nil
}

// Remove deletes the entry with the given ID.
func (s *Store) Remove(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, id); err != nil {
		return fmt.Errorf("removing history entry %s: %w", id, err)
	}
	return nil
}

// Clear deletes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM history`); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// EntryFor builds the history entry for a resolved video.
func EntryFor(info *media.Info) media.HistoryEntry {
	return media.HistoryEntry{
		ID:      info.ID,
		Title:   info.Title,
		Series:  info.Series,
		Episode: info.EpisodeNumber,
		URL:     info.OriginalURL,
	}
}

// FormatForDisplay creates one display line per entry.
func FormatForDisplay(entries []media.HistoryEntry) []string {
	var items []string
	for _, e := range entries {
		display := e.Title
		if e.Series != "" && e.Episode > 0 {
			display = fmt.Sprintf("%s E%02d", e.Series, e.Episode)
		}
		display += "  " + e.URL
		items = append(items, display)
	}
	return items
}
