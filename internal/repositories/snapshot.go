package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/shared"
)

// SnapshotStatus describes one cached collection.
type SnapshotStatus struct {
	Collection string
	Count      int
	FetchedAt  time.Time
}

// SnapshotRepository implements tasks.SnapshotCacher on SQLite.
type SnapshotRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSnapshotRepository creates a new SnapshotRepository with the given database connection
func NewSnapshotRepository(db *sql.DB) *SnapshotRepository {
	return &SnapshotRepository{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// SaveSongs replaces the cached song list.
func (r *SnapshotRepository) SaveSongs(ctx context.Context, songs []models.Song) error {
	at := r.now()
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_songs`); err != nil {
			return fmt.Errorf("failed to clear songs: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO snapshot_songs (id, position, title, singer, genre, img_url, song_url, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, s := range songs {
			if _, err := stmt.ExecContext(ctx, s.ID.String(), i, s.Title, s.Singer, s.Genre, s.ImgURL, s.SongURL, at); err != nil {
				return fmt.Errorf("failed to insert song %s: %w", s.ID, err)
			}
		}

		return touchMeta(ctx, tx, itemsKey, len(songs), at)
	})
}

// SaveEntries replaces the cached entries of c.
func (r *SnapshotRepository) SaveEntries(ctx context.Context, c models.Collection, entries []models.Entry) error {
	at := r.now()
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_entries WHERE collection = ?`, string(c)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", c, err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO snapshot_entries (row_id, collection, position, entry_id, item_id, title, singer, genre, img_url, song_url, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare insert: %w", err)
		}
		defer stmt.Close()

		for i, e := range entries {
			_, err := stmt.ExecContext(ctx,
				shared.GenerateID(),
				string(c),
				i,
				e.ID.String(),
				e.ItemID.String(),
				e.Title,
				e.Singer,
				e.Genre,
				e.ImgURL,
				e.SongURL,
				at,
			)
			if err != nil {
				return fmt.Errorf("failed to insert entry %s: %w", e.ID, err)
			}
		}

		return touchMeta(ctx, tx, string(c), len(entries), at)
	})
}

func (r *SnapshotRepository) cached(ctx context.Context, key string) error {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT item_count FROM snapshot_meta WHERE collection = ?`, key).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", shared.ErrNoSnapshot, key)
	}
	if err != nil {
		return fmt.Errorf("failed to read snapshot metadata: %w", err)
	}
	return nil
}

// LoadSongs returns the cached song list in its original order.
func (r *SnapshotRepository) LoadSongs(ctx context.Context) ([]models.Song, error) {
	if err := r.cached(ctx, itemsKey); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, singer, genre, img_url, song_url
		FROM snapshot_songs
		ORDER BY position ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	songs := []models.Song{}
	for rows.Next() {
		var s models.Song
		var id string
		if err := rows.Scan(&id, &s.Title, &s.Singer, &s.Genre, &s.ImgURL, &s.SongURL); err != nil {
			return nil, fmt.Errorf("failed to scan song: %w", err)
		}
		s.ID = models.ID(id)
		songs = append(songs, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating songs: %w", err)
	}
	return songs, nil
}

// LoadEntries returns the cached entries of c in server order.
func (r *SnapshotRepository) LoadEntries(ctx context.Context, c models.Collection) ([]models.Entry, error) {
	if err := r.cached(ctx, string(c)); err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT entry_id, item_id, title, singer, genre, img_url, song_url
		FROM snapshot_entries
		WHERE collection = ?
		ORDER BY position ASC
	`, string(c))
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", c, err)
	}
	defer rows.Close()

	entries := []models.Entry{}
	for rows.Next() {
		var e models.Entry
		var id, itemID string
		if err := rows.Scan(&id, &itemID, &e.Title, &e.Singer, &e.Genre, &e.ImgURL, &e.SongURL); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		e.ID, e.ItemID = models.ID(id), models.ID(itemID)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating entries: %w", err)
	}
	return entries, nil
}

// Status lists every cached collection with its row count and fetch time.
func (r *SnapshotRepository) Status(ctx context.Context) ([]SnapshotStatus, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT collection, item_count, fetched_at
		FROM snapshot_meta
		ORDER BY collection ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshot metadata: %w", err)
	}
	defer rows.Close()

	var out []SnapshotStatus
	for rows.Next() {
		var s SnapshotStatus
		if err := rows.Scan(&s.Collection, &s.Count, &s.FetchedAt); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot metadata: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Clear drops every cached snapshot.
func (r *SnapshotRepository) Clear(ctx context.Context) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, table := range []string{"snapshot_songs", "snapshot_entries", "snapshot_meta"} {
			if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
		}
		return nil
	})
}
