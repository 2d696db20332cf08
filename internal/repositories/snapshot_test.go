package repositories

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/shared"
	tu "github.com/desertthunder/songbook/internal/testing"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestSnapshotRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Songs", func(t *testing.T) {
		t.Run("Round Trip Preserves Order", func(t *testing.T) {
			repo := NewSnapshotRepository(setupTestDB(t))
			songs := tu.SampleSongs()
			songs[0], songs[3] = songs[3], songs[0]

			if err := repo.SaveSongs(ctx, songs); err != nil {
				t.Fatalf("SaveSongs failed: %v", err)
			}

			got, err := repo.LoadSongs(ctx)
			if err != nil {
				t.Fatalf("LoadSongs failed: %v", err)
			}
			if len(got) != len(songs) {
				t.Fatalf("expected %d songs, got %d", len(songs), len(got))
			}
			for i := range songs {
				if got[i] != songs[i] {
					t.Errorf("position %d: expected %+v, got %+v", i, songs[i], got[i])
				}
			}
		})

		t.Run("Save Replaces Previous Snapshot", func(t *testing.T) {
			repo := NewSnapshotRepository(setupTestDB(t))
			repo.SaveSongs(ctx, tu.SampleSongs())

			if err := repo.SaveSongs(ctx, tu.SampleSongs()[:1]); err != nil {
				t.Fatalf("SaveSongs failed: %v", err)
			}
			got, _ := repo.LoadSongs(ctx)
			if len(got) != 1 {
				t.Errorf("expected 1 song after replace, got %d", len(got))
			}
		})

		t.Run("Empty Snapshot Is Not Missing", func(t *testing.T) {
			repo := NewSnapshotRepository(setupTestDB(t))
			if err := repo.SaveSongs(ctx, nil); err != nil {
				t.Fatalf("SaveSongs failed: %v", err)
			}
			got, err := repo.LoadSongs(ctx)
			if err != nil {
				t.Fatalf("expected cached empty list, got %v", err)
			}
			if got == nil || len(got) != 0 {
				t.Errorf("expected empty non-nil slice, got %#v", got)
			}
		})

		t.Run("Never Cached", func(t *testing.T) {
			repo := NewSnapshotRepository(setupTestDB(t))
			if _, err := repo.LoadSongs(ctx); !errors.Is(err, shared.ErrNoSnapshot) {
				t.Errorf("expected ErrNoSnapshot, got %v", err)
			}
		})
	})

	t.Run("Entries", func(t *testing.T) {
		t.Run("Collections Are Separate", func(t *testing.T) {
			repo := NewSnapshotRepository(setupTestDB(t))
			favorites := []models.Entry{
				{ID: "10", ItemID: "2", Title: "Dynamite", Singer: "BTS", Genre: "K-Pop"},
				{ID: "11", ItemID: "1", Title: "Tum Hi Ho"},
			}
			playlist := []models.Entry{{ID: "10", ItemID: "4", Title: "Numb"}}

			if err := repo.SaveEntries(ctx, models.Favorites, favorites); err != nil {
				t.Fatalf("SaveEntries failed: %v", err)
			}
			if err := repo.SaveEntries(ctx, models.Playlist, playlist); err != nil {
				t.Fatalf("SaveEntries failed: %v", err)
			}

			got, err := repo.LoadEntries(ctx, models.Favorites)
			if err != nil {
				t.Fatalf("LoadEntries failed: %v", err)
			}
			if len(got) != 2 || got[0] != favorites[0] || got[1] != favorites[1] {
				t.Errorf("unexpected favorites %+v", got)
			}

			got, _ = repo.LoadEntries(ctx, models.Playlist)
			if len(got) != 1 || got[0].ItemID != "4" {
				t.Errorf("unexpected playlist %+v", got)
			}
		})

		t.Run("Replace Only Touches One Collection", func(t *testing.T) {
			repo := NewSnapshotRepository(setupTestDB(t))
			repo.SaveEntries(ctx, models.Favorites, []models.Entry{{ID: "1", ItemID: "1"}})
			repo.SaveEntries(ctx, models.Playlist, []models.Entry{{ID: "2", ItemID: "2"}})

			if err := repo.SaveEntries(ctx, models.Favorites, nil); err != nil {
				t.Fatalf("SaveEntries failed: %v", err)
			}

			fav, _ := repo.LoadEntries(ctx, models.Favorites)
			pl, _ := repo.LoadEntries(ctx, models.Playlist)
			if len(fav) != 0 || len(pl) != 1 {
				t.Errorf("expected 0 favorites and 1 playlist entry, got %d and %d", len(fav), len(pl))
			}
		})

		t.Run("Never Cached", func(t *testing.T) {
			repo := NewSnapshotRepository(setupTestDB(t))
			if _, err := repo.LoadEntries(ctx, models.Playlist); !errors.Is(err, shared.ErrNoSnapshot) {
				t.Errorf("expected ErrNoSnapshot, got %v", err)
			}
		})
	})

	t.Run("Status", func(t *testing.T) {
		repo := NewSnapshotRepository(setupTestDB(t))
		fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
		repo.now = func() time.Time { return fixed }

		repo.SaveSongs(ctx, tu.SampleSongs())
		repo.SaveEntries(ctx, models.Playlist, []models.Entry{{ID: "1", ItemID: "1"}})

		status, err := repo.Status(ctx)
		if err != nil {
			t.Fatalf("Status failed: %v", err)
		}
		if len(status) != 2 {
			t.Fatalf("expected 2 rows, got %+v", status)
		}
		if status[0].Collection != "items" || status[0].Count != 4 {
			t.Errorf("unexpected items status %+v", status[0])
		}
		if status[1].Collection != "playlist" || status[1].Count != 1 {
			t.Errorf("unexpected playlist status %+v", status[1])
		}
		if !status[0].FetchedAt.Equal(fixed) {
			t.Errorf("expected fetched_at %v, got %v", fixed, status[0].FetchedAt)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		repo := NewSnapshotRepository(setupTestDB(t))
		repo.SaveSongs(ctx, tu.SampleSongs())
		repo.SaveEntries(ctx, models.Favorites, []models.Entry{{ID: "1", ItemID: "1"}})

		if err := repo.Clear(ctx); err != nil {
			t.Fatalf("Clear failed: %v", err)
		}
		if _, err := repo.LoadSongs(ctx); !errors.Is(err, shared.ErrNoSnapshot) {
			t.Errorf("expected ErrNoSnapshot after clear, got %v", err)
		}
		status, _ := repo.Status(ctx)
		if len(status) != 0 {
			t.Errorf("expected no status rows, got %+v", status)
		}
	})

	t.Run("Closed Database", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewSnapshotRepository(db)
		db.Close()

		if err := repo.SaveSongs(ctx, tu.SampleSongs()); err == nil {
			t.Error("expected error on closed database")
		}
		if _, err := repo.LoadEntries(ctx, models.Favorites); err == nil || errors.Is(err, shared.ErrNoSnapshot) {
			t.Errorf("expected a database error, got %v", err)
		}
	})
}
