package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/shared"
	tu "github.com/desertthunder/songbook/internal/testing"
)

var errNetwork = errors.New("connection refused")

type memoryCache struct {
	mu      sync.Mutex
	songs   []models.Song
	entries map[models.Collection][]models.Entry
	loadErr error
	saves   int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: map[models.Collection][]models.Entry{}}
}

func (c *memoryCache) SaveSongs(ctx context.Context, songs []models.Song) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.songs = songs
	c.saves++
	return nil
}

func (c *memoryCache) SaveEntries(ctx context.Context, coll models.Collection, entries []models.Entry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[coll] = entries
	c.saves++
	return nil
}

func (c *memoryCache) LoadSongs(ctx context.Context) ([]models.Song, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.songs, c.loadErr
}

func (c *memoryCache) LoadEntries(ctx context.Context, coll models.Collection) ([]models.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[coll], c.loadErr
}

func newLoadedLibrary(t *testing.T, catalog *tu.MockCatalog) *Library {
	t.Helper()
	lib := NewLibrary(LibraryOpts{Catalog: catalog})
	if err := lib.Load(context.Background(), nil); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return lib
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestLibrary(t *testing.T) {
	ctx := context.Background()

	t.Run("Load", func(t *testing.T) {
		t.Run("Fetches All Collections", func(t *testing.T) {
			catalog := tu.NewMockCatalog(tu.SampleSongs())
			catalog.Seed(models.Favorites, models.Entry{ID: "10", ItemID: "2", Title: "Dynamite"})

			progress := make(chan ProgressUpdate, 10)
			lib := NewLibrary(LibraryOpts{Catalog: catalog})
			if err := lib.Load(ctx, progress); err != nil {
				t.Fatalf("Load failed: %v", err)
			}

			if len(lib.Songs()) != 4 {
				t.Errorf("expected 4 songs, got %d", len(lib.Songs()))
			}
			if !lib.Contains(models.Favorites, "2") {
				t.Error("expected song 2 to be a favorite")
			}
			if lib.Contains(models.Playlist, "2") {
				t.Error("expected song 2 not to be in the playlist")
			}
			if !lib.Loaded() || lib.Offline() {
				t.Error("expected loaded, online library")
			}
			if catalog.CallCount("Songs") != 1 || catalog.CallCount("Entries") != 2 {
				t.Errorf("unexpected calls %+v", catalog.Calls())
			}
			if len(progress) == 0 {
				t.Error("expected progress updates")
			}
		})

		t.Run("Failure Keeps Previous State", func(t *testing.T) {
			catalog := tu.NewMockCatalog(tu.SampleSongs())
			lib := newLoadedLibrary(t, catalog)

			catalog.SetError("Songs", errNetwork)
			if err := lib.Load(ctx, nil); !errors.Is(err, errNetwork) {
				t.Fatalf("expected network error, got %v", err)
			}
			if len(lib.Songs()) != 4 {
				t.Errorf("expected previous songs to be kept, got %d", len(lib.Songs()))
			}
		})

		t.Run("Failure Without Cache", func(t *testing.T) {
			catalog := tu.NewMockCatalog(tu.SampleSongs())
			catalog.SetError("Entries", errNetwork)

			lib := NewLibrary(LibraryOpts{Catalog: catalog})
			err := lib.Load(ctx, nil)
			if !errors.Is(err, errNetwork) || errors.Is(err, shared.ErrOffline) {
				t.Fatalf("expected plain network error, got %v", err)
			}
			if lib.Loaded() || len(lib.Songs()) != 0 {
				t.Error("expected nothing loaded")
			}
		})

		t.Run("Nil Catalog", func(t *testing.T) {
			lib := NewLibrary(LibraryOpts{})
			if err := lib.Load(ctx, nil); !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	})

	t.Run("Snapshot Cache", func(t *testing.T) {
		t.Run("Saves After Fetch", func(t *testing.T) {
			cache := newMemoryCache()
			catalog := tu.NewMockCatalog(tu.SampleSongs())
			catalog.Seed(models.Playlist, models.Entry{ID: "5", ItemID: "1"})

			lib := NewLibrary(LibraryOpts{Catalog: catalog, Cache: cache})
			if err := lib.Load(ctx, nil); err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if len(cache.songs) != 4 || len(cache.entries[models.Playlist]) != 1 {
				t.Errorf("expected snapshot to be cached, got %d songs %d playlist", len(cache.songs), len(cache.entries[models.Playlist]))
			}
		})

		t.Run("Serves Cached Snapshot Offline", func(t *testing.T) {
			cache := newMemoryCache()
			cache.songs = tu.SampleSongs()[:2]
			cache.entries[models.Favorites] = []models.Entry{{ID: "9", ItemID: "1"}}

			catalog := tu.NewMockCatalog(tu.SampleSongs())
			catalog.SetError("Songs", errNetwork)

			lib := NewLibrary(LibraryOpts{Catalog: catalog, Cache: cache})
			err := lib.Load(ctx, nil)
			if !errors.Is(err, shared.ErrOffline) || !errors.Is(err, errNetwork) {
				t.Fatalf("expected ErrOffline wrapping the cause, got %v", err)
			}
			if !lib.Offline() || len(lib.Songs()) != 2 || !lib.Contains(models.Favorites, "1") {
				t.Error("expected cached state to be served")
			}

			t.Run("Mutations Are Rejected", func(t *testing.T) {
				err := lib.Add(ctx, models.Playlist, tu.SampleSongs()[0])
				if !errors.Is(err, shared.ErrOffline) {
					t.Errorf("expected ErrOffline, got %v", err)
				}
				if catalog.CallCount("CreateEntry") != 0 {
					t.Error("expected no request while offline")
				}
			})

			t.Run("Recovers On Next Load", func(t *testing.T) {
				catalog.SetError("Songs", nil)
				if err := lib.Load(ctx, nil); err != nil {
					t.Fatalf("Load failed: %v", err)
				}
				if lib.Offline() || len(lib.Songs()) != 4 {
					t.Error("expected live state after recovery")
				}
			})
		})

		t.Run("Cache Read Failure Returns Cause", func(t *testing.T) {
			cache := newMemoryCache()
			cache.loadErr = errors.New("no such table")
			catalog := tu.NewMockCatalog(nil)
			catalog.SetError("Songs", errNetwork)

			lib := NewLibrary(LibraryOpts{Catalog: catalog, Cache: cache})
			err := lib.Load(ctx, nil)
			if !errors.Is(err, errNetwork) || errors.Is(err, shared.ErrOffline) {
				t.Errorf("expected the original error, got %v", err)
			}
			if lib.Offline() {
				t.Error("expected library to stay online")
			}
		})
	})

	t.Run("Filter", func(t *testing.T) {
		lib := newLoadedLibrary(t, tu.NewMockCatalog(tu.SampleSongs()))

		got := lib.Filter("pop")
		if len(got) != 2 || got[0].ID != "2" || got[1].ID != "3" {
			t.Errorf("expected K-Pop and Pop songs, got %+v", got)
		}
		if len(lib.Filter("")) != 4 {
			t.Error("expected empty term to return every song")
		}
	})

	t.Run("Song", func(t *testing.T) {
		lib := newLoadedLibrary(t, tu.NewMockCatalog(tu.SampleSongs()))

		if s, err := lib.Song("4"); err != nil || s.Title != "Numb" {
			t.Errorf("expected Numb, got %+v (%v)", s, err)
		}
		if _, err := lib.Song("99"); !errors.Is(err, shared.ErrSongNotFound) {
			t.Errorf("expected ErrSongNotFound, got %v", err)
		}
	})

	t.Run("Add", func(t *testing.T) {
		t.Run("Posts Snapshot And Refreshes", func(t *testing.T) {
			song := models.Song{ID: "1", Title: "Tum Hi Ho", Singer: "Arijit", Genre: "Romantic"}
			catalog := tu.NewMockCatalog([]models.Song{song})
			lib := newLoadedLibrary(t, catalog)

			if err := lib.Add(ctx, models.Favorites, song); err != nil {
				t.Fatalf("Add failed: %v", err)
			}

			stored := catalog.Stored(models.Favorites)
			if len(stored) != 1 {
				t.Fatalf("expected one stored entry, got %d", len(stored))
			}
			want := models.Entry{ID: stored[0].ID, ItemID: "1", Title: "Tum Hi Ho", Singer: "Arijit", Genre: "Romantic"}
			if stored[0] != want {
				t.Errorf("expected %+v, got %+v", want, stored[0])
			}
			if models.CountItem(lib.Entries(models.Favorites), "1") != 1 {
				t.Error("expected exactly one favorite for song 1 after refresh")
			}
			if !lib.Contains(models.Favorites, "1") {
				t.Error("expected favorite marker to be active")
			}
		})

		t.Run("Already A Member Is A No-op", func(t *testing.T) {
			catalog := tu.NewMockCatalog(tu.SampleSongs())
			catalog.Seed(models.Playlist, models.Entry{ID: "7", ItemID: "3"})
			lib := newLoadedLibrary(t, catalog)

			if err := lib.Add(ctx, models.Playlist, tu.SampleSongs()[2]); err != nil {
				t.Fatalf("Add failed: %v", err)
			}
			if catalog.CallCount("CreateEntry") != 0 {
				t.Error("expected no POST for an existing member")
			}
		})

		t.Run("Invalid Song", func(t *testing.T) {
			lib := newLoadedLibrary(t, tu.NewMockCatalog(nil))
			if err := lib.Add(ctx, models.Favorites, models.Song{Title: "no id"}); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})

		t.Run("Create Failure Leaves State", func(t *testing.T) {
			catalog := tu.NewMockCatalog(tu.SampleSongs())
			lib := newLoadedLibrary(t, catalog)
			catalog.SetError("CreateEntry", errNetwork)

			if err := lib.Add(ctx, models.Favorites, tu.SampleSongs()[0]); !errors.Is(err, errNetwork) {
				t.Fatalf("expected network error, got %v", err)
			}
			if lib.Contains(models.Favorites, "1") {
				t.Error("expected no favorite after failed add")
			}
			if lib.Pending(models.Favorites, "1") {
				t.Error("expected pending flag to be released")
			}
		})

		t.Run("Refresh Failure Applies Created Entry", func(t *testing.T) {
			catalog := tu.NewMockCatalog(tu.SampleSongs())
			lib := newLoadedLibrary(t, catalog)
			catalog.SetError("Entries", errNetwork)

			if err := lib.Add(ctx, models.Favorites, tu.SampleSongs()[1]); err != nil {
				t.Fatalf("Add failed: %v", err)
			}
			if !lib.Contains(models.Favorites, "2") {
				t.Error("expected created entry to be applied locally")
			}
		})
	})

	t.Run("Remove", func(t *testing.T) {
		t.Run("Deletes By Entry ID", func(t *testing.T) {
			catalog := tu.NewMockCatalog(tu.SampleSongs())
			catalog.Seed(models.Favorites,
				models.Entry{ID: "50", ItemID: "2"},
				models.Entry{ID: "51", ItemID: "4"},
			)
			lib := newLoadedLibrary(t, catalog)

			if err := lib.Remove(ctx, models.Favorites, "4"); err != nil {
				t.Fatalf("Remove failed: %v", err)
			}

			calls := catalog.Calls()
			last := calls[len(calls)-2]
			if last.Method != "DeleteEntry" || last.ID != "51" {
				t.Errorf("expected DELETE of entry 51, got %+v", last)
			}
			if models.CountItem(lib.Entries(models.Favorites), "4") != 0 {
				t.Error("expected zero entries for song 4 after refresh")
			}
			if !lib.Contains(models.Favorites, "2") {
				t.Error("expected other favorites to remain")
			}
		})

		t.Run("Not A Member", func(t *testing.T) {
			catalog := tu.NewMockCatalog(tu.SampleSongs())
			lib := newLoadedLibrary(t, catalog)

			if err := lib.Remove(ctx, models.Playlist, "1"); !errors.Is(err, shared.ErrEntryNotFound) {
				t.Errorf("expected ErrEntryNotFound, got %v", err)
			}
			if catalog.CallCount("DeleteEntry") != 0 {
				t.Error("expected no DELETE for a non-member")
			}
		})

		t.Run("Already Gone Server Side", func(t *testing.T) {
			catalog := tu.NewMockCatalog(tu.SampleSongs())
			catalog.Seed(models.Playlist, models.Entry{ID: "8", ItemID: "3"})
			lib := newLoadedLibrary(t, catalog)
			catalog.SetError("DeleteEntry", shared.ErrEntryNotFound)

			if err := lib.Remove(ctx, models.Playlist, "3"); err != nil {
				t.Fatalf("expected stale delete to succeed, got %v", err)
			}
		})

		t.Run("Delete Failure Leaves State", func(t *testing.T) {
			catalog := tu.NewMockCatalog(tu.SampleSongs())
			catalog.Seed(models.Playlist, models.Entry{ID: "8", ItemID: "3"})
			lib := newLoadedLibrary(t, catalog)
			catalog.SetError("DeleteEntry", errNetwork)

			if err := lib.Remove(ctx, models.Playlist, "3"); !errors.Is(err, errNetwork) {
				t.Fatalf("expected network error, got %v", err)
			}
			if !lib.Contains(models.Playlist, "3") {
				t.Error("expected entry to remain after failed delete")
			}
		})
	})

	t.Run("Toggle", func(t *testing.T) {
		t.Run("Add Remove Add Yields One Entry", func(t *testing.T) {
			catalog := tu.NewMockCatalog(tu.SampleSongs())
			lib := newLoadedLibrary(t, catalog)
			song := tu.SampleSongs()[0]

			for i, want := range []bool{true, false, true} {
				member, err := lib.Toggle(ctx, models.Favorites, song)
				if err != nil {
					t.Fatalf("toggle %d failed: %v", i, err)
				}
				if member != want {
					t.Errorf("toggle %d: expected member=%v, got %v", i, want, member)
				}
			}

			if n := models.CountItem(catalog.Stored(models.Favorites), song.ID); n != 1 {
				t.Errorf("expected exactly one entry, got %d", n)
			}
		})

		t.Run("Collections Are Independent", func(t *testing.T) {
			catalog := tu.NewMockCatalog(tu.SampleSongs())
			lib := newLoadedLibrary(t, catalog)
			song := tu.SampleSongs()[1]

			lib.Toggle(ctx, models.Favorites, song)
			if lib.Contains(models.Playlist, song.ID) {
				t.Error("favorite toggle must not touch the playlist")
			}
			lib.Toggle(ctx, models.Playlist, song)
			if !lib.Contains(models.Favorites, song.ID) || !lib.Contains(models.Playlist, song.ID) {
				t.Error("expected song in both collections")
			}
		})

		t.Run("Rapid Double Toggle Issues One Mutation", func(t *testing.T) {
			catalog := tu.NewMockCatalog(tu.SampleSongs())
			lib := newLoadedLibrary(t, catalog)
			catalog.Gate = make(chan struct{})
			song := tu.SampleSongs()[0]

			done := make(chan error, 1)
			go func() {
				_, err := lib.Toggle(ctx, models.Favorites, song)
				done <- err
			}()
			waitFor(t, func() bool { return catalog.CallCount("CreateEntry") == 1 })

			if !lib.Pending(models.Favorites, song.ID) {
				t.Error("expected pair to be pending")
			}
			if _, err := lib.Toggle(ctx, models.Favorites, song); !errors.Is(err, shared.ErrMutationPending) {
				t.Errorf("expected ErrMutationPending, got %v", err)
			}

			close(catalog.Gate)
			if err := <-done; err != nil {
				t.Fatalf("first toggle failed: %v", err)
			}

			if catalog.CallCount("CreateEntry") != 1 {
				t.Errorf("expected one POST, got %d", catalog.CallCount("CreateEntry"))
			}
			if n := models.CountItem(lib.Entries(models.Favorites), song.ID); n != 1 {
				t.Errorf("expected one favorite, got %d", n)
			}
			if lib.Pending(models.Favorites, song.ID) {
				t.Error("expected pending flag to be released")
			}
		})
	})
}
