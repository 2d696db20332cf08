package tasks

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/services"
	"github.com/desertthunder/songbook/internal/shared"
	"golang.org/x/sync/errgroup"
)

// SnapshotCacher persists fetched collections so they can be served when the catalog is unreachable.
//
// Implemented by repositories.SnapshotRepository.
type SnapshotCacher interface {
	SaveSongs(ctx context.Context, songs []models.Song) error
	SaveEntries(ctx context.Context, c models.Collection, entries []models.Entry) error
	LoadSongs(ctx context.Context) ([]models.Song, error)
	LoadEntries(ctx context.Context, c models.Collection) ([]models.Entry, error)
}

// LibraryOpts configures a [Library].
type LibraryOpts struct {
	Catalog services.Catalog
	Cache   SnapshotCacher // optional
	Logger  *log.Logger
}

// Library is the UI-agnostic engine for browsing songs and toggling membership.
//
// It is safe for concurrent use: network calls happen outside the lock and only successful
// fetches replace cached state.
type Library struct {
	catalog services.Catalog
	cache   SnapshotCacher
	logger  *log.Logger
	pending Pending

	mu      sync.RWMutex
	songs   []models.Song
	entries map[models.Collection][]models.Entry
	loaded  bool
	offline bool
}

func NewLibrary(opts LibraryOpts) *Library {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	return &Library{
		catalog: opts.Catalog,
		cache:   opts.Cache,
		logger:  opts.Logger,
		entries: map[models.Collection][]models.Entry{},
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Load retrieves songs, favorites and playlist concurrently.
//
// On failure the previous state is kept. If nothing has been loaded yet and a cache is
// configured, the cached snapshot is served and the returned error wraps [shared.ErrOffline].
func (l *Library) Load(ctx context.Context, progress chan<- ProgressUpdate) error {
	if l.catalog == nil {
		return fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	var (
		songs    []models.Song
		favorite []models.Entry
		playlist []models.Entry
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sendProgress(progress, fetchUpdate(FetchSongs, 1, 3, "Fetching songs..."))
		var err error
		songs, err = l.catalog.Songs(gctx)
		return err
	})
	g.Go(func() error {
		sendProgress(progress, fetchUpdate(FetchFavorites, 2, 3, "Fetching favorites..."))
		var err error
		favorite, err = l.catalog.Entries(gctx, models.Favorites)
		return err
	})
	g.Go(func() error {
		sendProgress(progress, fetchUpdate(FetchPlaylist, 3, 3, "Fetching playlist..."))
		var err error
		playlist, err = l.catalog.Entries(gctx, models.Playlist)
		return err
	})

	if err := g.Wait(); err != nil {
		l.logger.Error("failed to load library", "error", err)
		return l.fallback(ctx, err)
	}

	l.mu.Lock()
	l.songs = songs
	l.entries[models.Favorites] = favorite
	l.entries[models.Playlist] = playlist
	l.loaded = true
	l.offline = false
	l.mu.Unlock()

	l.logger.Info("library loaded",
		"songs", len(songs), "favorites", len(favorite), "playlist", len(playlist))

	l.saveSongs(ctx, songs)
	l.saveEntries(ctx, models.Favorites, favorite)
	l.saveEntries(ctx, models.Playlist, playlist)
	sendProgress(progress, fetchUpdate(SaveSnapshot, 1, 1, "Library loaded"))
	return nil
}

func (l *Library) fallback(ctx context.Context, cause error) error {
	l.mu.RLock()
	loaded := l.loaded
	l.mu.RUnlock()

	if loaded || l.cache == nil {
		return cause
	}

	songs, err := l.cache.LoadSongs(ctx)
	if err != nil {
		l.logger.Warn("snapshot cache unavailable", "error", err)
		return cause
	}

	entries := map[models.Collection][]models.Entry{}
	for _, c := range models.Collections() {
		e, err := l.cache.LoadEntries(ctx, c)
		if err != nil {
			l.logger.Warn("snapshot cache unavailable", "collection", c, "error", err)
			return cause
		}
		entries[c] = e
	}

	l.mu.Lock()
	l.songs = songs
	l.entries = entries
	l.loaded = true
	l.offline = true
	l.mu.Unlock()

	l.logger.Warn("serving cached snapshot", "songs", len(songs))
	return fmt.Errorf("%w: %w", shared.ErrOffline, cause)
}

// RefreshSongs re-fetches the song list. On failure the previous list is kept.
func (l *Library) RefreshSongs(ctx context.Context) error {
	songs, err := l.catalog.Songs(ctx)
	if err != nil {
		l.logger.Error("failed to fetch songs", "error", err)
		return err
	}

	l.mu.Lock()
	l.songs = songs
	l.mu.Unlock()

	l.saveSongs(ctx, songs)
	return nil
}

// Refresh re-fetches collection c. On failure the previous entries are kept.
func (l *Library) Refresh(ctx context.Context, c models.Collection) error {
	entries, err := l.catalog.Entries(ctx, c)
	if err != nil {
		l.logger.Error("failed to fetch collection", "collection", c, "error", err)
		return err
	}

	l.mu.Lock()
	l.entries[c] = entries
	l.mu.Unlock()

	l.saveEntries(ctx, c, entries)
	return nil
}

// Songs returns a copy of the last fetched song list.
func (l *Library) Songs() []models.Song {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Song{}, l.songs...)
}

// Filter applies [models.FilterSongs] to the last fetched song list.
func (l *Library) Filter(term string) []models.Song {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return models.FilterSongs(l.songs, term)
}

// Song looks up a song by id in the last fetched list.
func (l *Library) Song(id models.ID) (models.Song, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := models.FindSong(l.songs, id)
	if !ok {
		return models.Song{}, fmt.Errorf("%w: %s", shared.ErrSongNotFound, id)
	}
	return s, nil
}

// Entries returns a copy of the last fetched entries of c, in server order.
func (l *Library) Entries(c models.Collection) []models.Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]models.Entry{}, l.entries[c]...)
}

// Contains reports whether c holds an entry for songID.
func (l *Library) Contains(c models.Collection, songID models.ID) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return models.ContainsItem(l.entries[c], songID)
}

// Pending reports whether a mutation for (c, songID) is in flight.
func (l *Library) Pending(c models.Collection, songID models.ID) bool {
	return l.pending.IsPending(c, songID)
}

// Offline reports whether the current state came from the snapshot cache.
func (l *Library) Offline() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.offline
}

// Loaded reports whether any state (live or cached) is available.
func (l *Library) Loaded() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.loaded
}

// Toggle removes song from c when it is a member and adds it otherwise.
//
// Returns whether the song is a member afterwards.
func (l *Library) Toggle(ctx context.Context, c models.Collection, song models.Song) (bool, error) {
	if l.Contains(c, song.ID) {
		if err := l.Remove(ctx, c, song.ID); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := l.Add(ctx, c, song); err != nil {
		return false, err
	}
	return true, nil
}

func (l *Library) mutable(c models.Collection, songID models.ID) (func(), error) {
	if l.catalog == nil {
		return nil, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}
	if l.Offline() {
		return nil, fmt.Errorf("%w: cannot modify %s", shared.ErrOffline, c.Label())
	}
	return l.pending.Acquire(c, songID)
}

// Add posts a snapshot of song to c and re-fetches c. Adding a song that is already a member is a no-op.
func (l *Library) Add(ctx context.Context, c models.Collection, song models.Song) error {
	if err := song.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	release, err := l.mutable(c, song.ID)
	if err != nil {
		return err
	}
	defer release()

	if l.Contains(c, song.ID) {
		l.logger.Debug("already a member", "collection", c, "song", song.ID)
		return nil
	}

	created, err := l.catalog.CreateEntry(ctx, c, models.NewEntryInput(song))
	if err != nil {
		l.logger.Error("failed to add entry", "collection", c, "song", song.ID, "error", err)
		return err
	}
	l.logger.Info("entry added", "collection", c, "song", song.ID, "entry", created.ID)

	if err := l.Refresh(ctx, c); err != nil {
		l.mu.Lock()
		l.entries[c] = append(l.entries[c], *created)
		l.mu.Unlock()
	}
	return nil
}

// Remove deletes the entry of c referencing songID (by the entry's own id) and re-fetches c.
func (l *Library) Remove(ctx context.Context, c models.Collection, songID models.ID) error {
	release, err := l.mutable(c, songID)
	if err != nil {
		return err
	}
	defer release()

	l.mu.RLock()
	entry, ok := models.FindByItemID(l.entries[c], songID)
	l.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: song %s is not in %s", shared.ErrEntryNotFound, songID, c.Label())
	}

	if err := l.catalog.DeleteEntry(ctx, c, entry.ID); err != nil {
		l.logger.Error("failed to remove entry", "collection", c, "song", songID, "entry", entry.ID, "error", err)
		if !errors.Is(err, shared.ErrEntryNotFound) {
			return err
		}
	} else {
		l.logger.Info("entry removed", "collection", c, "song", songID, "entry", entry.ID)
	}

	if err := l.Refresh(ctx, c); err != nil {
		l.mu.Lock()
		l.entries[c] = dropEntry(l.entries[c], entry.ID)
		l.mu.Unlock()
	}
	return nil
}

func dropEntry(entries []models.Entry, id models.ID) []models.Entry {
	out := make([]models.Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID != id {
			out = append(out, e)
		}
	}
	return out
}

func (l *Library) saveSongs(ctx context.Context, songs []models.Song) {
	if l.cache == nil {
		return
	}
	if err := l.cache.SaveSongs(ctx, songs); err != nil {
		l.logger.Warn("failed to cache songs", "error", err)
	}
}

func (l *Library) saveEntries(ctx context.Context, c models.Collection, entries []models.Entry) {
	if l.cache == nil {
		return
	}
	if err := l.cache.SaveEntries(ctx, c, entries); err != nil {
		l.logger.Warn("failed to cache collection", "collection", c, "error", err)
	}
}
