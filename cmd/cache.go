package main

import (
	"context"
	"fmt"
	"time"

	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/shared"
	"github.com/desertthunder/songbook/internal/tasks"
	"github.com/urfave/cli/v3"
)

// CacheStatus prints what the snapshot cache holds.
func (r *Runner) CacheStatus(ctx context.Context, cmd *cli.Command) error {
	repo, done, err := r.requireCache()
	if err != nil {
		return err
	}
	defer done()

	status, err := repo.Status(ctx)
	if err != nil {
		return err
	}

	r.writePlainHeader("Snapshot Cache")
	r.writePlain("Path:    %s\n", r.config.Cache.Path)
	r.writePlain("Enabled: %v\n\n", r.config.Cache.Enabled)

	if len(status) == 0 {
		return r.writePlain("Nothing cached yet. Run `songbook cache refresh`.\n")
	}
	for _, s := range status {
		r.writePlain("%-12s %-12s fetched %s\n",
			s.Collection, shared.Plural(s.Count, "row"), s.FetchedAt.Local().Format(time.DateTime))
	}
	return nil
}

// CacheRefresh loads every collection from the catalog and stores it, whether or not the cache is enabled.
func (r *Runner) CacheRefresh(ctx context.Context, cmd *cli.Command) error {
	repo, done, err := r.requireCache()
	if err != nil {
		return err
	}
	defer done()

	lib := tasks.NewLibrary(tasks.LibraryOpts{Catalog: r.catalog, Cache: repo, Logger: r.logger})

	progressCh := make(chan tasks.ProgressUpdate, 10)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progressCh {
			r.writePlain("📥 %s\n", update.Message)
		}
	}()

	err = lib.Load(ctx, progressCh)
	close(progressCh)
	<-printed

	if err != nil {
		return fmt.Errorf("failed to refresh cache: %w", err)
	}

	r.writePlainln("✓ Cached %s, %s and %d playlist entries",
		shared.Plural(len(lib.Songs()), "song"),
		shared.Plural(len(lib.Entries(models.Favorites)), "favorite"),
		len(lib.Entries(models.Playlist)))
	return nil
}

// CacheClear deletes every cached snapshot.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	repo, done, err := r.requireCache()
	if err != nil {
		return err
	}
	defer done()

	if err := repo.Clear(ctx); err != nil {
		return err
	}
	r.logger.Info("cache cleared", "path", r.config.Cache.Path)
	return r.writePlain("✓ Cache cleared\n")
}
