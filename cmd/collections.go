package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/shared"
	"github.com/desertthunder/songbook/internal/tasks"
	"github.com/urfave/cli/v3"
)

// CollectionList prints the entries of c in server order.
func (r *Runner) CollectionList(ctx context.Context, cmd *cli.Command, c models.Collection) error {
	lib, done, err := r.library(r.logger)
	if err != nil {
		return err
	}
	defer done()

	if err := lib.Refresh(ctx, c); err != nil {
		return fmt.Errorf("failed to fetch %s: %w", strings.ToLower(c.Label()), err)
	}
	entries := lib.Entries(c)

	if cmd.Bool("json") {
		return r.writeJSON(entries, true)
	}

	if len(entries) == 0 {
		return r.writePlain("No songs in %s yet.\n", strings.ToLower(c.Label()))
	}

	r.writePlainHeader(fmt.Sprintf("%s (%d)", c.Label(), len(entries)))
	for i, e := range entries {
		r.writePlain("%3d. %s - %s", i+1, e.Title, e.Singer)
		if e.Genre != "" {
			r.writePlain(" [%s]", e.Genre)
		}
		r.writePlain("  (song %s)\n", e.ItemID)
	}
	return nil
}

// mutate loads the library, resolves the song argument and runs fn against it.
func (r *Runner) mutate(
	ctx context.Context, cmd *cli.Command, c models.Collection,
	fn func(*tasks.Library, models.Song) error,
) error {
	id := models.ID(strings.TrimSpace(cmd.StringArg("id")))
	if id == "" {
		return fmt.Errorf("%w: song id is required", shared.ErrMissingArgument)
	}

	lib, done, err := r.loadLibrary(ctx)
	if err != nil {
		return err
	}
	defer done()

	if lib.Offline() {
		return fmt.Errorf("%w: cannot modify %s", shared.ErrOffline, strings.ToLower(c.Label()))
	}

	song, err := lib.Song(id)
	if err != nil {
		return err
	}
	return fn(lib, song)
}

// CollectionAdd adds a song to c. Adding a member again leaves the collection unchanged.
func (r *Runner) CollectionAdd(ctx context.Context, cmd *cli.Command, c models.Collection) error {
	return r.mutate(ctx, cmd, c, func(lib *tasks.Library, song models.Song) error {
		if lib.Contains(c, song.ID) {
			return r.writePlain("%s is already in %s.\n", song.Title, c.Label())
		}
		if err := lib.Add(ctx, c, song); err != nil {
			return fmt.Errorf("failed to add %s: %w", song.Title, err)
		}
		return r.writePlain("✓ Added %s to %s\n", song.Title, c.Label())
	})
}

// CollectionRemove deletes the entry of c that references the song.
func (r *Runner) CollectionRemove(ctx context.Context, cmd *cli.Command, c models.Collection) error {
	return r.mutate(ctx, cmd, c, func(lib *tasks.Library, song models.Song) error {
		if err := lib.Remove(ctx, c, song.ID); err != nil {
			if errors.Is(err, shared.ErrEntryNotFound) {
				return r.writePlain("%s is not in %s.\n", song.Title, c.Label())
			}
			return fmt.Errorf("failed to remove %s: %w", song.Title, err)
		}
		return r.writePlain("✓ Removed %s from %s\n", song.Title, c.Label())
	})
}

// CollectionToggle flips membership of the song in c.
func (r *Runner) CollectionToggle(ctx context.Context, cmd *cli.Command, c models.Collection) error {
	return r.mutate(ctx, cmd, c, func(lib *tasks.Library, song models.Song) error {
		member, err := lib.Toggle(ctx, c, song)
		if err != nil {
			return fmt.Errorf("failed to update %s: %w", c.Label(), err)
		}
		if member {
			return r.writePlain("✓ Added %s to %s\n", song.Title, c.Label())
		}
		return r.writePlain("✓ Removed %s from %s\n", song.Title, c.Label())
	})
}

// Export writes collections to disk in the chosen format.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command, collections []models.Collection) error {
	opts := tasks.ExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  r.config.Catalog.RateLimit,
		CoverURL: func(e models.Entry) string {
			return shared.ResolveURL(r.config.Catalog.BaseURL, e.ImgURL)
		},
		Warn: func(msg string, kv ...any) {
			r.logger.Warn(msg, kv...)
		},
	}

	r.logger.Info("starting export", "format", opts.Format, "collections", len(collections))
	r.writePlain("Exporting %s...\n\n", shared.Plural(len(collections), "collection"))

	progressCh := make(chan tasks.ProgressUpdate, 10)
	printed := make(chan struct{})
	go func() {
		defer close(printed)
		for update := range progressCh {
			r.writePlain("  [%d/%d] %s\n", update.Step, update.Total, update.Message)
		}
	}()

	result, err := tasks.Export(ctx, r.catalog, collections, opts, progressCh)
	close(progressCh)
	<-printed

	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete")
	r.writePlain("Collections: %d/%d exported\n", result.Successful, result.Total)
	r.writePlain("Output:      %s\n", result.OutputDirectory)
	r.writePlain("Manifest:    %s\n", result.ManifestPath)

	if result.Failed > 0 {
		r.writePlain("\nFailed:\n")
		for _, res := range result.Results {
			if res.Error != nil {
				r.writePlain("  - %s: %v\n", res.Collection.Label(), res.Error)
			}
		}
		return fmt.Errorf("%d of %d collections failed to export", result.Failed, result.Total)
	}
	return nil
}
