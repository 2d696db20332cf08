// submodule cmd contains command definitions
package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/songbook/internal/formatter"
	"github.com/desertthunder/songbook/internal/models"
	"github.com/urfave/cli/v3"
)

var formatFlagUsage = fmt.Sprintf("Export format (%s)", strings.Join(formatter.Formats(), ", "))

// songsCommand handles the reference song list
func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "songs",
		Usage: "Browse the catalog song list",
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   "List songs, optionally filtered by title, singer or genre",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"s"},
						Usage:   "Case-insensitive substring filter",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SongsList,
			},
			{
				Name:  "inspect",
				Usage: "Show one song and where it is referenced",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "probe",
						Usage: "Read ID3 tags from the audio source",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.SongsInspect,
			},
		},
	}
}

func favoritesCommand(r *Runner) *cli.Command {
	return collectionCommand(r, models.Favorites, []string{"fav", "favs"})
}

func playlistCommand(r *Runner) *cli.Command {
	return collectionCommand(r, models.Playlist, []string{"pl"})
}

// collectionCommand builds the membership subcommands shared by favorites and playlist.
func collectionCommand(r *Runner, c models.Collection, aliases []string) *cli.Command {
	bind := func(fn func(context.Context, *cli.Command, models.Collection) error) cli.ActionFunc {
		return func(ctx context.Context, cmd *cli.Command) error {
			return fn(ctx, cmd, c)
		}
	}
	label := strings.ToLower(c.Label())
	songArg := []cli.Argument{&cli.StringArg{Name: "id", UsageText: "song id"}}

	return &cli.Command{
		Name:    label,
		Aliases: aliases,
		Usage:   fmt.Sprintf("Manage the %s collection", label),
		Commands: []*cli.Command{
			{
				Name:    "list",
				Aliases: []string{"ls"},
				Usage:   fmt.Sprintf("List %s entries in server order", label),
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: bind(r.CollectionList),
			},
			{
				Name:      "add",
				Usage:     fmt.Sprintf("Add a song to %s", label),
				Arguments: songArg,
				Action:    bind(r.CollectionAdd),
			},
			{
				Name:      "remove",
				Aliases:   []string{"rm"},
				Usage:     fmt.Sprintf("Remove a song from %s", label),
				Arguments: songArg,
				Action:    bind(r.CollectionRemove),
			},
			{
				Name:      "toggle",
				Usage:     fmt.Sprintf("Add a song to %s, or remove it when already present", label),
				Arguments: songArg,
				Action:    bind(r.CollectionToggle),
			},
			{
				Name:  "export",
				Usage: fmt.Sprintf("Write %s to disk", label),
				Flags: exportFlags(),
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return r.Export(ctx, cmd, []models.Collection{c})
				},
			},
		},
	}
}

func exportFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "format",
			Aliases: []string{"f"},
			Usage:   formatFlagUsage,
			Value:   "json",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output directory (default: songbook_export_{timestamp})",
		},
		&cli.IntFlag{
			Name:  "workers",
			Usage: "Concurrent writers",
			Value: 2,
		},
	}
}

// exportCommand writes both collections, or the ones named by --collection
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export favorites and playlist to disk",
		Flags: append(exportFlags(), &cli.StringSliceFlag{
			Name:    "collection",
			Aliases: []string{"C"},
			Usage:   "Collection to export (favorites, playlist); repeatable, default all",
		}),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			collections, err := parseCollections(cmd.StringSlice("collection"))
			if err != nil {
				return err
			}
			return r.Export(ctx, cmd, collections)
		},
	}
}

// parseCollections resolves --collection values, dropping repeats. No values selects every collection.
func parseCollections(names []string) ([]models.Collection, error) {
	if len(names) == 0 {
		return models.Collections(), nil
	}

	seen := map[models.Collection]bool{}
	var out []models.Collection
	for _, name := range names {
		c, err := models.ParseCollection(name)
		if err != nil {
			return nil, err
		}
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out, nil
}

func playCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "play",
		Usage: "Stream a song to the speaker until it ends or is interrupted",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name: "id",
			},
		},
		Action: r.Play,
	}
}

// serveCommand starts the browser UI
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the songs, favorites and playlist pages over HTTP",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (default: [server] host)",
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Usage:   "Listen port (default: [server] port)",
			},
			&cli.BoolFlag{
				Name:  "open",
				Usage: "Open the songs page in the default browser",
			},
		},
		Action: r.Serve,
	}
}

func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "tui",
		Usage:  "Launch the interactive terminal UI",
		Action: r.TUI,
	}
}

// setupCommand handles first-run setup for the config file and snapshot cache.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml with default values",
				Action: r.SetupConfig,
			},
			{
				Name:   "cache",
				Usage:  "Initialize the snapshot cache database and run migrations",
				Action: r.SetupCache,
			},
		},
	}
}

// cacheCommand handles the opt-in offline snapshot
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and manage the offline snapshot cache",
		Commands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show cached collections and when they were fetched",
				Action: r.CacheStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Fetch every collection and store it in the cache",
				Action: r.CacheRefresh,
			},
			{
				Name:   "clear",
				Usage:  "Delete every cached snapshot",
				Action: r.CacheClear,
			},
		},
	}
}

// apiCommand handles direct catalog API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct requests against the catalog API",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Direct GET, prints raw JSON",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output compact JSON",
					},
				},
				Action: r.APIGet,
			},
			{
				Name:  "post",
				Usage: "Direct POST with JSON body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
			{
				Name:  "delete",
				Usage: "Direct DELETE",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Action: r.APIDelete,
			},
			{
				Name:  "dump",
				Usage: "Dump items, favorities and playlist unparsed",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
						Value: true,
					},
					&cli.BoolFlag{
						Name:  "save",
						Usage: "Save dump to api_dump.json",
						Value: false,
					},
				},
				Action: r.APIDump,
			},
		},
	}
}
