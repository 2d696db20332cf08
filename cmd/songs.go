package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/playback"
	"github.com/desertthunder/songbook/internal/shared"
	"github.com/desertthunder/songbook/internal/tasks"
	"github.com/urfave/cli/v3"
)

// songRow is the JSON shape of `songs list --json`.
type songRow struct {
	models.Song
	Favorite bool `json:"favorite"`
	Playlist bool `json:"playlist"`
}

// SongsList prints the song list with favorite and playlist markers.
func (r *Runner) SongsList(ctx context.Context, cmd *cli.Command) error {
	term := cmd.String("search")

	lib, done, err := r.loadLibrary(ctx)
	if err != nil {
		return err
	}
	defer done()

	songs := lib.Filter(term)
	r.logger.Debug("songs listed", "search", term, "count", len(songs))

	if cmd.Bool("json") {
		rows := make([]songRow, len(songs))
		for i, s := range songs {
			rows[i] = songRow{
				Song:     s,
				Favorite: lib.Contains(models.Favorites, s.ID),
				Playlist: lib.Contains(models.Playlist, s.ID),
			}
		}
		return r.writeJSON(rows, true)
	}

	if len(songs) == 0 {
		if term != "" {
			return r.writePlain("No songs match %q.\n", term)
		}
		return r.writePlain("The catalog has no songs.\n")
	}

	tw := tabwriter.NewWriter(r.output, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSINGER\tGENRE\t")
	for _, s := range songs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			s.ID, shared.Truncate(s.Title, 40), shared.Truncate(s.Singer, 28), s.Genre, markers(lib, s.ID))
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if lib.Offline() {
		r.writePlain("\n(offline: cached snapshot)\n")
	}
	return r.writePlain("\n%s\n", shared.Plural(len(songs), "song"))
}

func markers(lib *tasks.Library, id models.ID) string {
	var b strings.Builder
	if lib.Contains(models.Favorites, id) {
		b.WriteString("♥")
	}
	if lib.Contains(models.Playlist, id) {
		b.WriteString("♪")
	}
	return b.String()
}

// songDetail is the JSON shape of `songs inspect --json`.
type songDetail struct {
	models.Song
	AudioURL  string         `json:"audioUrl"`
	ImageURL  string         `json:"imageUrl"`
	Favorites int            `json:"favorites"`
	Playlist  int            `json:"playlist"`
	Tags      *playback.Tags `json:"tags,omitempty"`
}

// SongsInspect shows one song, its resolved URLs and how many entries reference it.
//
// With --probe the first bytes of the audio source are fetched and their ID3 tags decoded.
func (r *Runner) SongsInspect(ctx context.Context, cmd *cli.Command) error {
	id := models.ID(strings.TrimSpace(cmd.StringArg("id")))
	if id == "" {
		return fmt.Errorf("%w: song id is required", shared.ErrMissingArgument)
	}

	lib, done, err := r.loadLibrary(ctx)
	if err != nil {
		return err
	}
	defer done()

	song, err := lib.Song(id)
	if err != nil {
		return err
	}

	base := r.config.Catalog.BaseURL
	detail := songDetail{
		Song:      song,
		AudioURL:  shared.ResolveURL(base, song.SongURL),
		ImageURL:  shared.ResolveURL(base, song.ImgURL),
		Favorites: models.CountItem(lib.Entries(models.Favorites), id),
		Playlist:  models.CountItem(lib.Entries(models.Playlist), id),
	}

	if cmd.Bool("probe") {
		if song.SongURL == "" {
			return fmt.Errorf("%w: %s", shared.ErrNoSource, song.Title)
		}
		tags, err := playback.Probe(ctx, r.clientFor(detail.AudioURL), detail.AudioURL)
		if err != nil {
			r.logger.Warn("failed to read tags", "song", id, "url", detail.AudioURL, "error", err)
		} else {
			detail.Tags = tags
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(detail, true)
	}

	r.writePlainHeader(song.Title)
	r.writePlain("ID:        %s\n", song.ID)
	r.writePlain("Singer:    %s\n", song.Singer)
	r.writePlain("Genre:     %s\n", song.Genre)
	r.writePlain("Audio:     %s\n", detail.AudioURL)
	r.writePlain("Image:     %s\n", detail.ImageURL)
	r.writePlain("Favorites: %s\n", yesNo(detail.Favorites))
	r.writePlain("Playlist:  %s\n", yesNo(detail.Playlist))

	if t := detail.Tags; t != nil {
		r.writePlainln("Tags (%s, %s)", t.Format, t.FileType)
		r.writePlain("  Title:  %s\n", t.Title)
		r.writePlain("  Artist: %s\n", t.Artist)
		r.writePlain("  Album:  %s\n", t.Album)
		r.writePlain("  Genre:  %s\n", t.Genre)
		if t.Year > 0 {
			r.writePlain("  Year:   %d\n", t.Year)
		}
	}
	return nil
}

// yesNo renders a membership count; duplicates left by other clients are shown.
func yesNo(n int) string {
	switch {
	case n == 0:
		return "no"
	case n == 1:
		return "yes"
	default:
		return fmt.Sprintf("yes (%d entries)", n)
	}
}
