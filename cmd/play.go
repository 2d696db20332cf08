package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/shared"
	"github.com/urfave/cli/v3"
)

// Play streams one song to the speaker and blocks until it ends or ctx is cancelled.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
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

	deck := r.newDeck()
	defer deck.Close()

	voice, err := deck.Play(song)
	if err != nil {
		return err
	}

	r.logger.Info("playing", "song", song.ID, "url", voice.URL())
	_, total := voice.Position()
	r.writePlain("▶ %s - %s (%s)\n", song.Title, song.Singer, total.Round(time.Second))

	select {
	case <-voice.Done():
		r.writePlain("■ Finished\n")
	case <-ctx.Done():
		pos, _ := voice.Position()
		r.writePlain("\n■ Stopped at %s\n", pos.Round(time.Second))
	}
	return nil
}
