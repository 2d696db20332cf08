package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/songbook/internal/playback"
	"github.com/desertthunder/songbook/internal/services"
	"github.com/desertthunder/songbook/internal/shared"
	"github.com/desertthunder/songbook/internal/ui"
	"github.com/urfave/cli/v3"
)

// TUI launches the interactive terminal UI for browsing, favorites, playlist and playback.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(r.config.Log.File)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	fileLogger.SetLevel(r.logger.GetLevel())
	r.SetLogger(fileLogger)

	if _, ok := r.catalog.(*services.CatalogService); ok {
		r.catalog = services.NewCatalogServiceFromConfig(r.config.Catalog, fileLogger)
	}

	lib, done, err := r.library(fileLogger)
	if err != nil {
		return err
	}
	defer done()

	model := ui.NewModel(ctx, ui.Options{
		Library: lib,
		NewDeck: func() *playback.Deck {
			return playback.NewDeck(playback.NewConfig(r.config, fileLogger))
		},
		Logger: fileLogger,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
