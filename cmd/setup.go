package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/songbook/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupConfig writes the default config to the --config path.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := r.configPath
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}

	r.logger.Info("config file created", "path", path)
	r.writePlain("✓ Wrote %s\n", path)
	r.writePlain("  Set [catalog] base_url to your catalog service, then run `songbook songs list`.\n")
	return nil
}

// SetupCache creates the snapshot cache database and runs migrations.
func (r *Runner) SetupCache(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing cache", "path", r.config.Cache.Path)

	db, err := shared.OpenCache(r.config.Cache)
	if err != nil {
		return fmt.Errorf("failed to initialize cache: %w", err)
	}
	defer db.Close()

	r.logger.Infof("setup complete for cache: %v", r.config.Cache.Path)
	r.writePlain("✓ Cache ready at %s\n", r.config.Cache.Path)
	if !r.config.Cache.Enabled {
		r.writePlain("  Set [cache] enabled = true to serve it when the catalog is unreachable.\n")
	}
	return nil
}
