package shared

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment overrides, applied on top of the TOML file so the token can stay out of config.toml.
const (
	EnvCatalogURL   = "SONGBOOK_CATALOG_URL"
	EnvCatalogToken = "SONGBOOK_CATALOG_TOKEN"
	EnvLogLevel     = "SONGBOOK_LOG_LEVEL"
)

// ApplyEnv loads the given dotenv files (missing ones are skipped) and overrides config values
// from the environment. Later files win over earlier ones, so ".env", ".env.local" lets the
// local file override the shared one. Variables already set in the process win over both.
func ApplyEnv(c *Config, files ...string) error {
	// godotenv.Load never overwrites a set variable, so the first file loaded wins
	for i := len(files) - 1; i >= 0; i-- {
		if err := godotenv.Load(files[i]); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", files[i], err)
		}
	}

	if v := os.Getenv(EnvCatalogURL); v != "" {
		c.Catalog.BaseURL = v
	}
	if v := os.Getenv(EnvCatalogToken); v != "" {
		c.Catalog.Token = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
	return c.Validate()
}
