package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songbook/internal/playback"
	"github.com/desertthunder/songbook/internal/repositories"
	"github.com/desertthunder/songbook/internal/services"
	"github.com/desertthunder/songbook/internal/shared"
	"github.com/desertthunder/songbook/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	catalog    services.Catalog
	api        *services.APIService
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	newDeck    func() *playback.Deck

	// set when the config came from RunnerOpts and must not be reloaded from disk
	pinned bool
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Nil services are built from the loaded config before the first command runs.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Catalog    services.Catalog
	API        *services.APIService
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	NewDeck    func() *playback.Deck
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	pinned := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		catalog:    opts.Catalog,
		api:        opts.API,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		newDeck:    opts.NewDeck,
		pinned:     pinned,
	}
}

// before loads the config named by --config plus environment overrides, applies the log level
// and wires missing services.
func (r *Runner) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if !r.pinned {
		config, err := r.loadConfig()
		if err != nil {
			return ctx, err
		}
		if err := shared.ApplyEnv(config, ".env", ".env.local"); err != nil {
			return ctx, err
		}
		r.config = config
	}

	level := cmd.String("log-level")
	if level == "" {
		level = r.config.Log.Level
	}
	shared.SetLogLevel(r.logger, level)

	r.wire()
	return ctx, nil
}

// loadConfig reads configPath, falling back to defaults when the file does not exist.
func (r *Runner) loadConfig() (*shared.Config, error) {
	if r.configPath == "" {
		return shared.DefaultConfig(), nil
	}

	if _, err := os.Stat(r.configPath); errors.Is(err, fs.ErrNotExist) {
		r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		return shared.DefaultConfig(), nil
	}

	config, err := shared.LoadConfig(r.configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	r.logger.Debug("config loaded", "path", r.configPath)
	return config, nil
}

func (r *Runner) wire() {
	if r.httpClient == nil {
		r.httpClient = services.NewCatalogHTTPClient(r.config.Catalog)
	}
	if r.catalog == nil {
		r.catalog = services.NewCatalogServiceFromConfig(r.config.Catalog, r.logger)
	}
	if r.api == nil {
		r.api = services.NewAPIService(r.config.Catalog.BaseURL, r.httpClient)
	}
	if r.newDeck == nil {
		r.newDeck = func() *playback.Deck {
			return playback.NewDeck(playback.NewConfig(r.config, r.logger))
		}
	}
}

// clientFor returns the catalog client, with its token and timeout, for URLs on the catalog host.
// Other hosts get a client with the same timeout and no credentials.
func (r *Runner) clientFor(target string) *http.Client {
	base, err := url.Parse(r.config.Catalog.BaseURL)
	if err == nil {
		if u, err := url.Parse(target); err == nil && strings.EqualFold(u.Host, base.Host) {
			return r.httpClient
		}
	}
	return &http.Client{Timeout: r.config.Catalog.Timeout()}
}

// SetLogger replaces the logger used by the runner and every service it builds afterwards.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// openCache opens the snapshot cache when [cache] enabled is set.
//
// Returns a nil repository when caching is disabled; the closer is always safe to call.
func (r *Runner) openCache() (*repositories.SnapshotRepository, func(), error) {
	if !r.config.Cache.Enabled {
		return nil, func() {}, nil
	}

	db, err := shared.OpenCache(r.config.Cache)
	if err != nil {
		return nil, func() {}, err
	}
	return repositories.NewSnapshotRepository(db), closer(r.logger, db), nil
}

// requireCache opens the snapshot cache regardless of [cache] enabled, for the cache commands.
func (r *Runner) requireCache() (*repositories.SnapshotRepository, func(), error) {
	db, err := shared.OpenCache(r.config.Cache)
	if err != nil {
		return nil, func() {}, err
	}
	return repositories.NewSnapshotRepository(db), closer(r.logger, db), nil
}

func closer(logger *log.Logger, db *sql.DB) func() {
	return func() {
		if err := db.Close(); err != nil {
			logger.Warn("failed to close cache", "error", err)
		}
	}
}

// library builds a [tasks.Library] over the catalog, with the snapshot cache when enabled.
func (r *Runner) library(logger *log.Logger) (*tasks.Library, func(), error) {
	if r.catalog == nil {
		return nil, func() {}, fmt.Errorf("%w: catalog not initialized", shared.ErrServiceUnavailable)
	}

	opts := tasks.LibraryOpts{Catalog: r.catalog, Logger: logger}
	repo, done, err := r.openCache()
	if err != nil {
		r.logger.Warn("snapshot cache unavailable", "error", err)
	} else if repo != nil {
		opts.Cache = repo
	}
	return tasks.NewLibrary(opts), done, nil
}

// loadLibrary builds and loads a library. A cached snapshot is accepted with a warning.
func (r *Runner) loadLibrary(ctx context.Context) (*tasks.Library, func(), error) {
	lib, done, err := r.library(r.logger)
	if err != nil {
		return nil, done, err
	}

	if err := lib.Load(ctx, nil); err != nil {
		if errors.Is(err, shared.ErrOffline) {
			r.logger.Warn("catalog unreachable, showing cached snapshot")
			return lib, done, nil
		}
		done()
		return nil, func() {}, err
	}
	return lib, done, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		songsCommand, favoritesCommand, playlistCommand, exportCommand, playCommand,
		serveCommand, tuiCommand, setupCommand, cacheCommand, apiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
