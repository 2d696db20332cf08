// Catalog [Service] implementation over HTTP+JSON
//
// Talks to a json-server style API: one base path per collection, server-assigned ids, DELETE by id.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/shared"
	"golang.org/x/time/rate"
)

var _ Catalog = (*CatalogService)(nil)

// CatalogOpts configures a [CatalogService].
type CatalogOpts struct {
	BaseURL    string
	HTTPClient *http.Client
	RateLimit  float64 // requests per second; 0 disables limiting
	UserAgent  string
	Logger     *log.Logger
}

// CatalogService implements [Catalog] against the REST endpoints /items, /favorities and /playlist.
type CatalogService struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	userAgent  string
	logger     *log.Logger
}

// NewCatalogService creates a catalog client. Zero-valued options fall back to defaults.
func NewCatalogService(opts CatalogOpts) *CatalogService {
	if opts.BaseURL == "" {
		opts.BaseURL = defaultCatalogURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}

	return &CatalogService{
		baseURL:    strings.TrimRight(opts.BaseURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    limiter,
		userAgent:  opts.UserAgent,
		logger:     opts.Logger,
	}
}

// NewCatalogServiceFromConfig wires a [CatalogService] from the [catalog] config section.
func NewCatalogServiceFromConfig(cfg shared.CatalogConfig, logger *log.Logger) *CatalogService {
	return NewCatalogService(CatalogOpts{
		BaseURL:    cfg.BaseURL,
		HTTPClient: NewCatalogHTTPClient(cfg),
		RateLimit:  cfg.RateLimit,
		UserAgent:  cfg.UserAgent,
		Logger:     logger,
	})
}

// BaseURL returns the catalog root without a trailing slash.
func (c *CatalogService) BaseURL() string {
	return c.baseURL
}

func (c *CatalogService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, payload)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	requestID := shared.GenerateID()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("catalog request failed", "method", method, "path", endpoint, "request_id", requestID, "error", err)
		return fmt.Errorf("%w: %s %s: %v", shared.ErrAPIRequest, method, endpoint, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("catalog request",
		"method", method, "path", endpoint, "status", resp.StatusCode,
		"request_id", requestID, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if resp.StatusCode == http.StatusNotFound && method == http.MethodDelete {
			return fmt.Errorf("%w: %w: %s %s", shared.ErrAPIRequest, shared.ErrEntryNotFound, method, endpoint)
		}
		return fmt.Errorf("%w: %s %s returned status %d: %s",
			shared.ErrAPIRequest, method, endpoint, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Songs retrieves all songs.
//
// Calls GET /items.
func (c *CatalogService) Songs(ctx context.Context) ([]models.Song, error) {
	var songs []models.Song
	if err := c.doRequest(ctx, http.MethodGet, "/items", nil, &songs); err != nil {
		return nil, err
	}
	if songs == nil {
		songs = []models.Song{}
	}
	return songs, nil
}

// Entries retrieves every entry of collection coll.
//
// Calls GET /favorities or GET /playlist.
func (c *CatalogService) Entries(ctx context.Context, coll models.Collection) ([]models.Entry, error) {
	var entries []models.Entry
	if err := c.doRequest(ctx, http.MethodGet, coll.Path(), nil, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []models.Entry{}
	}
	return entries, nil
}

// CreateEntry adds a snapshot to coll and returns the stored entry.
//
// Calls POST /favorities or POST /playlist.
func (c *CatalogService) CreateEntry(ctx context.Context, coll models.Collection, in models.EntryInput) (*models.Entry, error) {
	if in.ItemID == "" {
		return nil, fmt.Errorf("%w: entry has no itemId", shared.ErrInvalidInput)
	}

	var created models.Entry
	if err := c.doRequest(ctx, http.MethodPost, coll.Path(), in, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteEntry removes the entry with the given entry ID from coll.
//
// Calls DELETE /favorities/{id} or DELETE /playlist/{id}.
func (c *CatalogService) DeleteEntry(ctx context.Context, coll models.Collection, id models.ID) error {
	if id == "" {
		return fmt.Errorf("%w: entry id is required", shared.ErrInvalidInput)
	}

	endpoint := fmt.Sprintf("%s/%s", coll.Path(), url.PathEscape(id.String()))
	return c.doRequest(ctx, http.MethodDelete, endpoint, nil, nil)
}
