package services

import (
	"context"
	"net/http"

	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/shared"
	"golang.org/x/oauth2"
)

const defaultCatalogURL string = "http://localhost:3000"

// Catalog defines the operations the remote catalog service exposes.
//
// The service owns all state; implementations are stateless request wrappers.
type Catalog interface {
	// Songs retrieves the full song list (GET /items).
	Songs(ctx context.Context) ([]models.Song, error)

	// Entries retrieves a membership collection in server order (GET /favorities, GET /playlist).
	Entries(ctx context.Context, c models.Collection) ([]models.Entry, error)

	// CreateEntry posts a denormalized snapshot; the server assigns the entry ID.
	CreateEntry(ctx context.Context, c models.Collection, in models.EntryInput) (*models.Entry, error)

	// DeleteEntry removes an entry by its own ID (not the song ID).
	DeleteEntry(ctx context.Context, c models.Collection, id models.ID) error
}

// NewCatalogHTTPClient builds the [http.Client] used for catalog requests.
//
// When a token is configured, requests carry it as a bearer token through [oauth2.StaticTokenSource].
func NewCatalogHTTPClient(cfg shared.CatalogConfig) *http.Client {
	var client *http.Client
	if cfg.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token, TokenType: "Bearer"})
		client = oauth2.NewClient(context.Background(), ts)
	} else {
		client = &http.Client{}
	}
	client.Timeout = cfg.Timeout()
	return client
}
