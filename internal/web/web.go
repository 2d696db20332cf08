package web

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/server"
	"github.com/desertthunder/songbook/internal/shared"
	"github.com/desertthunder/songbook/internal/tasks"
)

//go:embed templates/*.html
var templateFS embed.FS

const flashCookie = "songbook_flash"

// Options wires an [App].
type Options struct {
	Library *tasks.Library
	BaseURL string // catalog root, resolves relative image and audio URLs
	Logger  *log.Logger
}

// App renders the songs, favorites and playlist pages.
type App struct {
	lib     *tasks.Library
	baseURL string
	logger  *log.Logger
	assets  *Assets
	pages   map[string]*template.Template
}

// New parses the templates and prepares the static assets.
func New(opts Options) (*App, error) {
	if opts.Library == nil {
		return nil, fmt.Errorf("%w: web app needs a library", shared.ErrServiceUnavailable)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}

	assets, err := NewAssets(opts.Logger)
	if err != nil {
		return nil, err
	}

	pages := map[string]*template.Template{}
	for _, name := range []string{"songs", "collection"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = t
	}

	return &App{
		lib:     opts.Library,
		baseURL: opts.BaseURL,
		logger:  opts.Logger,
		assets:  assets,
		pages:   pages,
	}, nil
}

// Register mounts every route of the app on r.
func (a *App) Register(r server.Router) {
	r.Mount(a.assets)
	r.Handle(http.MethodGet, "/{$}", http.RedirectHandler("/songs", http.StatusFound))
	r.Handle(http.MethodGet, "/songs", http.HandlerFunc(a.songs))
	r.Handle(http.MethodPost, "/songs/{id}/favorite", a.toggle(models.Favorites))
	r.Handle(http.MethodPost, "/songs/{id}/playlist", a.toggle(models.Playlist))

	for _, c := range models.Collections() {
		r.Handle(http.MethodGet, c.Path(), a.collection(c))
		r.Handle(http.MethodPost, c.Path()+"/{itemId}/remove", a.remove(c))
	}
}

// Handler returns a router with the standard middleware and every route mounted.
func (a *App) Handler() http.Handler {
	r := server.NewBasicRouter()
	r.Use(server.Defaults(a.logger)...)
	a.Register(r)
	return r
}

type navLink struct {
	Href   string
	Label  string
	Active bool
}

type flash struct {
	Kind    string
	Message string
}

type page struct {
	Title   string
	Nav     []navLink
	Flash   *flash
	Offline bool
}

type songCard struct {
	Song            models.Song
	Img             string
	Audio           string
	Favorite        bool
	InPlaylist      bool
	FavoritePending bool
	PlaylistPending bool
}

type songsPage struct {
	page
	Query string
	Cards []songCard
}

type entryRow struct {
	Position int
	Entry    models.Entry
	Img      string
	Audio    string
	Pending  bool
}

type collectionPage struct {
	page
	Path string
	Rows []entryRow
}

func (a *App) newPage(w http.ResponseWriter, r *http.Request, title, active string) page {
	nav := []navLink{{Href: "/songs", Label: "Songs", Active: active == "/songs"}}
	for _, c := range models.Collections() {
		nav = append(nav, navLink{Href: c.Path(), Label: c.Label(), Active: active == c.Path()})
	}
	return page{Title: title, Nav: nav, Flash: a.takeFlash(w, r), Offline: a.lib.Offline()}
}

func (a *App) songs(w http.ResponseWriter, r *http.Request) {
	p := a.newPage(w, r, "Songs", "/songs")
	if err := a.lib.Load(r.Context(), nil); err != nil && !errors.Is(err, shared.ErrOffline) {
		a.logger.Error("failed to load library", "error", err, "request_id", server.RequestIDFrom(r.Context()))
		p.Flash = &flash{Kind: "error", Message: "Could not reach the catalog, showing the last loaded songs."}
	}
	p.Offline = a.lib.Offline()

	q := r.URL.Query().Get("q")
	songs := a.lib.Filter(q)
	cards := make([]songCard, len(songs))
	for i, s := range songs {
		cards[i] = songCard{
			Song:            s,
			Img:             a.imageURL(s.ImgURL),
			Audio:           a.resolve(s.SongURL),
			Favorite:        a.lib.Contains(models.Favorites, s.ID),
			InPlaylist:      a.lib.Contains(models.Playlist, s.ID),
			FavoritePending: a.lib.Pending(models.Favorites, s.ID),
			PlaylistPending: a.lib.Pending(models.Playlist, s.ID),
		}
	}

	a.render(w, r, "songs", songsPage{page: p, Query: q, Cards: cards})
}

func (a *App) collection(c models.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := a.newPage(w, r, c.Label(), c.Path())
		if err := a.lib.Refresh(r.Context(), c); err != nil {
			a.logger.Error("failed to fetch collection", "collection", c, "error", err,
				"request_id", server.RequestIDFrom(r.Context()))
			p.Flash = &flash{Kind: "error", Message: fmt.Sprintf("Could not reach the catalog, showing the last loaded %s.", c.Label())}
		}

		entries := a.lib.Entries(c)
		rows := make([]entryRow, len(entries))
		for i, e := range entries {
			rows[i] = entryRow{
				Position: i + 1,
				Entry:    e,
				Img:      a.imageURL(e.ImgURL),
				Audio:    a.resolve(e.SongURL),
				Pending:  a.lib.Pending(c, e.ItemID),
			}
		}

		a.render(w, r, "collection", collectionPage{page: p, Path: c.Path(), Rows: rows})
	}
}

func (a *App) toggle(c models.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		back := "/songs"
		if q := r.FormValue("q"); q != "" {
			back += "?q=" + url.QueryEscape(q)
		}

		if !a.lib.Loaded() {
			if err := a.lib.Load(r.Context(), nil); err != nil && !errors.Is(err, shared.ErrOffline) {
				a.logger.Warn("failed to load library before toggle", "error", err)
			}
		}

		song, err := a.lib.Song(models.ID(r.PathValue("id")))
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		added, err := a.lib.Toggle(r.Context(), c, song)
		switch {
		case err != nil:
			a.mutationFailed(w, r, c, song, err)
		case added:
			setFlash(w, "ok", fmt.Sprintf("Added %s to %s.", song.Title, c.Label()))
		default:
			setFlash(w, "ok", fmt.Sprintf("Removed %s from %s.", song.Title, c.Label()))
		}
		http.Redirect(w, r, back, http.StatusSeeOther)
	}
}

func (a *App) remove(c models.Collection) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := models.ID(r.PathValue("itemId"))
		entry, _ := models.FindByItemID(a.lib.Entries(c), itemID)
		song := entry.Song()

		if err := a.lib.Remove(r.Context(), c, itemID); err != nil {
			if song.Title == "" {
				song.Title = itemID.String()
			}
			a.mutationFailed(w, r, c, song, err)
		} else {
			setFlash(w, "ok", fmt.Sprintf("Removed %s from %s.", song.Title, c.Label()))
		}
		http.Redirect(w, r, c.Path(), http.StatusSeeOther)
	}
}

func (a *App) mutationFailed(w http.ResponseWriter, r *http.Request, c models.Collection, song models.Song, err error) {
	switch {
	case errors.Is(err, shared.ErrMutationPending):
		setFlash(w, "warn", fmt.Sprintf("%s is already being updated.", song.Title))
	case errors.Is(err, shared.ErrOffline):
		setFlash(w, "warn", "Changes are disabled while the catalog is unreachable.")
	case errors.Is(err, shared.ErrEntryNotFound):
		setFlash(w, "warn", fmt.Sprintf("%s is not in %s.", song.Title, c.Label()))
	default:
		a.logger.Error("mutation failed", "collection", c, "song", song.ID, "error", err,
			"request_id", server.RequestIDFrom(r.Context()))
		setFlash(w, "error", fmt.Sprintf("Failed to update %s.", c.Label()))
	}
}

func (a *App) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	var buf bytes.Buffer
	if err := a.pages[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		a.logger.Error("failed to render page", "page", name, "error", err,
			"request_id", server.RequestIDFrom(r.Context()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

func (a *App) resolve(ref string) string {
	return shared.ResolveURL(a.baseURL, ref)
}

func (a *App) imageURL(ref string) string {
	if ref == "" {
		return placeholderPath
	}
	return a.resolve(ref)
}

// setFlash stores a one-shot message shown on the next page.
func setFlash(w http.ResponseWriter, kind, msg string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(kind + "|" + msg),
		Path:     "/",
		MaxAge:   30,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *App) takeFlash(w http.ResponseWriter, r *http.Request) *flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookie, Path: "/", MaxAge: -1, Expires: time.Unix(0, 0)})

	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return nil
	}
	kind, msg, ok := strings.Cut(raw, "|")
	if !ok || msg == "" {
		return nil
	}
	return &flash{Kind: kind, Message: msg}
}
