package web

import (
	"bytes"
	"compress/gzip"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/tasks"
	tu "github.com/desertthunder/songbook/internal/testing"
)

func newTestApp(t *testing.T, cat *tu.MockCatalog) http.Handler {
	t.Helper()
	app, err := New(Options{
		Library: tasks.NewLibrary(tasks.LibraryOpts{Catalog: cat}),
		BaseURL: "http://catalog.test",
	})
	if err != nil {
		t.Fatalf("failed to create app: %v", err)
	}
	return app.Handler()
}

func do(h http.Handler, method, target string, form url.Values, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPages(t *testing.T) {
	t.Run("Root Redirects To Songs", func(t *testing.T) {
		h := newTestApp(t, tu.NewMockCatalog(tu.SampleSongs()))
		rec := do(h, http.MethodGet, "/", nil)
		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/songs" {
			t.Errorf("expected redirect to /songs, got %q", loc)
		}
	})

	t.Run("Songs", func(t *testing.T) {
		h := newTestApp(t, tu.NewMockCatalog(tu.SampleSongs()))
		rec := do(h, http.MethodGet, "/songs", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		body := rec.Body.String()
		for _, want := range []string{
			"Tum Hi Ho", "Dynamite", "Levitating", "Numb",
			`src="http://catalog.test/img/1.jpg"`,
			`src="http://catalog.test/audio/1.mp3"`,
			`href="/favorities"`, `href="/playlist"`,
			`<script src="/static/app.js">`,
		} {
			if !strings.Contains(body, want) {
				t.Errorf("expected page to contain %q", want)
			}
		}
		if strings.Contains(body, `aria-pressed="true"`) {
			t.Error("expected no active toggles")
		}
	})

	t.Run("Search Is Case Insensitive Across Fields", func(t *testing.T) {
		h := newTestApp(t, tu.NewMockCatalog(tu.SampleSongs()))

		for _, q := range []string{"pop", "POP"} {
			body := do(h, http.MethodGet, "/songs?q="+q, nil).Body.String()
			if !strings.Contains(body, "Dynamite") || !strings.Contains(body, "Levitating") {
				t.Errorf("q=%s: expected K-Pop and Pop songs", q)
			}
			if strings.Contains(body, "Numb") || strings.Contains(body, "Tum Hi Ho") {
				t.Errorf("q=%s: expected other songs to be filtered out", q)
			}
			if !strings.Contains(body, `value="`+q+`"`) {
				t.Errorf("q=%s: expected search box to keep the term", q)
			}
		}

		body := do(h, http.MethodGet, "/songs?q=jazz", nil).Body.String()
		if !strings.Contains(body, "No songs match") {
			t.Error("expected empty result message")
		}
	})

	t.Run("Favorites Table", func(t *testing.T) {
		cat := tu.NewMockCatalog(tu.SampleSongs())
		cat.Seed(models.Favorites,
			models.Entry{ID: "10", ItemID: "3", Title: "Levitating", Singer: "Dua Lipa", Genre: "Pop"},
			models.Entry{ID: "11", ItemID: "4", Title: "Numb", Singer: "Linkin Park", Genre: "Rock"},
		)
		h := newTestApp(t, cat)

		body := do(h, http.MethodGet, "/favorities", nil).Body.String()
		for _, want := range []string{"<td>1</td>", "<td>2</td>", "Levitating", "Linkin Park", `action="/favorities/3/remove"`} {
			if !strings.Contains(body, want) {
				t.Errorf("expected table to contain %q", want)
			}
		}
		if !strings.Contains(body, `src="/static/placeholder.svg"`) {
			t.Error("expected placeholder for entries without artwork")
		}
	})

	t.Run("Empty Playlist", func(t *testing.T) {
		h := newTestApp(t, tu.NewMockCatalog(tu.SampleSongs()))
		body := do(h, http.MethodGet, "/playlist", nil).Body.String()
		if !strings.Contains(body, "No songs in Playlist yet.") {
			t.Error("expected empty playlist message")
		}
	})

	t.Run("Fetch Failure Keeps Previous State", func(t *testing.T) {
		cat := tu.NewMockCatalog(tu.SampleSongs())
		h := newTestApp(t, cat)
		do(h, http.MethodGet, "/songs", nil)

		cat.SetError("Songs", errors.New("connection refused"))
		rec := do(h, http.MethodGet, "/songs", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := rec.Body.String()
		if !strings.Contains(body, "Could not reach the catalog") {
			t.Error("expected error banner")
		}
		if !strings.Contains(body, "Tum Hi Ho") {
			t.Error("expected previously loaded songs")
		}
	})
}

func TestMutations(t *testing.T) {
	t.Run("Toggle Favorite", func(t *testing.T) {
		cat := tu.NewMockCatalog(tu.SampleSongs())
		h := newTestApp(t, cat)

		rec := do(h, http.MethodPost, "/songs/1/favorite", url.Values{"q": {"arijit"}})
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("expected 303, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/songs?q=arijit" {
			t.Errorf("expected redirect preserving q, got %q", loc)
		}

		stored := cat.Stored(models.Favorites)
		if len(stored) != 1 {
			t.Fatalf("expected one favorite, got %d", len(stored))
		}
		want := models.Entry{ID: stored[0].ID, ItemID: "1", Title: "Tum Hi Ho", Singer: "Arijit Singh", Genre: "Romantic", ImgURL: "/img/1.jpg", SongURL: "/audio/1.mp3"}
		if stored[0] != want {
			t.Errorf("expected denormalized snapshot %+v, got %+v", want, stored[0])
		}

		page := do(h, http.MethodGet, "/songs", nil, rec.Result().Cookies()...)
		body := page.Body.String()
		if !strings.Contains(body, "Added Tum Hi Ho to Favorites.") {
			t.Error("expected flash message")
		}
		if n := strings.Count(body, `aria-pressed="true"`); n != 1 {
			t.Errorf("expected one active toggle, got %d", n)
		}

		do(h, http.MethodPost, "/songs/1/favorite", url.Values{})
		if n := len(cat.Stored(models.Favorites)); n != 0 {
			t.Errorf("expected second toggle to remove the favorite, got %d", n)
		}
	})

	t.Run("Add Remove Add Yields One Entry", func(t *testing.T) {
		cat := tu.NewMockCatalog(tu.SampleSongs())
		h := newTestApp(t, cat)

		for range 3 {
			do(h, http.MethodPost, "/songs/2/playlist", url.Values{})
		}
		stored := cat.Stored(models.Playlist)
		if len(stored) != 1 || stored[0].ItemID != "2" {
			t.Errorf("expected exactly one playlist entry for song 2, got %+v", stored)
		}
	})

	t.Run("Unknown Song", func(t *testing.T) {
		h := newTestApp(t, tu.NewMockCatalog(tu.SampleSongs()))
		rec := do(h, http.MethodPost, "/songs/99/favorite", url.Values{})
		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("Toggle Requires POST", func(t *testing.T) {
		h := newTestApp(t, tu.NewMockCatalog(tu.SampleSongs()))
		rec := do(h, http.MethodGet, "/songs/1/favorite", nil)
		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		cat := tu.NewMockCatalog(tu.SampleSongs())
		cat.Seed(models.Favorites,
			models.Entry{ID: "10", ItemID: "3", Title: "Levitating"},
			models.Entry{ID: "11", ItemID: "4", Title: "Numb"},
		)
		h := newTestApp(t, cat)
		do(h, http.MethodGet, "/favorities", nil)

		rec := do(h, http.MethodPost, "/favorities/3/remove", url.Values{})
		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/favorities" {
			t.Fatalf("expected 303 to /favorities, got %d %q", rec.Code, rec.Header().Get("Location"))
		}
		stored := cat.Stored(models.Favorites)
		if len(stored) != 1 || stored[0].ItemID != "4" {
			t.Errorf("expected only Numb left, got %+v", stored)
		}

		body := do(h, http.MethodGet, "/favorities", nil, rec.Result().Cookies()...).Body.String()
		if !strings.Contains(body, "Removed Levitating from Favorites.") {
			t.Error("expected flash message")
		}
		if strings.Contains(body, "<td>2</td>") {
			t.Error("expected a single row")
		}
	})

	t.Run("Remove Non Member", func(t *testing.T) {
		cat := tu.NewMockCatalog(tu.SampleSongs())
		h := newTestApp(t, cat)

		rec := do(h, http.MethodPost, "/playlist/4/remove", url.Values{})
		if rec.Code != http.StatusSeeOther {
			t.Fatalf("expected 303, got %d", rec.Code)
		}
		if cat.CallCount("DeleteEntry") != 0 {
			t.Error("expected no DELETE for a song that is not in the playlist")
		}
		body := do(h, http.MethodGet, "/playlist", nil, rec.Result().Cookies()...).Body.String()
		if !strings.Contains(body, "is not in Playlist.") {
			t.Error("expected not-a-member flash")
		}
	})
}

func TestAssets(t *testing.T) {
	h := newTestApp(t, tu.NewMockCatalog(nil))

	t.Run("Minified Script", func(t *testing.T) {
		rec := do(h, http.MethodGet, "/static/app.js", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "javascript") {
			t.Errorf("unexpected content type %q", ct)
		}

		original, _ := staticFS.ReadFile("static/app.js")
		if rec.Body.Len() == 0 || rec.Body.Len() >= len(original) {
			t.Errorf("expected minified script, got %d bytes from %d", rec.Body.Len(), len(original))
		}
		if !strings.Contains(rec.Body.String(), "play") {
			t.Error("expected play listener to survive minification")
		}
	})

	t.Run("Gzip", func(t *testing.T) {
		plain := do(h, http.MethodGet, "/static/app.css", nil).Body.Bytes()

		req := httptest.NewRequest(http.MethodGet, "/static/app.css", nil)
		req.Header.Set("Accept-Encoding", "gzip, deflate")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Header().Get("Content-Encoding") != "gzip" {
			t.Fatal("expected gzip encoding")
		}
		zr, err := gzip.NewReader(rec.Body)
		if err != nil {
			t.Fatalf("invalid gzip body: %v", err)
		}
		unzipped, _ := io.ReadAll(zr)
		if !bytes.Equal(unzipped, plain) {
			t.Error("expected gzipped body to match plain body")
		}
	})

	t.Run("Missing", func(t *testing.T) {
		if rec := do(h, http.MethodGet, "/static/nope.css", nil); rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}
