package web

import (
	"bytes"
	"compress/gzip"
	"embed"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/tdewolff/minify/v2"
	"github.com/tdewolff/minify/v2/css"
	"github.com/tdewolff/minify/v2/js"
	"github.com/tdewolff/minify/v2/svg"
)

//go:embed static/*
var staticFS embed.FS

const (
	staticPrefix    = "/static/"
	placeholderPath = staticPrefix + "placeholder.svg"
)

// asset holds a minified and gzipped version of a static file.
type asset struct {
	content     []byte
	gzipped     []byte
	contentType string
}

// Assets serves the embedded static files, minified once at startup.
type Assets struct {
	files map[string]*asset
}

// NewAssets minifies and compresses every embedded static file.
func NewAssets(logger *log.Logger) (*Assets, error) {
	m := minify.New()
	m.AddFunc("text/css", css.Minify)
	m.AddFunc("text/javascript", js.Minify)
	m.AddFunc("application/javascript", js.Minify)
	m.AddFunc("image/svg+xml", svg.Minify)

	a := &Assets{files: map[string]*asset{}}
	err := fs.WalkDir(staticFS, "static", func(filePath string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}

		data, err := staticFS.ReadFile(filePath)
		if err != nil {
			return err
		}

		contentType := mime.TypeByExtension(filepath.Ext(filePath))
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		name := strings.TrimPrefix(filePath, "static/")

		minified := data
		mediaType := strings.Split(contentType, ";")[0]
		if _, _, fn := m.Match(mediaType); fn != nil {
			var buf bytes.Buffer
			if err := m.Minify(mediaType, &buf, bytes.NewReader(data)); err != nil {
				logger.Warn("failed to minify asset, serving original", "asset", name, "error", err)
			} else {
				minified = buf.Bytes()
				logger.Debug("minified asset", "asset", name, "from", len(data), "to", len(minified))
			}
		}

		var gz bytes.Buffer
		w, _ := gzip.NewWriterLevel(&gz, gzip.BestCompression)
		w.Write(minified)
		w.Close()

		a.files[name] = &asset{content: minified, gzipped: gz.Bytes(), contentType: contentType}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load static assets: %w", err)
	}

	return a, nil
}

func (a *Assets) Routes() []string {
	return []string{"GET " + staticPrefix}
}

func (a *Assets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean(r.URL.Path), staticPrefix)
	f, ok := a.files[name]
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", f.contentType)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Vary", "Accept-Encoding")

	if strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") && len(f.gzipped) > 0 {
		w.Header().Set("Content-Encoding", "gzip")
		w.Write(f.gzipped)
		return
	}
	w.Write(f.content)
}
