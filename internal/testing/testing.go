// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"testing"

	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/shared"
)

// SampleSongs is a small catalog used across package tests.
func SampleSongs() []models.Song {
	return []models.Song{
		{ID: "1", Title: "Tum Hi Ho", Singer: "Arijit Singh", Genre: "Romantic", ImgURL: "/img/1.jpg", SongURL: "/audio/1.mp3"},
		{ID: "2", Title: "Dynamite", Singer: "BTS", Genre: "K-Pop", ImgURL: "/img/2.jpg", SongURL: "/audio/2.mp3"},
		{ID: "3", Title: "Levitating", Singer: "Dua Lipa", Genre: "Pop", ImgURL: "/img/3.jpg", SongURL: "/audio/3.mp3"},
		{ID: "4", Title: "Numb", Singer: "Linkin Park", Genre: "Rock", ImgURL: "/img/4.jpg", SongURL: "/audio/4.mp3"},
	}
}

// Call records one request made against a [MockCatalog].
type Call struct {
	Method     string
	Collection models.Collection
	ID         models.ID
}

// MockCatalog is an in-memory test double for services.Catalog.
//
// Errors registered with [MockCatalog.SetError] are returned by the named method until cleared.
// When Gate is non-nil, CreateEntry and DeleteEntry block until it is closed.
type MockCatalog struct {
	Gate chan struct{}

	mu      sync.Mutex
	songs   []models.Song
	entries map[models.Collection][]models.Entry
	errs    map[string]error
	calls   []Call
	nextID  int
}

func NewMockCatalog(songs []models.Song) *MockCatalog {
	return &MockCatalog{
		songs:   songs,
		entries: map[models.Collection][]models.Entry{},
		errs:    map[string]error{},
		nextID:  100,
	}
}

// Seed appends entries to collection c as if they already existed server-side.
func (m *MockCatalog) Seed(c models.Collection, entries ...models.Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[c] = append(m.entries[c], entries...)
}

// SetError makes method ("Songs", "Entries", "CreateEntry", "DeleteEntry") fail with err; nil clears it.
func (m *MockCatalog) SetError(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, method)
		return
	}
	m.errs[method] = err
}

// Calls returns a copy of every recorded call.
func (m *MockCatalog) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Call(nil), m.calls...)
}

// CallCount counts recorded calls to method.
func (m *MockCatalog) CallCount(method string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Stored returns the server-side state of collection c.
func (m *MockCatalog) Stored(c models.Collection) []models.Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Entry(nil), m.entries[c]...)
}

func (m *MockCatalog) record(call Call) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
	return m.errs[call.Method]
}

func (m *MockCatalog) wait(ctx context.Context) error {
	if m.Gate == nil {
		return nil
	}
	select {
	case <-m.Gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockCatalog) Songs(ctx context.Context) ([]models.Song, error) {
	if err := m.record(Call{Method: "Songs"}); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Song{}, m.songs...), nil
}

func (m *MockCatalog) Entries(ctx context.Context, c models.Collection) ([]models.Entry, error) {
	if err := m.record(Call{Method: "Entries", Collection: c}); err != nil {
		return nil, err
	}
	return append([]models.Entry{}, m.Stored(c)...), nil
}

func (m *MockCatalog) CreateEntry(ctx context.Context, c models.Collection, in models.EntryInput) (*models.Entry, error) {
	if err := m.record(Call{Method: "CreateEntry", Collection: c, ID: in.ItemID}); err != nil {
		return nil, err
	}
	if err := m.wait(ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	e := models.Entry{
		ID:      models.ID(strconv.Itoa(m.nextID)),
		ItemID:  in.ItemID,
		Title:   in.Title,
		ImgURL:  in.ImgURL,
		Genre:   in.Genre,
		SongURL: in.SongURL,
		Singer:  in.Singer,
	}
	m.entries[c] = append(m.entries[c], e)
	return &e, nil
}

func (m *MockCatalog) DeleteEntry(ctx context.Context, c models.Collection, id models.ID) error {
	if err := m.record(Call{Method: "DeleteEntry", Collection: c, ID: id}); err != nil {
		return err
	}
	if err := m.wait(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, e := range m.entries[c] {
		if e.ID == id {
			m.entries[c] = append(m.entries[c][:i], m.entries[c][i+1:]...)
			return nil
		}
	}
	return shared.ErrEntryNotFound
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

func MustGetwd(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	return wd
}

func MustChdir(t *testing.T, dir string) {
	t.Helper()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
