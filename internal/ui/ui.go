package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/playback"
	"github.com/desertthunder/songbook/internal/shared"
	"github.com/desertthunder/songbook/internal/tasks"
)

// Tab is one of the three views of the shell.
type Tab int

const (
	SongsTab Tab = iota
	FavoritesTab
	PlaylistTab
)

var tabs = []Tab{SongsTab, FavoritesTab, PlaylistTab}

func (t Tab) String() string {
	switch t {
	case FavoritesTab:
		return "Favorites"
	case PlaylistTab:
		return "Playlist"
	default:
		return "Songs"
	}
}

// collection returns the membership collection a table tab shows.
func (t Tab) collection() (models.Collection, bool) {
	switch t {
	case FavoritesTab:
		return models.Favorites, true
	case PlaylistTab:
		return models.Playlist, true
	}
	return "", false
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusWarn
	statusErr
)

// Options wires a [Model].
type Options struct {
	Library *tasks.Library
	NewDeck func() *playback.Deck
	Logger  *log.Logger
}

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	lib     *tasks.Library
	newDeck func() *playback.Deck
	deck    *playback.Deck
	logger  *log.Logger

	tab       Tab
	width     int
	height    int
	loading   bool
	search    textinput.Model
	searching bool
	songList  list.Model
	tables    map[models.Collection]table.Model

	status     string
	statusKind statusKind

	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(io.Discard)
	}
	if opts.NewDeck == nil {
		opts.NewDeck = func() *playback.Deck { return playback.NewDeck(playback.Config{Logger: opts.Logger}) }
	}

	search := textinput.New()
	search.Placeholder = "search title, singer or genre"
	search.Prompt = "/ "
	search.CharLimit = 64

	songList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	songList.Title = "Songs"
	songList.SetFilteringEnabled(false)
	songList.SetShowHelp(false)
	songList.SetStatusBarItemName("song", "songs")

	m := &Model{
		ctx:      ctx,
		lib:      opts.Library,
		newDeck:  opts.NewDeck,
		deck:     opts.NewDeck(),
		logger:   opts.Logger,
		tab:      SongsTab,
		search:   search,
		songList: songList,
		tables:   map[models.Collection]table.Model{},
		help:     help.New(),
		keys:     newKeyMap(),
	}
	for _, c := range models.Collections() {
		m.tables[c] = newEntryTable()
	}
	return m
}

func newEntryTable() table.Model {
	return table.New(
		table.WithColumns([]table.Column{
			{Title: "#", Width: 4},
			{Title: "Title", Width: 28},
			{Title: "Singer", Width: 20},
			{Title: "Genre", Width: 12},
			{Title: "", Width: 2},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
}

// Tab returns the visible tab.
func (m *Model) Tab() Tab { return m.tab }

// Close stops playback. Called when the program exits.
func (m *Model) Close() {
	if m.deck != nil {
		m.deck.Close()
	}
}

// Init activates the songs tab.
func (m *Model) Init() tea.Cmd {
	return m.activate(SongsTab)
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) resize() {
	m.songList.SetSize(max(m.width-4, 20), max(m.height-10, 5))
	for c, t := range m.tables {
		t.SetHeight(max(m.height-10, 5))
		m.tables[c] = t
	}
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.handleSearchKeys(msg)
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		m.Close()
		return m, tea.Quit
	case key.Matches(msg, m.keys.next):
		return m, m.switchTo(tabs[(int(m.tab)+1)%len(tabs)])
	case key.Matches(msg, m.keys.songs):
		return m, m.switchTo(SongsTab)
	case key.Matches(msg, m.keys.favorites):
		return m, m.switchTo(FavoritesTab)
	case key.Matches(msg, m.keys.playlist):
		return m, m.switchTo(PlaylistTab)
	case key.Matches(msg, m.keys.refresh):
		return m, m.activate(m.tab)
	case key.Matches(msg, m.keys.stop):
		m.deck.StopAll()
		m.setStatus(statusInfo, "Stopped playback")
		m.sync()
		return m, nil
	}

	if m.tab == SongsTab {
		return m.handleSongKeys(msg)
	}
	return m.handleTableKeys(msg)
}

func (m *Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.Close()
		return m, tea.Quit
	}
	if key.Matches(msg, m.keys.done) {
		m.searching = false
		m.search.Blur()
		return m, nil
	}

	m.search, _ = m.search.Update(msg)
	m.syncSongs()
	return m, nil
}

func (m *Model) handleSongKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.search):
		m.searching = true
		m.search.Focus()
		return m, nil
	case msg.Type == tea.KeyEsc && m.search.Value() != "":
		m.search.SetValue("")
		m.syncSongs()
		return m, nil
	case key.Matches(msg, m.keys.favorite):
		if song, ok := m.selectedSong(); ok {
			return m, m.toggle(models.Favorites, song)
		}
		return m, nil
	case key.Matches(msg, m.keys.queue):
		if song, ok := m.selectedSong(); ok {
			return m, m.toggle(models.Playlist, song)
		}
		return m, nil
	case key.Matches(msg, m.keys.play):
		if song, ok := m.selectedSong(); ok {
			return m, m.play(song)
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.songList, cmd = m.songList.Update(msg)
	return m, cmd
}

func (m *Model) handleTableKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	c, _ := m.tab.collection()

	switch {
	case key.Matches(msg, m.keys.remove):
		if e, ok := m.selectedEntry(c); ok {
			return m, m.remove(c, e.Song())
		}
		return m, nil
	case key.Matches(msg, m.keys.play):
		if e, ok := m.selectedEntry(c); ok {
			return m, m.play(e.Song())
		}
		return m, nil
	}

	t := m.tables[c]
	t, cmd := t.Update(msg)
	m.tables[c] = t
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLoaded:
		data := msg.data.(loadedData)
		if data.tab == m.tab {
			m.loading = false
		}
		switch {
		case errors.Is(data.err, shared.ErrOffline):
			m.setStatus(statusWarn, "Catalog unreachable, showing cached snapshot")
		case data.err != nil:
			m.setStatus(statusErr, fmt.Sprintf("Failed to load %s: %v", data.tab, data.err))
		}
		m.sync()

	case MsgToggled:
		data := msg.data.(toggledData)
		switch {
		case data.err != nil:
			m.mutationFailed(data.collection, data.song, data.err)
		case data.added:
			m.setStatus(statusInfo, fmt.Sprintf("Added %s to %s", data.song.Title, data.collection.Label()))
		default:
			m.setStatus(statusInfo, fmt.Sprintf("Removed %s from %s", data.song.Title, data.collection.Label()))
		}
		m.sync()

	case MsgRemoved:
		data := msg.data.(removedData)
		if data.err != nil {
			m.mutationFailed(data.collection, data.song, data.err)
		} else {
			m.setStatus(statusInfo, fmt.Sprintf("Removed %s from %s", data.song.Title, data.collection.Label()))
		}
		m.sync()

	case MsgPlayback:
		data := msg.data.(playbackData)
		if data.err != nil {
			m.setStatus(statusErr, fmt.Sprintf("Cannot play %s: %v", data.song.Title, data.err))
		} else if data.playing {
			m.setStatus(statusInfo, fmt.Sprintf("Playing %s by %s", data.song.Title, data.song.Singer))
		} else {
			m.setStatus(statusInfo, fmt.Sprintf("Paused %s", data.song.Title))
		}
		m.sync()
		if data.playing && data.done != nil && data.deck == m.deck {
			return m, waitForEnd(data.song, data.done)
		}

	case MsgPlaybackEnded:
		m.sync()
	}

	return m, nil
}

func (m *Model) mutationFailed(c models.Collection, song models.Song, err error) {
	switch {
	case errors.Is(err, shared.ErrMutationPending):
		m.setStatus(statusWarn, fmt.Sprintf("%s is already being updated", song.Title))
	case errors.Is(err, shared.ErrOffline):
		m.setStatus(statusWarn, "Offline: changes are disabled until the catalog is reachable")
	default:
		m.setStatus(statusErr, fmt.Sprintf("Failed to update %s: %v", c.Label(), err))
	}
}

func (m *Model) setStatus(kind statusKind, s string) {
	m.statusKind = kind
	m.status = s
	if kind == statusErr {
		m.logger.Error(s)
	}
}

// switchTo leaves the current tab, stopping its audio, and activates t.
func (m *Model) switchTo(t Tab) tea.Cmd {
	if m.deck != nil {
		m.deck.Close()
	}
	m.deck = m.newDeck()
	m.tab = t
	m.searching = false
	m.search.Blur()
	m.sync()
	return m.activate(t)
}

// activate re-fetches the data tab t shows.
func (m *Model) activate(t Tab) tea.Cmd {
	m.loading = true
	ctx, lib := m.ctx, m.lib

	if c, ok := t.collection(); ok {
		return func() tea.Msg {
			return loadedMsg(t, lib.Refresh(ctx, c))
		}
	}
	return func() tea.Msg {
		return loadedMsg(t, lib.Load(ctx, nil))
	}
}

func (m *Model) toggle(c models.Collection, song models.Song) tea.Cmd {
	ctx, lib := m.ctx, m.lib
	return func() tea.Msg {
		added, err := lib.Toggle(ctx, c, song)
		return toggledMsg(c, song, added, err)
	}
}

func (m *Model) remove(c models.Collection, song models.Song) tea.Cmd {
	ctx, lib := m.ctx, m.lib
	return func() tea.Msg {
		return removedMsg(c, song, lib.Remove(ctx, c, song.ID))
	}
}

func (m *Model) play(song models.Song) tea.Cmd {
	deck := m.deck
	return func() tea.Msg {
		v, err := deck.Voice(song)
		if err != nil {
			return playbackMsg(deck, song, false, nil, err)
		}
		playing, err := v.Toggle()
		return playbackMsg(deck, song, playing, v.Done(), err)
	}
}

func waitForEnd(song models.Song, done <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		<-done
		return playbackEndedMsg(song)
	}
}

func (m *Model) selectedSong() (models.Song, bool) {
	item, ok := m.songList.SelectedItem().(songItem)
	if !ok {
		return models.Song{}, false
	}
	return item.song, true
}

func (m *Model) selectedEntry(c models.Collection) (models.Entry, bool) {
	entries := m.lib.Entries(c)
	i := m.tables[c].Cursor()
	if i < 0 || i >= len(entries) {
		return models.Entry{}, false
	}
	return entries[i], true
}

// sync rebuilds the song list and tables from the library.
func (m *Model) sync() {
	m.syncSongs()
	for _, c := range models.Collections() {
		m.syncTable(c)
	}
}

func (m *Model) syncSongs() {
	songs := m.lib.Filter(m.search.Value())
	items := make([]list.Item, len(songs))
	for i, s := range songs {
		items[i] = songItem{
			song:     s,
			favorite: m.lib.Contains(models.Favorites, s.ID),
			playlist: m.lib.Contains(models.Playlist, s.ID),
			playing:  m.deck.Playing(s.ID),
		}
	}
	m.songList.SetItems(items)
}

func (m *Model) syncTable(c models.Collection) {
	entries := m.lib.Entries(c)
	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		mark := ""
		if m.deck.Playing(e.ItemID) {
			mark = "▶"
		}
		rows[i] = table.Row{strconv.Itoa(i + 1), e.Title, e.Singer, e.Genre, mark}
	}

	t := m.tables[c]
	t.SetRows(rows)
	if t.Cursor() >= len(rows) {
		t.SetCursor(max(len(rows)-1, 0))
	}
	m.tables[c] = t
}
