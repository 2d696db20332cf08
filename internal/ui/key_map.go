package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	next      key.Binding
	songs     key.Binding
	favorites key.Binding
	playlist  key.Binding
	search    key.Binding
	done      key.Binding
	favorite  key.Binding
	queue     key.Binding
	play      key.Binding
	stop      key.Binding
	remove    key.Binding
	refresh   key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		next:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
		songs:     key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "songs")),
		favorites: key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "favorites")),
		playlist:  key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "playlist")),
		search:    key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		done:      key.NewBinding(key.WithKeys("esc", "enter"), key.WithHelp("esc", "done")),
		favorite:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
		queue:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "playlist")),
		play:      key.NewBinding(key.WithKeys(" ", "enter"), key.WithHelp("space", "play/pause")),
		stop:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		remove:    key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove")),
		refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.next, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.next, k.songs, k.favorites, k.playlist},
		{k.search, k.favorite, k.queue, k.play, k.stop, k.remove},
		{k.refresh, k.quit},
	}
}

// forTab returns the bindings shown in the help line of tab t.
func (k keyMap) forTab(t Tab) []key.Binding {
	if t == SongsTab {
		return []key.Binding{k.search, k.favorite, k.queue, k.play, k.stop, k.next, k.refresh, k.quit}
	}
	return []key.Binding{k.play, k.stop, k.remove, k.next, k.refresh, k.quit}
}
