package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/songbook/internal/models"
	"github.com/desertthunder/songbook/internal/playback"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLoaded MsgKind = iota
	MsgToggled
	MsgRemoved
	MsgPlayback
	MsgPlaybackEnded
)

type loadedData struct {
	tab Tab
	err error
}

type toggledData struct {
	collection models.Collection
	song       models.Song
	added      bool
	err        error
}

type removedData struct {
	collection models.Collection
	song       models.Song
	err        error
}

type playbackData struct {
	deck    *playback.Deck
	song    models.Song
	playing bool
	done    <-chan struct{}
	err     error
}

// loadedMsg is the constructor for [MsgLoaded]
func loadedMsg(tab Tab, err error) Msg {
	return Msg{kind: MsgLoaded, data: loadedData{tab: tab, err: err}}
}

// toggledMsg is the constructor for [MsgToggled]
func toggledMsg(c models.Collection, song models.Song, added bool, err error) Msg {
	return Msg{kind: MsgToggled, data: toggledData{collection: c, song: song, added: added, err: err}}
}

// removedMsg is the constructor for [MsgRemoved]
func removedMsg(c models.Collection, song models.Song, err error) Msg {
	return Msg{kind: MsgRemoved, data: removedData{collection: c, song: song, err: err}}
}

// playbackMsg is the constructor for [MsgPlayback]
func playbackMsg(deck *playback.Deck, song models.Song, playing bool, done <-chan struct{}, err error) Msg {
	return Msg{kind: MsgPlayback, data: playbackData{deck: deck, song: song, playing: playing, done: done, err: err}}
}

// playbackEndedMsg is the constructor for [MsgPlaybackEnded]
func playbackEndedMsg(song models.Song) Msg {
	return Msg{kind: MsgPlaybackEnded, data: song}
}
