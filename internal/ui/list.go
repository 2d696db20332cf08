package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/songbook/internal/models"
)

var _ list.Item = songItem{}

// songItem wraps [models.Song] with its membership and playback markers to implement [list.Item].
type songItem struct {
	song     models.Song
	favorite bool
	playlist bool
	playing  bool
}

func (i songItem) FilterValue() string { return i.song.Title }

func (i songItem) Title() string {
	if i.playing {
		return "▶ " + i.song.Title
	}
	return i.song.Title
}

func (i songItem) Description() string {
	parts := []string{i.song.Singer}
	if i.song.Genre != "" {
		parts = append(parts, i.song.Genre)
	}
	desc := strings.Join(parts, " • ")

	var marks []string
	if i.favorite {
		marks = append(marks, "♥ favorite")
	}
	if i.playlist {
		marks = append(marks, "≡ playlist")
	}
	if len(marks) > 0 {
		desc += "  " + styles.marker.Render(strings.Join(marks, " "))
	}
	return desc
}
