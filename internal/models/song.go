package models

import (
	"errors"
	"strings"
)

// Song is reference data owned by the catalog service (GET /items).
type Song struct {
	ID      ID     `json:"id"`
	Title   string `json:"title"`
	Singer  string `json:"singer"`
	Genre   string `json:"genre"`
	ImgURL  string `json:"imgUrl"`
	SongURL string `json:"songUrl"`
}

// Validate checks that the song can be referenced by an entry.
func (s Song) Validate() error {
	if s.ID == "" {
		return errors.New("song id is required")
	}
	return nil
}

// Matches reports whether the lower-cased term is a substring of the title, singer or genre.
func (s Song) Matches(lowerTerm string) bool {
	return strings.Contains(strings.ToLower(s.Title), lowerTerm) ||
		strings.Contains(strings.ToLower(s.Singer), lowerTerm) ||
		strings.Contains(strings.ToLower(s.Genre), lowerTerm)
}

// FilterSongs returns the songs matching term, case-insensitively, in their original order.
//
// An empty term matches every song.
func FilterSongs(songs []Song, term string) []Song {
	lower := strings.ToLower(term)
	filtered := make([]Song, 0, len(songs))
	for _, s := range songs {
		if s.Matches(lower) {
			filtered = append(filtered, s)
		}
	}
	return filtered
}

// FindSong looks up a song by id.
func FindSong(songs []Song, id ID) (Song, bool) {
	for _, s := range songs {
		if s.ID == id {
			return s, true
		}
	}
	return Song{}, false
}
