package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/desertthunder/songbook/internal/shared"
)

// ID identifies songs and entries.
//
// The catalog may encode ids as JSON strings or numbers; both decode to the same string form so that
// 6 and "6" compare equal. IDs are always encoded as strings.
type ID string

// UnmarshalJSON accepts a JSON string, number or null.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}

	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id must be a string or number, got %s", string(b))
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Collection names one of the membership collections of the catalog service.
//
// Values are the wire path segments, spelling included.
type Collection string

const (
	Favorites Collection = "favorities"
	Playlist  Collection = "playlist"
)

// Collections lists every membership collection in display order.
func Collections() []Collection {
	return []Collection{Favorites, Playlist}
}

// Path returns the REST collection path, e.g. "/favorities".
func (c Collection) Path() string {
	return "/" + string(c)
}

// Label returns a human readable name.
func (c Collection) Label() string {
	switch c {
	case Favorites:
		return "Favorites"
	case Playlist:
		return "Playlist"
	default:
		return string(c)
	}
}

// ParseCollection maps user input to a [Collection]. Both spellings of favorites are accepted.
func ParseCollection(s string) (Collection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "favorites", "favorities", "favorite", "fav", "favs":
		return Favorites, nil
	case "playlist", "playlists", "pl":
		return Playlist, nil
	default:
		return "", fmt.Errorf("%w: unknown collection %q (want favorites or playlist)", shared.ErrInvalidArgument, s)
	}
}
