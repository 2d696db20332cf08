package models

// Entry is a favorite or playlist record: a copy of the song fields at the time it was added, stored
// under its own ID. ItemID references [Song.ID].
type Entry struct {
	ID      ID     `json:"id"`
	ItemID  ID     `json:"itemId"`
	Title   string `json:"title"`
	ImgURL  string `json:"imgUrl"`
	Genre   string `json:"genre"`
	SongURL string `json:"songUrl"`
	Singer  string `json:"singer"`
}

// EntryInput is the create payload; the server assigns the entry ID.
type EntryInput struct {
	ItemID  ID     `json:"itemId"`
	Title   string `json:"title"`
	ImgURL  string `json:"imgUrl"`
	Genre   string `json:"genre"`
	SongURL string `json:"songUrl"`
	Singer  string `json:"singer"`
}

// NewEntryInput snapshots s for a POST to a membership collection.
func NewEntryInput(s Song) EntryInput {
	return EntryInput{
		ItemID:  s.ID,
		Title:   s.Title,
		ImgURL:  s.ImgURL,
		Genre:   s.Genre,
		SongURL: s.SongURL,
		Singer:  s.Singer,
	}
}

// Song rebuilds the referenced song from the snapshot, e.g. for playback.
func (e Entry) Song() Song {
	return Song{
		ID:      e.ItemID,
		Title:   e.Title,
		Singer:  e.Singer,
		Genre:   e.Genre,
		ImgURL:  e.ImgURL,
		SongURL: e.SongURL,
	}
}

// FindByItemID returns the first entry referencing song id.
func FindByItemID(entries []Entry, id ID) (Entry, bool) {
	for _, e := range entries {
		if e.ItemID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// ContainsItem reports whether any entry references song id.
func ContainsItem(entries []Entry, id ID) bool {
	_, ok := FindByItemID(entries, id)
	return ok
}

// CountItem counts entries referencing song id; more than one means the collection holds duplicates.
func CountItem(entries []Entry, id ID) int {
	n := 0
	for _, e := range entries {
		if e.ItemID == id {
			n++
		}
	}
	return n
}
