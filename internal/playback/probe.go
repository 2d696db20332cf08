package playback

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dhowden/tag"
)

const probeBytes = 128 * 1024

// Tags is the embedded metadata of an audio file.
type Tags struct {
	Format   string `json:"format"`
	FileType string `json:"fileType"`
	Title    string `json:"title,omitempty"`
	Artist   string `json:"artist,omitempty"`
	Album    string `json:"album,omitempty"`
	Genre    string `json:"genre,omitempty"`
	Year     int    `json:"year,omitempty"`
}

// Probe reads the leading bytes of the audio at url and parses its ID3/MP4/FLAC tags.
// Only the prefix is fetched, so tags stored at the end of the file are not seen.
func Probe(ctx context.Context, client *http.Client, url string) (*Tags, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Range", fmt.Sprintf("bytes=0-%d", probeBytes-1))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, fmt.Errorf("failed to fetch %s: %s", url, resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, probeBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", url, err)
	}

	return ReadTags(bytes.NewReader(data))
}

// ReadTags parses the tags at the start of r.
func ReadTags(r io.ReadSeeker) (*Tags, error) {
	m, err := tag.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tags: %w", err)
	}

	return &Tags{
		Format:   string(m.Format()),
		FileType: string(m.FileType()),
		Title:    m.Title(),
		Artist:   m.Artist(),
		Album:    m.Album(),
		Genre:    m.Genre(),
		Year:     m.Year(),
	}, nil
}
