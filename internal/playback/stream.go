package playback

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"
)

// Opener opens the audio bytes at url.
type Opener func(ctx context.Context, url string) (io.ReadCloser, error)

// streamReader is a buffered HTTP body for long-running reads.
type streamReader struct {
	reader *bufio.Reader
	body   io.ReadCloser
}

func (r *streamReader) Read(p []byte) (int, error) { return r.reader.Read(p) }

func (r *streamReader) Close() error { return r.body.Close() }

// NewStreamClient builds a client without an overall timeout, so a song can stream for its whole
// length; only connection setup and response headers are bounded.
func NewStreamClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			TLSHandshakeTimeout:   10 * time.Second,
			ResponseHeaderTimeout: 30 * time.Second,
			IdleConnTimeout:       300 * time.Second,
			MaxIdleConns:          10,
			MaxIdleConnsPerHost:   2,
		},
	}
}

// HTTPOpener returns an [Opener] that streams url with client, buffering bufferSize bytes.
func HTTPOpener(client *http.Client, userAgent string, bufferSize int) Opener {
	if client == nil {
		client = NewStreamClient()
	}
	if bufferSize <= 0 {
		bufferSize = 256 * 1024
	}

	return func(ctx context.Context, url string) (io.ReadCloser, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept-Encoding", "identity")
		req.Header.Set("Range", "bytes=0-")
		if userAgent != "" {
			req.Header.Set("User-Agent", userAgent)
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to open stream: %w", err)
		}

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
			resp.Body.Close()
			return nil, fmt.Errorf("failed to open stream: %s", resp.Status)
		}

		return &streamReader{reader: bufio.NewReaderSize(resp.Body, bufferSize), body: resp.Body}, nil
	}
}
