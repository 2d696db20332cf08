package tasks

import (
	"context"
	"fmt"

	"github.com/desertthunder/songbook/internal/services"
	"github.com/desertthunder/songbook/internal/shared"
)

// APIClient is the raw request surface used by [Dump].
type APIClient interface {
	Get(ctx context.Context, path string) (*services.APIResponse, error)
}

// EndpointResult represents the result of fetching data from a single API endpoint.
type EndpointResult struct {
	Endpoint string
	Data     any
	Error    error
}

// DumpResult contains the raw contents of every catalog collection.
type DumpResult struct {
	Items      any
	Favorities any
	Playlist   any
	Errors     []EndpointResult
}

// DumpData is the JSON shape written by `api dump`.
type DumpData struct {
	Items      any      `json:"items"`
	Favorities any      `json:"favorities"`
	Playlist   any      `json:"playlist"`
	Errors     []string `json:"errors,omitempty"`
}

// Data converts the result for serialization.
func (r *DumpResult) Data() DumpData {
	d := DumpData{Items: r.Items, Favorities: r.Favorities, Playlist: r.Playlist}
	for _, e := range r.Errors {
		d.Errors = append(d.Errors, fmt.Sprintf("%s: %v", e.Endpoint, e.Error))
	}
	return d
}

type endpointOperation struct {
	path   string
	target *any
}

// Dump fetches every collection unparsed. Endpoint failures are collected, not returned.
func Dump(ctx context.Context, api APIClient, progress chan<- ProgressUpdate) (*DumpResult, error) {
	if api == nil {
		return nil, fmt.Errorf("%w: API client not initialized", shared.ErrServiceUnavailable)
	}

	result := &DumpResult{Errors: []EndpointResult{}}
	endpoints := []endpointOperation{
		{path: "/items", target: &result.Items},
		{path: "/favorities", target: &result.Favorities},
		{path: "/playlist", target: &result.Playlist},
	}

	for i, endpoint := range endpoints {
		sendProgress(progress, endpointUpdate(endpoint.path, i+1, len(endpoints)))

		resp, err := api.Get(ctx, endpoint.path)
		switch {
		case err != nil:
			result.Errors = append(result.Errors, EndpointResult{Endpoint: endpoint.path, Error: err})
		case !resp.OK():
			result.Errors = append(result.Errors, EndpointResult{
				Endpoint: endpoint.path,
				Error:    fmt.Errorf("%w: status %d", shared.ErrAPIRequest, resp.StatusCode),
			})
		default:
			*endpoint.target = resp.JSONData
		}
	}

	return result, nil
}
