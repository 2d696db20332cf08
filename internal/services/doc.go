// Package services defines the [Catalog] interface for the remote music catalog and implements it over HTTP.
//
// # Endpoints
//
// The catalog is a json-server style REST API with three resources:
//   - GET /items : reference song list
//   - GET|POST /favorities, DELETE /favorities/{id} : favorite entries
//   - GET|POST /playlist, DELETE /playlist/{id} : playlist entries
//
// Entries are denormalized snapshots of a song plus an itemId reference. Deletion is by entry id,
// so callers look up the entry for a song first (see [models.FindByItemID]).
//
// # Transport
//
// [CatalogService] sends an X-Request-ID on every request and can be throttled with a
// [rate.Limiter]. A configured token is attached as a bearer token through oauth2.
//
// [APIService] is the unparsed variant used by the `api` command for debugging.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrAPIRequest] : transport failure or non-2xx response
//   - [shared.ErrEntryNotFound] : DELETE returned 404
//   - [shared.ErrInvalidInput] : missing itemId or entry id
package services
