// Package server provides HTTP routing, middleware and the listener for the browser UI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] runs in the order it was added: the first added sees the request first.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally. Routes are registered as method patterns
// ("GET /songs/{id}"), so path values are available through [http.Request.PathValue] and unmatched
// methods get a 405 from the mux.
//
// # Middleware
//
//   - [RequestID] : reuses or assigns an X-Request-ID and stores it in the request context
//   - [Logging] : one structured log line per request with status and elapsed time
//   - [Recover] : turns a handler panic into a 500 so one request cannot take the server down
//
// # Handler Interface
//
// A [Handler] that reports its own mux patterns is registered in one call with [BasicRouter.Mount].
// The web package mounts its embedded static assets this way.
//
// # Server
//
// [Server] wraps [http.Server] and shuts down gracefully when its context is canceled.
package server
