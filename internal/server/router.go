package server

import (
	"net/http"
)

// BasicRouter implements [Router] on top of [http.ServeMux] method patterns,
// so "GET /songs/{id}" style paths and 405 responses come from the mux.
type BasicRouter struct {
	mux   *http.ServeMux
	chain []Middleware
}

// NewBasicRouter returns an empty [BasicRouter].
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: http.NewServeMux()}
}

// Use appends middleware. The first one added is the outermost.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.chain = append(r.chain, middleware...)
}

// Handle registers handler for method and path. An empty method matches any method.
//
// Middleware registered later does not apply to routes that are already registered.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	pattern := path
	if method != "" {
		pattern = method + " " + path
	}
	r.mux.Handle(pattern, r.Apply(handler))
}

// HandleFunc registers fn like [BasicRouter.Handle].
func (r *BasicRouter) HandleFunc(method, path string, fn http.HandlerFunc) {
	r.Handle(method, path, fn)
}

// Mount registers h under every pattern it reports from Routes.
func (r *BasicRouter) Mount(h Handler) {
	wrapped := r.Apply(h)
	for _, route := range h.Routes() {
		r.mux.Handle(route, wrapped)
	}
}

func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps handler in the middleware chain.
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	for i := len(r.chain) - 1; i >= 0; i-- {
		handler = r.chain[i](handler)
	}
	return handler
}
