package server

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// BasicRouter implements [Router] on a [chi.Mux].
//
// Middleware registered with Use applies to handlers registered afterwards.
type BasicRouter struct {
	mux         *chi.Mux
	middlewares []Middleware
}

// NewBasicRouter creates a new [BasicRouter] instance.
func NewBasicRouter() *BasicRouter {
	return &BasicRouter{mux: chi.NewRouter()}
}

// NewRouter builds the serve command's router: request ids, panic recovery and
// request logging around the sync handler, plus /metrics from gatherer when set.
func NewRouter(h *SyncHandler, gatherer prometheus.Gatherer, middlewares ...Middleware) *BasicRouter {
	r := NewBasicRouter()
	r.Use(middlewares...)
	r.Handler(h)
	if gatherer != nil {
		r.Handle(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

// Use adds [Middleware] to the router's middleware stack, applied in the order it's added.
func (r *BasicRouter) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers a handler for the specified HTTP method and path.
//
// The handler is wrapped with all registered middleware. Other methods on the
// same path get 405 from chi.
func (r *BasicRouter) Handle(method, path string, handler http.Handler) {
	r.mux.Method(strings.ToUpper(method), path, r.Apply(handler))
}

// Handler registers each of handler's routes, wrapped with all registered middleware.
func (r *BasicRouter) Handler(handler Handler) {
	for _, route := range handler.Routes() {
		r.Handle(route.Method, route.Path, route.Handler)
	}
}

// ServeHTTP implements [http.Handler] for the entire router.
func (r *BasicRouter) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Apply wraps a handler with all registered middleware.
//
// Middleware is applied in reverse order (last added wraps first).
func (r *BasicRouter) Apply(handler http.Handler) http.Handler {
	wrapped := handler

	for i := len(r.middlewares) - 1; i >= 0; i-- {
		wrapped = r.middlewares[i](wrapped)
	}

	return wrapped
}
