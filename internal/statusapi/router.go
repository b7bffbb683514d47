// Package statusapi is a loopback-only operator diagnostics HTTP surface:
// /healthz and read-only dataset/execution introspection. It is
// explicitly NOT a control surface — there is no job submission endpoint
// and no UI (§1's non-goals) — adapted from the teacher's pkg/router,
// trimmed to the GET-only, single-trailing-wildcard shape this surface
// needs and switched from its ANSI-colored log.Printf access log to
// structured zap logging.
package statusapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// HandlerFunc is one registered route's handler.
type HandlerFunc func(http.ResponseWriter, *http.Request)

// Router is a small GET-only mux with an access-log middleware and exact
// or single-trailing-wildcard path matching (e.g. "/datasets/*").
type Router struct {
	mux    *http.ServeMux
	routes map[string]HandlerFunc
	logger *zap.Logger
}

// New builds an empty Router; routes are added with GET before Start.
func New(logger *zap.Logger) *Router {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{
		mux:    http.NewServeMux(),
		routes: make(map[string]HandlerFunc),
		logger: logger,
	}
	r.mux.HandleFunc("/", r.dispatch)
	return r
}

func (r *Router) dispatch(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	lrw := &statusCapturingWriter{ResponseWriter: w, statusCode: http.StatusOK}

	if req.Method != http.MethodGet {
		http.Error(lrw, "method not allowed", http.StatusMethodNotAllowed)
	} else if handler, ok := r.match(req.URL.Path); ok {
		handler(lrw, req)
	} else {
		http.Error(lrw, "not found", http.StatusNotFound)
	}

	r.logger.Info("status api request",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status", lrw.statusCode),
		zap.Duration("duration", time.Since(start)))
}

func (r *Router) match(path string) (HandlerFunc, bool) {
	if handler, ok := r.routes[path]; ok {
		return handler, true
	}
	for routePath, handler := range r.routes {
		if prefix, ok := strings.CutSuffix(routePath, "/*"); ok && strings.HasPrefix(path, prefix+"/") {
			return handler, true
		}
	}
	return nil, false
}

// GET registers a handler for path, an exact path or one ending in "/*"
// to match any path below that prefix (one or more trailing segments).
func (r *Router) GET(path string, handler HandlerFunc) { r.routes[path] = handler }

// Start serves on addr, which MUST be loopback-bound (e.g. "127.0.0.1:8090") —
// this surface is an operator diagnostics endpoint, not a public API.
func (r *Router) Start(addr string) error {
	r.logger.Info("status api listening", zap.String("addr", addr))
	return http.ListenAndServe(addr, r.mux)
}

type statusCapturingWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusCapturingWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}
