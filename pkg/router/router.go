// Package router is a small method:path router with wildcard segments and a
// colored access log.
package router

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/go-logr/logr"
)

type HandlerFunc func(http.ResponseWriter, *http.Request)

type Router struct {
	mux       *http.ServeMux
	routes    map[string]http.Handler // key = METHOD:PATH
	paths     map[string]bool         // track registered paths
	wildcards []string                // wildcard paths, most specific first
	log       logr.Logger
	access    io.Writer
}

// Option configures a Router.
type Option func(*Router)

// WithLogger sets the structured logger for request logs.
func WithLogger(log logr.Logger) Option {
	return func(r *Router) {
		r.log = log
	}
}

// WithAccessLog sets where the colored access line is written; nil disables it.
func WithAccessLog(w io.Writer) Option {
	return func(r *Router) {
		r.access = w
	}
}

func New(opts ...Option) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		routes: make(map[string]http.Handler),
		paths:  make(map[string]bool),
		log:    logr.Discard(),
		access: os.Stderr,
	}
	for _, opt := range opts {
		opt(r)
	}

	// Catch-all handler for every path
	r.mux.HandleFunc("/", r.serve)
	return r
}

func (r *Router) serve(w http.ResponseWriter, req *http.Request) {
	start := time.Now()
	lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

	if h, ok := r.match(req.Method, req.URL.Path); ok {
		h.ServeHTTP(lrw, req)
	} else if r.pathExists(req.URL.Path) {
		// Path exists but method not allowed
		http.Error(lrw, "Method Not Allowed", http.StatusMethodNotAllowed)
	} else {
		http.Error(lrw, "Not Found", http.StatusNotFound)
	}

	duration := time.Since(start)
	r.log.V(1).Info("request", "method", req.Method, "path", req.URL.Path,
		"status", lrw.statusCode, "duration", duration)

	if r.access != nil {
		fmt.Fprintf(r.access, "%s %s %s %s %s\n",
			color.CyanString("[%s]", start.Format("2006-01-02 15:04:05")),
			methodColor(req.Method).Sprint(req.Method),
			req.URL.Path,
			statusColor(lrw.statusCode).Sprint(lrw.statusCode),
			color.BlueString("(%v)", duration),
		)
	}
}

func (r *Router) match(method, path string) (http.Handler, bool) {
	if h, ok := r.routes[method+":"+path]; ok {
		return h, true
	}
	for _, routePath := range r.wildcards {
		if !matchWildcardRoute(path, routePath) {
			continue
		}
		if h, ok := r.routes[method+":"+routePath]; ok {
			return h, true
		}
	}
	return nil, false
}

func (r *Router) pathExists(path string) bool {
	if r.paths[path] {
		return true
	}
	for _, routePath := range r.wildcards {
		if matchWildcardRoute(path, routePath) {
			return true
		}
	}
	return false
}

// matchWildcardRoute checks if a request path matches a wildcard route pattern
func matchWildcardRoute(requestPath, routePattern string) bool {
	// Split both paths into segments
	requestSegments := strings.Split(strings.Trim(requestPath, "/"), "/")
	routeSegments := strings.Split(strings.Trim(routePattern, "/"), "/")

	// A trailing wildcard matches one or more remaining segments
	if routeSegments[len(routeSegments)-1] == "*" {
		if len(requestSegments) < len(routeSegments) {
			return false
		}
		for i := 0; i < len(routeSegments)-1; i++ {
			if routeSegments[i] != "*" && requestSegments[i] != routeSegments[i] {
				return false
			}
		}
		return requestSegments[len(routeSegments)-1] != ""
	}

	if len(requestSegments) != len(routeSegments) {
		return false
	}
	for i, routeSegment := range routeSegments {
		if routeSegment == "*" {
			// Wildcard matches any single non-empty segment
			if requestSegments[i] == "" {
				return false
			}
			continue
		}
		if requestSegments[i] != routeSegment {
			return false
		}
	}
	return true
}

// --- Register paths ---
func (r *Router) register(method, path string, handler http.Handler) {
	key := method + ":" + path
	r.routes[key] = handler
	if !r.paths[path] && strings.Contains(path, "*") {
		r.wildcards = append(r.wildcards, path)
		// Longer patterns first so /runs/*/results wins over /runs/*
		sort.SliceStable(r.wildcards, func(i, j int) bool {
			return segments(r.wildcards[i]) > segments(r.wildcards[j])
		})
	}
	r.paths[path] = true
}

func segments(path string) int {
	return strings.Count(strings.Trim(path, "/"), "/") + 1
}

func (r *Router) GET(path string, handler HandlerFunc)  { r.register(http.MethodGet, path, http.HandlerFunc(handler)) }
func (r *Router) POST(path string, handler HandlerFunc) { r.register(http.MethodPost, path, http.HandlerFunc(handler)) }
func (r *Router) PUT(path string, handler HandlerFunc)  { r.register(http.MethodPut, path, http.HandlerFunc(handler)) }
func (r *Router) DELETE(path string, handler HandlerFunc) {
	r.register(http.MethodDelete, path, http.HandlerFunc(handler))
}

// Handle registers an http.Handler, e.g. promhttp or the swagger UI.
func (r *Router) Handle(method, path string, handler http.Handler) {
	r.register(method, path, handler)
}

// Paths returns the registered paths
func (r *Router) Paths() map[string]bool {
	return r.paths
}

// Handler returns the root handler to serve.
func (r *Router) Handler() http.Handler {
	return r.mux
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// --- Color helpers ---
func statusColor(code int) *color.Color {
	switch {
	case code >= 200 && code < 300:
		return color.New(color.FgGreen)
	case code >= 300 && code < 400:
		return color.New(color.FgCyan)
	case code >= 400 && code < 500:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

func methodColor(method string) *color.Color {
	switch method {
	case http.MethodGet:
		return color.New(color.FgGreen)
	case http.MethodPost:
		return color.New(color.FgBlue)
	case http.MethodPut, http.MethodPatch:
		return color.New(color.FgYellow)
	case http.MethodDelete:
		return color.New(color.FgRed)
	default:
		return color.New(color.FgCyan)
	}
}
