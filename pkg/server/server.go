// Package server exposes a hierarchy over HTTP.
//
// The API is read-only with one compute endpoint: clients can inspect the
// hierarchy, its graphs, rules and typings, and run pattern matching
// against a member graph. Match results are cached by content hash when a
// cache backend is configured, so repeated queries against an unchanged
// graph are cheap.
//
// # Endpoints
//
//	GET  /v1/health
//	GET  /v1/hierarchy
//	GET  /v1/graphs
//	GET  /v1/graphs/{id}
//	GET  /v1/graphs/{id}/nodes/{node}/type
//	GET  /v1/rules
//	GET  /v1/rules/{id}
//	GET  /v1/typings
//	POST /v1/graphs/{id}/matches
package server

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"

	"github.com/regraft/regraft/pkg/cache"
	"github.com/regraft/regraft/pkg/hierarchy"
)

// Options configures a Server.
type Options struct {
	// Logger receives request logs. If nil, logging is disabled.
	Logger *log.Logger

	// Cache backs the match-result cache. If nil, caching is disabled.
	Cache cache.Cache

	// TTL is the expiry for cached match results. Zero uses cache.DefaultTTL.
	TTL time.Duration

	// MaxPatternNodes rejects match requests with larger patterns.
	// Zero disables the limit.
	MaxPatternNodes int
}

// Server serves a hierarchy over HTTP.
type Server struct {
	mu     sync.RWMutex
	h      *hierarchy.Hierarchy
	logger *log.Logger

	matches         *cache.MatchCache
	maxPatternNodes int
}

// New creates a server for the given hierarchy.
func New(h *hierarchy.Hierarchy, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	s := &Server{
		h:               h,
		logger:          logger,
		maxPatternNodes: opts.MaxPatternNodes,
	}
	if opts.Cache != nil {
		s.matches = cache.NewMatchCache(opts.Cache, nil, opts.TTL)
	}
	return s
}

// Router builds the HTTP routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.logRequests)
	r.Use(s.recoverPanics)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/hierarchy", s.handleHierarchy)
		r.Get("/graphs", s.handleGraphs)
		r.Get("/graphs/{id}", s.handleGraph)
		r.Get("/graphs/{id}/nodes/{node}/type", s.handleNodeType)
		r.Get("/rules", s.handleRules)
		r.Get("/rules/{id}", s.handleRule)
		r.Get("/typings", s.handleTypings)
		r.Post("/graphs/{id}/matches", s.handleMatches)
	})
	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
