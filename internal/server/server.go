// package server exposes the job API over HTTP with a websocket stream of job updates
package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/yubal/internal/jobs"
	"github.com/desertthunder/yubal/internal/shared"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// CoverSource returns artwork bytes for a URL. [services.CoverCache] satisfies it.
type CoverSource interface {
	Get(ctx context.Context, url string) ([]byte, error)
}

// Opts configures a [Server].
type Opts struct {
	Jobs   *jobs.Manager
	Covers CoverSource
	Logger *log.Logger
}

// Server holds the routes and the open websocket streams.
type Server struct {
	jobs     *jobs.Manager
	covers   CoverSource
	logger   *log.Logger
	router   *chi.Mux
	upgrader websocket.Upgrader

	done      chan struct{}
	closeOnce sync.Once
}

// New builds a server and registers its routes.
func New(opts Opts) *Server {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	s := &Server{
		jobs:   opts.Jobs,
		covers: opts.Covers,
		logger: shared.WithLogger(opts.Logger, "component", "server"),
		router: chi.NewRouter(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		done: make(chan struct{}),
	}
	s.registerRoutes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close ends every open websocket stream. [http.Server.Shutdown] does not track hijacked connections.
func (s *Server) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
