// Package server exposes the pipeline over HTTP and streams live reveal
// frames over websockets.
//
// Routes:
//
//	GET    /healthz
//	GET    /config
//	POST   /records
//	GET    /records
//	GET    /records/{id}
//	DELETE /records/{id}
//	GET    /records/{id}/graph
//	GET    /records/{id}/layout?mode=&cluster=&max_nodes=
//	GET    /records/{id}/dot
//	GET    /records/{id}/render/{format}?mode=&t=&width=&height=
//	GET    /live/{id}?mode=&fps=   (websocket)
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"github.com/matzehuels/kinship/pkg/config"
	"github.com/matzehuels/kinship/pkg/pipeline"
	"github.com/matzehuels/kinship/pkg/store"
)

// maxBodySize bounds uploaded records.
const maxBodySize = 10 << 20

// Options configures a Server.
type Options struct {
	Runner   *pipeline.Runner
	Store    store.Store
	Settings config.Config
	Logger   *log.Logger
	// Aspects resolves image sizes for live sessions. Nil uses square nodes.
	Aspects pipeline.Aspects
}

// Server holds the chi router and its collaborators.
type Server struct {
	router   chi.Router
	runner   *pipeline.Runner
	store    store.Store
	settings config.Config
	logger   *log.Logger
	aspects  pipeline.Aspects
	upgrader websocket.Upgrader
}

// New creates a Server with all routes configured.
func New(opts Options) *Server {
	s := &Server{
		runner:   opts.Runner,
		store:    opts.Store,
		settings: opts.Settings,
		logger:   opts.Logger,
		aspects:  opts.Aspects,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 16 << 10,
		},
	}
	if s.logger == nil {
		s.logger = log.Default()
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, s.logger)
	}
	if s.store == nil {
		s.store = store.NewMemoryStore()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Get("/config", s.handleConfig)

	r.Route("/records", func(r chi.Router) {
		r.Post("/", s.handleCreateRecord)
		r.Get("/", s.handleListRecords)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetRecord)
			r.Delete("/", s.handleDeleteRecord)
			r.Get("/graph", s.handleGraph)
			r.Get("/layout", s.handleLayout)
			r.Get("/dot", s.handleDOT)
			r.Get("/render/{format}", s.handleRender)
		})
	})

	r.Get("/live/{id}", s.handleLive)

	s.router = r
	return s
}

// ServeHTTP delegates to the chi router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// requestLogger logs one line per request. The wrapped writer keeps
// http.Hijacker so websocket upgrades still work.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).Round(time.Microsecond),
			"id", middleware.GetReqID(r.Context()))
	})
}
