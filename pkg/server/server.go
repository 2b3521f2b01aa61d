// Package server exposes the layer registry over HTTP.
//
// The server holds one architecture in memory, serialises every mutation
// behind a mutex and renders scenes through a [pipeline.Runner]. Routes:
//
//	GET    /healthz
//	GET    /architecture
//	PUT    /architecture               import any accepted file shape
//	POST   /architecture/reset
//	POST   /layers                     append (optional descriptor body)
//	PATCH  /layers/{index}             neurons, name, hyperparameters
//	DELETE /layers/{index}
//	POST   /layers/{index}/move        {"to": n}
//	GET    /layout
//	GET    /scene?format=json|svg|dot|png
//	GET    /export?variant=simple|extended
//
// With a project store configured, /projects routes save and load named
// architectures. Errors are JSON {"code", "message"}.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/layerviz/pkg/animate"
	"github.com/matzehuels/layerviz/pkg/arch"
	"github.com/matzehuels/layerviz/pkg/observability"
	"github.com/matzehuels/layerviz/pkg/pipeline"
	"github.com/matzehuels/layerviz/pkg/project"
	"github.com/matzehuels/layerviz/pkg/weights"
)

// Server is the HTTP API.
type Server struct {
	mu      sync.Mutex
	arch    *arch.Architecture
	weights *weights.Tensor
	biases  [][]float64

	maxNeurons int
	runner     *pipeline.Runner
	renderOpts pipeline.Options
	store      project.Store
	loop       *animate.Loop
	logger     *log.Logger
	router     chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithArchitecture sets the initial architecture. The default network is
// used otherwise.
func WithArchitecture(a *arch.Architecture) Option { return func(s *Server) { s.arch = a } }

// WithWeights sets supplied edge weights for rendering.
func WithWeights(t *weights.Tensor) Option { return func(s *Server) { s.weights = t } }

// WithBiases sets supplied biases, kept for export.
func WithBiases(b [][]float64) Option { return func(s *Server) { s.biases = b } }

// WithMaxNeurons sets the registry ceiling.
func WithMaxNeurons(n int) Option { return func(s *Server) { s.maxNeurons = n } }

// WithRunner sets the pipeline runner.
func WithRunner(r *pipeline.Runner) Option { return func(s *Server) { s.runner = r } }

// WithRenderOptions sets the base options for /layout and /scene.
func WithRenderOptions(o pipeline.Options) Option { return func(s *Server) { s.renderOpts = o } }

// WithStore enables the /projects routes.
func WithStore(st project.Store) Option { return func(s *Server) { s.store = st } }

// WithAnimation attaches an animation loop. /scene then reports the loop's
// rotation and weight epoch, and Run drives the loop.
func WithAnimation(l *animate.Loop) Option { return func(s *Server) { s.loop = l } }

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option { return func(s *Server) { s.logger = l } }

// New creates a server.
func New(opts ...Option) *Server {
	s := &Server{}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if s.runner == nil {
		s.runner = pipeline.NewRunner(nil, nil, s.logger)
	}
	if s.arch == nil {
		s.arch = arch.Default()
	}
	s.arch.SetMaxNeurons(s.maxNeurons)
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Architecture returns a copy of the current architecture.
func (s *Server) Architecture() *arch.Architecture {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.arch.Clone()
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", s.handleHealth)

	r.Route("/architecture", func(r chi.Router) {
		r.Get("/", s.handleGetArchitecture)
		r.Put("/", s.handlePutArchitecture)
		r.Post("/reset", s.handleReset)
	})
	r.Route("/layers", func(r chi.Router) {
		r.Post("/", s.handleAddLayer)
		r.Patch("/{index}", s.handlePatchLayer)
		r.Delete("/{index}", s.handleDeleteLayer)
		r.Post("/{index}/move", s.handleMoveLayer)
	})
	r.Get("/layout", s.handleLayout)
	r.Get("/scene", s.handleScene)
	r.Get("/export", s.handleExport)

	if s.store != nil {
		r.Route("/projects", func(r chi.Router) {
			r.Get("/", s.handleListProjects)
			r.Post("/", s.handleSaveProject)
			r.Get("/{id}", s.handleGetProject)
			r.Post("/{id}/load", s.handleLoadProject)
			r.Delete("/{id}", s.handleDeleteProject)
		})
	}
	return r
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
// An attached animation loop runs for the lifetime of the server.
func (s *Server) Run(ctx context.Context, addr string) error {
	if s.loop != nil {
		stop := s.loop.Start(ctx)
		defer stop()
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		duration := time.Since(start)
		observability.HTTP().OnResponse(r.Context(), r.Method, route, status, duration)
		s.logger.Debug("request",
			"method", r.Method,
			"route", route,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", duration,
			"request_id", middleware.GetReqID(r.Context()))
	})
}
