// Package api exposes the tracking engine over HTTP: engine snapshots,
// telemetry history, geofence management, and a Server-Sent Events stream of
// live engine output.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/vsatlink/termtrack/internal/engine"
	"github.com/vsatlink/termtrack/internal/publish"
	"github.com/vsatlink/termtrack/internal/store"
)

// Server holds the handler dependencies. Store, Bus, and Dispatcher are
// optional: history routes return 503 without a store, the event stream
// returns 503 without a bus, and report submission falls back to synchronous
// ingest without a dispatcher.
type Server struct {
	engine   *engine.Engine
	store    store.Store
	bus      *publish.Bus
	dispatch *engine.Dispatcher
	log      *zap.Logger
}

// Options carries the optional collaborators for NewServer.
type Options struct {
	Store      store.Store
	Bus        *publish.Bus
	Dispatcher *engine.Dispatcher
}

// NewServer creates the API server around a running engine.
func NewServer(e *engine.Engine, opts Options) *Server {
	return &Server{
		engine:   e,
		store:    opts.Store,
		bus:      opts.Bus,
		dispatch: opts.Dispatcher,
		log:      zap.L().Named("api"),
	}
}

// Router builds the chi handler tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/reports", s.handleSubmitReport)
		r.Get("/terminals", s.handleTerminals)
		r.Get("/latest-terminal-data", s.handleLatestTerminalData)
		r.Get("/terminal-data", s.handleTerminalData)
		r.Get("/path", s.handlePath)
		r.Get("/terminals-by-location", s.handleTerminalsByLocation)
		r.Get("/states", s.handleStates)
		r.Get("/districts", s.handleDistricts)
		r.Get("/geofences", s.handleListGeofences)
		r.Post("/geofences", s.handleCreateGeofence)
		r.Delete("/geofences/{id}", s.handleDeleteGeofence)
		r.Get("/events", s.handleEvents)
	})

	return r
}
