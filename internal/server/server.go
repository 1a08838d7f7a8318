// Package server exposes the booking flow over HTTP for the embedded
// widget. The remote salon API stays authoritative; this layer only hosts
// flow sessions and relays availability data.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/frizerino/widget-gateway/internal/booking"
	"github.com/frizerino/widget-gateway/internal/metrics"
	"github.com/frizerino/widget-gateway/internal/models"
	"github.com/frizerino/widget-gateway/internal/widgetapi"
)

// SalonAPI is the remote surface the gateway needs beyond the flow's own
// calls. Satisfied by *widgetapi.Client.
type SalonAPI interface {
	booking.API
	Bootstrap(ctx context.Context, salonSlug string) (*models.Salon, error)
}

// Server hosts booking flow sessions for the embeddable widget.
type Server struct {
	api    SalonAPI
	flows  *booking.FlowStore
	logger zerolog.Logger
	redis  *redis.Client
	now    func() time.Time
	newID  func() string
	gran   int

	rate   *ipRateLimiter
	router chi.Router
}

// Options tunes the server.
type Options struct {
	SessionTimeout time.Duration
	RatePerSecond  int
	RateBurst      int
	// SlotGranularity is the slot boundary step in minutes, applied to
	// salons whose bootstrap settings do not configure one. Zero leaves
	// the engine's built-in default.
	SlotGranularity int
	Redis           *redis.Client
	Now             func() time.Time
	NewID           func() string
}

// bootstrapOnce guards process-wide initialization so embedding the server
// twice in one process stays an idempotent no-op.
var bootstrapOnce sync.Once

// New constructs the server and its router.
func New(api SalonAPI, logger zerolog.Logger, opts Options) *Server {
	bootstrapOnce.Do(metrics.Register)

	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Server{
		api:    api,
		flows:  booking.NewFlowStore(opts.SessionTimeout),
		logger: logger,
		redis:  opts.Redis,
		now:    opts.Now,
		newID:  opts.NewID,
		gran:   opts.SlotGranularity,
	}
	rps := opts.RatePerSecond
	if rps <= 0 {
		rps = 20
	}
	burst := opts.RateBurst
	if burst <= 0 {
		burst = 40
	}
	s.rate = newIPRateLimiter(rps, burst)
	s.router = s.buildRouter()
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

// Flows exposes the session store (for cleanup wiring in main).
func (s *Server) Flows() *booking.FlowStore {
	return s.flows
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(s.logger))
	r.Use(rateLimit(s.rate))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1/sessions", func(r chi.Router) {
		r.Post("/", s.handleCreateSession)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSession)
			r.Post("/services", s.handleSelectServices)
			r.Post("/staff", s.handleSelectStaff)
			r.Post("/month", s.handleNavigateMonth)
			r.Post("/date", s.handleSelectDate)
			r.Post("/time", s.handleSelectTime)
			r.Post("/details", s.handleEnterDetails)
			r.Post("/back", s.handleBack)
			r.Post("/submit", s.handleSubmit)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.redis != nil {
		if err := s.redis.Ping(r.Context()).Err(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			render.JSON(w, r, map[string]string{"status": "degraded", "redis": err.Error()})
			return
		}
	}
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// flow resolves the session from the URL, writing 404 when missing.
func (s *Server) flow(w http.ResponseWriter, r *http.Request) *booking.Flow {
	id := chi.URLParam(r, "id")
	flow := s.flows.Get(id)
	if flow == nil {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, errResponse(CodeNotFound, "session not found"))
		return nil
	}
	return flow
}

var _ SalonAPI = (*widgetapi.Client)(nil)
