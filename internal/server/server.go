package server

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/ivlev/motionpreview/internal/config"
	"github.com/ivlev/motionpreview/internal/engine"
	"github.com/ivlev/motionpreview/internal/metrics"
	"github.com/ivlev/motionpreview/internal/playback"
)

// Server exposes one preview and its playhead over HTTP
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	httpServer *http.Server
	router     *chi.Mux
	handler    *Handler
	metrics    *metrics.Metrics
}

func New(cfg *config.Config, preview *engine.Preview, ctrl *playback.Controller, m *metrics.Metrics, logger zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		handler: NewHandler(preview, ctrl, cfg.BuildVersion, logger),
	}

	s.router = chi.NewRouter()
	s.setupMiddleware()
	s.setupRoutes()

	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(CORSMiddleware)
	s.router.Use(LoggingMiddleware(s.logger))
}

func (s *Server) setupRoutes() {
	s.router.Handle("/metrics", s.metrics.Handler())

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handler.Health)

		r.Get("/timeline", s.handler.GetTimeline)
		r.Get("/state", s.handler.GetState)
		frames := r.With()
		if limit := s.cfg.Server.FrameRateLimit; limit > 0 {
			frames = r.With(RateLimitMiddleware(rate.NewLimiter(rate.Limit(limit), max(s.cfg.Server.FrameBurst, 1))))
		}
		frames.Get("/frame.png", s.handler.GetFrame)

		// Playhead commands
		r.Post("/play", s.handler.Play)
		r.Post("/pause", s.handler.Pause)
		r.Post("/toggle", s.handler.Toggle)
		r.Post("/seek", s.handler.Seek)
		r.Post("/segments/{index}/seek", s.handler.SeekSegment)
		r.Post("/skip/back", s.handler.SkipBack)
		r.Post("/skip/forward", s.handler.SkipForward)
		r.Post("/speed", s.handler.SetSpeed)
	})
}

// Handler returns the routed handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	s.logger.Info().
		Str("addr", s.httpServer.Addr).
		Msg("starting preview server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("shutting down preview server")

	shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.Server.ShutdownTimeout)
	defer cancel()

	return s.httpServer.Shutdown(shutdownCtx)
}
