package server

import (
	"strings"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/thumbsmith/thumbsmith/internal/auth"
	"github.com/thumbsmith/thumbsmith/internal/observability"
	"github.com/thumbsmith/thumbsmith/internal/server/handlers"
)

const (
	adminSignalPath = "/admin/signal"
	adminRatePerMin = 10
	adminRateBurst  = 5
)

func (s *Server) registerRoutes() {
	r := s.router
	r.Route("/health", func(r chi.Router) {
		r.Get("/", handlers.HealthHandler)
		r.Get("/live", handlers.LivenessHandler)
		r.Get("/ready", handlers.ReadinessHandler)
		r.Get("/startup", handlers.StartupHandler)
	})
	r.Get("/version", handlers.VersionHandler)
	r.Get("/metrics", MetricsHandler)
}

// MountAPI registers the generation, studio and library routes under /api,
// guarded by session tokens.
func (s *Server) MountAPI(api *handlers.API, sessions *auth.SessionManager) {
	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.Middleware(sessions))
		api.Routes(r)
	})
}

// EnableAdminSignals exposes POST /admin/signal, which lets an operator
// trigger reload or shutdown with a bearer token. An empty token leaves the
// route unregistered.
func (s *Server) EnableAdminSignals(token string) {
	logger := observability.ServerLogger
	if strings.TrimSpace(token) == "" {
		if logger != nil {
			logger.Debug("Admin signal endpoint disabled")
		}
		return
	}

	handler := signals.NewHTTPHandler(signals.HTTPConfig{
		TokenAuth: token,
		RateLimit: adminRatePerMin,
		RateBurst: adminRateBurst,
	})
	s.router.Post(adminSignalPath, handler.ServeHTTP)

	if logger != nil {
		logger.Warn("Admin signal endpoint enabled; keep this server off the public internet",
			zap.String("path", adminSignalPath),
			zap.Int("rate_per_minute", adminRatePerMin),
			zap.Int("burst", adminRateBurst))
	}
}
