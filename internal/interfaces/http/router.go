// Package http assembles the CompeteIQ HTTP API.
package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/competeiq/internal/interfaces/http/handlers"
	"github.com/turtacn/competeiq/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handler and middleware dependencies of the
// route tree. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	ThreatHandler   *handlers.ThreatHandler
	ProviderHandler *handlers.ProviderHandler
	ImportHandler   *handlers.ImportHandler
	HealthHandler   *handlers.HealthHandler

	Logger           logging.Logger
	LoggingConfig    *middleware.LoggingConfig
	Metrics          *prometheus.AppMetrics
	MetricsCollector prometheus.MetricsCollector
	MetricsPath      string
}

// NewRouter builds the chi route tree.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	logCfg := middleware.DefaultLoggingConfig()
	if cfg.LoggingConfig != nil {
		logCfg = *cfg.LoggingConfig
	}
	r.Use(middleware.RequestLogging(cfg.Logger, logCfg))
	if cfg.Metrics != nil {
		r.Use(middleware.RequestMetrics(cfg.Metrics))
	}

	if cfg.HealthHandler != nil {
		r.Get("/healthz", cfg.HealthHandler.Liveness)
		r.Get("/readyz", cfg.HealthHandler.Readiness)
	}
	if cfg.MetricsCollector != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.MetricsCollector.Handler())
	}

	r.Route("/api/v1", func(api chi.Router) {
		registerThreatRoutes(api, cfg.ThreatHandler)
		registerProviderRoutes(api, cfg.ProviderHandler)
		registerImportRoutes(api, cfg.ImportHandler)
	})

	return r
}

func registerThreatRoutes(r chi.Router, h *handlers.ThreatHandler) {
	if h == nil {
		return
	}
	r.Get("/competitors/{id}/threat", h.CompetitorThreat)
	r.Route("/markets/{industry}", func(mr chi.Router) {
		mr.Get("/threat", h.MarketThreat)
		mr.Post("/archive", h.ArchiveMarket)
		mr.Get("/reports", h.MarketArchives)
	})
}

func registerProviderRoutes(r chi.Router, h *handlers.ProviderHandler) {
	if h == nil {
		return
	}
	r.Get("/analyses/{id}/providers", h.AnalysisProviders)
	r.Post("/providers/count", h.CountDocument)
}

func registerImportRoutes(r chi.Router, h *handlers.ImportHandler) {
	if h == nil {
		return
	}
	r.Post("/competitors", h.CreateCompetitor)
	r.Post("/analyses", h.CreateAnalysis)
}
