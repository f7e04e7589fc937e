package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"mercator-hq/callaudit/pkg/config"
	"mercator-hq/callaudit/pkg/server/handlers"
	"mercator-hq/callaudit/pkg/server/middleware"
	"mercator-hq/callaudit/pkg/telemetry/health"
	"mercator-hq/callaudit/pkg/telemetry/metrics"
)

// API route prefixes.
const (
	CallHistoryPrefix = "/api/v1/call-history"
	ExamplesPrefix    = "/api/v1/examples"
)

// RouteMounter is implemented by feature handlers that register their own
// routes under a prefix.
type RouteMounter interface {
	Routes(r chi.Router)
}

// Dependencies are the components served by the router. CallHistory and
// Health are required; the rest are optional.
type Dependencies struct {
	CallHistory *handlers.CallHistoryHandler
	Examples    RouteMounter
	Health      *health.Checker
	Metrics     *metrics.Collector
	Version     health.VersionInfo

	// Auth guards the /api routes. Probes and metrics stay open.
	Auth func(http.Handler) http.Handler
}

// NewRouter builds the HTTP handler of the service: middleware chain, API
// routes, probes and the metrics endpoint.
func NewRouter(cfg *config.Config, deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery)
	r.Use(middleware.RequestContext)
	r.Use(middleware.Logging)
	if deps.Metrics != nil && cfg.Telemetry.Metrics.Enabled {
		r.Use(middleware.Metrics(deps.Metrics))
	}
	if cfg.Server.CORS.Enabled {
		r.Use(cors.Handler(corsOptions(cfg.Server.CORS)))
	}
	if cfg.Server.BodyLogging.Enabled {
		r.Use(middleware.BodyLogging(middleware.BodyLoggingOptionsFromConfig(cfg.Server.BodyLogging)))
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		handlers.WriteError(w, req, handlers.NewStatusError(http.StatusNotFound, "no route for %s %s", req.Method, req.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		handlers.WriteError(w, req, handlers.NewStatusError(http.StatusMethodNotAllowed, "method %s not allowed on %s", req.Method, req.URL.Path))
	})

	r.Group(func(r chi.Router) {
		if deps.Auth != nil {
			r.Use(deps.Auth)
		}
		r.Route(CallHistoryPrefix, deps.CallHistory.Routes)
		if deps.Examples != nil {
			r.Route(ExamplesPrefix, deps.Examples.Routes)
		}
	})

	r.Get("/health", deps.Health.LivenessHandler())
	r.Head("/health", deps.Health.LivenessHandler())
	r.Get("/ready", deps.Health.ReadinessHandler())
	r.Head("/ready", deps.Health.ReadinessHandler())
	r.Get("/version", health.VersionHandler(deps.Version.Version, deps.Version.Commit, deps.Version.BuildTime))

	if deps.Metrics != nil && cfg.Telemetry.Metrics.Enabled {
		r.Method(http.MethodGet, cfg.Telemetry.Metrics.Path, deps.Metrics.Handler())
	}

	return r
}

func corsOptions(cfg config.CORSConfig) cors.Options {
	return cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   cfg.AllowedHeaders,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	}
}
