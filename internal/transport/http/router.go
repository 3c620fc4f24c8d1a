package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"kycgate/internal/platform/health"
	"kycgate/pkg/platform/middleware/auth"
	"kycgate/pkg/platform/middleware/metadata"
	"kycgate/pkg/platform/middleware/request"
	"kycgate/pkg/validation"
)

const requestTimeout = 30 * time.Second

// RouteRegistrar mounts a module's routes on the authenticated router.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// Config collects what the router needs from the composition root.
type Config struct {
	Logger   *slog.Logger
	Resolver auth.IdentityResolver
	Health   *health.Handler
	Metadata *metadata.Middleware
	Latency  *request.Metrics
	Gatherer prometheus.Gatherer

	// Modules are mounted behind RequireIdentity.
	Modules []RouteRegistrar
}

// NewRouter wires public probes and the authenticated API with middleware.
// Handlers delegate to domain services and hold no business logic.
func NewRouter(cfg Config) http.Handler {
	r := chi.NewRouter()

	r.Use(request.Recovery(cfg.Logger))
	r.Use(request.RequestID)
	r.Use(request.RequestTime)
	if cfg.Metadata != nil {
		r.Use(cfg.Metadata.Handler)
	}
	r.Use(request.Logger(cfg.Logger))
	r.Use(request.Timeout(requestTimeout))
	r.Use(request.LatencyMiddleware(cfg.Latency))

	if cfg.Health != nil {
		cfg.Health.Register(r)
	}
	if cfg.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(api chi.Router) {
		api.Use(request.ContentTypeJSON)
		api.Use(request.BodyLimit(validation.MaxBodySize))
		api.Use(auth.RequireIdentity(cfg.Resolver, cfg.Logger))
		for _, m := range cfg.Modules {
			m.Register(api)
		}
	})

	return r
}

// RegistrarFunc adapts a plain function to RouteRegistrar.
type RegistrarFunc func(r chi.Router)

func (f RegistrarFunc) Register(r chi.Router) { f(r) }
