package e2e

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	consenthandler "kycgate/internal/consent/handler"
	consentservice "kycgate/internal/consent/service"
	consentstore "kycgate/internal/consent/store"
	credhandler "kycgate/internal/credential/handler"
	credservice "kycgate/internal/credential/service"
	credstore "kycgate/internal/credential/store"
	"kycgate/internal/identity"
	"kycgate/internal/ledger"
	"kycgate/internal/platform/config"
	"kycgate/internal/platform/health"
	"kycgate/internal/platform/logger"
	ratelimitmw "kycgate/internal/ratelimit/middleware"
	ratelimitmodels "kycgate/internal/ratelimit/models"
	ratelimitservice "kycgate/internal/ratelimit/service"
	ratelimitstore "kycgate/internal/ratelimit/store"
	httptransport "kycgate/internal/transport/http"
	verifyengine "kycgate/internal/verification/engine"
	verifyhandler "kycgate/internal/verification/handler"
	"kycgate/pkg/platform/middleware/request"
	outboxmemory "kycgate/pkg/platform/outbox/store/memory"
)

// startInProcess serves the API over a fresh in-memory ledger so each
// scenario starts from empty state when no BASE_URL is given.
func startInProcess() *httptest.Server {
	log := logger.NewWithWriter(io.Discard, slog.LevelError)
	reg := prometheus.NewRegistry()

	l := ledger.NewMemory(credstore.NewInMemory(), consentstore.NewInMemory(), outboxmemory.New())
	limiter := ratelimitmw.New(ratelimitservice.New(ratelimitstore.NewInMemory(),
		ratelimitservice.WithPolicy(ratelimitservice.ScopeVerify, ratelimitmodels.Policy{Limit: 30, Window: time.Minute}),
	), log)
	verify := verifyhandler.New(verifyengine.New(l), log)

	return httptest.NewServer(httptransport.NewRouter(httptransport.Config{
		Logger:   log,
		Resolver: identity.NewJWTProvider(config.DevSigningKey, "kycgate", "kycgate-api", time.Hour),
		Health:   health.New("e2e"),
		Latency:  request.NewMetrics(reg),
		Gatherer: reg,
		Modules: []httptransport.RouteRegistrar{
			credhandler.New(credservice.New(l), log),
			consenthandler.New(consentservice.New(l), log),
			httptransport.RegistrarFunc(func(r chi.Router) {
				verify.Register(r, limiter.PerCaller(ratelimitservice.ScopeVerify))
			}),
		},
	}))
}
