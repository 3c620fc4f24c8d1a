package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	consenthandler "kycgate/internal/consent/handler"
	consentmetrics "kycgate/internal/consent/metrics"
	consentservice "kycgate/internal/consent/service"
	consentstore "kycgate/internal/consent/store"
	credhandler "kycgate/internal/credential/handler"
	credmetrics "kycgate/internal/credential/metrics"
	credservice "kycgate/internal/credential/service"
	credstore "kycgate/internal/credential/store"
	"kycgate/internal/identity"
	"kycgate/internal/ledger"
	"kycgate/internal/platform/config"
	"kycgate/internal/platform/database"
	"kycgate/internal/platform/health"
	"kycgate/internal/platform/kafka/producer"
	"kycgate/internal/platform/logger"
	"kycgate/internal/platform/redis"
	"kycgate/internal/platform/tracer"
	ratelimitmetrics "kycgate/internal/ratelimit/metrics"
	ratelimitmw "kycgate/internal/ratelimit/middleware"
	ratelimitmodels "kycgate/internal/ratelimit/models"
	ratelimitservice "kycgate/internal/ratelimit/service"
	ratelimitstore "kycgate/internal/ratelimit/store"
	httptransport "kycgate/internal/transport/http"
	verifyengine "kycgate/internal/verification/engine"
	verifyhandler "kycgate/internal/verification/handler"
	verifymetrics "kycgate/internal/verification/metrics"
	"kycgate/pkg/platform/audit"
	auditmetrics "kycgate/pkg/platform/audit/metrics"
	auditpublisher "kycgate/pkg/platform/audit/publisher"
	auditmemory "kycgate/pkg/platform/audit/store/memory"
	auditpostgres "kycgate/pkg/platform/audit/store/postgres"
	"kycgate/pkg/platform/middleware/metadata"
	"kycgate/pkg/platform/middleware/request"
	"kycgate/pkg/platform/outbox"
	outboxmetrics "kycgate/pkg/platform/outbox/metrics"
	outboxmemory "kycgate/pkg/platform/outbox/store/memory"
	outboxpostgres "kycgate/pkg/platform/outbox/store/postgres"
	outboxworker "kycgate/pkg/platform/outbox/worker"
)

const (
	shutdownTimeout   = 10 * time.Second
	poolStatsInterval = 15 * time.Second
	auditBufferSize   = 1024
)

// infra holds the optional backends. Nil members select in-memory fallbacks.
type infra struct {
	db       *database.Pool
	redis    *redis.Client
	producer *producer.Producer
}

func (i *infra) close(log *slog.Logger) {
	if i.producer != nil {
		if err := i.producer.Close(); err != nil {
			log.Error("failed to close kafka producer", "error", err)
		}
	}
	if err := i.redis.Close(); err != nil {
		log.Error("failed to close redis client", "error", err)
	}
	if err := i.db.Close(); err != nil {
		log.Error("failed to close database pool", "error", err)
	}
}

// main wires dependencies and runs the HTTP server, the journal relay and
// pool stats collection until a signal arrives. Business logic lives in
// internal service packages.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg.SlogLevel())
	log.Info("initializing kycgate",
		"addr", cfg.Addr,
		"env", cfg.Env,
		"durable_ledger", cfg.Database.URL != "",
		"shared_limiter", cfg.Redis.URL != "",
		"journal_relay", cfg.Kafka.Brokers != "",
	)

	proxies, err := metadata.ParseTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	backends, err := connect(cfg, reg, log)
	if err != nil {
		return err
	}
	defer backends.close(log)

	// Ledger, journal and audit sink share one backend.
	var (
		l          ledger.Ledger
		journal    outbox.Store
		auditStore audit.Store
	)
	ledgerOpts := []ledger.Option{ledger.WithTimeout(cfg.Ledger.Timeout), ledger.WithMetrics(ledger.NewMetrics(reg))}
	if backends.db != nil {
		l = ledger.NewPostgres(backends.db.DB(), ledgerOpts...)
		journal = outboxpostgres.New(backends.db.DB())
		auditStore = auditpostgres.New(backends.db.DB())
	} else {
		memJournal := outboxmemory.New()
		l = ledger.NewMemory(credstore.NewInMemory(), consentstore.NewInMemory(), memJournal, ledgerOpts...)
		journal = memJournal
		auditStore = auditmemory.NewInMemoryStore()
	}

	publisher := auditpublisher.NewPublisher(auditStore,
		auditpublisher.WithAsyncBuffer(auditBufferSize),
		auditpublisher.WithPublisherLogger(log),
		auditpublisher.WithMetrics(auditmetrics.New(reg)),
	)
	defer publisher.Close()
	auditor := audit.NewLogger(log, publisher)
	shutdownTracing, err := tracer.Setup(context.Background(), cfg.Tracing, health.Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracing shutdown", "error", err)
		}
	}()
	tr := tracer.NewOTel()

	policy, err := credservice.PolicyFromConfig(cfg.Issuers)
	if err != nil {
		return fmt.Errorf("issuer policy: %w", err)
	}
	credentials := credservice.New(l,
		credservice.WithIssuerPolicy(policy),
		credservice.WithAuditor(auditor),
		credservice.WithMetrics(credmetrics.New(reg)),
		credservice.WithTracer(tr),
		credservice.WithLogger(log),
	)
	consents := consentservice.New(l,
		consentservice.WithAuditor(auditor),
		consentservice.WithMetrics(consentmetrics.New(reg)),
		consentservice.WithTracer(tr),
		consentservice.WithLogger(log),
	)
	engine := verifyengine.New(l,
		verifyengine.WithAuditor(auditor),
		verifyengine.WithMetrics(verifymetrics.New(reg)),
		verifyengine.WithTracer(tr),
		verifyengine.WithLogger(log),
	)

	var limitStore ratelimitstore.Store = ratelimitstore.NewInMemory()
	if backends.redis != nil {
		// Replicas share Redis counts; while Redis is failing each replica counts locally.
		limitStore = ratelimitstore.NewResilient(ratelimitstore.NewRedis(backends.redis.Client), limitStore, log)
	}
	limiter := ratelimitmw.New(ratelimitservice.New(limitStore,
		ratelimitservice.WithPolicy(ratelimitservice.ScopeVerify, ratelimitmodels.Policy{
			Limit:  cfg.RateLimit.VerifyLimit,
			Window: cfg.RateLimit.VerifyWindow,
		}),
		ratelimitservice.WithAuditor(auditor),
		ratelimitservice.WithMetrics(ratelimitmetrics.New(reg)),
		ratelimitservice.WithLogger(log),
	), log)
	verify := verifyhandler.New(engine, log)

	probes := health.New(cfg.Env)
	if backends.db != nil {
		probes.RegisterCheck("database", backends.db.Health)
	}
	if backends.redis != nil {
		probes.RegisterCheck("redis", backends.redis.Health)
	}
	if backends.producer != nil {
		probes.RegisterCheck("kafka", backends.producer.Health)
	}

	router := httptransport.NewRouter(httptransport.Config{
		Logger:   log,
		Resolver: identity.FromConfig(cfg.Identity, cfg.Env),
		Health:   probes,
		Metadata: metadata.New(proxies...),
		Latency:  request.NewMetrics(reg),
		Gatherer: reg,
		Modules: []httptransport.RouteRegistrar{
			credhandler.New(credentials, log),
			consenthandler.New(consents, log),
			httptransport.RegistrarFunc(func(r chi.Router) {
				verify.Register(r, limiter.PerCaller(ratelimitservice.ScopeVerify))
			}),
		},
	})

	var relay *outboxworker.Worker
	if backends.producer != nil {
		relay = outboxworker.New(journal, backends.producer,
			outboxworker.WithTopic(cfg.Kafka.Topic),
			outboxworker.WithBatchSize(cfg.Kafka.BatchSize),
			outboxworker.WithPollInterval(cfg.Kafka.PollInterval),
			outboxworker.WithRetention(cfg.Kafka.Retention),
			outboxworker.WithMetrics(outboxmetrics.New(reg)),
			outboxworker.WithLogger(log),
		)
		relay.Start()
	}

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting http server", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		if relay != nil {
			if err := relay.Stop(shutdownCtx); err != nil {
				log.Error("outbox relay did not drain", "error", err)
			}
		}
		return nil
	})

	g.Go(func() error {
		ticker := time.NewTicker(poolStatsInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if backends.redis != nil {
					backends.redis.RecordPoolStats()
				}
				if relay != nil {
					if err := relay.UpdateMetrics(gctx); err != nil {
						log.Warn("failed to refresh outbox depth", "error", err)
					}
				}
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}

func connect(cfg config.Server, reg prometheus.Registerer, log *slog.Logger) (*infra, error) {
	backends := &infra{}

	db, err := database.New(cfg.Database, reg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	backends.db = db

	rdb, err := redis.New(cfg.Redis, redis.NewPoolMetrics(reg))
	if err != nil {
		backends.close(log)
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	backends.redis = rdb

	if cfg.Kafka.Brokers != "" {
		p, err := producer.New(cfg.Kafka, log)
		if err != nil {
			backends.close(log)
			return nil, fmt.Errorf("connect kafka: %w", err)
		}
		backends.producer = p
	}
	return backends, nil
}
