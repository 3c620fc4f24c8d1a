package config

import (
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Server captures process level configuration. Zero-valued backends select
// the in-memory implementations so the service runs with no infrastructure.
type Server struct {
	Addr     string `env:"KYCGATE_ADDR" envDefault:":8080"`
	Env      string `env:"KYCGATE_ENV" envDefault:"development"`
	LogLevel string `env:"KYCGATE_LOG_LEVEL" envDefault:"info"`

	// Issuers is the issuer allow-list. Empty means issuer authority is
	// delegated to the identity provider.
	Issuers []string `env:"KYCGATE_ISSUERS" envSeparator:","`

	// TrustedProxies lists the CIDR ranges whose X-Forwarded-For and
	// X-Real-IP headers are believed.
	TrustedProxies []string `env:"KYCGATE_TRUSTED_PROXIES" envSeparator:","`

	Identity  IdentityConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Kafka     KafkaConfig
	RateLimit RateLimitConfig
	Ledger    LedgerConfig
	Tracing   TracingConfig
}

// IdentityConfig configures bearer token verification.
type IdentityConfig struct {
	SigningKey string        `env:"KYCGATE_IDENTITY_SIGNING_KEY" envDefault:"dev-secret-key-change-in-production"`
	Issuer     string        `env:"KYCGATE_IDENTITY_ISSUER" envDefault:"kycgate"`
	Audience   string        `env:"KYCGATE_IDENTITY_AUDIENCE" envDefault:"kycgate-api"`
	TokenTTL   time.Duration `env:"KYCGATE_IDENTITY_TOKEN_TTL" envDefault:"15m"`
}

// DatabaseConfig selects the PostgreSQL ledger when URL is set.
type DatabaseConfig struct {
	URL             string        `env:"KYCGATE_DATABASE_URL"`
	MaxOpenConns    int           `env:"KYCGATE_DATABASE_MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"KYCGATE_DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"KYCGATE_DATABASE_CONN_MAX_LIFETIME" envDefault:"5m"`
}

// RedisConfig selects the Redis verification limiter when URL is set.
type RedisConfig struct {
	URL          string        `env:"KYCGATE_REDIS_URL"`
	PoolSize     int           `env:"KYCGATE_REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"KYCGATE_REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"KYCGATE_REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"KYCGATE_REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"KYCGATE_REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig enables the transition relay when Brokers is set.
type KafkaConfig struct {
	Brokers         string        `env:"KYCGATE_KAFKA_BROKERS"`
	Topic           string        `env:"KYCGATE_KAFKA_TOPIC" envDefault:"kycgate.ledger.transitions"`
	Acks            string        `env:"KYCGATE_KAFKA_ACKS" envDefault:"all"`
	Retries         int           `env:"KYCGATE_KAFKA_RETRIES" envDefault:"3"`
	DeliveryTimeout time.Duration `env:"KYCGATE_KAFKA_DELIVERY_TIMEOUT" envDefault:"30s"`
	PollInterval    time.Duration `env:"KYCGATE_OUTBOX_POLL_INTERVAL" envDefault:"250ms"`
	BatchSize       int           `env:"KYCGATE_OUTBOX_BATCH_SIZE" envDefault:"100"`
	Retention       time.Duration `env:"KYCGATE_OUTBOX_RETENTION" envDefault:"168h"`
}

// RateLimitConfig bounds verification attempts per caller.
type RateLimitConfig struct {
	VerifyLimit  int           `env:"KYCGATE_VERIFY_LIMIT" envDefault:"30"`
	VerifyWindow time.Duration `env:"KYCGATE_VERIFY_WINDOW" envDefault:"1m"`
}

// TracingConfig exports spans over OTLP/HTTP when Endpoint is set.
type TracingConfig struct {
	Endpoint    string  `env:"KYCGATE_OTEL_ENDPOINT"`
	SampleRatio float64 `env:"KYCGATE_OTEL_SAMPLE_RATIO" envDefault:"1"`
}

// LedgerConfig bounds how long an operation may wait for admission.
type LedgerConfig struct {
	Timeout time.Duration `env:"KYCGATE_LEDGER_TIMEOUT" envDefault:"5s"`
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var cfg Server
	if err := env.Parse(&cfg); err != nil {
		return Server{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the service cannot run with.
func (c Server) Validate() error {
	if c.RateLimit.VerifyLimit <= 0 {
		return fmt.Errorf("KYCGATE_VERIFY_LIMIT must be positive")
	}
	if c.RateLimit.VerifyWindow <= 0 {
		return fmt.Errorf("KYCGATE_VERIFY_WINDOW must be positive")
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("KYCGATE_OTEL_SAMPLE_RATIO must be between 0 and 1")
	}
	if c.Ledger.Timeout <= 0 {
		return fmt.Errorf("KYCGATE_LEDGER_TIMEOUT must be positive")
	}
	for _, cidr := range c.TrustedProxies {
		if _, err := netip.ParsePrefix(strings.TrimSpace(cidr)); err != nil {
			return fmt.Errorf("KYCGATE_TRUSTED_PROXIES: %w", err)
		}
	}
	if c.IsProduction() && c.Identity.SigningKey == DevSigningKey {
		return fmt.Errorf("KYCGATE_IDENTITY_SIGNING_KEY must be set in production")
	}
	return nil
}

// DevSigningKey is the development default; production refuses to start with it.
const DevSigningKey = "dev-secret-key-change-in-production"

// IsProduction reports whether the service runs in production mode.
func (c Server) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// SlogLevel maps LogLevel to a slog level, defaulting to info.
func (c Server) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
