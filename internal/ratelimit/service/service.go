// Package service applies rate limit policies to callers.
package service

import (
	"context"
	"log/slog"

	"kycgate/internal/ratelimit/metrics"
	"kycgate/internal/ratelimit/models"
	"kycgate/internal/ratelimit/store"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
)

// ScopeVerify limits verification attempts per calling verifier.
const ScopeVerify = "verify"

type Service struct {
	store    store.Store
	policies map[string]models.Policy
	auditor  *audit.Logger
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

type Option func(*Service)

func WithPolicy(scope string, policy models.Policy) Option {
	return func(s *Service) {
		s.policies[scope] = policy
	}
}

func WithAuditor(a *audit.Logger) Option {
	return func(s *Service) {
		s.auditor = a
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(st store.Store, opts ...Option) *Service {
	s := &Service{store: st, policies: make(map[string]models.Policy)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Check consumes one unit of the caller's budget for scope. A scope with no
// policy is unlimited.
func (s *Service) Check(ctx context.Context, scope string, caller domain.Identity) (*models.Result, error) {
	policy, ok := s.policies[scope]
	if !ok {
		return &models.Result{Allowed: true}, nil
	}
	if caller.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "caller is required")
	}

	result, err := s.store.AllowN(ctx, scope+":"+caller.String(), 1, policy.Limit, policy.Window)
	if err != nil {
		s.metrics.IncError()
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check rate limit")
	}
	s.metrics.ObserveDecision(scope, result.Allowed)

	if !result.Allowed {
		s.auditor.Record(ctx, audit.EventRateLimitExceeded, audit.Event{
			Actor:    caller,
			Decision: audit.DecisionDenied,
			Reason:   scope,
		})
		if s.logger != nil {
			s.logger.WarnContext(ctx, "rate limit exceeded",
				"scope", scope,
				"retry_after", result.RetryAfter,
			)
		}
	}
	return result, nil
}
