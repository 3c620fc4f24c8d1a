// Package engine makes the verification decision: is the caller allowed to
// check this holder, and does the candidate digest match the one on record.
package engine

import (
	"context"
	"errors"
	"log/slog"
	"time"

	consentmodels "kycgate/internal/consent/models"
	"kycgate/internal/ledger"
	"kycgate/internal/platform/tracer"
	"kycgate/internal/verification/metrics"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/sentinel"
)

type Engine struct {
	ledger  ledger.Ledger
	auditor *audit.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	logger  *slog.Logger
}

type Option func(*Engine)

func WithAuditor(a *audit.Logger) Option {
	return func(e *Engine) {
		e.auditor = a
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) {
		e.metrics = m
	}
}

func WithTracer(t tracer.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func New(l ledger.Ledger, opts ...Option) *Engine {
	e := &Engine{ledger: l, tracer: tracer.NewNoop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Verify reports whether candidate matches the holder's credential and the
// holder has consented to caller checking it.
//
// A holder with no credential is CodeNoCredential whatever the consent
// state. Without consent the result is false, indistinguishable from a
// mismatch. Both stores are read from one ledger snapshot and nothing is
// written.
func (e *Engine) Verify(ctx context.Context, caller, holder domain.Identity, candidate domain.Digest) (verified bool, err error) {
	start := time.Now()
	ctx, span := e.tracer.Start(ctx, tracer.SpanVerify,
		tracer.String(tracer.AttrHolder, tracer.HashIdentity(holder.String())),
		tracer.String(tracer.AttrVerifier, tracer.HashIdentity(caller.String())),
	)
	defer func() {
		span.SetAttributes(tracer.Bool(tracer.AttrVerified, verified))
		span.End(err)
	}()

	if caller.IsNil() {
		return false, dErrors.New(dErrors.CodeUnauthorized, "verifier identity is required")
	}

	var noCredential bool
	err = e.ledger.View(ctx, holder, func(ctx context.Context, stores ledger.Stores) error {
		record, err := stores.Credentials.FindByHolder(ctx, holder)
		if errors.Is(err, sentinel.ErrNotFound) {
			noCredential = true
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read credential")
		}
		span.SetAttributes(tracer.Bool(tracer.AttrHasRecord, true))

		consent, err := stores.Consents.Find(ctx, consentmodels.Scope{Holder: holder, Verifier: caller})
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil
		case err != nil:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent")
		case !consent.Granted:
			return nil
		}
		span.SetAttributes(tracer.Bool(tracer.AttrConsented, true))

		verified = record.Digest.Equal(candidate)
		return nil
	})
	if err != nil {
		e.metrics.Observe(metrics.OutcomeError, start)
		if e.logger != nil {
			e.logger.ErrorContext(ctx, "verification failed", "error", err)
		}
		return false, err
	}

	outcome, decision := metrics.OutcomeNotVerified, audit.DecisionNotVerified
	switch {
	case noCredential:
		outcome, decision = metrics.OutcomeNoCredential, audit.DecisionNoCredential
	case verified:
		outcome, decision = metrics.OutcomeVerified, audit.DecisionVerified
	}
	e.metrics.Observe(outcome, start)
	e.auditor.Record(ctx, audit.EventVerificationAttempted, audit.Event{
		Actor:    caller,
		Holder:   holder,
		Verifier: caller,
		Decision: decision,
	})

	if noCredential {
		return false, dErrors.New(dErrors.CodeNoCredential, "no credential on record for holder")
	}
	return verified, nil
}
