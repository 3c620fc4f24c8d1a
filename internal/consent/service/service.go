// Package service implements the consent ledger: one flag per
// (holder, verifier), writable only by the holder.
package service

import (
	"context"
	"errors"
	"log/slog"

	"kycgate/internal/consent/metrics"
	"kycgate/internal/consent/models"
	"kycgate/internal/ledger"
	"kycgate/internal/platform/tracer"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/requestcontext"
)

type Service struct {
	ledger  ledger.Ledger
	auditor *audit.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	logger  *slog.Logger
}

type Option func(*Service)

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

func WithTracer(t tracer.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(l ledger.Ledger, opts ...Option) *Service {
	svc := &Service{ledger: l, tracer: tracer.NewNoop()}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// SetConsent sets the flag for (holder, verifier). Only the holder may call
// it. Repeating the current value changes nothing, including UpdatedAt, and
// writes no journal entry.
func (s *Service) SetConsent(ctx context.Context, caller, holder, verifier domain.Identity, granted bool) (record *models.Record, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanSetConsent,
		tracer.String(tracer.AttrHolder, tracer.HashIdentity(holder.String())),
		tracer.String(tracer.AttrVerifier, tracer.HashIdentity(verifier.String())),
		tracer.Bool(tracer.AttrConsented, granted),
	)
	defer func() { span.End(err) }()

	if caller.IsNil() || caller != holder {
		s.metrics.IncDenied()
		s.auditor.Record(ctx, audit.EventMutationDenied, audit.Event{
			Actor:    caller,
			Holder:   holder,
			Verifier: verifier,
			Decision: audit.DecisionDenied,
			Reason:   "caller_not_holder",
		})
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the holder may change consent")
	}
	if verifier.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "verifier is required")
	}

	scope := models.Scope{Holder: holder, Verifier: verifier}
	changed := false
	err = s.ledger.Update(ctx, holder, func(ctx context.Context, stores ledger.Stores) error {
		existing, err := stores.Consents.Find(ctx, scope)
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			existing = &models.Record{Holder: holder, Verifier: verifier}
		case err != nil:
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent")
		}
		if existing.Granted == granted {
			record = existing
			return nil
		}

		next := &models.Record{
			Holder:    holder,
			Verifier:  verifier,
			Granted:   granted,
			UpdatedAt: requestcontext.Now(ctx),
		}
		if err := stores.Consents.Put(ctx, next); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save consent")
		}
		eventType := ledger.EventConsentRevoked
		if granted {
			eventType = ledger.EventConsentGranted
		}
		transition := models.Transition{
			Holder:    holder.String(),
			Verifier:  verifier.String(),
			Granted:   granted,
			UpdatedAt: next.UpdatedAt,
		}
		if err := ledger.RecordTransition(ctx, stores.Journal, holder, eventType, transition, next.UpdatedAt); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to journal consent")
		}
		record, changed = next, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !changed {
		s.metrics.IncNoOp()
		return record, nil
	}
	s.metrics.IncChange(granted)
	action, decision := audit.EventConsentRevoked, audit.DecisionDenied
	if granted {
		action, decision = audit.EventConsentGranted, audit.DecisionGranted
	}
	s.auditor.Record(ctx, action, audit.Event{
		Actor:    caller,
		Holder:   holder,
		Verifier: verifier,
		Decision: decision,
	})
	if s.logger != nil {
		s.logger.DebugContext(ctx, "consent changed",
			"request_id", requestcontext.RequestID(ctx),
			"granted", granted,
		)
	}
	return record, nil
}

// IsConsented reports the flag for (holder, verifier). A pair that was
// never set is not consented.
func (s *Service) IsConsented(ctx context.Context, holder, verifier domain.Identity) (bool, error) {
	var granted bool
	err := s.ledger.View(ctx, holder, func(ctx context.Context, stores ledger.Stores) error {
		record, err := stores.Consents.Find(ctx, models.Scope{Holder: holder, Verifier: verifier})
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read consent")
		}
		granted = record.Granted
		return nil
	})
	if err != nil {
		return false, err
	}
	return granted, nil
}

// Check is IsConsented for callers outside the core: only the holder or the
// verifier named in the pair may ask.
func (s *Service) Check(ctx context.Context, caller, holder, verifier domain.Identity) (bool, error) {
	if caller.IsNil() || (caller != holder && caller != verifier) {
		return false, dErrors.New(dErrors.CodeUnauthorized, "only the holder or the verifier may read this consent")
	}
	return s.IsConsented(ctx, holder, verifier)
}

// List returns the holder's own consent records.
func (s *Service) List(ctx context.Context, caller, holder domain.Identity) ([]*models.Record, error) {
	if caller.IsNil() || caller != holder {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the holder may list their consents")
	}
	var records []*models.Record
	err := s.ledger.View(ctx, holder, func(ctx context.Context, stores ledger.Stores) error {
		list, err := stores.Consents.ListByHolder(ctx, holder)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list consents")
		}
		records = list
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}
