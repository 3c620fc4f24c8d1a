package service

import (
	"context"
	"errors"
	"log/slog"

	"kycgate/internal/credential/metrics"
	"kycgate/internal/credential/models"
	"kycgate/internal/ledger"
	"kycgate/internal/platform/tracer"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/sentinel"
	"kycgate/pkg/requestcontext"
)

// Service records issuer attestations: one current digest per holder.
type Service struct {
	ledger  ledger.Ledger
	policy  IssuerPolicy
	auditor *audit.Logger
	metrics *metrics.Metrics
	tracer  tracer.Tracer
	logger  *slog.Logger
}

type Option func(*Service)

func WithIssuerPolicy(p IssuerPolicy) Option {
	return func(s *Service) {
		if p != nil {
			s.policy = p
		}
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

// New creates the credential service. Without WithIssuerPolicy any
// authenticated caller may issue.
func New(l ledger.Ledger, opts ...Option) *Service {
	svc := &Service{
		ledger: l,
		policy: OpenIssuance{},
		tracer: tracer.NewNoop(),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Issue writes digest as the holder's current credential, replacing any
// previous one.
func (s *Service) Issue(ctx context.Context, issuer, holder domain.Identity, digest domain.Digest) (resp *models.IssueResponse, err error) {
	ctx, span := s.tracer.Start(ctx, tracer.SpanIssue,
		tracer.String(tracer.AttrHolder, tracer.HashIdentity(holder.String())),
	)
	defer func() { span.End(err) }()

	if !s.policy.CanIssue(issuer) {
		s.metrics.IncDenied()
		s.auditor.Record(ctx, audit.EventMutationDenied, audit.Event{
			Actor:    issuer,
			Holder:   holder,
			Decision: audit.DecisionDenied,
			Reason:   "issuer_not_authorized",
		})
		return nil, dErrors.New(dErrors.CodeUnauthorized, "caller is not an authorized issuer")
	}
	if holder.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "holder is required")
	}
	if digest.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvalidDigest, "digest must not be zero")
	}

	record := &models.Record{
		Holder:   holder,
		Digest:   digest,
		Issuer:   issuer,
		IssuedAt: requestcontext.Now(ctx),
	}
	var previous *models.Record
	err = s.ledger.Update(ctx, holder, func(ctx context.Context, stores ledger.Stores) error {
		existing, err := stores.Credentials.FindByHolder(ctx, holder)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read credential")
		}
		previous = existing

		if err := stores.Credentials.Put(ctx, record); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save credential")
		}

		transition := models.Transition{
			Holder:   holder.String(),
			Issuer:   issuer.String(),
			Digest:   digest.String(),
			IssuedAt: record.IssuedAt,
		}
		eventType := ledger.EventCredentialIssued
		if previous != nil {
			eventType = ledger.EventCredentialSuperseded
			transition.PreviousIssuer = previous.Issuer.String()
		}
		if err := ledger.RecordTransition(ctx, stores.Journal, holder, eventType, transition, record.IssuedAt); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to journal credential")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	superseded := previous != nil
	s.metrics.IncIssued(superseded)
	action := audit.EventCredentialIssued
	if superseded {
		action = audit.EventCredentialSuperseded
	}
	s.auditor.Record(ctx, action, audit.Event{
		Actor:    issuer,
		Holder:   holder,
		Decision: audit.DecisionGranted,
	})
	if s.logger != nil {
		s.logger.DebugContext(ctx, "credential issued",
			"request_id", requestcontext.RequestID(ctx),
			"superseded", superseded,
		)
	}

	return &models.IssueResponse{
		Holder:     holder.String(),
		Issuer:     issuer.String(),
		IssuedAt:   record.IssuedAt,
		Superseded: superseded,
	}, nil
}

// DigestOf returns the holder's current digest. found is false when the
// holder has no credential, which is not an error.
func (s *Service) DigestOf(ctx context.Context, holder domain.Identity) (digest domain.Digest, found bool, err error) {
	err = s.ledger.View(ctx, holder, func(ctx context.Context, stores ledger.Stores) error {
		record, err := stores.Credentials.FindByHolder(ctx, holder)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read credential")
		}
		digest, found = record.Digest, true
		return nil
	})
	if err != nil {
		return domain.Digest{}, false, err
	}
	return digest, found, nil
}

// Credential returns the full record to its own holder.
func (s *Service) Credential(ctx context.Context, caller, holder domain.Identity) (*models.Record, error) {
	if caller.IsNil() || caller != holder {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "only the holder may read their credential")
	}
	var record *models.Record
	err := s.ledger.View(ctx, holder, func(ctx context.Context, stores ledger.Stores) error {
		r, err := stores.Credentials.FindByHolder(ctx, holder)
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNoCredential, "no credential on record")
		}
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to read credential")
		}
		record = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}
