package audit

import (
	"context"
	"time"

	"kycgate/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	Category  EventCategory
	Action    string
	Actor     domain.Identity // authenticated caller
	Holder    domain.Identity
	Verifier  domain.Identity // empty unless the action concerns a verifier
	Decision  string
	Reason    string
	RequestID string
	Device    string // "Chrome on macOS" style label from the user agent
}

// Store persists audit events. Implementations are append-only.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByHolder(ctx context.Context, holder domain.Identity) ([]Event, error)
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// AuditEvent names an auditable action.
type AuditEvent string

const (
	EventCredentialIssued      AuditEvent = "credential_issued"
	EventCredentialSuperseded  AuditEvent = "credential_superseded"
	EventConsentGranted        AuditEvent = "consent_granted"
	EventConsentRevoked        AuditEvent = "consent_revoked"
	EventVerificationAttempted AuditEvent = "verification_attempted"
	EventMutationDenied        AuditEvent = "mutation_denied"
	EventRateLimitExceeded     AuditEvent = "rate_limit_exceeded"
)

// Decisions recorded on events.
const (
	DecisionGranted      = "granted"
	DecisionDenied       = "denied"
	DecisionVerified     = "verified"
	DecisionNotVerified  = "not_verified"
	DecisionNoCredential = "no_credential"
)

// EventCategory groups events by retention policy.
type EventCategory string

const (
	CategoryCompliance EventCategory = "compliance"
	CategorySecurity   EventCategory = "security"
	CategoryOperations EventCategory = "operations"
)

// Category maps an event to its category. Unknown events fall back to
// operations so nothing is dropped for lack of a mapping.
func (e AuditEvent) Category() EventCategory {
	switch e {
	case EventCredentialIssued, EventCredentialSuperseded,
		EventConsentGranted, EventConsentRevoked, EventVerificationAttempted:
		return CategoryCompliance
	case EventMutationDenied, EventRateLimitExceeded:
		return CategorySecurity
	default:
		return CategoryOperations
	}
}
