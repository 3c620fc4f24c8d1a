// Package ledger owns the credential store, the consent store and the
// transition journal. It is the only place state for a holder is mutated:
// Update serializes writers per holder and View gives readers one consistent
// snapshot of both stores.
package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	consentstore "kycgate/internal/consent/store"
	credstore "kycgate/internal/credential/store"
	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	"kycgate/pkg/platform/outbox"
)

//go:generate mockgen -source=ledger.go -destination=mocks/mocks.go -package=mocks Ledger

// Journal event types. The aggregate of every entry is the holder.
const (
	AggregateHolder = outbox.AggregateHolder

	EventCredentialIssued     = "credential_issued"
	EventCredentialSuperseded = "credential_superseded"
	EventConsentGranted       = "consent_granted"
	EventConsentRevoked       = "consent_revoked"
)

// DefaultTimeout bounds admission plus work when the caller sets no deadline.
const DefaultTimeout = 5 * time.Second

// ErrReadOnly is returned when a View callback tries to journal.
var ErrReadOnly = errors.New("ledger view is read-only")

// Stores are the collaborators handed to a transaction callback. They are
// only valid for the duration of the callback.
type Stores struct {
	Credentials credstore.Store
	Consents    consentstore.Store
	Journal     outbox.Appender
}

// TxFunc runs inside Update or View. Returning an error discards every write.
type TxFunc func(ctx context.Context, stores Stores) error

// Ledger is the serialization and snapshot boundary for holder state.
type Ledger interface {
	// Update runs fn with exclusive access to the holder's state and applies
	// its writes in full or not at all.
	Update(ctx context.Context, holder domain.Identity, fn TxFunc) error
	// View runs fn against a consistent read-only snapshot of the holder's state.
	View(ctx context.Context, holder domain.Identity, fn TxFunc) error
}

// RecordTransition encodes payload and appends it to the journal for holder.
func RecordTransition(ctx context.Context, journal outbox.Appender, holder domain.Identity, eventType string, payload any, at time.Time) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", eventType, err)
	}
	entry := outbox.NewEntry(AggregateHolder, holder.String(), eventType, body, at)
	if err := journal.Append(ctx, entry); err != nil {
		return fmt.Errorf("journal %s: %w", eventType, err)
	}
	return nil
}

type options struct {
	timeout time.Duration
	metrics *Metrics
}

// Option configures a ledger backend.
type Option func(*options)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.timeout = d
		}
	}
}

// WithMetrics records lock wait and transaction outcomes.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func newOptions(opts []Option) options {
	o := options{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// withDeadline applies the default timeout when ctx carries no deadline.
func (o options) withDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.timeout)
}

func timeoutError(err error) error {
	return dErrors.Wrap(err, dErrors.CodeTimeout, "ledger admission timed out")
}

// finish classifies the error returned by a transaction callback or commit.
// Domain errors from the callback pass through untouched.
func finish(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return timeoutError(err)
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "ledger transaction failed")
}

type readOnlyJournal struct{}

func (readOnlyJournal) Append(context.Context, *outbox.Entry) error {
	return ErrReadOnly
}
