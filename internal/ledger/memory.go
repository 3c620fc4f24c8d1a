package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	consentmodels "kycgate/internal/consent/models"
	consentstore "kycgate/internal/consent/store"
	credmodels "kycgate/internal/credential/models"
	credstore "kycgate/internal/credential/store"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/outbox"
	"kycgate/pkg/platform/sentinel"
	platformsync "kycgate/pkg/platform/sync"
)

// Memory is the in-process ledger. Writers for a holder take the holder's
// shard exclusively and readers share it, so a View never observes half of
// an Update. Writes are staged and applied only when the callback succeeds.
type Memory struct {
	mu          *platformsync.ShardedRWMutex
	credentials credstore.Store
	consents    consentstore.Store
	journal     outbox.Appender
	opts        options
}

// NewMemory wraps the given stores. The journal may be nil, in which case
// transitions are not recorded.
func NewMemory(credentials credstore.Store, consents consentstore.Store, journal outbox.Appender, opts ...Option) *Memory {
	return &Memory{
		mu:          platformsync.NewShardedRWMutex(),
		credentials: credentials,
		consents:    consents,
		journal:     journal,
		opts:        newOptions(opts),
	}
}

func (l *Memory) Update(ctx context.Context, holder domain.Identity, fn TxFunc) (err error) {
	defer func() { l.opts.metrics.observeOutcome(opUpdate, err) }()
	if err := ctx.Err(); err != nil {
		return timeoutError(err)
	}
	ctx, cancel := l.opts.withDeadline(ctx)
	defer cancel()

	key := holder.String()
	start := time.Now()
	l.mu.Lock(key)
	l.opts.metrics.observeWait(opUpdate, start)
	defer l.mu.Unlock(key)

	if err := ctx.Err(); err != nil {
		return timeoutError(err)
	}

	tx := newStagedTx(l.credentials, l.consents)
	if err := fn(ctx, tx.stores()); err != nil {
		return finish(ctx, err)
	}
	return finish(ctx, tx.commit(ctx, l.credentials, l.consents, l.journal))
}

func (l *Memory) View(ctx context.Context, holder domain.Identity, fn TxFunc) (err error) {
	defer func() { l.opts.metrics.observeOutcome(opView, err) }()
	if err := ctx.Err(); err != nil {
		return timeoutError(err)
	}
	ctx, cancel := l.opts.withDeadline(ctx)
	defer cancel()

	key := holder.String()
	start := time.Now()
	l.mu.RLock(key)
	l.opts.metrics.observeWait(opView, start)
	defer l.mu.RUnlock(key)

	if err := ctx.Err(); err != nil {
		return timeoutError(err)
	}

	return finish(ctx, fn(ctx, Stores{
		Credentials: readOnlyCredentials{l.credentials},
		Consents:    readOnlyConsents{l.consents},
		Journal:     readOnlyJournal{},
	}))
}

// stagedTx buffers writes made by one Update callback.
type stagedTx struct {
	credentials *stagedCredentials
	consents    *stagedConsents
	journal     *stagedJournal
}

func newStagedTx(credentials credstore.Store, consents consentstore.Store) *stagedTx {
	return &stagedTx{
		credentials: &stagedCredentials{base: credentials, writes: map[domain.Identity]credmodels.Record{}},
		consents:    &stagedConsents{base: consents, writes: map[consentmodels.Scope]consentmodels.Record{}},
		journal:     &stagedJournal{},
	}
}

func (tx *stagedTx) stores() Stores {
	return Stores{Credentials: tx.credentials, Consents: tx.consents, Journal: tx.journal}
}

// commit applies staged writes. The underlying in-memory stores only reject
// input already rejected at staging, so a partial commit is not expected.
func (tx *stagedTx) commit(ctx context.Context, credentials credstore.Store, consents consentstore.Store, journal outbox.Appender) error {
	for _, record := range tx.credentials.writes {
		r := record
		if err := credentials.Put(ctx, &r); err != nil {
			return fmt.Errorf("commit credential: %w", err)
		}
	}
	for _, record := range tx.consents.writes {
		r := record
		if err := consents.Put(ctx, &r); err != nil {
			return fmt.Errorf("commit consent: %w", err)
		}
	}
	if journal == nil {
		return nil
	}
	for _, entry := range tx.journal.entries {
		if err := journal.Append(ctx, entry); err != nil {
			return fmt.Errorf("commit journal: %w", err)
		}
	}
	return nil
}

type stagedCredentials struct {
	base   credstore.Store
	writes map[domain.Identity]credmodels.Record
}

func (s *stagedCredentials) FindByHolder(ctx context.Context, holder domain.Identity) (*credmodels.Record, error) {
	if record, ok := s.writes[holder]; ok {
		return &record, nil
	}
	return s.base.FindByHolder(ctx, holder)
}

func (s *stagedCredentials) Put(_ context.Context, record *credmodels.Record) error {
	if record == nil || record.Holder.IsNil() {
		return fmt.Errorf("put credential: %w", sentinel.ErrInvalidInput)
	}
	s.writes[record.Holder] = *record
	return nil
}

type stagedConsents struct {
	base   consentstore.Store
	writes map[consentmodels.Scope]consentmodels.Record
}

func (s *stagedConsents) Find(ctx context.Context, scope consentmodels.Scope) (*consentmodels.Record, error) {
	if record, ok := s.writes[scope]; ok {
		return &record, nil
	}
	return s.base.Find(ctx, scope)
}

func (s *stagedConsents) Put(_ context.Context, record *consentmodels.Record) error {
	if record == nil || record.Holder.IsNil() || record.Verifier.IsNil() {
		return fmt.Errorf("put consent: %w", sentinel.ErrInvalidInput)
	}
	s.writes[consentmodels.Scope{Holder: record.Holder, Verifier: record.Verifier}] = *record
	return nil
}

func (s *stagedConsents) ListByHolder(ctx context.Context, holder domain.Identity) ([]*consentmodels.Record, error) {
	committed, err := s.base.ListByHolder(ctx, holder)
	if err != nil {
		return nil, err
	}
	merged := make(map[domain.Identity]*consentmodels.Record, len(committed))
	for _, r := range committed {
		merged[r.Verifier] = r
	}
	for scope, record := range s.writes {
		if scope.Holder != holder {
			continue
		}
		r := record
		merged[scope.Verifier] = &r
	}
	out := make([]*consentmodels.Record, 0, len(merged))
	for _, r := range merged {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Verifier < out[j].Verifier })
	return out, nil
}

type stagedJournal struct {
	entries []*outbox.Entry
}

func (j *stagedJournal) Append(_ context.Context, entry *outbox.Entry) error {
	if entry == nil {
		return fmt.Errorf("append journal entry: %w", sentinel.ErrInvalidInput)
	}
	j.entries = append(j.entries, entry)
	return nil
}

type readOnlyCredentials struct{ credstore.Store }

func (readOnlyCredentials) Put(context.Context, *credmodels.Record) error { return ErrReadOnly }

type readOnlyConsents struct{ consentstore.Store }

func (readOnlyConsents) Put(context.Context, *consentmodels.Record) error { return ErrReadOnly }
