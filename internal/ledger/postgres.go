package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	consentstore "kycgate/internal/consent/store"
	credstore "kycgate/internal/credential/store"
	"kycgate/pkg/domain"
	outboxpg "kycgate/pkg/platform/outbox/store/postgres"
)

// Postgres is the durable ledger. Update takes a transaction-scoped advisory
// lock on the holder so writers for one holder are admitted one at a time;
// View reads inside a REPEATABLE READ snapshot.
type Postgres struct {
	db   *sql.DB
	opts options
}

// NewPostgres creates a ledger over db. Journal entries land in the outbox
// table in the same transaction as the state change.
func NewPostgres(db *sql.DB, opts ...Option) *Postgres {
	return &Postgres{db: db, opts: newOptions(opts)}
}

func (l *Postgres) Update(ctx context.Context, holder domain.Identity, fn TxFunc) (err error) {
	defer func() { l.opts.metrics.observeOutcome(opUpdate, err) }()
	if err := ctx.Err(); err != nil {
		return timeoutError(err)
	}
	ctx, cancel := l.opts.withDeadline(ctx)
	defer cancel()

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return finish(ctx, fmt.Errorf("begin update: %w", err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	start := time.Now()
	if _, err = tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, holder.String()); err != nil {
		return finish(ctx, fmt.Errorf("lock holder: %w", err))
	}
	l.opts.metrics.observeWait(opUpdate, start)

	if err = fn(ctx, Stores{
		Credentials: credstore.NewPostgres(tx),
		Consents:    consentstore.NewPostgres(tx),
		Journal:     outboxpg.New(tx),
	}); err != nil {
		return finish(ctx, err)
	}
	if err = tx.Commit(); err != nil {
		return finish(ctx, fmt.Errorf("commit update: %w", err))
	}
	return nil
}

func (l *Postgres) View(ctx context.Context, holder domain.Identity, fn TxFunc) (err error) {
	defer func() { l.opts.metrics.observeOutcome(opView, err) }()
	if err := ctx.Err(); err != nil {
		return timeoutError(err)
	}
	ctx, cancel := l.opts.withDeadline(ctx)
	defer cancel()

	start := time.Now()
	tx, err := l.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return finish(ctx, fmt.Errorf("begin view: %w", err))
	}
	l.opts.metrics.observeWait(opView, start)
	defer func() { _ = tx.Rollback() }()

	err = fn(ctx, Stores{
		Credentials: credstore.NewPostgres(tx),
		Consents:    consentstore.NewPostgres(tx),
		Journal:     readOnlyJournal{},
	})
	return finish(ctx, err)
}
