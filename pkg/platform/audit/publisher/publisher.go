// Package publisher persists audit events, inline or through a bounded
// queue drained by one background goroutine.
package publisher

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	audit "kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/audit/metrics"
	"kycgate/pkg/requestcontext"
)

// Publisher implements audit.Emitter. Audit writes never block a ledger
// operation: when the queue is full the event is dropped and counted.
type Publisher struct {
	store   audit.Store
	queue   chan audit.Event
	logger  *slog.Logger
	metrics *metrics.Metrics

	drained   sync.WaitGroup
	closeOnce sync.Once
}

type PublisherOption func(*Publisher)

// WithAsyncBuffer queues up to size events for background persistence.
func WithAsyncBuffer(size int) PublisherOption {
	return func(p *Publisher) {
		if size > 0 {
			p.queue = make(chan audit.Event, size)
		}
	}
}

func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) { p.logger = logger }
}

func WithMetrics(m *metrics.Metrics) PublisherOption {
	return func(p *Publisher) { p.metrics = m }
}

func NewPublisher(store audit.Store, opts ...PublisherOption) *Publisher {
	p := &Publisher{store: store, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(p)
	}
	if p.queue != nil {
		p.drained.Add(1)
		go p.consume()
	}
	return p
}

func (p *Publisher) consume() {
	defer p.drained.Done()
	for ev := range p.queue {
		p.metrics.Dequeued()
		if err := p.persist(context.Background(), ev); err != nil {
			p.logger.Error("persist audit event", "action", ev.Action, "error", err)
		}
	}
}

func (p *Publisher) persist(ctx context.Context, ev audit.Event) error {
	start := time.Now()
	err := p.store.Append(ctx, ev)
	p.metrics.Persisted(start, err)
	return err
}

// Emit stamps the event with the request time when it carries none.
func (p *Publisher) Emit(ctx context.Context, ev audit.Event) error {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = requestcontext.Now(ctx)
	}
	if p.queue == nil {
		return p.persist(ctx, ev)
	}
	select {
	case p.queue <- ev:
		p.metrics.Enqueued()
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		p.metrics.Dropped()
		p.logger.Warn("audit queue full, event dropped", "action", ev.Action)
		return dErrors.New(dErrors.CodeInternal, "audit buffer full")
	}
}

// Close stops accepting queued events and waits until the queue is empty.
// It is safe to call more than once.
func (p *Publisher) Close() {
	if p.queue == nil {
		return
	}
	p.closeOnce.Do(func() {
		close(p.queue)
		p.drained.Wait()
	})
}

func (p *Publisher) List(ctx context.Context, holder domain.Identity) ([]audit.Event, error) {
	return p.store.ListByHolder(ctx, holder)
}
