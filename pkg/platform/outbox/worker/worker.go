// Package worker relays journal entries from the outbox to Kafka and prunes
// relayed entries once they age past the retention period.
package worker

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"kycgate/internal/platform/kafka/producer"
	"kycgate/pkg/platform/outbox"
	"kycgate/pkg/platform/outbox/metrics"
)

// Publisher delivers one message synchronously. *producer.Producer satisfies it.
type Publisher interface {
	Produce(ctx context.Context, msg *producer.Message) error
}

const (
	DefaultTopic = "kycgate.ledger.transitions"

	defaultBatchSize    = 100
	defaultPollInterval = 250 * time.Millisecond
	drainTimeout        = 10 * time.Second
	pruneInterval       = time.Minute
)

type Worker struct {
	store     outbox.Store
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger

	topic        string
	batchSize    int
	pollInterval time.Duration
	retention    time.Duration

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

type Option func(*Worker)

func WithTopic(topic string) Option {
	return func(w *Worker) {
		if topic != "" {
			w.topic = topic
		}
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithPollInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithRetention deletes relayed entries older than d. Zero keeps them forever.
func WithRetention(d time.Duration) Option {
	return func(w *Worker) { w.retention = d }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func New(store outbox.Store, publisher Publisher, opts ...Option) *Worker {
	w := &Worker{
		store:        store,
		publisher:    publisher,
		logger:       slog.New(slog.DiscardHandler),
		topic:        DefaultTopic,
		batchSize:    defaultBatchSize,
		pollInterval: defaultPollInterval,
		stop:         make(chan struct{}),
		done:         make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start runs the relay loop until Stop.
func (w *Worker) Start() {
	go w.loop()
}

func (w *Worker) loop() {
	defer close(w.done)

	poll := time.NewTicker(w.pollInterval)
	defer poll.Stop()
	prune := time.NewTicker(pruneInterval)
	defer prune.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-w.stop
		cancel()
	}()

	for {
		select {
		case <-ctx.Done():
			w.drain()
			return
		case <-poll.C:
			w.poll(ctx)
		case <-prune.C:
			w.prune(ctx)
		}
	}
}

// poll relays one batch in creation order and reports how many entries were
// published and marked.
func (w *Worker) poll(ctx context.Context) int {
	defer w.metrics.ObservePoll(time.Now())

	entries, err := w.store.FetchUnprocessed(ctx, w.batchSize)
	if err != nil {
		w.logger.Error("fetch journal entries", "error", err)
		w.metrics.IncPublishFailures()
		return 0
	}
	if len(entries) == 0 {
		return 0
	}
	w.metrics.ObserveBatchSize(len(entries))

	relayed := 0
	for _, e := range entries {
		if err := w.publish(ctx, e); err != nil {
			w.logger.Error("publish journal entry", "id", e.ID, "event_type", e.EventType, "error", err)
			w.metrics.IncPublishFailures()
			// A holder's later transitions must not overtake this one.
			return relayed
		}
		// Published but unmarked entries are sent again on the next poll;
		// consumers dedupe on the entry_id header.
		if err := w.store.MarkProcessed(ctx, e.ID, time.Now()); err != nil {
			w.logger.Error("mark journal entry relayed", "id", e.ID, "error", err)
			continue
		}
		relayed++
		w.metrics.IncPublished(e.EventType)
	}
	return relayed
}

func (w *Worker) publish(ctx context.Context, e *outbox.Entry) error {
	start := time.Now()
	err := w.publisher.Produce(ctx, &producer.Message{
		Topic: w.topic,
		Key:   []byte(e.AggregateID),
		Value: e.Payload,
		Headers: map[string]string{
			"entry_id":       e.ID.String(),
			"aggregate_type": e.AggregateType,
			"event_type":     e.EventType,
			"seq":            strconv.FormatInt(e.Seq, 10),
		},
	})
	if err == nil {
		w.metrics.ObservePublish(start)
	}
	return err
}

// prune is a no-op without a retention period.
func (w *Worker) prune(ctx context.Context) int64 {
	if w.retention <= 0 {
		return 0
	}
	n, err := w.store.DeleteProcessedBefore(ctx, time.Now().Add(-w.retention))
	if err != nil {
		w.logger.Warn("prune journal", "error", err)
		return 0
	}
	if n > 0 {
		w.logger.Debug("pruned relayed journal entries", "count", n)
		w.metrics.AddPruned(n)
	}
	return n
}

// drain keeps relaying on shutdown until a round makes no progress or the
// drain deadline passes.
func (w *Worker) drain() {
	w.logger.Info("draining journal relay")
	ctx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	for ctx.Err() == nil {
		if w.poll(ctx) == 0 {
			return
		}
	}
}

// Stop signals the loop and waits for the drain, or for ctx.
func (w *Worker) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() { close(w.stop) })
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpdateMetrics refreshes the pending depth gauge.
func (w *Worker) UpdateMetrics(ctx context.Context) error {
	if w.metrics == nil {
		return nil
	}
	n, err := w.store.CountPending(ctx)
	if err != nil {
		return err
	}
	w.metrics.SetPendingDepth(n)
	return nil
}
