package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/platform/kafka/producer"
	"kycgate/pkg/platform/outbox"
	"kycgate/pkg/platform/outbox/metrics"
	"kycgate/pkg/platform/outbox/store/memory"
)

type recordingPublisher struct {
	mu       sync.Mutex
	messages []*producer.Message
	failFor  string
}

func (p *recordingPublisher) Produce(_ context.Context, msg *producer.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failFor != "" && msg.Headers["event_type"] == p.failFor {
		return errors.New("broker unavailable")
	}
	p.messages = append(p.messages, msg)
	return nil
}

func (p *recordingPublisher) sent() []*producer.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*producer.Message(nil), p.messages...)
}

func appendEntries(t *testing.T, store *memory.Store, eventTypes ...string) []*outbox.Entry {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	var out []*outbox.Entry
	for i, et := range eventTypes {
		e := outbox.NewEntry("holder", "holder-1", et, []byte(`{}`), base.Add(time.Duration(i)*time.Second))
		require.NoError(t, store.Append(context.Background(), e))
		out = append(out, e)
	}
	return out
}

func TestPollPublishesInOrderAndMarksProcessed(t *testing.T) {
	store := memory.New()
	entries := appendEntries(t, store, "credential_issued", "consent_granted")
	pub := &recordingPublisher{}
	reg := prometheus.NewRegistry()
	w := New(store, pub, WithTopic("transitions"), WithMetrics(metrics.New(reg)))

	assert.Equal(t, 2, w.poll(context.Background()))

	sent := pub.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "transitions", sent[0].Topic)
	assert.Equal(t, []byte("holder-1"), sent[0].Key)
	assert.Equal(t, entries[0].ID.String(), sent[0].Headers["entry_id"])
	assert.Equal(t, "consent_granted", sent[1].Headers["event_type"])

	pending, err := store.CountPending(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pending)
	assert.Equal(t, 1.0, testutil.ToFloat64(w.metrics.PublishedTotal.WithLabelValues("credential_issued")))
}

func TestPollRelaysInAppendOrderWhenRequestTimesRunBackwards(t *testing.T) {
	store := memory.New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	granted := outbox.NewEntry("holder", "holder-1", "consent_granted", []byte(`{}`), base.Add(10*time.Second))
	revoked := outbox.NewEntry("holder", "holder-1", "consent_revoked", []byte(`{}`), base.Add(5*time.Second))
	require.NoError(t, store.Append(context.Background(), granted))
	require.NoError(t, store.Append(context.Background(), revoked))

	pub := &recordingPublisher{}
	w := New(store, pub)
	assert.Equal(t, 2, w.poll(context.Background()))

	sent := pub.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "consent_granted", sent[0].Headers["event_type"])
	assert.Equal(t, "consent_revoked", sent[1].Headers["event_type"])
	assert.Equal(t, "1", sent[0].Headers["seq"])
	assert.Equal(t, "2", sent[1].Headers["seq"])
}

func TestPollStopsBatchAtFirstFailure(t *testing.T) {
	store := memory.New()
	appendEntries(t, store, "credential_issued", "consent_granted", "consent_revoked")
	pub := &recordingPublisher{failFor: "consent_granted"}
	w := New(store, pub)

	assert.Equal(t, 1, w.poll(context.Background()))

	pending, err := store.CountPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), pending, "failed entry and its successor stay queued")
	assert.Len(t, pub.sent(), 1)
}

func TestStopDrainsPendingEntries(t *testing.T) {
	store := memory.New()
	pub := &recordingPublisher{}
	w := New(store, pub, WithPollInterval(time.Hour))
	w.Start()

	appendEntries(t, store, "credential_issued")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))
	assert.Len(t, pub.sent(), 1)
}

func TestDrainGivesUpWithoutProgress(t *testing.T) {
	store := memory.New()
	appendEntries(t, store, "credential_issued")
	w := New(store, &recordingPublisher{failFor: "credential_issued"}, WithPollInterval(time.Hour))
	w.Start()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, w.Stop(ctx))

	pending, err := store.CountPending(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), pending)
}

func TestUpdateMetrics(t *testing.T) {
	store := memory.New()
	appendEntries(t, store, "credential_issued", "credential_superseded")
	m := metrics.New(prometheus.NewRegistry())
	w := New(store, &recordingPublisher{}, WithMetrics(m))

	require.NoError(t, w.UpdateMetrics(context.Background()))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.PendingDepth))
}

func TestPruneRemovesOnlyAgedRelayedEntries(t *testing.T) {
	store := memory.New()
	entries := appendEntries(t, store, "credential_issued", "consent_granted", "consent_revoked")
	ctx := context.Background()
	require.NoError(t, store.MarkProcessed(ctx, entries[0].ID, time.Now().Add(-48*time.Hour)))
	require.NoError(t, store.MarkProcessed(ctx, entries[1].ID, time.Now()))

	m := metrics.New(prometheus.NewRegistry())
	w := New(store, &recordingPublisher{}, WithRetention(24*time.Hour), WithMetrics(m))

	assert.Equal(t, int64(1), w.prune(ctx))
	assert.Len(t, store.All(), 2)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PrunedTotal))

	assert.Zero(t, New(store, &recordingPublisher{}).prune(ctx), "no retention configured")
}
