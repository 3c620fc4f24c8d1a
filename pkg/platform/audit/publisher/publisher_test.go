package publisher

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/pkg/domain"
	dErrors "kycgate/pkg/domain-errors"
	audit "kycgate/pkg/platform/audit"
	"kycgate/pkg/platform/audit/metrics"
	"kycgate/pkg/platform/audit/store/memory"
)

type failingStore struct {
	err error
}

func (s *failingStore) Append(_ context.Context, _ audit.Event) error {
	return s.err
}

func (s *failingStore) ListByHolder(_ context.Context, _ domain.Identity) ([]audit.Event, error) {
	return nil, nil
}

func (s *failingStore) ListRecent(_ context.Context, _ int) ([]audit.Event, error) {
	return nil, nil
}

// blockingStore holds Append until release is closed.
type blockingStore struct {
	*memory.InMemoryStore
	release chan struct{}
}

func (s *blockingStore) Append(ctx context.Context, e audit.Event) error {
	<-s.release
	return s.InMemoryStore.Append(ctx, e)
}

func TestPublisher_EmitStoresEvent(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore())

	err := pub.Emit(context.Background(), audit.Event{
		Holder: "holder-1",
		Action: string(audit.EventCredentialIssued),
	})
	require.NoError(t, err)

	events, err := pub.List(context.Background(), "holder-1")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, string(audit.EventCredentialIssued), events[0].Action)
	assert.False(t, events[0].Timestamp.IsZero())
}

func TestPublisher_PreservesExistingTimestamp(t *testing.T) {
	pub := NewPublisher(memory.NewInMemoryStore())
	customTime := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, pub.Emit(context.Background(), audit.Event{Holder: "h", Timestamp: customTime}))

	events, err := pub.List(context.Background(), "h")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, customTime, events[0].Timestamp)
}

func TestPublisher_EmitReturnsError(t *testing.T) {
	storeErr := errors.New("append failed")
	pub := NewPublisher(&failingStore{err: storeErr})

	err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventConsentGranted)})
	require.ErrorIs(t, err, storeErr)
}

func TestPublisher_AsyncDrainsOnClose(t *testing.T) {
	store := memory.NewInMemoryStore()
	m := metrics.New(prometheus.NewRegistry())
	pub := NewPublisher(store, WithAsyncBuffer(10), WithMetrics(m))

	for range 5 {
		require.NoError(t, pub.Emit(context.Background(), audit.Event{Holder: "h"}))
	}
	pub.Close()
	pub.Close()

	events, err := store.ListByHolder(context.Background(), "h")
	require.NoError(t, err)
	assert.Len(t, events, 5)
	assert.Equal(t, 5.0, testutil.ToFloat64(m.EventsProcessed))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.QueueDepth))
}

func TestPublisher_AsyncBufferFullDropsEvent(t *testing.T) {
	store := &blockingStore{InMemoryStore: memory.NewInMemoryStore(), release: make(chan struct{})}
	m := metrics.New(prometheus.NewRegistry())
	pub := NewPublisher(store, WithAsyncBuffer(1), WithMetrics(m))

	// The worker takes the first event and blocks in Append; the second fills the buffer.
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Holder: "h"}))
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(m.QueueDepth) == 0
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, pub.Emit(context.Background(), audit.Event{Holder: "h"}))

	err := pub.Emit(context.Background(), audit.Event{Holder: "h"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventsDropped))

	close(store.release)
	pub.Close()
}
