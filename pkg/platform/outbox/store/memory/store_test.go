package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/pkg/platform/outbox"
	"kycgate/pkg/platform/sentinel"
)

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first := outbox.NewEntry("holder", "h1", "credential_issued", []byte(`{}`), base)
	second := outbox.NewEntry("holder", "h1", "consent_granted", []byte(`{}`), base.Add(time.Second))
	require.NoError(t, s.Append(ctx, first))
	require.NoError(t, s.Append(ctx, second))
	assert.Less(t, first.Seq, second.Seq)

	pending, err := s.FetchUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)

	count, err := s.CountPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	require.NoError(t, s.MarkProcessed(ctx, first.ID, base.Add(time.Minute)))
	err = s.MarkProcessed(ctx, first.ID, base.Add(time.Minute))
	assert.True(t, errors.Is(err, sentinel.ErrNotFound), "second mark is rejected")

	pending, err = s.FetchUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	deleted, err := s.DeleteProcessedBefore(ctx, base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)
	assert.Len(t, s.All(), 1)
}

// Request time can run backwards between two appends for one holder: the
// call that arrived first may be admitted second. Relay follows the appends.
func TestFetchUnprocessedFollowsAppendOrderNotCreatedAt(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	granted := outbox.NewEntry("holder", "h1", "consent_granted", nil, base.Add(10*time.Second))
	revoked := outbox.NewEntry("holder", "h1", "consent_revoked", nil, base.Add(5*time.Second))
	require.NoError(t, s.Append(ctx, granted))
	require.NoError(t, s.Append(ctx, revoked))

	pending, err := s.FetchUnprocessed(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "consent_granted", pending[0].EventType)
	assert.Equal(t, "consent_revoked", pending[1].EventType)

	all := s.All()
	require.Len(t, all, 2)
	assert.Equal(t, revoked.ID, all[1].ID)
}

func TestEntriesWithEqualTimestampsKeepAppendOrder(t *testing.T) {
	ctx := context.Background()
	s := New()
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []uuid.UUID
	for range 20 {
		e := outbox.NewEntry("holder", "h1", "consent_granted", nil, at)
		require.NoError(t, s.Append(ctx, e))
		ids = append(ids, e.ID)
	}

	pending, err := s.FetchUnprocessed(ctx, 100)
	require.NoError(t, err)
	require.Len(t, pending, len(ids))
	for i, e := range pending {
		assert.Equal(t, ids[i], e.ID, "position %d", i)
	}
}

func TestFetchUnprocessedRespectsLimit(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := range 5 {
		require.NoError(t, s.Append(ctx, outbox.NewEntry("holder", "h", "credential_issued", nil, time.Unix(int64(i), 0))))
	}

	got, err := s.FetchUnprocessed(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.FetchUnprocessed(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestMarkProcessedUnknownEntry(t *testing.T) {
	err := New().MarkProcessed(context.Background(), uuid.New(), time.Now())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
