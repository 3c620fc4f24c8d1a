package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "kycgate/pkg/platform/audit"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	require.NoError(t, s.Append(ctx, audit.Event{Holder: "alice", Action: "credential_issued"}))
	require.NoError(t, s.Append(ctx, audit.Event{Holder: "bob", Action: "credential_issued"}))
	require.NoError(t, s.Append(ctx, audit.Event{Holder: "alice", Action: "consent_granted"}))

	alice, err := s.ListByHolder(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.Equal(t, "consent_granted", alice[0].Action, "newest first")

	recent, err := s.ListRecent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "consent_granted", recent[0].Action)
	assert.Equal(t, "bob", recent[1].Holder.String())

	all, err := s.ListRecent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	s.Clear()
	all, err = s.ListRecent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, all)
}
