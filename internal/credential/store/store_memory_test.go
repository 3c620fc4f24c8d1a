package store

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kycgate/internal/credential/models"
	"kycgate/pkg/domain"
	"kycgate/pkg/platform/sentinel"
)

func digestOf(t *testing.T, b byte) domain.Digest {
	t.Helper()
	d, err := domain.DigestFromBytes([]byte(strings.Repeat(string(b), domain.DigestSize)))
	require.NoError(t, err)
	return d
}

func TestInMemoryStore_PutReplaces(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	_, err := s.FindByHolder(ctx, "holder-1")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)

	now := time.Now()
	require.NoError(t, s.Put(ctx, &models.Record{Holder: "holder-1", Digest: digestOf(t, 'a'), Issuer: "issuer-1", IssuedAt: now}))
	require.NoError(t, s.Put(ctx, &models.Record{Holder: "holder-1", Digest: digestOf(t, 'b'), Issuer: "issuer-2", IssuedAt: now}))

	got, err := s.FindByHolder(ctx, "holder-1")
	require.NoError(t, err)
	assert.True(t, got.Digest.Equal(digestOf(t, 'b')))
	assert.Equal(t, domain.Identity("issuer-2"), got.Issuer)
}

func TestInMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	require.NoError(t, s.Put(ctx, &models.Record{Holder: "holder-1", Digest: digestOf(t, 'a'), Issuer: "issuer-1"}))

	got, err := s.FindByHolder(ctx, "holder-1")
	require.NoError(t, err)
	got.Digest[0] = 'z'

	again, err := s.FindByHolder(ctx, "holder-1")
	require.NoError(t, err)
	assert.True(t, again.Digest.Equal(digestOf(t, 'a')))
}

func TestInMemoryStore_RejectsEmptyHolder(t *testing.T) {
	err := NewInMemory().Put(context.Background(), &models.Record{})
	assert.ErrorIs(t, err, sentinel.ErrInvalidInput)
}
