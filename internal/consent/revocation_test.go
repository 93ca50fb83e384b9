package consent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRevocationList(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewMemoryRevocationList()

	revoked, err := l.IsRevoked(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, l.Revoke(ctx, "t1", time.Hour))

	revoked, err = l.IsRevoked(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, revoked)
}

func TestMemoryRevocationList_EntryLapsesWithToken(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewMemoryRevocationList()

	// Retention bound already in the past: the token it guarded has expired,
	// so the entry no longer matters.
	require.NoError(t, l.Revoke(ctx, "t1", time.Nanosecond))
	time.Sleep(10 * time.Millisecond)

	revoked, err := l.IsRevoked(ctx, "t1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryRevocationList_IndefiniteRetention(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := NewMemoryRevocationList()

	require.NoError(t, l.Revoke(ctx, "t1", 0))

	revoked, err := l.IsRevoked(ctx, "t1")
	require.NoError(t, err)
	assert.True(t, revoked)
}
