package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLockerIsExclusivePerKey(t *testing.T) {
	ctx := context.Background()
	l := NewLocalLocker()

	unlock, ok, err := l.TryLock(ctx, "a", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = l.TryLock(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	other, ok, err := l.TryLock(ctx, "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	_, ok, err = l.TryLock(ctx, "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLockerDefaultsPrefix(t *testing.T) {
	assert.Equal(t, "barberpro:lock", NewRedisLocker(nil, " ").prefix)
	assert.Equal(t, "custom", NewRedisLocker(nil, "custom").prefix)
}
