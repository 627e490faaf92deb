package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/decksmith/deck-api/internal/core/domain"
)

func newCache(t *testing.T, ttl time.Duration) (*PrincipalCache, *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewPrincipalCache(client, ttl), srv
}

func TestPrincipalCache_RoundTrip(t *testing.T) {
	cache, srv := newCache(t, time.Minute)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)

	p := domain.Principal{ID: "u1", Username: "alice", Email: "alice@example.com", Roles: []domain.Role{domain.RoleUser}}
	require.NoError(t, cache.Set(ctx, p))
	assert.True(t, srv.Exists("principal:alice"))

	got, ok, err := cache.Get(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, p, got)
}

func TestPrincipalCache_Expires(t *testing.T) {
	cache, srv := newCache(t, time.Second)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, domain.Principal{Username: "alice"}))
	srv.FastForward(2 * time.Second)

	_, ok, err := cache.Get(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrincipalCache_Invalidate(t *testing.T) {
	cache, _ := newCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, domain.Principal{Username: "alice"}))
	require.NoError(t, cache.Invalidate(ctx, "alice"))

	_, ok, err := cache.Get(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPrincipalCache_CorruptEntry(t *testing.T) {
	cache, srv := newCache(t, time.Minute)
	require.NoError(t, srv.Set("principal:alice", "{not json"))

	_, ok, err := cache.Get(context.Background(), "alice")
	require.Error(t, err)
	assert.False(t, ok)
}

func TestNewPrincipalCache_DefaultTTL(t *testing.T) {
	c := NewPrincipalCache(nil, 0)
	assert.Equal(t, defaultPrincipalTTL, c.ttl)
}
