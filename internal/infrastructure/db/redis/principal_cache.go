package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/decksmith/deck-api/internal/core/domain"
)

const defaultPrincipalTTL = 30 * time.Second

// PrincipalCache keeps resolved principals for a short TTL so that repeated
// requests bearing the same token skip the credential store.
// Key format: principal:<username>
type PrincipalCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPrincipalCache wraps client. A non-positive ttl falls back to 30s.
func NewPrincipalCache(client *redis.Client, ttl time.Duration) *PrincipalCache {
	if ttl <= 0 {
		ttl = defaultPrincipalTTL
	}
	return &PrincipalCache{client: client, ttl: ttl}
}

// Get returns the cached principal for username, if any.
func (c *PrincipalCache) Get(ctx context.Context, username string) (domain.Principal, bool, error) {
	var p domain.Principal
	raw, err := c.client.Get(ctx, c.key(username)).Bytes()
	if errors.Is(err, redis.Nil) {
		return p, false, nil
	}
	if err != nil {
		return p, false, fmt.Errorf("principal cache get: %w", err)
	}
	if err := json.Unmarshal(raw, &p); err != nil {
		return p, false, fmt.Errorf("principal cache decode: %w", err)
	}
	return p, true, nil
}

// Set stores p under its username until the TTL elapses.
func (c *PrincipalCache) Set(ctx context.Context, p domain.Principal) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("principal cache encode: %w", err)
	}
	return c.client.Set(ctx, c.key(p.Username), raw, c.ttl).Err()
}

// Invalidate drops the cached principal for username.
func (c *PrincipalCache) Invalidate(ctx context.Context, username string) error {
	return c.client.Del(ctx, c.key(username)).Err()
}

func (c *PrincipalCache) key(username string) string {
	return "principal:" + username
}
