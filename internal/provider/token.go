package provider

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TokenFetcher obtains a fresh bearer token and how long it stays valid.
type TokenFetcher func(ctx context.Context) (string, time.Duration, error)

// TokenCache holds one bearer token per process. Concurrent callers share a
// single refresh; the token is renewed slightly before it expires.
type TokenCache struct {
	fetch TokenFetcher
	skew  time.Duration
	now   func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewTokenCache(fetch TokenFetcher) *TokenCache {
	return &TokenCache{fetch: fetch, skew: 30 * time.Second, now: time.Now}
}

func (c *TokenCache) Token(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	token, ttl, err := c.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("Token: %w", err)
	}
	if ttl <= c.skew {
		ttl = c.skew * 2
	}
	c.token = token
	c.expiresAt = c.now().Add(ttl - c.skew)
	return token, nil
}

// Invalidate drops stale if it is still the cached token, so a caller that
// got a 401 forces the next Token call to refresh without discarding a token
// another goroutine already renewed.
func (c *TokenCache) Invalidate(stale string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == stale {
		c.token = ""
		c.expiresAt = time.Time{}
	}
}
