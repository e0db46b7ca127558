package database

import (
	"context"
	"fmt"
	"time"
)

// NewSessionStore builds the store named by kind ("memory" or "redis").
func NewSessionStore(ctx context.Context, kind, redisURL string, ttl time.Duration) (SessionStore, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(ttl), nil
	case "redis":
		return NewRedisStore(ctx, redisURL, ttl)
	default:
		return nil, fmt.Errorf("unknown session store %q", kind)
	}
}
