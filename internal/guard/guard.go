// Package guard implements a best-effort per-email mutual exclusion scope
// for OTP issuance: at most one issuance transition commits per lock window.
// A second request for the same email while the lock is held is refused
// rather than queued.
package guard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	// ErrHeld is returned when another issuance for the same email holds the lock.
	ErrHeld = errors.New("issuance lock held")
	// ErrUnavailable wraps Redis failures. Callers treat the guard as
	// best-effort and may proceed without it.
	ErrUnavailable = errors.New("issuance guard unavailable")
)

// Guard acquires short-lived per-email locks in Redis via SET NX.
type Guard struct {
	redis  *redis.Client
	prefix string
	ttl    time.Duration
}

// New creates a Guard with the given key prefix and lock TTL.
func New(client *redis.Client, prefix string, ttl time.Duration) *Guard {
	return &Guard{
		redis:  client,
		prefix: prefix,
		ttl:    ttl,
	}
}

func (g *Guard) key(email string) string {
	return g.prefix + ":" + email
}

// Acquire takes the lock for email and returns a release func. It returns
// ErrHeld when the lock is already taken and ErrUnavailable on Redis errors.
// The TTL bounds the hold time if the caller never releases.
func (g *Guard) Acquire(ctx context.Context, email string) (func(), error) {
	if g == nil || g.redis == nil {
		return func() {}, nil
	}

	key := g.key(email)
	ok, err := g.redis.SetNX(ctx, key, 1, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !ok {
		return nil, ErrHeld
	}

	release := func() {
		// Release is advisory; the TTL is the correctness bound.
		_ = g.redis.Del(context.Background(), key).Err()
	}
	return release, nil
}
