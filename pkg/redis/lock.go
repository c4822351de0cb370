package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the key only while it still holds the caller's
// owner token, in one round trip.
var releaseScript = redis.NewScript(`if redis.call("get", KEYS[1]) == ARGV[1] then return redis.call("del", KEYS[1]) end return 0`)

// Locker grants a single holder per key for a bounded time.
type Locker struct {
	client *Client
}

// NewLocker builds a Locker on top of the client.
func NewLocker(client *Client) *Locker {
	return &Locker{client: client}
}

// Acquire claims key for owner until ttl passes. It reports false when a
// different owner already holds the key.
func (l *Locker) Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if l == nil || l.client == nil {
		return false, errors.New("redis locker not initialized")
	}
	ok, err := l.client.SetNX(ctx, key, owner, ttl)
	if err != nil || ok {
		return ok, err
	}
	current, err := l.client.Get(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return l.client.SetNX(ctx, key, owner, ttl)
	}
	if err != nil {
		return false, err
	}
	return current == owner, nil
}

// Release drops key if owner still holds it. A lock that expired and was
// taken by another owner is left alone.
func (l *Locker) Release(ctx context.Context, key, owner string) error {
	if l == nil || l.client == nil {
		return errors.New("redis locker not initialized")
	}
	_, err := l.client.RunScript(ctx, releaseScript, []string{key}, owner)
	return err
}
