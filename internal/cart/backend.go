package cart

import (
	"context"
	"errors"
	"sync"
	"time"

	redisclient "github.com/angelmondragon/boxoffice-backend/pkg/redis"
)

// Backend persists the serialized cart for a session. Load returns nil data
// and no error when nothing is stored.
type Backend interface {
	Load(ctx context.Context, sessionID string) ([]byte, error)
	Save(ctx context.Context, sessionID string, data []byte) error
	Delete(ctx context.Context, sessionID string) error
}

// MemoryBackend keeps carts in process memory.
type MemoryBackend struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string][]byte)}
}

func (m *MemoryBackend) Load(_ context.Context, sessionID string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[sessionID]
	if !ok {
		return nil, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

func (m *MemoryBackend) Save(_ context.Context, sessionID string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	m.data[sessionID] = stored
	return nil
}

func (m *MemoryBackend) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, sessionID)
	return nil
}

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CartKey(sessionID string) string
}

// RedisBackend stores each cart as a JSON string under its session key.
type RedisBackend struct {
	store redisStore
	ttl   time.Duration
}

var _ redisStore = (*redisclient.Client)(nil)

func NewRedisBackend(store redisStore, ttl time.Duration) *RedisBackend {
	return &RedisBackend{store: store, ttl: ttl}
}

func (r *RedisBackend) Load(ctx context.Context, sessionID string) ([]byte, error) {
	val, err := r.store.Get(ctx, r.store.CartKey(sessionID))
	if errors.Is(err, redisclient.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(val), nil
}

func (r *RedisBackend) Save(ctx context.Context, sessionID string, data []byte) error {
	return r.store.Set(ctx, r.store.CartKey(sessionID), string(data), r.ttl)
}

func (r *RedisBackend) Delete(ctx context.Context, sessionID string) error {
	return r.store.Del(ctx, r.store.CartKey(sessionID))
}
