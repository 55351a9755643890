package state

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	backend "github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix is the key prefix used for state entries.
const DefaultRedisPrefix = "appcore:state:"

// RedisStore is a Redis-backed state store.
// It's suitable for multi-server deployments with shared state.
type RedisStore struct {
	client backend.UniversalClient
	prefix string
	owned  bool
	closed atomic.Bool
}

// RedisStoreOption configures RedisStore behavior.
type RedisStoreOption func(*RedisStore)

// WithRedisPrefix sets the key prefix for state keys.
// Default: "appcore:state:".
func WithRedisPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedisStore connects to the Redis server at address.
func NewRedisStore(address, password string, db int, opts ...RedisStoreOption) *RedisStore {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	s := NewRedisStoreFromClient(rdb, opts...)
	s.owned = true
	return s
}

// NewRedisStoreFromClient creates a store over an existing client.
func NewRedisStoreFromClient(client backend.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client: client,
		prefix: DefaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (r *RedisStore) key(token string) string {
	return r.prefix + token
}

// Save stores a payload with an expiration time.
func (r *RedisStore) Save(ctx context.Context, token string, data []byte, expiresAt time.Time) error {
	if r.closed.Load() {
		return ErrStoreClosed
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, token)
	}
	return r.client.Set(ctx, r.key(token), data, ttl).Err()
}

// Load retrieves a payload if it exists.
func (r *RedisStore) Load(ctx context.Context, token string) ([]byte, error) {
	if r.closed.Load() {
		return nil, ErrStoreClosed
	}

	data, err := r.client.Get(ctx, r.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

// Delete removes a payload from Redis.
func (r *RedisStore) Delete(ctx context.Context, token string) error {
	if r.closed.Load() {
		return ErrStoreClosed
	}
	return r.client.Del(ctx, r.key(token)).Err()
}

// Touch updates the expiration time of a payload.
func (r *RedisStore) Touch(ctx context.Context, token string, expiresAt time.Time) error {
	if r.closed.Load() {
		return ErrStoreClosed
	}

	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return r.Delete(ctx, token)
	}
	return r.client.Expire(ctx, r.key(token), ttl).Err()
}

// Ping checks that the server is reachable.
func (r *RedisStore) Ping(ctx context.Context) error {
	if r.closed.Load() {
		return ErrStoreClosed
	}
	return r.client.Ping(ctx).Err()
}

// Close marks the store as closed. The underlying client is closed only
// when the store created it.
func (r *RedisStore) Close() error {
	if r.closed.Swap(true) || !r.owned {
		return nil
	}
	return r.client.Close()
}

// Prefix returns the current key prefix.
func (r *RedisStore) Prefix() string {
	return r.prefix
}
