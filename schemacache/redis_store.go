package schemacache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a cross-process Store for multi-instance Brain
// deployments: Schema State is session-scoped but several Brain processes
// may serve the same session across turns, so the cache must be shared.
type RedisStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisStore constructs a RedisStore. ttl bounds how long an entry may
// live in Redis even if the caller never calls Set again (a safety net
// beyond the Schema State's own expires_at).
func NewRedisStore(client redis.Cmdable, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Get returns the cached state for key, if any.
func (r *RedisStore) Get(ctx context.Context, key string) (*State, bool, error) {
	raw, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var s State
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, false, err
	}
	return &s, true, nil
}

// Set stores state under key with the store's configured TTL ceiling.
func (r *RedisStore) Set(ctx context.Context, key string, state *State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, redisKey(key), raw, r.ttl).Err()
}

func redisKey(key string) string {
	return "brain:schema_state:" + key
}
