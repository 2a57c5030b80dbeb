package handoff

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore backs the handoff surface with Redis. TTLs map directly onto
// key expiry, so perishable artifacts vanish server-side without a sweeper.
type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore wraps an existing Redis client as a Store. All keys are
// namespaced under the given prefix to keep the database shareable.
func NewRedisStore(client *redis.Client, prefix string) Store {
	if prefix == "" {
		prefix = "sportstix"
	}
	return &redisStore{client: client, prefix: prefix}
}

func (r *redisStore) key(k string) string { return r.prefix + ":" + k }

func (r *redisStore) Put(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

func (r *redisStore) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (r *redisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
