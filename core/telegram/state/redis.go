package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "diarybot:conv:"

// RedisOptions configures a Redis-backed store.
type RedisOptions struct {
	// Prefix namespaces keys; defaults to "diarybot:conv:".
	Prefix string
	// TTL expires abandoned conversations; zero keeps them until deleted.
	TTL time.Duration
}

// Redis is a Store that survives restarts, JSON-encoding values under one key per user.
type Redis[T any] struct {
	client redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewRedis wraps a go-redis client.
func NewRedis[T any](client redis.Cmdable, opts RedisOptions) *Redis[T] {
	prefix := opts.Prefix
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &Redis[T]{client: client, prefix: prefix, ttl: opts.TTL}
}

// Key returns the Redis key for a user.
func (r *Redis[T]) Key(userID int64) string {
	return r.prefix + strconv.FormatInt(userID, 10)
}

// Get loads and decodes the value for userID.
func (r *Redis[T]) Get(ctx context.Context, userID int64) (T, bool, error) {
	var zero T
	raw, err := r.client.Get(ctx, r.Key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return zero, false, nil
	}
	if err != nil {
		return zero, false, fmt.Errorf("state: redis get: %w", err)
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return zero, false, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return v, true, nil
}

// Put encodes and stores the value, refreshing the TTL.
func (r *Redis[T]) Put(ctx context.Context, userID int64, v T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("state: encode: %w", err)
	}
	if err := r.client.Set(ctx, r.Key(userID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("state: redis set: %w", err)
	}
	return nil
}

// Delete removes the key for userID.
func (r *Redis[T]) Delete(ctx context.Context, userID int64) error {
	if err := r.client.Del(ctx, r.Key(userID)).Err(); err != nil {
		return fmt.Errorf("state: redis del: %w", err)
	}
	return nil
}
