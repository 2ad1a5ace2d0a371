package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps every connectivity or command failure returned by
// the underlying client.
var ErrRedisUnavailable = errors.New("redis unavailable")

// Repository maps (namespace, key) pairs onto Redis commands.
//
// It is safe for concurrent use; the client multiplexes connections itself.
type Repository struct {
	redis  redis.UniversalClient
	prefix string
}

// NewRepository creates a [Repository] on top of the given client. A non-empty
// prefix is prepended as "prefix:" to every key.
func NewRepository(client redis.UniversalClient, prefix string) *Repository {
	return &Repository{
		redis:  client,
		prefix: prefix,
	}
}

// Key returns the fully qualified Redis key for namespace and key.
func (r *Repository) Key(namespace, key string) string {
	if r.prefix == "" {
		return namespace + ":" + key
	}
	return r.prefix + ":" + namespace + ":" + key
}

// Get returns the stored value. A missing key yields ok == false and a nil
// error.
func (r *Repository) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	value, err := r.redis.Get(ctx, r.Key(namespace, key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return value, true, nil
}

// SetWithExpiry stores value under namespace:key with the given TTL.
func (r *Repository) SetWithExpiry(ctx context.Context, namespace, key, value string, ttl time.Duration) error {
	if err := r.redis.Set(ctx, r.Key(namespace, key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Incr increments the integer stored at namespace:key, creating it at 1 when
// absent, and returns the new value.
func (r *Repository) Incr(ctx context.Context, namespace, key string) (int64, error) {
	count, err := r.redis.Incr(ctx, r.Key(namespace, key)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return count, nil
}

// Expire (re)sets the TTL of namespace:key. Expiring a missing key is not an
// error.
func (r *Repository) Expire(ctx context.Context, namespace, key string, ttl time.Duration) error {
	if err := r.redis.Expire(ctx, r.Key(namespace, key), ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Delete removes namespace:key. Deleting a missing key is not an error.
func (r *Repository) Delete(ctx context.Context, namespace, key string) error {
	if err := r.redis.Del(ctx, r.Key(namespace, key)).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Ping returns a point-in-time availability check and its latency.
func (r *Repository) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := r.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

// Batch opens an atomic batch. Queued commands become visible to other
// clients together when [Batch.Exec] commits them, or not at all.
func (r *Repository) Batch() *Batch {
	return &Batch{
		repo: r,
		pipe: r.redis.TxPipeline(),
	}
}

// Batch queues delete and set commands for a single MULTI/EXEC commit.
//
// A Batch is not safe for concurrent use and must not be reused after Exec.
type Batch struct {
	repo   *Repository
	pipe   redis.Pipeliner
	queued int
}

// Delete queues a DEL of namespace:key.
func (b *Batch) Delete(ctx context.Context, namespace, key string) {
	b.pipe.Del(ctx, b.repo.Key(namespace, key))
	b.queued++
}

// SetWithExpiry queues a SET of namespace:key with the given TTL.
func (b *Batch) SetWithExpiry(ctx context.Context, namespace, key, value string, ttl time.Duration) {
	b.pipe.Set(ctx, b.repo.Key(namespace, key), value, ttl)
	b.queued++
}

// Len reports the number of queued commands.
func (b *Batch) Len() int {
	return b.queued
}

// Exec commits all queued commands atomically.
func (b *Batch) Exec(ctx context.Context) error {
	if b.queued == 0 {
		return nil
	}
	if _, err := b.pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}
