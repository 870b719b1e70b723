// Package cache stores segmentation results in Redis. Concurrent misses for
// the same text are collapsed into one computation.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "freqseg:"

// Recorder receives hit and miss notifications. metrics.Metrics implements it.
type Recorder interface {
	CacheHit()
	CacheMiss()
}

type nopRecorder struct{}

func (nopRecorder) CacheHit()  {}
func (nopRecorder) CacheMiss() {}

// Option configures a TokenCache.
type Option func(*TokenCache)

// WithTTL sets the expiry of stored results. Zero means no expiry.
func WithTTL(ttl time.Duration) Option {
	return func(c *TokenCache) {
		c.ttl = ttl
	}
}

// WithLogger sets the logger for Redis failures.
func WithLogger(logger *zap.Logger) Option {
	return func(c *TokenCache) {
		c.logger = logger
	}
}

// WithRecorder sets the hit/miss Recorder.
func WithRecorder(r Recorder) Option {
	return func(c *TokenCache) {
		c.recorder = r
	}
}

// TokenCache maps (mode, text) to the tokens computed for it. Redis errors
// never fail a lookup; they are logged and treated as misses.
type TokenCache struct {
	client   redis.UniversalClient
	ttl      time.Duration
	group    singleflight.Group
	logger   *zap.Logger
	recorder Recorder
	hits     atomic.Int64
	misses   atomic.Int64
}

// New creates a TokenCache over client.
func New(client redis.UniversalClient, opts ...Option) *TokenCache {
	c := &TokenCache{
		client:   client,
		ttl:      10 * time.Minute,
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("component", "token-cache"))
	return c
}

// Get returns the cached tokens for text in mode.
func (c *TokenCache) Get(ctx context.Context, mode, text string) ([]string, bool) {
	tokens, ok := c.get(ctx, mode, text)
	if !ok {
		c.miss()
		return nil, false
	}
	c.hit()
	return tokens, true
}

// get looks text up without touching the hit and miss counts.
func (c *TokenCache) get(ctx context.Context, mode, text string) ([]string, bool) {
	key := buildKey(mode, text)
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Error("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	var tokens []string
	if err := json.Unmarshal(data, &tokens); err != nil {
		c.logger.Error("cache unmarshal failed", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return tokens, true
}

// Set stores tokens for text in mode.
func (c *TokenCache) Set(ctx context.Context, mode, text string, tokens []string) {
	key := buildKey(mode, text)
	data, err := json.Marshal(tokens)
	if err != nil {
		c.logger.Error("cache marshal failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Error("cache set failed", zap.String("key", key), zap.Error(err))
	}
}

// GetOrCompute returns cached tokens, or runs computeFn once per key among
// concurrent callers and caches its result. The bool reports a cache hit.
func (c *TokenCache) GetOrCompute(
	ctx context.Context,
	mode, text string,
	computeFn func(ctx context.Context) ([]string, error),
) ([]string, bool, error) {
	if tokens, ok := c.Get(ctx, mode, text); ok {
		return tokens, true, nil
	}
	key := buildKey(mode, text)
	// The lookup inside the flight catches a result stored by a flight that
	// finished after our miss; it is not counted again.
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if tokens, ok := c.get(ctx, mode, text); ok {
			return tokens, nil
		}
		tokens, err := computeFn(ctx)
		if err != nil {
			return nil, err
		}
		c.Set(ctx, mode, text, tokens)
		return tokens, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.([]string), false, nil
}

// Invalidate deletes every cached result, returning the number of keys removed.
func (c *TokenCache) Invalidate(ctx context.Context) (int64, error) {
	var deleted int64
	iter := c.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("deleting key %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scanning cache keys: %w", err)
	}
	c.logger.Info("cache invalidated", zap.Int64("keys_deleted", deleted))
	return deleted, nil
}

// Stats returns the hit and miss counts since creation.
func (c *TokenCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// Ping checks the Redis connection.
func (c *TokenCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *TokenCache) hit() {
	c.hits.Add(1)
	c.recorder.CacheHit()
}

func (c *TokenCache) miss() {
	c.misses.Add(1)
	c.recorder.CacheMiss()
}

func buildKey(mode, text string) string {
	hash := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s%s:%x", keyPrefix, mode, hash[:16])
}
