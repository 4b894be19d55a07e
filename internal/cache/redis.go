// Package cache memoizes retrieval outcomes in Redis. Keys embed the snapshot
// id, so a rebuild naturally invalidates every cached outcome; entries also
// expire after a TTL.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Dunglqd/vexera-ai-system-test/internal/models"
	"github.com/Dunglqd/vexera-ai-system-test/pkg/utils"
)

const (
	DefaultTTL    = 10 * time.Minute
	DefaultPrefix = "faq:outcome:"
)

// Options configures the Redis connection.
type Options struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
	Prefix   string
}

// RedisCache implements the engine's outcome cache. Redis errors are logged
// and reported as misses.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

// NewRedisCache connects and verifies the connection with a PING.
func NewRedisCache(ctx context.Context, opts Options, logger *zap.Logger) (*RedisCache, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", opts.Addr, err)
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: prefix, logger: utils.OrNop(logger)}, nil
}

// Get returns the cached outcome for key.
func (c *RedisCache) Get(ctx context.Context, key string) (models.RetrievalOutcome, bool) {
	b, err := c.rdb.Get(ctx, c.redisKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("outcome cache get failed", zap.Error(err))
		}
		return models.RetrievalOutcome{}, false
	}
	o, err := models.DecodeOutcome(b)
	if err != nil {
		c.logger.Warn("outcome cache entry unreadable", zap.Error(err))
		return models.RetrievalOutcome{}, false
	}
	return o, true
}

// Set stores o under key with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, key string, o models.RetrievalOutcome) {
	b, err := models.EncodeOutcome(o)
	if err != nil {
		c.logger.Warn("outcome cache encode failed", zap.Error(err))
		return
	}
	if err := c.rdb.Set(ctx, c.redisKey(key), b, c.ttl).Err(); err != nil {
		c.logger.Warn("outcome cache set failed", zap.Error(err))
	}
}

// Flush removes every key under the prefix and returns how many were deleted.
func (c *RedisCache) Flush(ctx context.Context) (int64, error) {
	var deleted int64
	iter := c.rdb.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			return deleted, fmt.Errorf("deleting key %s: %w", iter.Val(), err)
		}
		deleted++
	}
	if err := iter.Err(); err != nil {
		return deleted, fmt.Errorf("scanning %s*: %w", c.prefix, err)
	}
	return deleted, nil
}

// Close closes the connection pool.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// redisKey hashes the engine key so arbitrary question text stays within
// sane key sizes.
func (c *RedisCache) redisKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return c.prefix + hex.EncodeToString(sum[:])
}
