package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/quickblog/internal/db"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	cacheKeyPublishedBlogs      = "blogs:published"
	cacheKeyPublishedGeneration = "blogs:published:gen"
)

// PublishedCache 缓存前台已发布文章列表，任何文章写操作都会使其失效。
//
// Invalidate 会推进代数。读方在查库前取 Generation，回填时把它交给
// SetPublished；期间若有写操作，回填会被丢弃。
type PublishedCache interface {
	Generation(ctx context.Context) uint64
	GetPublished(ctx context.Context) ([]db.Blog, bool)
	SetPublished(ctx context.Context, generation uint64, blogs []db.Blog) bool
	Invalidate(ctx context.Context)
}

// MemoryPublishedCache keeps the list in process memory.
type MemoryPublishedCache struct {
	mu         sync.Mutex
	generation uint64
	cache      *cache.Cache
}

// NewMemoryPublishedCache creates a MemoryPublishedCache with the given ttl.
func NewMemoryPublishedCache(ttl time.Duration) *MemoryPublishedCache {
	return &MemoryPublishedCache{cache: cache.New(ttl, 2*ttl)}
}

func (c *MemoryPublishedCache) Generation(_ context.Context) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

func (c *MemoryPublishedCache) GetPublished(_ context.Context) ([]db.Blog, bool) {
	value, ok := c.cache.Get(cacheKeyPublishedBlogs)
	if !ok {
		return nil, false
	}
	blogs, ok := value.([]db.Blog)
	if !ok {
		return nil, false
	}
	// 返回副本，避免调用方修改缓存内容
	return append([]db.Blog(nil), blogs...), true
}

func (c *MemoryPublishedCache) SetPublished(_ context.Context, generation uint64, blogs []db.Blog) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if generation != c.generation {
		return false
	}
	c.cache.SetDefault(cacheKeyPublishedBlogs, append([]db.Blog(nil), blogs...))
	return true
}

func (c *MemoryPublishedCache) Invalidate(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.cache.Delete(cacheKeyPublishedBlogs)
}

// RedisPublishedCache shares the list between replicas through redis.
type RedisPublishedCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisPublishedCache connects to redisURL and verifies the connection.
func NewRedisPublishedCache(ctx context.Context, redisURL string, ttl time.Duration, logger *zap.Logger) (*RedisPublishedCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisPublishedCache{client: client, ttl: ttl, logger: loggerOrNop(logger)}, nil
}

func (c *RedisPublishedCache) GetPublished(ctx context.Context) ([]db.Blog, bool) {
	raw, err := c.client.Get(ctx, cacheKeyPublishedBlogs).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis get failed", zap.String("key", cacheKeyPublishedBlogs), zap.Error(err))
		}
		return nil, false
	}

	var blogs []db.Blog
	if err := json.Unmarshal(raw, &blogs); err != nil {
		c.logger.Warn("redis payload is not a blog list", zap.Error(err))
		return nil, false
	}
	return blogs, true
}

func (c *RedisPublishedCache) Generation(ctx context.Context) uint64 {
	generation, err := c.client.Get(ctx, cacheKeyPublishedGeneration).Uint64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.logger.Warn("redis get failed", zap.String("key", cacheKeyPublishedGeneration), zap.Error(err))
	}
	return generation
}

// SetPublished 在 WATCH 代数键的事务里写入，代数变化时 EXEC 失败并放弃回填。
func (c *RedisPublishedCache) SetPublished(ctx context.Context, generation uint64, blogs []db.Blog) bool {
	payload, err := json.Marshal(blogs)
	if err != nil {
		c.logger.Warn("marshal published blogs", zap.Error(err))
		return false
	}

	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, cacheKeyPublishedGeneration).Uint64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != generation {
			return nil
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cacheKeyPublishedBlogs, payload, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, cacheKeyPublishedGeneration)
	if err != nil && !errors.Is(err, redis.TxFailedErr) {
		c.logger.Warn("redis set failed", zap.String("key", cacheKeyPublishedBlogs), zap.Error(err))
	}
	return stored
}

func (c *RedisPublishedCache) Invalidate(ctx context.Context) {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, cacheKeyPublishedGeneration)
		pipe.Del(ctx, cacheKeyPublishedBlogs)
		return nil
	})
	if err != nil {
		c.logger.Warn("redis invalidate failed", zap.String("key", cacheKeyPublishedBlogs), zap.Error(err))
	}
}

// Close releases the redis connection pool.
func (c *RedisPublishedCache) Close() error {
	return c.client.Close()
}
