// Package cache keeps short-lived request status entries in Redis or in memory.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// StatusKey is the cache key of a request status.
func StatusKey(requestID string) string {
	return "status:" + requestID
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

type RedisClient struct {
	client *redis.Client
	prefix string
}

func NewRedisClient(ctx context.Context, cfg RedisConfig) (*RedisClient, error) {
	const op = "cache.NewRedisClient"

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "imagebatch:"
	}
	return &RedisClient{client: client, prefix: prefix}, nil
}

func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	const op = "cache.RedisClient.Get"

	val, err := c.client.Get(ctx, c.prefix+key).Bytes()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, ErrCacheMiss
	case err != nil:
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return val, nil
}

// Set stores value under key. A non-positive ttl stores nothing, so status
// entries never outlive their configured lifetime.
func (c *RedisClient) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	const op = "cache.RedisClient.Set"

	if ttl <= 0 {
		return nil
	}
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *RedisClient) Delete(ctx context.Context, key string) error {
	const op = "cache.RedisClient.Delete"

	if err := c.client.Del(ctx, c.prefix+key).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	return c.client.Close()
}

// MemoryClient is an in-process cache. Expired entries are dropped on read
// or when room is needed.
type MemoryClient struct {
	mu      sync.Mutex
	data    map[string]entry
	maxSize int
	now     func() time.Time
}

type entry struct {
	value     []byte
	expiresAt time.Time
}

func NewMemoryClient(maxSize int) *MemoryClient {
	if maxSize <= 0 {
		maxSize = 10000
	}
	return &MemoryClient{
		data:    make(map[string]entry),
		maxSize: maxSize,
		now:     time.Now,
	}
}

func (c *MemoryClient) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	if c.now().After(e.expiresAt) {
		delete(c.data, key)
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

func (c *MemoryClient) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.data[key]; !exists && len(c.data) >= c.maxSize {
		c.evict()
	}
	c.data[key] = entry{value: value, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *MemoryClient) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.data, key)
	return nil
}

func (c *MemoryClient) Close() error {
	return nil
}

// evict drops expired entries, or the one closest to expiry when none are.
func (c *MemoryClient) evict() {
	now := c.now()
	var oldestKey string
	var oldest time.Time
	for key, e := range c.data {
		if now.After(e.expiresAt) {
			delete(c.data, key)
			continue
		}
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey, oldest = key, e.expiresAt
		}
	}
	if len(c.data) >= c.maxSize && oldestKey != "" {
		delete(c.data, oldestKey)
	}
}
