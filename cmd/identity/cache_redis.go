package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss is returned by ViewCache.Get when no entry exists.
var ErrCacheMiss = errors.New("identity: cache miss")

// CacheConfig configures the Redis view cache.
type CacheConfig struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	TTL          time.Duration
	Prefix       string
	Enabled      bool
}

// DefaultCacheConfig returns a disabled cache with sane client settings.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Addr:         "localhost:6379",
		PoolSize:     10,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
		TTL:          time.Minute,
		Prefix:       "vidtube:account:",
	}
}

// cacheClient abstracts the Redis operations the cache uses.
type cacheClient interface {
	get(ctx context.Context, key string) ([]byte, error)
	set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	setNX(ctx context.Context, key string, value []byte, ttl time.Duration) error
	del(ctx context.Context, key string) error
	close() error
}

// ViewCache caches sanitized account views by id for the request gate.
// Only AccountView is stored; digests and renewal credentials never reach Redis.
// Cache failures are logged and treated as misses.
type ViewCache struct {
	client cacheClient
	log    *slog.Logger
	prefix string
	ttl    time.Duration
}

// NewViewCache connects to Redis when cfg.Enabled, otherwise returns a cache
// that never hits.
func NewViewCache(ctx context.Context, cfg CacheConfig, log *slog.Logger) (*ViewCache, error) {
	if log == nil {
		log = slog.Default()
	}
	c := &ViewCache{
		client: noopCacheClient{},
		log:    log,
		prefix: cfg.Prefix,
		ttl:    cfg.TTL,
	}
	if !cfg.Enabled {
		return c, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("identity: redis ping %s: %w", cfg.Addr, err)
	}

	log.Info("cache.redis.connected", "addr", cfg.Addr, "db", cfg.DB)
	c.client = redisCacheClient{rdb: rdb}
	return c, nil
}

// Get returns the cached view for id or ErrCacheMiss.
func (c *ViewCache) Get(ctx context.Context, id string) (AccountView, error) {
	raw, err := c.client.get(ctx, c.prefix+id)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			c.log.Warn("cache.get.fail", "err", err)
		}
		return AccountView{}, ErrCacheMiss
	}

	var v AccountView
	if err := json.Unmarshal(raw, &v); err != nil {
		c.log.Warn("cache.decode.fail", "err", err)
		return AccountView{}, ErrCacheMiss
	}
	return v, nil
}

// Put stores v under its id, replacing any entry. Writers call it with the
// view returned by the store after a mutation.
func (c *ViewCache) Put(ctx context.Context, v AccountView) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.set(ctx, c.prefix+v.ID, raw, c.ttl); err != nil {
		c.log.Warn("cache.set.fail", "err", err)
	}
}

// Fill stores v only when no entry exists. Readers use it after a miss so a
// view read before a concurrent Put cannot replace the newer one.
func (c *ViewCache) Fill(ctx context.Context, v AccountView) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.client.setNX(ctx, c.prefix+v.ID, raw, c.ttl); err != nil {
		c.log.Warn("cache.fill.fail", "err", err)
	}
}

// Invalidate drops the entry for id.
func (c *ViewCache) Invalidate(ctx context.Context, id string) {
	if err := c.client.del(ctx, c.prefix+id); err != nil {
		c.log.Warn("cache.del.fail", "err", err)
	}
}

// Close releases the Redis client.
func (c *ViewCache) Close() error { return c.client.close() }

type redisCacheClient struct {
	rdb *redis.Client
}

func (r redisCacheClient) get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

func (r redisCacheClient) set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

func (r redisCacheClient) setNX(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.rdb.SetNX(ctx, key, value, ttl).Err()
}

func (r redisCacheClient) del(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}

func (r redisCacheClient) close() error { return r.rdb.Close() }

type noopCacheClient struct{}

func (noopCacheClient) get(context.Context, string) ([]byte, error) { return nil, ErrCacheMiss }

func (noopCacheClient) set(context.Context, string, []byte, time.Duration) error { return nil }

func (noopCacheClient) setNX(context.Context, string, []byte, time.Duration) error { return nil }

func (noopCacheClient) del(context.Context, string) error { return nil }

func (noopCacheClient) close() error { return nil }
