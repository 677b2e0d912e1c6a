// Package redis implements Redis-backed caches for the CGPA service.
//
// Key components:
//   - Cache: namespaced access to one Redis database
//   - TextCache: extracted document text keyed by content digest
//   - SummaryCache: read-through cache in front of the summary archive
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONFIGURATION
// ══════════════════════════════════════════════════════════════════════════════

// Config holds Redis connection configuration.
type Config struct {
	Host     string
	Port     int
	Password string
	DB       int

	// KeyPrefix namespaces every key so several deployments can share a database.
	KeyPrefix string

	PoolSize     int
	MinIdleConns int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns the settings for a local Redis.
func DefaultConfig() Config {
	return Config{
		Host:         "localhost",
		Port:         6379,
		KeyPrefix:    DefaultKeyPrefix,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Addr returns the Redis address in "host:port" format.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func (c Config) options() *redis.Options {
	return &redis.Options{
		Addr:         c.Addr(),
		Password:     c.Password,
		DB:           c.DB,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
		DialTimeout:  c.DialTimeout,
		ReadTimeout:  c.ReadTimeout,
		WriteTimeout: c.WriteTimeout,
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrCacheMiss is returned when the key is absent or expired.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheConnection is returned when Redis cannot be reached at startup.
	ErrCacheConnection = errors.New("cache: connection failed")

	// ErrCacheSerialization is returned when a value cannot be encoded or decoded.
	ErrCacheSerialization = errors.New("cache: serialization failed")

	// ErrCacheInvalidTTL is returned for negative TTLs.
	ErrCacheInvalidTTL = errors.New("cache: invalid TTL")

	// ErrCacheKeyEmpty is returned when the entry ID is empty.
	ErrCacheKeyEmpty = errors.New("cache: key cannot be empty")
)

// ══════════════════════════════════════════════════════════════════════════════
// KEYSPACE
// ══════════════════════════════════════════════════════════════════════════════

// DefaultKeyPrefix is used when Config.KeyPrefix is empty.
const DefaultKeyPrefix = "cgpa"

// Kind names the family of entries a key belongs to.
type Kind string

const (
	// KindText holds extracted document text by content digest.
	KindText Kind = "text"
	// KindSummary holds archived summaries by ID.
	KindSummary Kind = "summary"
)

// ══════════════════════════════════════════════════════════════════════════════
// CACHE CLIENT
// ══════════════════════════════════════════════════════════════════════════════

// Cache stores entries under "<prefix>:<kind>:<id>".
type Cache struct {
	client redis.Cmdable
	close  func() error
	prefix string
}

// NewCache connects to Redis and verifies the connection.
func NewCache(ctx context.Context, cfg Config) (*Cache, error) {
	client := redis.NewClient(cfg.options())

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrCacheConnection, cfg.Addr(), err)
	}

	return &Cache{client: client, close: client.Close, prefix: normalizePrefix(cfg.KeyPrefix)}, nil
}

// NewCacheWithClient wraps an existing client. Close is a no-op.
func NewCacheWithClient(client redis.Cmdable, prefix string) *Cache {
	return &Cache{client: client, close: func() error { return nil }, prefix: normalizePrefix(prefix)}
}

func normalizePrefix(p string) string {
	p = strings.Trim(p, ": ")
	if p == "" {
		return DefaultKeyPrefix
	}
	return p
}

// Key returns the full Redis key for an entry.
func (c *Cache) Key(kind Kind, id string) string {
	return c.prefix + ":" + string(kind) + ":" + id
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.close()
}

// Ping checks if Redis is reachable.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// ══════════════════════════════════════════════════════════════════════════════
// ENTRY OPERATIONS
// ══════════════════════════════════════════════════════════════════════════════

func checkEntry(id string, ttl time.Duration) error {
	if id == "" {
		return ErrCacheKeyEmpty
	}
	if ttl < 0 {
		return ErrCacheInvalidTTL
	}
	return nil
}

// put stores a raw value. A zero TTL keeps the entry until evicted.
func (c *Cache) put(ctx context.Context, kind Kind, id string, value []byte, ttl time.Duration) error {
	if err := checkEntry(id, ttl); err != nil {
		return err
	}
	key := c.Key(kind, id)
	if err := c.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

// fetch returns a raw value or ErrCacheMiss.
func (c *Cache) fetch(ctx context.Context, kind Kind, id string) ([]byte, error) {
	if err := checkEntry(id, 0); err != nil {
		return nil, err
	}
	key := c.Key(kind, id)
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache: get %s: %w", key, err)
	}
	return data, nil
}

// PutJSON stores value encoded as JSON.
func (c *Cache) PutJSON(ctx context.Context, kind Kind, id string, value any, ttl time.Duration) error {
	if err := checkEntry(id, ttl); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return c.put(ctx, kind, id, data, ttl)
}

// FetchJSON decodes a stored JSON value into dest.
func (c *Cache) FetchJSON(ctx context.Context, kind Kind, id string, dest any) error {
	data, err := c.fetch(ctx, kind, id)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	return nil
}

// Forget removes entries of one kind.
func (c *Cache) Forget(ctx context.Context, kind Kind, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = c.Key(kind, id)
	}
	return c.client.Del(ctx, keys...).Err()
}
