// Package cache stores finished simplification results.
//
// DESIGN: Results are keyed by (scope, sha256(text)), where the scope holds
// the snapshot fingerprint, engine signature and counter identity. A catalog
// change never serves a stale result: the scope moves and old keys simply
// expire. Values are opaque bytes (JSON from the caller).
//
//   - MemoryCache: process-local map with TTL and a cleanup goroutine
//   - RedisCache:  shared across instances, TTL enforced by Redis
//   - Nop:         caching disabled
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Cache types accepted by New.
const (
	TypeNone   = "none"
	TypeMemory = "memory"
	TypeRedis  = "redis"
)

// DefaultTTL applies when Config.TTL is zero.
const DefaultTTL = 10 * time.Minute

// Cache is a byte-valued result cache.
type Cache interface {
	// Get returns the cached value and whether it was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key with the cache TTL.
	Set(ctx context.Context, key string, value []byte) error

	// Close releases resources.
	Close() error
}

// Config selects and configures a cache backend.
type Config struct {
	Type      string        `yaml:"type"`       // none | memory | redis
	TTL       time.Duration `yaml:"ttl"`        // Entry lifetime
	MaxItems  int           `yaml:"max_items"`  // Memory only, 0 = unbounded
	Addr      string        `yaml:"addr"`       // Redis host:port
	Password  string        `yaml:"password"`   // Redis password
	DB        int           `yaml:"db"`         // Redis database index
	KeyPrefix string        `yaml:"key_prefix"` // Redis key namespace
}

// Validate checks the cache config.
func (c Config) Validate() error {
	switch c.Type {
	case "", TypeNone, TypeMemory:
	case TypeRedis:
		if c.Addr == "" {
			return fmt.Errorf("cache.addr is required when cache.type=redis")
		}
	default:
		return fmt.Errorf("cache: unknown type %q, must be 'none', 'memory', or 'redis'", c.Type)
	}
	if c.TTL < 0 {
		return fmt.Errorf("cache.ttl must not be negative")
	}
	return nil
}

// New creates the configured cache. An empty type disables caching.
func New(cfg Config) (Cache, error) {
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = DefaultTTL
	}
	switch cfg.Type {
	case "", TypeNone:
		return Nop{}, nil
	case TypeMemory:
		return NewMemoryCache(ttl, cfg.MaxItems), nil
	case TypeRedis:
		return NewRedisCache(cfg.Addr, cfg.Password, cfg.DB, cfg.KeyPrefix, ttl)
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Type)
	}
}

// Key derives the cache key for text. scope must name every input that
// decides the result besides the text itself: the snapshot fingerprint,
// the engine signature and the counter identity. Instances sharing a Redis
// cache only share entries when all of them agree.
func Key(scope, text string) string {
	sum := sha256.Sum256([]byte(text))
	return scope + ":" + hex.EncodeToString(sum[:])
}

// Nop is a Cache that stores nothing.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte) error         { return nil }
func (Nop) Close() error                                      { return nil }

var _ Cache = Nop{}
