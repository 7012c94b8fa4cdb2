package cache

import (
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/goliatone/go-cacheable/internal/cacheinfra"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory    = cacheinfra.BackendMemory
	BackendSturdyc   = cacheinfra.BackendSturdyc
	BackendOtter     = cacheinfra.BackendOtter
	BackendRistretto = cacheinfra.BackendRistretto
)

// Config exposes cache configuration options for consumers of the cache package.
type Config struct {
	Backend            string
	Capacity           int
	NumShards          int
	TTL                time.Duration
	EvictionPercentage int
	EarlyRefresh       *EarlyRefreshConfig
	EvictionInterval   time.Duration
}

// EarlyRefreshConfig mirrors the underlying sturdyc early refresh options.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// RedisConfig configures the redis backend.
type RedisConfig = cacheinfra.RedisConfig

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() Config {
	return convertFromInternal(cacheinfra.DefaultConfig())
}

// DefaultRedisConfig returns a RedisConfig with a 5 second query timeout.
func DefaultRedisConfig() RedisConfig {
	return cacheinfra.DefaultRedisConfig()
}

// Validate checks whether the configuration values are valid.
func (c Config) Validate() error {
	return c.toInternal().Validate()
}

// NewCacheService constructs the in-process backend selected by cfg.Backend.
func NewCacheService(cfg Config) (CacheService, error) {
	svc, err := cacheinfra.NewService(cfg.toInternal())
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// NewMemoryService returns the unbounded in-memory backend.
func NewMemoryService() CacheService {
	return cacheinfra.NewMemoryService()
}

// NewRedisService returns a backend storing msgpack encoded values in redis.
func NewRedisService(client redis.UniversalClient, cfg RedisConfig) (CacheService, error) {
	svc, err := cacheinfra.NewRedisService(client, cfg)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// NewTiered stacks backends so a miss in one tier consults the next before
// running the resolver.
func NewTiered(first CacheService, rest ...CacheService) CacheService {
	tiers := make([]cacheinfra.Service, len(rest))
	for i, svc := range rest {
		tiers[i] = svc
	}
	return cacheinfra.NewTiered(first, tiers...)
}

func (c Config) toInternal() cacheinfra.Config {
	var early *cacheinfra.EarlyRefreshConfig
	if c.EarlyRefresh != nil {
		early = &cacheinfra.EarlyRefreshConfig{
			MinAsyncRefreshTime: c.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: c.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     c.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      c.EarlyRefresh.RetryBaseDelay,
		}
	}

	return cacheinfra.Config{
		Backend:            c.Backend,
		Capacity:           c.Capacity,
		NumShards:          c.NumShards,
		TTL:                c.TTL,
		EvictionPercentage: c.EvictionPercentage,
		EarlyRefresh:       early,
		EvictionInterval:   c.EvictionInterval,
	}
}

func convertFromInternal(cfg cacheinfra.Config) Config {
	var early *EarlyRefreshConfig
	if cfg.EarlyRefresh != nil {
		early = &EarlyRefreshConfig{
			MinAsyncRefreshTime: cfg.EarlyRefresh.MinAsyncRefreshTime,
			MaxAsyncRefreshTime: cfg.EarlyRefresh.MaxAsyncRefreshTime,
			SyncRefreshTime:     cfg.EarlyRefresh.SyncRefreshTime,
			RetryBaseDelay:      cfg.EarlyRefresh.RetryBaseDelay,
		}
	}

	return Config{
		Backend:            cfg.Backend,
		Capacity:           cfg.Capacity,
		NumShards:          cfg.NumShards,
		TTL:                cfg.TTL,
		EvictionPercentage: cfg.EvictionPercentage,
		EarlyRefresh:       early,
		EvictionInterval:   cfg.EvictionInterval,
	}
}
