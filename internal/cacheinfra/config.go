package cacheinfra

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/viccon/sturdyc"
)

// Backend names accepted by Config.Backend.
const (
	BackendMemory    = "memory"
	BackendSturdyc   = "sturdyc"
	BackendOtter     = "otter"
	BackendRistretto = "ristretto"
)

// Config holds the configuration shared by the in-process backends.
type Config struct {
	// Backend selects the implementation. The memory backend is unbounded and
	// ignores every other field.
	Backend string

	// Capacity defines the maximum number of entries that the cache can store.
	// Required for every backend except memory.
	Capacity int

	// NumShards determines the number of sturdyc shards.
	// Must be greater than 0 for sturdyc. Default: 256
	NumShards int

	// TTL is the fallback time-to-live. Sturdyc applies it to every entry;
	// otter and ristretto use it when a call passes a zero TTL.
	TTL time.Duration

	// EvictionPercentage specifies what percentage of entries sturdyc evicts
	// when it reaches capacity. Must be between 1-100.
	EvictionPercentage int

	// EarlyRefresh configures sturdyc early refreshes. Nil disables them.
	// Refreshes re-run the cached operation in the background, so leave this
	// unset for operations that must run at most once per key.
	EarlyRefresh *EarlyRefreshConfig

	// EvictionInterval sets how often sturdyc checks for expired entries.
	// Zero value uses the default interval.
	EvictionInterval time.Duration
}

// EarlyRefreshConfig configures sturdyc early refresh behavior.
type EarlyRefreshConfig struct {
	MinAsyncRefreshTime time.Duration
	MaxAsyncRefreshTime time.Duration
	SyncRefreshTime     time.Duration
	RetryBaseDelay      time.Duration
}

// DefaultConfig returns the minimum backend configuration. The sizing fields
// are populated so that switching Backend is enough to get a bounded cache.
func DefaultConfig() Config {
	return Config{
		Backend:            BackendMemory,
		Capacity:           10000,
		NumShards:          256,
		TTL:                5 * time.Minute,
		EvictionPercentage: 10,
	}
}

// ToSturdycOptions converts the Config to sturdyc.Option slice.
// Capacity, NumShards, TTL, and EvictionPercentage are passed directly
// to sturdyc.New() and are not included.
func (c Config) ToSturdycOptions() []sturdyc.Option {
	var options []sturdyc.Option

	if c.EarlyRefresh != nil {
		options = append(options, sturdyc.WithEarlyRefreshes(
			c.EarlyRefresh.MinAsyncRefreshTime,
			c.EarlyRefresh.MaxAsyncRefreshTime,
			c.EarlyRefresh.SyncRefreshTime,
			c.EarlyRefresh.RetryBaseDelay,
		))
	}

	if c.EvictionInterval > 0 {
		options = append(options, sturdyc.WithEvictionInterval(c.EvictionInterval))
	}

	return options
}

// Validate checks if the configuration values are valid for the selected
// backend. The first failing field is reported as a *ConfigError.
func (c Config) Validate() error {
	bounded := c.Backend != BackendMemory
	isSturdyc := c.Backend == BackendSturdyc

	checks := []struct {
		field string
		value any
		rules []validation.Rule
	}{
		{"Backend", c.Backend, []validation.Rule{
			validation.Required.Error("cannot be empty"),
			validation.In(BackendMemory, BackendSturdyc, BackendOtter, BackendRistretto).Error("unknown backend"),
		}},
		{"Capacity", c.Capacity, []validation.Rule{
			validation.When(bounded,
				validation.Required.Error("must be greater than 0"),
				validation.Min(1).Error("must be greater than 0"),
			),
		}},
		{"NumShards", c.NumShards, []validation.Rule{
			validation.When(isSturdyc,
				validation.Required.Error("must be greater than 0"),
				validation.Min(1).Error("must be greater than 0"),
			),
		}},
		{"TTL", c.TTL, []validation.Rule{
			validation.When(isSturdyc, validation.Required.Error("must be greater than 0")),
			validation.Min(time.Duration(0)).Error("must be non-negative"),
		}},
		{"EvictionPercentage", c.EvictionPercentage, []validation.Rule{
			validation.When(isSturdyc,
				validation.Required.Error("must be between 1 and 100"),
				validation.Min(1).Error("must be between 1 and 100"),
				validation.Max(100).Error("must be between 1 and 100"),
			),
		}},
	}

	for _, check := range checks {
		if err := validation.Validate(check.value, check.rules...); err != nil {
			return &ConfigError{Field: check.field, Message: err.Error()}
		}
	}

	if c.EarlyRefresh != nil {
		early := []struct {
			field string
			value time.Duration
		}{
			{"EarlyRefresh.MinAsyncRefreshTime", c.EarlyRefresh.MinAsyncRefreshTime},
			{"EarlyRefresh.MaxAsyncRefreshTime", c.EarlyRefresh.MaxAsyncRefreshTime},
			{"EarlyRefresh.SyncRefreshTime", c.EarlyRefresh.SyncRefreshTime},
			{"EarlyRefresh.RetryBaseDelay", c.EarlyRefresh.RetryBaseDelay},
		}
		for _, e := range early {
			if err := validation.Validate(e.value, validation.Min(time.Duration(0)).Error("must be non-negative")); err != nil {
				return &ConfigError{Field: e.field, Message: err.Error()}
			}
		}
	}

	return nil
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	// Prefix is prepended to every key as "<prefix>:<key>". Empty disables it.
	Prefix string

	// QueryTimeout bounds each redis round trip. Timeouts surface as backend
	// failures and are never stored.
	QueryTimeout time.Duration

	// DefaultTTL is used when a call passes a zero TTL. Zero keeps entries
	// until they are deleted.
	DefaultTTL time.Duration
}

// DefaultRedisConfig returns a RedisConfig with a 5 second query timeout.
func DefaultRedisConfig() RedisConfig {
	return RedisConfig{QueryTimeout: 5 * time.Second}
}

// Validate checks if the redis configuration values are valid.
func (c RedisConfig) Validate() error {
	if err := validation.Validate(c.QueryTimeout, validation.Min(time.Duration(0)).Error("must be non-negative")); err != nil {
		return &ConfigError{Field: "QueryTimeout", Message: err.Error()}
	}
	if err := validation.Validate(c.DefaultTTL, validation.Min(time.Duration(0)).Error("must be non-negative")); err != nil {
		return &ConfigError{Field: "DefaultTTL", Message: err.Error()}
	}
	return nil
}
