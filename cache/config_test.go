package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend != BackendMemory {
		t.Errorf("expected Backend to be %q, got %q", BackendMemory, cfg.Backend)
	}
	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}
	if cfg.TTL != 5*time.Minute {
		t.Errorf("expected TTL to be 5 minutes, got %v", cfg.TTL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}

func TestConfig_RoundTripsEarlyRefresh(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Backend = BackendSturdyc
	cfg.EarlyRefresh = &EarlyRefreshConfig{
		MinAsyncRefreshTime: time.Second,
		MaxAsyncRefreshTime: 2 * time.Second,
		SyncRefreshTime:     3 * time.Second,
		RetryBaseDelay:      time.Millisecond,
	}

	back := convertFromInternal(cfg.toInternal())
	if back.EarlyRefresh == nil || *back.EarlyRefresh != *cfg.EarlyRefresh {
		t.Errorf("expected early refresh to survive conversion, got %+v", back.EarlyRefresh)
	}
	if back.Backend != BackendSturdyc {
		t.Errorf("expected backend to survive conversion, got %q", back.Backend)
	}
}

func TestNewCacheService(t *testing.T) {
	for _, backend := range []string{BackendMemory, BackendSturdyc, BackendOtter, BackendRistretto} {
		t.Run(backend, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Backend = backend
			cfg.Capacity = 100
			cfg.NumShards = 2

			svc, err := NewCacheService(cfg)
			if err != nil {
				t.Fatalf("NewCacheService failed: %v", err)
			}

			value, err := GetOrCompute(context.Background(), svc, time.Minute, "cache1.text", func(ctx context.Context) (string, error) {
				return "T0:TEXT", nil
			})
			if err != nil || value != "T0:TEXT" {
				t.Errorf("expected T0:TEXT, got %q (err %v)", value, err)
			}
			if closer, ok := svc.(interface{ Close() }); ok {
				closer.Close()
			}
		})
	}

	_, err := NewCacheService(Config{Backend: "memcached"})
	var configErr *ConfigError
	if !errors.As(err, &configErr) || configErr.Field != "Backend" {
		t.Errorf("expected Backend ConfigError, got %v", err)
	}
}

func TestNewRedisService_TypedRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := DefaultRedisConfig()
	cfg.Prefix = "memo"
	svc, err := NewRedisService(client, cfg)
	if err != nil {
		t.Fatalf("NewRedisService failed: %v", err)
	}

	calls := 0
	fn := func(ctx context.Context) ([]string, error) {
		calls++
		return []string{"a", "b"}, nil
	}

	tiered := NewTiered(NewMemoryService(), svc)
	for i := 0; i < 2; i++ {
		// a fresh L1 forces the second read to come back from redis
		if i == 1 {
			tiered = NewTiered(NewMemoryService(), svc)
		}
		value, err := GetOrCompute(context.Background(), tiered, time.Minute, "cache3.list", fn)
		if err != nil {
			t.Fatalf("GetOrCompute failed: %v", err)
		}
		if len(value) != 2 || value[0] != "a" || value[1] != "b" {
			t.Errorf("unexpected value %v", value)
		}
	}
	if calls != 1 {
		t.Errorf("expected one computation, got %d", calls)
	}
}
