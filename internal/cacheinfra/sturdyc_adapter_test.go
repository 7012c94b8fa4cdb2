package cacheinfra

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Backend != BackendMemory {
		t.Errorf("expected Backend to be %q, got %q", BackendMemory, cfg.Backend)
	}

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}

	if cfg.TTL != 5*time.Minute {
		t.Errorf("expected TTL to be 5 minutes, got %v", cfg.TTL)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}

	if cfg.EarlyRefresh != nil {
		t.Error("expected EarlyRefresh to be disabled by default")
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("expected default config to be valid, got %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantField string
		wantMsg   string
	}{
		{
			name: "valid default config",
			cfg:  DefaultConfig(),
		},
		{
			name: "memory ignores sizing",
			cfg:  Config{Backend: BackendMemory},
		},
		{
			name:      "missing backend",
			cfg:       Config{},
			wantField: "Backend",
			wantMsg:   "cannot be empty",
		},
		{
			name:      "unknown backend",
			cfg:       Config{Backend: "memcached"},
			wantField: "Backend",
			wantMsg:   "unknown backend",
		},
		{
			name: "invalid capacity - zero",
			cfg: Config{
				Backend:            BackendSturdyc,
				Capacity:           0,
				NumShards:          256,
				TTL:                5 * time.Minute,
				EvictionPercentage: 10,
			},
			wantField: "Capacity",
			wantMsg:   "must be greater than 0",
		},
		{
			name: "invalid capacity - negative otter",
			cfg: Config{
				Backend:  BackendOtter,
				Capacity: -5,
			},
			wantField: "Capacity",
			wantMsg:   "must be greater than 0",
		},
		{
			name: "invalid num shards - zero",
			cfg: Config{
				Backend:            BackendSturdyc,
				Capacity:           1000,
				NumShards:          0,
				TTL:                5 * time.Minute,
				EvictionPercentage: 10,
			},
			wantField: "NumShards",
			wantMsg:   "must be greater than 0",
		},
		{
			name: "invalid TTL - zero for sturdyc",
			cfg: Config{
				Backend:            BackendSturdyc,
				Capacity:           1000,
				NumShards:          256,
				TTL:                0,
				EvictionPercentage: 10,
			},
			wantField: "TTL",
			wantMsg:   "must be greater than 0",
		},
		{
			name: "zero TTL is fine for otter",
			cfg: Config{
				Backend:  BackendOtter,
				Capacity: 100,
			},
		},
		{
			name: "negative TTL",
			cfg: Config{
				Backend:  BackendRistretto,
				Capacity: 100,
				TTL:      -time.Second,
			},
			wantField: "TTL",
			wantMsg:   "must be non-negative",
		},
		{
			name: "invalid eviction percentage - too low",
			cfg: Config{
				Backend:            BackendSturdyc,
				Capacity:           1000,
				NumShards:          256,
				TTL:                5 * time.Minute,
				EvictionPercentage: 0,
			},
			wantField: "EvictionPercentage",
			wantMsg:   "must be between 1 and 100",
		},
		{
			name: "invalid eviction percentage - too high",
			cfg: Config{
				Backend:            BackendSturdyc,
				Capacity:           1000,
				NumShards:          256,
				TTL:                5 * time.Minute,
				EvictionPercentage: 101,
			},
			wantField: "EvictionPercentage",
			wantMsg:   "must be between 1 and 100",
		},
		{
			name: "invalid early refresh min async time",
			cfg: Config{
				Backend:            BackendSturdyc,
				Capacity:           1000,
				NumShards:          256,
				TTL:                5 * time.Minute,
				EvictionPercentage: 10,
				EarlyRefresh: &EarlyRefreshConfig{
					MinAsyncRefreshTime: -1 * time.Second,
					MaxAsyncRefreshTime: 20 * time.Second,
					SyncRefreshTime:     30 * time.Second,
					RetryBaseDelay:      100 * time.Millisecond,
				},
			},
			wantField: "EarlyRefresh.MinAsyncRefreshTime",
			wantMsg:   "must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Errorf("expected no validation error but got: %v", err)
				}
				return
			}

			var configErr *ConfigError
			if !errors.As(err, &configErr) {
				t.Fatalf("expected ConfigError but got: %v", err)
			}
			if configErr.Field != tt.wantField {
				t.Errorf("expected field %q, got %q", tt.wantField, configErr.Field)
			}
			if configErr.Message != tt.wantMsg {
				t.Errorf("expected message %q, got %q", tt.wantMsg, configErr.Message)
			}
		})
	}
}

func TestConfig_ToSturdycOptions(t *testing.T) {
	minimalCfg := smallConfig(BackendSturdyc)
	if got := len(minimalCfg.ToSturdycOptions()); got != 0 {
		t.Errorf("expected no sturdyc options for minimal config, got %d", got)
	}

	fullCfg := smallConfig(BackendSturdyc)
	fullCfg.EarlyRefresh = &EarlyRefreshConfig{
		MinAsyncRefreshTime: 10 * time.Second,
		MaxAsyncRefreshTime: 20 * time.Second,
		SyncRefreshTime:     30 * time.Second,
		RetryBaseDelay:      100 * time.Millisecond,
	}
	fullCfg.EvictionInterval = time.Second
	if got := len(fullCfg.ToSturdycOptions()); got != 2 {
		t.Errorf("expected 2 sturdyc options for full config, got %d", got)
	}
}

func TestConfigError_Error(t *testing.T) {
	err := &ConfigError{
		Field:   "TestField",
		Message: "test message",
	}

	expected := "config error in field TestField: test message"
	if err.Error() != expected {
		t.Errorf("expected error message %q, got %q", expected, err.Error())
	}
}

func TestNewSturdycService(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantError bool
		errorMsg  string
	}{
		{
			name: "valid config",
			cfg:  smallConfig(BackendSturdyc),
		},
		{
			name: "backend defaults to sturdyc",
			cfg: Config{
				Capacity:           100,
				NumShards:          2,
				TTL:                time.Minute,
				EvictionPercentage: 10,
			},
		},
		{
			name: "invalid config - zero capacity",
			cfg: Config{
				Backend:            BackendSturdyc,
				Capacity:           0,
				NumShards:          256,
				TTL:                5 * time.Minute,
				EvictionPercentage: 10,
			},
			wantError: true,
			errorMsg:  "config error in field Capacity: must be greater than 0",
		},
		{
			name: "invalid config - zero TTL",
			cfg: Config{
				Backend:            BackendSturdyc,
				Capacity:           1000,
				NumShards:          256,
				TTL:                0,
				EvictionPercentage: 10,
			},
			wantError: true,
			errorMsg:  "config error in field TTL: must be greater than 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewSturdycService(tt.cfg)

			if tt.wantError {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if tt.errorMsg != "" && err.Error() != tt.errorMsg {
					t.Errorf("expected error message %q, got %q", tt.errorMsg, err.Error())
				}
				if service != nil {
					t.Error("expected service to be nil when error occurs")
				}
				return
			}

			if err != nil {
				t.Fatalf("expected no error but got: %v", err)
			}
			if service == nil {
				t.Fatal("expected service to be non-nil")
			}
		})
	}
}

func TestSturdycService_Len(t *testing.T) {
	service, err := NewSturdycService(smallConfig(BackendSturdyc))
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}

	ctx := context.Background()
	for _, key := range []string{"a", "b", "c"} {
		_, err := service.GetOrCompute(ctx, 0, key, func(ctx context.Context) (any, error) {
			return key, nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if service.Len() != 3 {
		t.Errorf("expected 3 entries, got %d", service.Len())
	}

	if err := service.InvalidateKeys(ctx, []string{"a", "b"}); err != nil {
		t.Fatalf("InvalidateKeys failed: %v", err)
	}
	if service.Len() != 1 {
		t.Errorf("expected 1 entry after invalidation, got %d", service.Len())
	}
}

func TestNewService_SelectsBackend(t *testing.T) {
	tests := []struct {
		backend string
		check   func(Service) bool
	}{
		{BackendMemory, func(s Service) bool { _, ok := s.(*MemoryService); return ok }},
		{BackendSturdyc, func(s Service) bool { _, ok := s.(*SturdycService); return ok }},
		{BackendOtter, func(s Service) bool { _, ok := s.(*OtterService); return ok }},
		{BackendRistretto, func(s Service) bool { _, ok := s.(*RistrettoService); return ok }},
	}

	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			svc, err := NewService(smallConfig(tt.backend))
			if err != nil {
				t.Fatalf("NewService failed: %v", err)
			}
			if !tt.check(svc) {
				t.Errorf("unexpected service type %T for backend %s", svc, tt.backend)
			}
			if r, ok := svc.(*RistrettoService); ok {
				r.Close()
			}
		})
	}

	if _, err := NewService(Config{Backend: "bogus"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
