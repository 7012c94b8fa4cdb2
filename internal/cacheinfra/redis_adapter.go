package cacheinfra

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/sync/singleflight"
)

// RedisService stores msgpack encoded values in redis. A hit returns Encoded
// bytes; a miss returns the live value produced by the resolver. Concurrent
// misses are collapsed per process only.
type RedisService struct {
	client redis.UniversalClient
	cfg    RedisConfig
	flight singleflight.Group
}

var (
	_ Service     = (*RedisService)(nil)
	_ Invalidator = (*RedisService)(nil)
)

// NewRedisService returns a backend on top of client. The caller owns the
// client lifecycle.
func NewRedisService(client redis.UniversalClient, cfg RedisConfig) (*RedisService, error) {
	if client == nil {
		return nil, &ConfigError{Field: "client", Message: "cannot be nil"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RedisService{client: client, cfg: cfg}, nil
}

func (s *RedisService) queryCtx(parent context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.QueryTimeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, s.cfg.QueryTimeout)
}

func (s *RedisService) prefixKey(key string) string {
	if s.cfg.Prefix == "" {
		return key
	}
	return s.cfg.Prefix + ":" + key
}

func (s *RedisService) load(ctx context.Context, key string) (Encoded, bool, error) {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	data, err := s.client.Get(qctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, backendError("redis get", err)
	}
	return Encoded(data), true, nil
}

// GetOrCompute returns the stored payload for key or resolves, encodes and
// stores a fresh value.
func (s *RedisService) GetOrCompute(ctx context.Context, ttl time.Duration, key string, resolver Resolver) (any, error) {
	if resolver == nil {
		return nil, nilResolverError()
	}

	k := s.prefixKey(key)
	if data, ok, err := s.load(ctx, k); err != nil || ok {
		if err != nil {
			return nil, err
		}
		return data, nil
	}

	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}

	value, err, _ := s.flight.Do(k, func() (any, error) {
		if data, ok, err := s.load(ctx, k); err != nil || ok {
			if err != nil {
				return nil, err
			}
			return data, nil
		}

		value, err := resolver(ctx)
		if err != nil {
			return nil, err
		}

		data, err := encode(value)
		if err != nil {
			return nil, backendError("redis encode", err)
		}

		qctx, cancel := s.queryCtx(ctx)
		defer cancel()
		if err := s.client.Set(qctx, k, data, ttl).Err(); err != nil {
			return nil, backendError("redis set", err)
		}
		return value, nil
	})
	return value, err
}

// Delete removes a single entry.
func (s *RedisService) Delete(ctx context.Context, key string) error {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()
	if err := s.client.Del(qctx, s.prefixKey(key)).Err(); err != nil {
		return backendError("redis del", err)
	}
	return nil
}

// DeleteByPrefix scans for keys starting with prefix and deletes them.
func (s *RedisService) DeleteByPrefix(ctx context.Context, prefix string) error {
	qctx, cancel := s.queryCtx(ctx)
	defer cancel()

	iter := s.client.Scan(qctx, 0, s.prefixKey(prefix)+"*", 100).Iterator()
	var keys []string
	for iter.Next(qctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return backendError("redis scan", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(qctx, keys...).Err(); err != nil {
		return backendError("redis del", err)
	}
	return nil
}

// encode passes payloads from a lower serializing tier through untouched.
func encode(value any) ([]byte, error) {
	if data, ok := value.(Encoded); ok {
		return data, nil
	}
	return msgpack.Marshal(value)
}
