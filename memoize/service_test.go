package memoize

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/goliatone/go-cacheable/cache"
	"github.com/goliatone/go-cacheable/pkg/testsupport"
)

var errBoom = errors.New("boom")

// UppercaseService stamps every real invocation with a tick so cached and
// fresh results can be told apart.
type UppercaseService struct {
	calls testsupport.Recorder
	tick  atomic.Int64

	mu      sync.Mutex
	failFor map[string]int

	// release, when set, blocks Upper until closed.
	release chan struct{}
}

func newUppercaseService() *UppercaseService {
	return &UppercaseService{failFor: make(map[string]int)}
}

func (s *UppercaseService) stamp(text string) string {
	return fmt.Sprintf("T%d:%s", s.tick.Add(1)-1, strings.ToUpper(text))
}

// failNext makes the next n calls with text fail with errBoom.
func (s *UppercaseService) failNext(text string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFor[text] = n
}

func (s *UppercaseService) shouldFail(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFor[text] > 0 {
		s.failFor[text]--
		return true
	}
	return false
}

func (s *UppercaseService) Upper(ctx context.Context, text string) (string, error) {
	s.calls.Record("Upper")
	if s.release != nil {
		<-s.release
	}
	if s.shouldFail(text) {
		return "", errBoom
	}
	return s.stamp(text), nil
}

func (s *UppercaseService) UpperWithPrefix(ctx context.Context, source, prefix string) (string, error) {
	s.calls.Record("UpperWithPrefix")
	return prefix + "@" + s.stamp(source), nil
}

// Token has no policy and must run on every call.
func (s *UppercaseService) Token(ctx context.Context) (string, error) {
	s.calls.Record("Token")
	return uuid.NewString(), nil
}

// Join has no context parameter and a variadic tail.
func (s *UppercaseService) Join(sep string, parts ...string) string {
	s.calls.Record("Join")
	return strings.Join(parts, sep)
}

// Pair returns too many results to be memoized.
func (s *UppercaseService) Pair() (string, string, error) {
	return "a", "b", nil
}

func (s *UppercaseService) CachePolicies() []Operation {
	return uppercaseOperations("")
}

// uppercaseOperations declares the seed policies. prefix qualifies the
// operation names for registries used without a proxy.
func uppercaseOperations(prefix string) []Operation {
	return []Operation{
		{
			Name:   prefix + "Upper",
			Policy: &Policy{Namespace: "cache1", TTL: 20 * time.Second},
		},
		{
			Name:   prefix + "UpperWithPrefix",
			Policy: &Policy{Namespace: "cache2", TTL: 20 * time.Second},
			Params: []Param{KeyParam("source"), ParamOf("prefix")},
		},
		{
			Name:   prefix + "Join",
			Policy: &Policy{Namespace: "joined"},
		},
	}
}

// cachedUppercase is the hand-written decorator form.
type cachedUppercase struct {
	base *UppercaseService
	ic   *Interceptor
}

func (c *cachedUppercase) Upper(ctx context.Context, text string) (string, error) {
	return Call(ctx, c.ic, "UppercaseService.Upper", []any{text}, func(ctx context.Context) (string, error) {
		return c.base.Upper(ctx, text)
	})
}

func (c *cachedUppercase) UpperWithPrefix(ctx context.Context, source, prefix string) (string, error) {
	return Call(ctx, c.ic, "UppercaseService.UpperWithPrefix", []any{source, prefix}, func(ctx context.Context) (string, error) {
		return c.base.UpperWithPrefix(ctx, source, prefix)
	})
}

func (c *cachedUppercase) Token(ctx context.Context) (string, error) {
	return Call(ctx, c.ic, "UppercaseService.Token", nil, c.base.Token)
}

// recordingBackend wraps a backend and records every key it is asked for.
type recordingBackend struct {
	cache.CacheService
	keys testsupport.Recorder
}

func newRecordingBackend() *recordingBackend {
	return &recordingBackend{CacheService: cache.NewMemoryService()}
}

func (b *recordingBackend) GetOrCompute(ctx context.Context, ttl time.Duration, key string, resolver cache.Resolver) (any, error) {
	b.keys.Record(key)
	return b.CacheService.GetOrCompute(ctx, ttl, key, resolver)
}

func (b *recordingBackend) Delete(ctx context.Context, key string) error {
	return cache.Invalidate(ctx, b.CacheService, key)
}

func (b *recordingBackend) DeleteByPrefix(ctx context.Context, prefix string) error {
	return cache.InvalidatePrefix(ctx, b.CacheService, prefix)
}

// newSeedInterceptor returns an interceptor with the seed policies
// registered under qualified names.
func newSeedInterceptor(opts ...Option) (*Interceptor, *recordingBackend) {
	backend := newRecordingBackend()
	registry := NewRegistry()
	if err := registry.RegisterAll(uppercaseOperations("UppercaseService.")...); err != nil {
		panic(err)
	}
	return NewInterceptor(registry, backend, opts...), backend
}
