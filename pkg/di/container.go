package di

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-cacheable/cache"
	"github.com/goliatone/go-cacheable/memoize"
)

// Container provides dependency injection for memoization components.
// It manages singleton instances of the cache backend, key builder, policy
// registry and interceptor, and wraps services with proxies bound to them.
type Container struct {
	cacheService cache.CacheService
	keyBuilder   cache.KeyBuilder
	registry     *memoize.Registry
	interceptor  *memoize.Interceptor
	config       cache.Config
}

type options struct {
	backend     cache.CacheService
	keyBuilder  cache.KeyBuilder
	logger      *slog.Logger
	tracer      trace.Tracer
	operations  []memoize.Operation
	policyFiles []string
}

// Option customizes the container.
type Option func(*options)

// WithBackend uses backend instead of the one described by the config, for
// example a redis or tiered service.
func WithBackend(backend cache.CacheService) Option {
	return func(o *options) { o.backend = backend }
}

// WithKeyBuilder replaces the default dotted key builder.
func WithKeyBuilder(builder cache.KeyBuilder) Option {
	return func(o *options) { o.keyBuilder = builder }
}

// WithLogger sets the interceptor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithTracer sets the tracer used for resolution spans.
func WithTracer(tracer trace.Tracer) Option {
	return func(o *options) { o.tracer = tracer }
}

// WithOperations registers operation declarations at construction time.
func WithOperations(ops ...memoize.Operation) Option {
	return func(o *options) { o.operations = append(o.operations, ops...) }
}

// WithPolicyFile loads YAML operation declarations from path.
func WithPolicyFile(path string) Option {
	return func(o *options) { o.policyFiles = append(o.policyFiles, path) }
}

// NewContainer creates a new DI container with the provided cache configuration.
// The backend is built from config unless WithBackend is given, and every
// declared operation is registered before the container is returned.
func NewContainer(config cache.Config, opts ...Option) (*Container, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	cacheService := o.backend
	if cacheService == nil {
		svc, err := cache.NewCacheService(config)
		if err != nil {
			return nil, err
		}
		cacheService = svc
	}

	keyBuilder := o.keyBuilder
	if keyBuilder == nil {
		keyBuilder = cache.NewDottedKeyBuilder()
	}

	registry := memoize.NewRegistry()
	if err := registry.RegisterAll(o.operations...); err != nil {
		return nil, err
	}
	for _, path := range o.policyFiles {
		ops, err := memoize.LoadPolicyFile(path)
		if err != nil {
			return nil, err
		}
		if err := registry.RegisterAll(ops...); err != nil {
			return nil, err
		}
	}

	interceptor := memoize.NewInterceptor(registry, cacheService,
		memoize.WithKeyBuilder(keyBuilder),
		memoize.WithLogger(o.logger),
		memoize.WithTracer(o.tracer),
	)

	return &Container{
		cacheService: cacheService,
		keyBuilder:   keyBuilder,
		registry:     registry,
		interceptor:  interceptor,
		config:       config,
	}, nil
}

// NewContainerWithDefaults creates a new DI container using default configuration.
func NewContainerWithDefaults(opts ...Option) (*Container, error) {
	return NewContainer(cache.DefaultConfig(), opts...)
}

// CacheService returns the singleton cache service instance.
func (c *Container) CacheService() cache.CacheService {
	return c.cacheService
}

// KeyBuilder returns the singleton key builder instance.
func (c *Container) KeyBuilder() cache.KeyBuilder {
	return c.keyBuilder
}

// Registry returns the policy registry shared by every wrapped service.
func (c *Container) Registry() *memoize.Registry {
	return c.registry
}

// Interceptor returns the interceptor used by Wrap. Hand-written decorators
// pass it to memoize.Call.
func (c *Container) Interceptor() *memoize.Interceptor {
	return c.interceptor
}

// Config returns a copy of the cache configuration used by this container.
func (c *Container) Config() cache.Config {
	return c.config
}

// Wrap returns a proxy for target that memoizes the listed methods, or every
// exported method when none are listed.
func (c *Container) Wrap(target any, methods ...string) (*memoize.Proxy, error) {
	return memoize.NewProxy(target, c.interceptor, methods...)
}

// Close releases backend resources when the backend holds any.
func (c *Container) Close() {
	if closer, ok := c.cacheService.(interface{ Close() }); ok {
		closer.Close()
	}
}
