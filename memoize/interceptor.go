package memoize

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/goliatone/go-cacheable/cache"
)

// LevelTrace is the slog level used for the per-resolution log line.
const LevelTrace = slog.Level(-8)

const tracerName = "github.com/goliatone/go-cacheable/memoize"

var (
	// ErrNoPolicy is returned by Evict for operations without a cache policy.
	ErrNoPolicy = errors.New("memoize: operation has no cache policy")

	errNilProceed = errors.New("memoize: invocation has no proceed function")
)

// Invocation describes one call of a wrapped operation.
type Invocation struct {
	// Operation identifies the declaration in the registry.
	Operation string
	// Args are the call arguments, excluding any leading context.
	Args []any
	// Arity is the declared parameter count. Zero means len(Args).
	Arity int
	// Proceed runs the wrapped operation with Args.
	Proceed func(ctx context.Context) (any, error)
}

func (inv Invocation) arity() int {
	if inv.Arity > 0 {
		return inv.Arity
	}
	return len(inv.Args)
}

// Interceptor runs invocations through the cache according to the policies
// held by its registry.
type Interceptor struct {
	registry *Registry
	backend  cache.CacheService
	keys     cache.KeyBuilder
	logger   *slog.Logger
	tracer   trace.Tracer
}

// Option configures an Interceptor.
type Option func(*Interceptor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(ic *Interceptor) {
		if logger != nil {
			ic.logger = logger
		}
	}
}

// WithTracer sets the tracer used for resolution spans. The default uses the
// global otel tracer provider.
func WithTracer(tracer trace.Tracer) Option {
	return func(ic *Interceptor) {
		if tracer != nil {
			ic.tracer = tracer
		}
	}
}

// WithKeyBuilder replaces the default dotted key builder.
func WithKeyBuilder(keys cache.KeyBuilder) Option {
	return func(ic *Interceptor) {
		if keys != nil {
			ic.keys = keys
		}
	}
}

// NewInterceptor returns an interceptor reading policies from registry and
// storing results in backend. Nil arguments fall back to an empty registry
// and the memory backend.
func NewInterceptor(registry *Registry, backend cache.CacheService, opts ...Option) *Interceptor {
	if registry == nil {
		registry = NewRegistry()
	}
	if backend == nil {
		backend = cache.NewMemoryService()
	}

	ic := &Interceptor{
		registry: registry,
		backend:  backend,
		keys:     cache.NewDottedKeyBuilder(),
		logger:   slog.New(slog.DiscardHandler),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(ic)
	}
	return ic
}

// Registry returns the policy registry.
func (ic *Interceptor) Registry() *Registry {
	return ic.registry
}

// Backend returns the cache backend.
func (ic *Interceptor) Backend() cache.CacheService {
	return ic.backend
}

// Intercept runs inv. Operations without a policy, and calls made with a
// bypass context, proceed directly. Otherwise the result is looked up under
// the derived key and the operation runs only on a miss.
//
// Errors from the operation are returned unchanged. Key construction failures
// are infrastructure failures.
func (ic *Interceptor) Intercept(ctx context.Context, inv Invocation) (any, error) {
	if inv.Proceed == nil {
		return nil, ic.infrastructureFailure(ctx, inv.Operation, errNilProceed)
	}

	policy, ok := ic.registry.PolicyOf(inv.Operation)
	if !ok || bypassed(ctx) {
		return inv.Proceed(ctx)
	}

	key, err := ic.keyFor(inv.Operation, policy, inv.Args, inv.arity())
	if err != nil {
		return nil, ic.infrastructureFailure(ctx, inv.Operation, err)
	}

	return ic.backend.GetOrCompute(ctx, policy.TTL, key, ic.resolver(inv, key))
}

// Evict drops the memoized result of op called with args.
func (ic *Interceptor) Evict(ctx context.Context, op string, args ...any) error {
	policy, ok := ic.registry.PolicyOf(op)
	if !ok {
		return errors.Wrapf(ErrNoPolicy, "operation %s", op)
	}
	key, err := ic.keyFor(op, policy, args, len(args))
	if err != nil {
		return ic.infrastructureFailure(ctx, op, err)
	}
	return cache.Invalidate(ctx, ic.backend, key)
}

// EvictNamespace drops every result stored under namespace.
func (ic *Interceptor) EvictNamespace(ctx context.Context, namespace string) error {
	if err := cache.Invalidate(ctx, ic.backend, namespace); err != nil {
		return err
	}
	return cache.InvalidatePrefix(ctx, ic.backend, namespace+cache.KeySeparator)
}

func (ic *Interceptor) keyFor(op string, policy Policy, args []any, arity int) (string, error) {
	positions := ic.registry.KeyPositionsOf(op, arity)
	return ic.keys.BuildKey(policy.Namespace, args, positions)
}

func (ic *Interceptor) resolver(inv Invocation, key string) cache.Resolver {
	return func(ctx context.Context) (any, error) {
		ic.logger.Log(ctx, LevelTrace, "resolving key",
			slog.String("operation", inv.Operation),
			slog.String("key", key),
		)

		ctx, span := ic.tracer.Start(ctx, "memoize.resolve", trace.WithAttributes(
			attribute.String("memoize.operation", inv.Operation),
			attribute.String("memoize.key", key),
		))
		defer span.End()

		value, err := inv.Proceed(ctx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		return value, err
	}
}

func (ic *Interceptor) infrastructureFailure(ctx context.Context, op string, cause error) error {
	err := cache.NewInfrastructureError(op, cause)
	ic.logger.ErrorContext(ctx, "memoize infrastructure failure",
		slog.String("operation", op),
		slog.Any("error", err),
	)
	return err
}
