package memoize

import (
	"context"

	"github.com/goliatone/go-cacheable/cache"
)

// Call memoizes one invocation of a hand-written decorator method. args are
// the values the key is derived from and fn runs the wrapped operation.
//
//	func (s *CachedUppercase) Upper(ctx context.Context, text string) (string, error) {
//		return memoize.Call(ctx, s.ic, "UppercaseService.Upper", []any{text},
//			func(ctx context.Context) (string, error) {
//				return s.base.Upper(ctx, text)
//			})
//	}
func Call[T any](ctx context.Context, ic *Interceptor, op string, args []any, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if fn == nil {
		return zero, ic.infrastructureFailure(ctx, op, errNilProceed)
	}

	result, err := ic.Intercept(ctx, Invocation{
		Operation: op,
		Args:      args,
		Arity:     len(args),
		Proceed: func(ctx context.Context) (any, error) {
			return fn(ctx)
		},
	})
	if err != nil {
		return zero, err
	}
	return convert[T](ctx, ic, op, result)
}

func convert[T any](ctx context.Context, ic *Interceptor, op string, result any) (T, error) {
	value, err := cache.As[T](result)
	if err != nil {
		var zero T
		return zero, ic.infrastructureFailure(ctx, op, err)
	}
	return value, nil
}
