package memoize

import "context"

type bypassContextKey struct{}

// WithBypass marks ctx so that memoized operations called with it run
// directly and the backend is not consulted.
func WithBypass(ctx context.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, bypassContextKey{}, true)
}

func bypassed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	skip, _ := ctx.Value(bypassContextKey{}).(bool)
	return skip
}
