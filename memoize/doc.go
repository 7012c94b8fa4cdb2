// Package memoize wraps service operations so their results are cached under
// a namespaced key derived from selected arguments.
//
// # Overview
//
// Three pieces cooperate:
//
//   - Registry: operation name to Policy (namespace, TTL) and key positions
//   - Interceptor: builds the key and asks a cache.CacheService for the value
//   - Proxy / Call: the wrapping surface in front of a user service
//
// # Declaring policies
//
// Policies are registered at wiring time, either in code:
//
//	registry := memoize.NewRegistry()
//	registry.Register(memoize.Operation{
//		Name:   "UppercaseService.UpperWithPrefix",
//		Policy: &memoize.Policy{Namespace: "cache2", TTL: 20 * time.Second},
//		Params: []memoize.Param{memoize.KeyParam("source"), memoize.ParamOf("prefix")},
//	})
//
// by the service itself through PolicyProvider, or from a YAML file with
// LoadPolicies. Only parameters tagged with Key contribute to the key; when
// none is tagged every argument does. An operation without parameters is
// keyed by its namespace alone.
//
// # Wrapping a service
//
// A Proxy intercepts methods by reflection:
//
//	proxy, err := memoize.NewProxy(svc, ic, "Upper", "UpperWithPrefix")
//	out, err := memoize.Invoke[string](ctx, proxy, "Upper", "text")
//
// Hand-written decorators keep static types and call Call per method:
//
//	func (c *cachedUppercase) Upper(ctx context.Context, s string) (string, error) {
//		return memoize.Call(ctx, c.ic, "UppercaseService.Upper", []any{s},
//			func(ctx context.Context) (string, error) { return c.base.Upper(ctx, s) })
//	}
//
// # Caching behavior
//
//  1. Look up the policy; operations without one run directly
//  2. Derive the key from the namespace and the key arguments
//  3. Ask the backend for the key; on a miss the operation runs once
//  4. Return the stored or fresh value
//
// Errors from the operation are returned unchanged and never cached. Failures
// of the interceptor itself (key construction, reflective dispatch) carry
// cache.ErrInfrastructure. WithBypass skips the cache for a single call.
//
// # Observability
//
// Each resolution logs "resolving key" at LevelTrace and runs inside a
// "memoize.resolve" span of the configured tracer.
package memoize
