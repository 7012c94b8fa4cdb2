package memoize

import (
	"context"
	"reflect"

	"github.com/cockroachdb/errors"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/goliatone/go-cacheable/cache"
)

var (
	// ErrUnknownMethod is returned when a proxy is asked for a method the
	// target does not export.
	ErrUnknownMethod = errors.New("memoize: unknown method")

	// ErrUnsupportedSignature is returned for intercepted methods whose
	// results are not one of (), (T), (error) or (T, error).
	ErrUnsupportedSignature = errors.New("memoize: unsupported method signature")

	// ErrArgumentMismatch is returned when call arguments do not fit the
	// method parameters.
	ErrArgumentMismatch = errors.New("memoize: arguments do not match method")

	contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	encodedType = reflect.TypeOf(cache.Encoded(nil))
)

// Proxy stands in for a target service and routes calls of its intercepted
// methods through an Interceptor. Operations are named "<Type>.<Method>".
type Proxy struct {
	target      reflect.Value
	typeName    string
	interceptor *Interceptor
	methods     map[string]*proxyMethod
}

type proxyMethod struct {
	operation   string
	fn          reflect.Value
	result      reflect.Type
	withContext bool
	intercepted bool
}

// NewProxy wraps target. Only the listed methods are intercepted; when none
// are listed every exported method is. Policies declared by a target that
// implements PolicyProvider are registered with the interceptor's registry.
func NewProxy(target any, ic *Interceptor, methods ...string) (*Proxy, error) {
	if target == nil {
		return nil, &cache.ConfigError{Field: "target", Message: "cannot be nil"}
	}
	if ic == nil {
		return nil, &cache.ConfigError{Field: "interceptor", Message: "cannot be nil"}
	}

	value := reflect.ValueOf(target)
	if value.Kind() == reflect.Pointer && value.IsNil() {
		return nil, &cache.ConfigError{Field: "target", Message: "cannot be a nil pointer"}
	}
	typ := value.Type()
	typeName := reflect.Indirect(value).Type().Name()
	if typeName == "" {
		typeName = typ.String()
	}

	p := &Proxy{
		target:      value,
		typeName:    typeName,
		interceptor: ic,
		methods:     make(map[string]*proxyMethod, typ.NumMethod()),
	}

	for i := 0; i < typ.NumMethod(); i++ {
		m := typ.Method(i)
		fnType := m.Type
		var result reflect.Type
		if fnType.NumOut() > 0 && fnType.Out(0) != errorType {
			result = fnType.Out(0)
		}
		p.methods[m.Name] = &proxyMethod{
			operation:   p.Operation(m.Name),
			fn:          value.Method(i),
			result:      result,
			withContext: fnType.NumIn() > 1 && fnType.In(1) == contextType,
			intercepted: len(methods) == 0,
		}
	}

	for _, name := range methods {
		m, ok := p.methods[name]
		if !ok {
			return nil, errors.Wrapf(ErrUnknownMethod, "%s.%s", typeName, name)
		}
		m.intercepted = true
	}

	for name, m := range p.methods {
		if !m.intercepted {
			continue
		}
		if !supportedResults(m.fn.Type()) {
			if len(methods) == 0 {
				// implicit selection skips methods that cannot be memoized
				m.intercepted = false
				continue
			}
			return nil, errors.Wrapf(ErrUnsupportedSignature, "%s.%s", typeName, name)
		}
	}

	registry := ic.Registry()
	if provider, ok := target.(PolicyProvider); ok {
		for _, op := range provider.CachePolicies() {
			if m, ok := p.methods[op.Name]; ok {
				if err := m.checkParams(op); err != nil {
					return nil, err
				}
			}
			op.Name = p.Operation(op.Name)
			if err := registry.Register(op); err != nil {
				return nil, err
			}
		}
	}

	// declarations registered elsewhere (files, container options)
	for _, m := range p.methods {
		if !m.intercepted {
			continue
		}
		if op, ok := registry.Lookup(m.operation); ok {
			if err := m.checkParams(op); err != nil {
				return nil, err
			}
		}
	}

	return p, nil
}

// Operation returns the registry name of method.
func (p *Proxy) Operation(method string) string {
	return p.typeName + "." + method
}

// Target returns the wrapped service.
func (p *Proxy) Target() any {
	return p.target.Interface()
}

// Call invokes method with args. A leading context.Context parameter is
// filled from ctx and must not appear in args. Serialized hits are decoded
// into the method's result type.
func (p *Proxy) Call(ctx context.Context, method string, args ...any) (any, error) {
	m, ok := p.methods[method]
	if !ok {
		op := p.Operation(method)
		return nil, p.interceptor.infrastructureFailure(ctx, op, errors.Wrap(ErrUnknownMethod, op))
	}

	in, err := m.arguments(args)
	if err != nil {
		return nil, p.interceptor.infrastructureFailure(ctx, m.operation, err)
	}

	proceed := func(ctx context.Context) (any, error) {
		return m.invoke(ctx, in)
	}

	if !m.intercepted {
		return proceed(ctx)
	}

	result, err := p.interceptor.Intercept(ctx, Invocation{
		Operation: m.operation,
		Args:      args,
		Arity:     m.arity(len(args)),
		Proceed:   proceed,
	})
	if err != nil {
		return nil, err
	}

	decoded, err := m.decode(result)
	if err != nil {
		return nil, p.interceptor.infrastructureFailure(ctx, m.operation, err)
	}
	return decoded, nil
}

// Invoke calls method through p and converts the result to T.
func Invoke[T any](ctx context.Context, p *Proxy, method string, args ...any) (T, error) {
	result, err := p.Call(ctx, method, args...)
	if err != nil {
		var zero T
		return zero, err
	}
	return convert[T](ctx, p.interceptor, p.Operation(method), result)
}

func (m *proxyMethod) offset() int {
	if m.withContext {
		return 1
	}
	return 0
}

// checkParams rejects declarations whose parameter list does not line up
// with the method. Variadic methods take any declaration.
func (m *proxyMethod) checkParams(op Operation) error {
	fnType := m.fn.Type()
	if len(op.Params) == 0 || fnType.IsVariadic() {
		return nil
	}
	want := fnType.NumIn() - m.offset()
	if len(op.Params) != want {
		return errors.Wrapf(&cache.ConfigError{Field: "Params", Message: "do not match method parameters"},
			"%s: declared %d, method takes %d", m.operation, len(op.Params), want)
	}
	return nil
}

// decode turns a serialized hit back into the method's result type so the
// proxy returns the same type on a hit as on a miss.
func (m *proxyMethod) decode(result any) (any, error) {
	payload, ok := result.(cache.Encoded)
	if !ok || m.result == nil || m.result == encodedType {
		return result, nil
	}
	out := reflect.New(m.result)
	if err := msgpack.Unmarshal(payload, out.Interface()); err != nil {
		return nil, errors.Wrapf(cache.ErrInvalidResultType, "decode cached %s: %v", m.result, err)
	}
	return out.Elem().Interface(), nil
}

func (m *proxyMethod) arity(nargs int) int {
	fnType := m.fn.Type()
	if fnType.IsVariadic() {
		return nargs
	}
	return fnType.NumIn() - m.offset()
}

// arguments converts args into reflect values, leaving slot 0 free for the
// context when the method takes one.
func (m *proxyMethod) arguments(args []any) ([]reflect.Value, error) {
	fnType := m.fn.Type()
	offset := m.offset()
	params := fnType.NumIn() - offset

	if fnType.IsVariadic() {
		if len(args) < params-1 {
			return nil, errors.Wrapf(ErrArgumentMismatch, "%s: want at least %d arguments, got %d", m.operation, params-1, len(args))
		}
	} else if len(args) != params {
		return nil, errors.Wrapf(ErrArgumentMismatch, "%s: want %d arguments, got %d", m.operation, params, len(args))
	}

	in := make([]reflect.Value, offset+len(args))
	for i, arg := range args {
		paramType := m.paramType(i + offset)
		v, err := argumentValue(arg, paramType)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: argument %d", m.operation, i)
		}
		in[i+offset] = v
	}
	return in, nil
}

func (m *proxyMethod) paramType(i int) reflect.Type {
	fnType := m.fn.Type()
	if fnType.IsVariadic() && i >= fnType.NumIn()-1 {
		return fnType.In(fnType.NumIn() - 1).Elem()
	}
	return fnType.In(i)
}

func (m *proxyMethod) invoke(ctx context.Context, in []reflect.Value) (any, error) {
	call := append([]reflect.Value(nil), in...)
	if m.withContext {
		call[0] = reflect.ValueOf(&ctx).Elem()
	}
	return unpackResults(m.fn.Call(call))
}

func argumentValue(arg any, paramType reflect.Type) (reflect.Value, error) {
	if arg == nil {
		switch paramType.Kind() {
		case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
			return reflect.Zero(paramType), nil
		}
		return reflect.Value{}, errors.Wrapf(ErrArgumentMismatch, "nil for %s", paramType)
	}

	v := reflect.ValueOf(arg)
	if v.Type().AssignableTo(paramType) {
		return v, nil
	}
	return reflect.Value{}, errors.Wrapf(ErrArgumentMismatch, "%s for %s", v.Type(), paramType)
}

func supportedResults(fnType reflect.Type) bool {
	switch fnType.NumOut() {
	case 0, 1:
		return true
	case 2:
		return fnType.Out(1) == errorType
	default:
		return false
	}
}

func unpackResults(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errorType {
			return nil, asError(out[0])
		}
		return out[0].Interface(), nil
	default:
		if err := asError(out[len(out)-1]); err != nil {
			return nil, err
		}
		return out[0].Interface(), nil
	}
}

func asError(v reflect.Value) error {
	if v.IsNil() {
		return nil
	}
	return v.Interface().(error)
}
