package cache

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
)

// KeySeparator defines the delimiter used between cache key segments.
const KeySeparator = "."

// KeyBuilder derives a cache key from a namespace and the arguments found at
// positions. Implementations must be pure: equal inputs give equal keys.
type KeyBuilder interface {
	BuildKey(namespace string, args []any, positions []int) (string, error)
}

// DottedKeyBuilder renders keys as namespace.arg.arg using %v formatting.
//
// Scalars, strings, fmt.Stringer values and structs, slices and maps built
// from them render stably. Non-nil pointers are dereferenced first. Funcs,
// channels and unsafe pointers only render their identity and are rejected
// with ErrUnstableKeyArgument. Values nested inside composites are not
// inspected: a struct holding a pointer still renders that address.
type DottedKeyBuilder struct{}

// NewDottedKeyBuilder returns the default key builder.
func NewDottedKeyBuilder() *DottedKeyBuilder {
	return &DottedKeyBuilder{}
}

var defaultKeyBuilder KeyBuilder = NewDottedKeyBuilder()

// BuildKey builds a key with the default builder.
func BuildKey(namespace string, args []any, positions []int) (string, error) {
	return defaultKeyBuilder.BuildKey(namespace, args, positions)
}

// BuildKey implements KeyBuilder.
func (b *DottedKeyBuilder) BuildKey(namespace string, args []any, positions []int) (string, error) {
	if len(positions) == 0 {
		return namespace, nil
	}

	var sb strings.Builder
	sb.WriteString(namespace)
	for _, pos := range positions {
		if pos < 0 || pos >= len(args) {
			return "", errors.Wrapf(ErrKeyPositionOutOfRange, "position %d with %d arguments", pos, len(args))
		}
		segment, err := renderArg(args[pos])
		if err != nil {
			return "", errors.Wrapf(err, "argument %d", pos)
		}
		sb.WriteString(KeySeparator)
		sb.WriteString(segment)
	}
	return sb.String(), nil
}

var stringerType = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()

func renderArg(arg any) (string, error) {
	switch v := arg.(type) {
	case nil:
		return fmt.Sprint(nil), nil
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case fmt.Stringer:
		return fmt.Sprint(v), nil
	}

	rv := reflect.ValueOf(arg)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return fmt.Sprint(nil), nil
		}
		if rv.Type().Implements(stringerType) {
			return fmt.Sprint(rv.Interface()), nil
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return "", errors.Wrapf(ErrUnstableKeyArgument, "type %s", rv.Type())
	}
	return fmt.Sprint(rv.Interface()), nil
}

// HashedKeyBuilder compacts keys longer than a limit into
// namespace.#<xxhash64>. The hash is not collision resistant.
type HashedKeyBuilder struct {
	inner  KeyBuilder
	maxLen int
}

// NewHashedKeyBuilder wraps inner. A nil inner uses the default builder.
func NewHashedKeyBuilder(inner KeyBuilder, maxLen int) *HashedKeyBuilder {
	if inner == nil {
		inner = defaultKeyBuilder
	}
	return &HashedKeyBuilder{inner: inner, maxLen: maxLen}
}

// BuildKey implements KeyBuilder.
func (b *HashedKeyBuilder) BuildKey(namespace string, args []any, positions []int) (string, error) {
	key, err := b.inner.BuildKey(namespace, args, positions)
	if err != nil || b.maxLen <= 0 || len(key) <= b.maxLen {
		return key, err
	}
	return namespace + KeySeparator + "#" + strconv.FormatUint(xxhash.Sum64String(key), 16), nil
}
