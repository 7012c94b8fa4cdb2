package cache

import (
	"github.com/cockroachdb/errors"

	"github.com/goliatone/go-cacheable/internal/cacheinfra"
)

var (
	// ErrInfrastructure marks failures of the caching machinery itself (key
	// construction, reflective dispatch, wiring bugs). It lets callers tell
	// "the service failed" apart from "caching was broken".
	ErrInfrastructure = errors.New("cache: infrastructure failure")

	// ErrBackend marks failures raised by a backend while it could not
	// complete GetOrCompute. Callers may retry.
	ErrBackend = cacheinfra.ErrBackend

	// ErrInvalidationUnsupported is returned when the configured backend
	// cannot delete entries.
	ErrInvalidationUnsupported = cacheinfra.ErrInvalidationUnsupported

	// ErrInvalidResultType is returned by GetOrCompute[T] when the stored
	// value cannot be converted to T.
	ErrInvalidResultType = errors.New("cache: invalid result type")

	// ErrUnstableKeyArgument is returned when a key argument renders its
	// identity (funcs, channels, unsafe pointers) instead of its value.
	ErrUnstableKeyArgument = errors.New("cache: key argument has no stable textual form")

	// ErrKeyPositionOutOfRange is returned when a key position does not
	// index into the argument vector.
	ErrKeyPositionOutOfRange = errors.New("cache: key position out of range")
)

// ConfigError represents a configuration validation error.
type ConfigError = cacheinfra.ConfigError

// NewInfrastructureError wraps cause as an infrastructure failure for op.
// The cause stays reachable through errors.Is and errors.As.
func NewInfrastructureError(op string, cause error) error {
	if cause == nil {
		cause = errors.New("unknown cause")
	}
	return cacheinfra.Mark(errors.Wrapf(cause, "cache: dispatch %s", op), ErrInfrastructure)
}

// IsInfrastructure reports whether err is an infrastructure failure.
func IsInfrastructure(err error) bool {
	return errors.Is(err, ErrInfrastructure)
}

// IsBackend reports whether err was raised by a backend.
func IsBackend(err error) bool {
	return errors.Is(err, ErrBackend)
}
