package cacheinfra

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrBackend marks failures that originate in a backend itself (I/O,
	// encoding) as opposed to failures returned by a resolver.
	ErrBackend = errors.New("cache backend failure")

	// ErrInvalidationUnsupported is returned by Invalidate helpers when a backend
	// cannot delete entries.
	ErrInvalidationUnsupported = errors.New("cache backend does not support invalidation")
)

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return "config error in field " + e.Field + ": " + e.Message
}

// backendError wraps err with the operation name and marks it as ErrBackend.
// Resolver errors must never go through here.
func backendError(op string, err error) error {
	return Mark(errors.Wrapf(err, "cacheinfra: %s", op), ErrBackend)
}

// markedError exposes its marker to the standard library errors.Is as well
// as to cockroachdb's, and keeps the cause chain behind Unwrap.
type markedError struct {
	err    error
	marker error
}

func (e *markedError) Error() string { return e.err.Error() }

func (e *markedError) Unwrap() error { return e.err }

func (e *markedError) Is(target error) bool { return target == e.marker }

// Mark tags err with marker. Both errors.Is(result, marker) and
// errors.Is(result, cause) hold for the standard library and cockroachdb.
func Mark(err, marker error) error {
	if err == nil {
		return nil
	}
	return &markedError{err: errors.Mark(err, marker), marker: marker}
}

func nilResolverError() error {
	return &ConfigError{Field: "resolver", Message: "cannot be nil"}
}
