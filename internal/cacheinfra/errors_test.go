package cacheinfra

import (
	"errors"
	"testing"

	crdberrors "github.com/cockroachdb/errors"
)

func TestBackendError_Markers(t *testing.T) {
	cause := errors.New("dial tcp 127.0.0.1:1: connect: connection refused")
	err := backendError("redis get", cause)

	if !errors.Is(err, ErrBackend) {
		t.Error("expected errors.Is(err, ErrBackend)")
	}
	if !crdberrors.Is(err, ErrBackend) {
		t.Error("expected cockroachdb errors.Is(err, ErrBackend)")
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to stay reachable")
	}
	if errors.Is(cause, ErrBackend) {
		t.Error("plain errors must not carry the backend marker")
	}

	expected := "cacheinfra: redis get: dial tcp 127.0.0.1:1: connect: connection refused"
	if err.Error() != expected {
		t.Errorf("expected message %q, got %q", expected, err.Error())
	}
}

func TestMark_Nil(t *testing.T) {
	if err := Mark(nil, ErrBackend); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}
