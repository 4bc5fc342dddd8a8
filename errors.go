package anystore

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrDecode is matched by every *DecodeError.
	ErrDecode = errors.New("anystore: decode failed")

	// ErrEncode is matched by every *EncodeError.
	ErrEncode = errors.New("anystore: encode failed")

	// ErrBackend is matched by every *BackendError.
	ErrBackend = errors.New("anystore: backend failure")

	// ErrFiltered is returned when writing to an address hidden by Filter.
	ErrFiltered = errors.New("anystore: address is filtered")
)

// DecodeError reports stored bytes that are malformed or do not match the
// requested type. It is never returned for an absent value.
type DecodeError struct {
	Address Address
	Err     error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("anystore: decode %s: %v", e.Address, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// EncodeError reports a value the codec could not serialize.
type EncodeError struct {
	Address Address
	Err     error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("anystore: encode %s: %v", e.Address, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }

func (e *EncodeError) Is(target error) bool { return target == ErrEncode }

// BackendError wraps a native failure of a backend: I/O, connectivity or a
// rejection by the remote system. Err keeps the underlying cause.
type BackendError struct {
	Backend string
	Op      string
	Address Address
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("anystore/%s: %s %s: %v", e.Backend, e.Op, e.Address, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

func (e *BackendError) Is(target error) bool { return target == ErrBackend }

// NewBackendError wraps err for the given backend and operation. Context
// cancellation is returned as is, so callers can keep matching
// context.Canceled and context.DeadlineExceeded directly.
func NewBackendError(backend, op string, addr Address, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	if isContextErr(err) {
		return err
	}
	return &BackendError{Backend: backend, Op: op, Address: addr, Err: err}
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
