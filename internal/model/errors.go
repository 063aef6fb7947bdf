package model

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds shared by every stage of a classification.
var (
	// ErrConfiguration marks a malformed taxonomy or engine setup. Raised at load time.
	ErrConfiguration = errors.New("configuration error")
	// ErrInput marks an image that cannot be decoded or normalized.
	ErrInput = errors.New("invalid input")
	// ErrBackend marks an embedding backend failure, timeout, or malformed output.
	ErrBackend = errors.New("backend failure")
)

// WrapError tags err with a kind and the operation that produced it.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

// Tag wraps err with kind unless err already carries a kind, so every
// error matches exactly one of them.
func Tag(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConfiguration) || errors.Is(err, ErrInput) || errors.Is(err, ErrBackend) {
		return fmt.Errorf("%s: %w", operation, err)
	}
	return WrapError(kind, operation, err)
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// KindOf returns the kind carried by err. Untagged errors, including
// cancellations and deadlines, are treated as backend failures.
func KindOf(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrConfiguration):
		return ErrConfiguration
	case errors.Is(err, ErrInput):
		return ErrInput
	default:
		return ErrBackend
	}
}

// Failure is the single value returned when a classification call fails.
type Failure struct {
	Kind error
	Op   string
	Err  error
}

// Fail converts any error into a *Failure. An existing *Failure is returned as is.
func Fail(op string, err error) error {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: KindOf(err), Op: op, Err: err}
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: classification failed: %v", f.Op, f.Err)
}

func (f *Failure) Unwrap() []error {
	return []error{f.Kind, f.Err}
}

// Timeout reports whether the failure was caused by a deadline or cancellation.
func (f *Failure) Timeout() bool {
	return errors.Is(f.Err, context.DeadlineExceeded) || errors.Is(f.Err, context.Canceled)
}
