// Package errors holds the error taxonomy shared by the naming, path and runtime packages.
//
// Callers match the category with the standard library:
//
//	if errors.Is(err, phonnxerrors.ErrUsage) { ... }
package errors

import (
	"errors"
	"fmt"
	"reflect"
)

var (
	// ErrUsage is matched by every error caused by misuse of an API: a bad output mode, a
	// malformed path, a missing or duplicated batch token, an input count mismatch.
	ErrUsage = errors.New("usage error")

	// ErrInvalidName is matched by every node name that does not follow the naming convention.
	ErrInvalidName = errors.New("invalid node name")

	// ErrTransportFailure is matched once an outbound exchange exhausted its retries.
	ErrTransportFailure = errors.New("transport failure")
)

// UsageError describes how an API was misused.
type UsageError struct {
	Reason string
}

func (u *UsageError) Error() string {
	return u.Reason
}

func (u *UsageError) Is(target error) bool {
	if target == ErrUsage {
		return true
	}
	_, ok := target.(*UsageError)
	return ok
}

// Usagef formats a UsageError.
func Usagef(format string, args ...any) error {
	return &UsageError{Reason: fmt.Sprintf(format, args...)}
}

// With returns an error whose message is the one of base and that also matches top.
// Either may be nil.
func With(base, top error) error {
	if base == nil && top == nil {
		return nil
	}
	if top == nil {
		return base
	}
	if base == nil {
		return top
	}
	return layered{error: base, top: top}
}

type layered struct {
	error
	top error
}

func (l layered) Is(target error) bool {
	if target == nil {
		return false
	}
	if reflect.TypeOf(target).Comparable() && l.top == target {
		return true
	}
	if x, ok := l.top.(interface{ Is(error) bool }); ok && x.Is(target) {
		return true
	}
	return false
}

func (l layered) As(target any) bool {
	return errors.As(l.top, target)
}

func (l layered) Unwrap() error {
	return l.error
}
