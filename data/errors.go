package data

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

// ErrorKind classifies a normalized storage failure.
// Adapters translate backend-native errors into exactly one kind
// at the adapter boundary; layers may re-kind but never swallow.
type ErrorKind int

const (
	// KindUnexpected covers backend-native failures without a closer match.
	KindUnexpected ErrorKind = iota
	KindNotFound
	KindAlreadyExists
	KindPermissionDenied
	KindUnsupported
	KindRangeNotSatisfiable
	KindConfigInvalid
	KindTimeout
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "NotFound"
	case KindAlreadyExists:
		return "AlreadyExists"
	case KindPermissionDenied:
		return "PermissionDenied"
	case KindUnsupported:
		return "Unsupported"
	case KindRangeNotSatisfiable:
		return "RangeNotSatisfiable"
	case KindConfigInvalid:
		return "ConfigInvalid"
	case KindTimeout:
		return "Timeout"
	default:
		return "Unexpected"
	}
}

// Sentinel errors for use with errors.Is.
// A *Error matches the sentinel of its kind.
var (
	ErrNotFound            = errors.New("ustore: entry not found")
	ErrAlreadyExists       = errors.New("ustore: entry already exists")
	ErrPermissionDenied    = errors.New("ustore: permission denied")
	ErrUnsupported         = errors.New("ustore: operation unsupported")
	ErrRangeNotSatisfiable = errors.New("ustore: range not satisfiable")
	ErrConfigInvalid       = errors.New("ustore: config invalid")
	ErrTimeout             = errors.New("ustore: operation timed out")
	ErrUnexpected          = errors.New("ustore: unexpected failure")
)

func (k ErrorKind) sentinel() error {
	switch k {
	case KindNotFound:
		return ErrNotFound
	case KindAlreadyExists:
		return ErrAlreadyExists
	case KindPermissionDenied:
		return ErrPermissionDenied
	case KindUnsupported:
		return ErrUnsupported
	case KindRangeNotSatisfiable:
		return ErrRangeNotSatisfiable
	case KindConfigInvalid:
		return ErrConfigInvalid
	case KindTimeout:
		return ErrTimeout
	default:
		return ErrUnexpected
	}
}

// Error is the normalized failure value returned by every adapter call.
// No backend-native error crosses the adapter boundary bare.
type Error struct {
	Kind ErrorKind
	// Op is the accessor operation that failed.
	Op Operation
	// Path is the normalized path the operation targeted, if any.
	Path string
	// Retry marks the failure as safe to re-invoke.
	Retry bool
	// Code carries the backend-native error code, if one exists.
	Code string
	// Err is the wrapped cause.
	Err error
}

// NewError creates a normalized error for the given kind and operation.
func NewError(kind ErrorKind, op Operation, path string) *Error {
	return &Error{
		Kind: kind,
		Op:   op,
		Path: path,
	}
}

// WithCause attaches the backend-native cause.
func (e *Error) WithCause(err error) *Error {
	e.Err = err
	return e
}

// WithCode attaches the backend-native error code.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// Retryable marks the failure as safe to re-invoke.
func (e *Error) Retryable() *Error {
	e.Retry = true
	return e
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString("ustore: ")
	sb.WriteString(e.Kind.String())

	if e.Op != "" {
		fmt.Fprintf(&sb, " at %s", e.Op)
	}
	if e.Path != "" {
		fmt.Fprintf(&sb, " '%s'", e.Path)
	}
	if e.Code != "" {
		fmt.Fprintf(&sb, " [%s]", e.Code)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}

	return sb.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel matching this error's kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf extracts the error kind from err.
// Plain errors map to KindUnexpected.
func KindOf(err error) ErrorKind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnexpected
}

// IsRetryable reports whether err is marked safe to re-invoke.
func IsRetryable(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Retry
	}
	return false
}

// Errors collects failures from multiple backends or lifecycle steps.
type Errors struct {
	mu     sync.RWMutex
	errors []error
}

func (e *Errors) Add(err error) {
	if err == nil {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.errors = append(e.errors, err)
}

func (e *Errors) Errors() error {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if len(e.errors) == 0 {
		return nil
	}

	return errors.Join(e.errors...)
}
