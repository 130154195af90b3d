package data

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestError_MatchesKindSentinel(t *testing.T) {
	cases := map[ErrorKind]error{
		KindNotFound:            ErrNotFound,
		KindAlreadyExists:       ErrAlreadyExists,
		KindPermissionDenied:    ErrPermissionDenied,
		KindUnsupported:         ErrUnsupported,
		KindRangeNotSatisfiable: ErrRangeNotSatisfiable,
		KindConfigInvalid:       ErrConfigInvalid,
		KindTimeout:             ErrTimeout,
		KindUnexpected:          ErrUnexpected,
	}

	for kind, sentinel := range cases {
		t.Run(kind.String(), func(tst *testing.T) {
			err := NewError(kind, OpStat, "a.txt")

			if !errors.Is(err, sentinel) {
				tst.Errorf("Expected %v to match its sentinel", err)
			}
			if kind != KindNotFound && errors.Is(err, ErrNotFound) {
				tst.Errorf("Expected %v not to match a foreign sentinel", err)
			}
		})
	}
}

func TestError_MatchesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer context: %w", NewError(KindNotFound, OpRead, "a.txt"))

	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected wrapped error to match sentinel, got %v", err)
	}
	if KindOf(err) != KindNotFound {
		t.Errorf("Expected KindNotFound, got %v", KindOf(err))
	}
}

func TestError_UnwrapsCause(t *testing.T) {
	cause := errors.New("disk offline")
	err := NewError(KindUnexpected, OpWrite, "a.txt").WithCause(cause)

	if !errors.Is(err, cause) {
		t.Errorf("Expected cause to be reachable through Unwrap")
	}
}

func TestError_Message(t *testing.T) {
	err := NewError(KindPermissionDenied, OpDelete, "secret.txt").
		WithCode("AccessDenied").
		WithCause(errors.New("token expired"))

	msg := err.Error()
	for _, want := range []string{"PermissionDenied", "delete", "secret.txt", "AccessDenied", "token expired"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Expected %q in message %q", want, msg)
		}
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(NewError(KindNotFound, OpStat, "a.txt")) {
		t.Error("Expected plain error not retryable")
	}
	if !IsRetryable(NewError(KindUnexpected, OpStat, "a.txt").Retryable()) {
		t.Error("Expected marked error retryable")
	}
	if IsRetryable(errors.New("bare")) {
		t.Error("Expected bare error not retryable")
	}
}

func TestKindOf_PlainError(t *testing.T) {
	if KindOf(errors.New("bare")) != KindUnexpected {
		t.Error("Expected plain errors to classify as Unexpected")
	}
}

func TestErrors_Collects(t *testing.T) {
	errs := Errors{}
	errs.Add(nil)
	if errs.Errors() != nil {
		t.Error("Expected nil for empty collector")
	}

	first := errors.New("first")
	second := errors.New("second")
	errs.Add(first)
	errs.Add(second)

	joined := errs.Errors()
	if !errors.Is(joined, first) || !errors.Is(joined, second) {
		t.Errorf("Expected both errors joined, got %v", joined)
	}
}
