package devol

import (
	"context"
	"errors"
	"testing"
)

func TestConfigErrorMessage(t *testing.T) {
	err := &ConfigError{Field: "ReproductionRate", Reason: "must be in [0, 1]"}
	want := "devol: invalid ReproductionRate: must be in [0, 1]"
	if got := err.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCallbackErrorUnwrap(t *testing.T) {
	inner := errors.New("boom")
	err := &CallbackError{Err: inner, Path: []string{"worker-0", "mutate"}, Generation: 3}

	if !errors.Is(err, inner) {
		t.Error("expected errors.Is to find the wrapped error")
	}
}

func TestCallbackErrorIsCanceled(t *testing.T) {
	err := &CallbackError{Err: context.Canceled}
	if !err.IsCanceled() {
		t.Error("expected IsCanceled to report true for context.Canceled")
	}

	other := &CallbackError{Err: errors.New("boom")}
	if other.IsCanceled() {
		t.Error("expected IsCanceled to report false for an unrelated error")
	}
}
