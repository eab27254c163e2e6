package helpers

import (
	"errors"
	"testing"
)

func newTestHandler() *ErrorHandler {
	h := NewErrorHandler(nil)
	h.BaseDelay = 0
	return h
}

func TestExecuteWithRetry_SucceedsAfterFailures(t *testing.T) {
	h := newTestHandler()
	calls := 0

	err := h.ExecuteWithRetry("flaky op", func() error {
		calls++
		if calls < 3 {
			return errors.New("boom")
		}
		return nil
	}, 3)

	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestExecuteWithRetry_CategorizesDatabaseErrors(t *testing.T) {
	h := newTestHandler()
	cause := errors.New("disk full")

	err := h.ExecuteWithRetry("save ticks", func() error { return cause }, 2)

	var dbErr *DatabaseError
	if !errors.As(err, &dbErr) {
		t.Fatalf("expected DatabaseError, got %T", err)
	}
	if !errors.Is(err, cause) {
		t.Error("expected cause to be unwrappable")
	}
	if h.ErrorCount != 1 {
		t.Errorf("expected error count 1, got %d", h.ErrorCount)
	}
}

func TestValidationAndNotFoundHelpers(t *testing.T) {
	v := NewValidationError("side %s is empty", "asks")
	if !IsValidation(v) {
		t.Error("expected IsValidation to be true")
	}
	if IsNotFound(v) {
		t.Error("validation error must not be a not-found error")
	}
	if v.Error() != "side asks is empty" {
		t.Errorf("unexpected message %q", v.Error())
	}

	n := NewNotFoundError("market %s", "42")
	if !IsNotFound(n) {
		t.Error("expected IsNotFound to be true")
	}
}
