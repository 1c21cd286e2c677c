package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestWrapKeepsIdentity(t *testing.T) {
	cause := fmt.Errorf("pq: deadlock detected")
	err := Wrap(ErrInternalServer, cause)

	if !stderrors.Is(err, ErrInternalServer) {
		t.Error("wrapped error should match its sentinel")
	}
	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should expose its cause")
	}
	if ErrInternalServer.Internal != nil {
		t.Error("sentinel must not be mutated")
	}
	if err.Error() != ErrInternalServer.Message {
		t.Errorf("cause leaked into message: %q", err.Error())
	}
}

func TestWithMessage(t *testing.T) {
	err := WithMessage(ErrInvalidInput, "amount must be positive")

	if err.Message != "amount must be positive" || ErrInvalidInput.Message != "Invalid input" {
		t.Errorf("unexpected messages %q / %q", err.Message, ErrInvalidInput.Message)
	}
	if !stderrors.Is(fmt.Errorf("bind: %w", err), ErrInvalidInput) {
		t.Error("expected code match through fmt wrapping")
	}
	if stderrors.Is(err, ErrValidation) {
		t.Error("different codes must not match")
	}
}
