package vault

import (
	"errors"
	"testing"
)

const (
	operationName    = "vault"
	subjectName      = "deposit"
	codeName         = "rejected"
	baseErrorMessage = "base error"
	revertReasonText = "funds still locked"
)

func TestOperationErrorFormatting(test *testing.T) {
	test.Parallel()
	baseError := errors.New(baseErrorMessage)
	wrappedError := WrapError(operationName, subjectName, codeName, baseError)
	if wrappedError == nil {
		test.Fatalf("expected wrapped error")
	}
	expected := operationName + "." + subjectName + "." + codeName + ": " + baseErrorMessage
	if wrappedError.Error() != expected {
		test.Fatalf("expected %q, got %q", expected, wrappedError.Error())
	}
	if !errors.Is(wrappedError, baseError) {
		test.Fatalf("expected unwrap to reach the base error")
	}
}

func TestWrapErrorNil(test *testing.T) {
	test.Parallel()
	if WrapError(operationName, subjectName, codeName, nil) != nil {
		test.Fatalf("expected nil wrapped error")
	}
}

func TestRevertErrorCarriesReasonVerbatim(test *testing.T) {
	test.Parallel()
	revertError := NewRevertError(revertReasonText)
	if revertError.Reason() != revertReasonText {
		test.Fatalf("expected reason %q, got %q", revertReasonText, revertError.Reason())
	}
	if !errors.Is(revertError, ErrReverted) {
		test.Fatalf("expected RevertError to match ErrReverted")
	}
	var target RevertError
	if !errors.As(error(revertError), &target) {
		test.Fatalf("expected errors.As to extract RevertError")
	}
	empty := NewRevertError("")
	if empty.Error() != ErrReverted.Error() {
		test.Fatalf("expected bare revert message, got %q", empty.Error())
	}
}
