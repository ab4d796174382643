package vault

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the vault client.
var (
	ErrInvalidAmount        = errors.New("invalid amount")
	ErrInvalidDuration      = errors.New("invalid duration")
	ErrInvalidDurationUnit  = errors.New("invalid duration unit")
	ErrNonIncreasingLock    = errors.New("lock end would not increase")
	ErrNotConnected         = errors.New("wallet not connected")
	ErrConnectionFailed     = errors.New("wallet connection failed")
	ErrConnectivity         = errors.New("provider unreachable")
	ErrUserRejected         = errors.New("user rejected request")
	ErrReverted             = errors.New("execution reverted")
	ErrSync                 = errors.New("ledger sync failed")
	ErrInvalidAccountID     = errors.New("invalid account id")
	ErrInvalidChainID       = errors.New("invalid chain id")
	ErrInvalidTxHandle      = errors.New("invalid transaction handle")
	ErrInvalidServiceConfig = errors.New("invalid service config")
)

// RevertError carries the ledger-side revert reason verbatim.
type RevertError struct {
	reason string
}

// NewRevertError wraps a collaborator-reported revert reason.
func NewRevertError(reason string) RevertError {
	return RevertError{reason: reason}
}

// Error returns the formatted revert message.
func (revertError RevertError) Error() string {
	if revertError.reason == "" {
		return ErrReverted.Error()
	}
	return fmt.Sprintf("%s: %s", ErrReverted.Error(), revertError.reason)
}

// Reason returns the collaborator-reported reason string unmodified.
func (revertError RevertError) Reason() string {
	return revertError.reason
}

// Is reports ErrReverted so callers can match with errors.Is.
func (revertError RevertError) Is(target error) bool {
	return target == ErrReverted
}

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
