package vault

import "errors"

// StatusText renders a short human-readable description of an operation's
// state, suitable for direct display. For failed operations it is the
// failure reason.
func StatusText(operation PendingOperation) string {
	switch operation.Status {
	case StatusValidating:
		return statusTextValidating
	case StatusSubmitting:
		return statusTextSubmitting
	case StatusAwaitingConfirmation:
		return statusTextAwaiting
	case StatusConfirmed:
		return statusTextConfirmed
	case StatusFailed:
		return operation.FailureReason
	}
	return string(operation.Status)
}

// failureReason normalizes an error from any layer into the single
// human-readable string carried by a failed PendingOperation. Revert reasons
// from the ledger are passed through verbatim.
func failureReason(err error) string {
	var revertError RevertError
	switch {
	case errors.As(err, &revertError):
		return revertError.Error()
	case errors.Is(err, ErrConnectivity):
		return reasonConnectivity
	case errors.Is(err, ErrUserRejected):
		return reasonUserRejected
	case errors.Is(err, ErrNotConnected):
		return reasonNotConnected
	default:
		return err.Error()
	}
}
