package vault

const (
	operationStatusOK    = "ok"
	operationStatusError = "error"

	statusTextValidating = "validating input"
	statusTextSubmitting = "submitting transaction"
	statusTextAwaiting   = "awaiting confirmation"
	statusTextConfirmed  = "confirmed"

	reasonConnectivity = "wallet provider unreachable"
	reasonUserRejected = "transaction rejected in wallet"
	reasonNotConnected = "wallet not connected"

	cacheOperation          = "cache"
	refreshSubject          = "refresh"
	codeSessionNotConnected = "session_not_connected"
	codeBalanceRead         = "balance_read"
	codeUnlockRead          = "unlock_read"
	codeResetDuringRefresh  = "reset_during_refresh"
)
