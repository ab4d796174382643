package httpapi

// SessionEnvelope represents the wallet session payload returned to the UI.
type SessionEnvelope struct {
	Status        string `json:"status"`
	Address       string `json:"address,omitempty"`
	ChainID       string `json:"chain_id,omitempty"`
	ChainMismatch bool   `json:"chain_mismatch"`
}

// VaultEnvelope wraps the vault snapshot payload.
type VaultEnvelope struct {
	Vault VaultPayload `json:"vault"`
}

// VaultPayload normalizes the snapshot for the UI: the balance in both
// atomic and display units and the unlock time in unix seconds and
// human-readable form.
type VaultPayload struct {
	BalanceAtomic    string `json:"balance_atomic"`
	BalanceDecimal   string `json:"balance_decimal"`
	UnlockUnixUTC    int64  `json:"unlock_unix_utc"`
	UnlockTime       string `json:"unlock_time"`
	RefreshedUnixUTC int64  `json:"refreshed_unix_utc"`
}

// OperationEnvelope wraps the tracked operation payload.
type OperationEnvelope struct {
	Operation OperationPayload `json:"operation"`
}

// OperationPayload mirrors the pending operation for the UI. TxHandle is the
// identifier for external lookup such as a block-explorer link.
type OperationPayload struct {
	Kind              string `json:"kind"`
	Status            string `json:"status"`
	StatusText        string `json:"status_text"`
	AmountAtomic      string `json:"amount_atomic,omitempty"`
	AmountDecimal     string `json:"amount_decimal,omitempty"`
	AdditionalSeconds int64  `json:"additional_seconds,omitempty"`
	TxHandle          string `json:"tx_handle,omitempty"`
	FailureReason     string `json:"failure_reason,omitempty"`
}

// ErrorEnvelope encodes API errors.
type ErrorEnvelope struct {
	Error ErrorPayload `json:"error"`
}

// ErrorPayload contains the code and message for user-visible errors.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type extendRequest struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}
