package vault

import (
	"fmt"
	"math/big"
	"strings"
)

// AtomicAmount is a non-negative quantity of the currency in atomic units
// (wei, 18 decimal places finer than the displayed unit).
type AtomicAmount struct {
	value *big.Int
}

// AccountID identifies a wallet account on the ledger network.
type AccountID struct {
	value string
}

// ChainID identifies the network the wallet is attached to.
type ChainID struct {
	value string
}

// TxHandle is the opaque identifier of a submitted write operation.
type TxHandle struct {
	value string
}

// SessionStatus defines the wallet connection lifecycle.
type SessionStatus string

const (
	SessionDisconnected SessionStatus = "disconnected"
	SessionConnecting   SessionStatus = "connecting"
	SessionConnected    SessionStatus = "connected"
)

// Session is the wallet connection snapshot. It is replaced wholesale on
// every transition; Address and Chain are zero values unless Connected.
type Session struct {
	Status  SessionStatus
	Address AccountID
	Chain   ChainID
}

// Snapshot holds the last confirmed read from the ledger. It is replaced
// wholesale by a refresh and never partially mutated.
type Snapshot struct {
	BalanceAtomic    AtomicAmount
	UnlockUnixUTC    int64
	RefreshedUnixUTC int64
}

// OperationKind names a user-initiated write operation.
type OperationKind string

const (
	OperationDeposit    OperationKind = "deposit"
	OperationWithdraw   OperationKind = "withdraw"
	OperationExtendLock OperationKind = "extend_lock"
)

// OperationStatus defines the lifecycle of a PendingOperation.
type OperationStatus string

const (
	StatusValidating           OperationStatus = "validating"
	StatusSubmitting           OperationStatus = "submitting"
	StatusAwaitingConfirmation OperationStatus = "awaiting_confirmation"
	StatusConfirmed            OperationStatus = "confirmed"
	StatusFailed               OperationStatus = "failed"
)

// PendingOperation tracks one submitted write operation. Terminal statuses
// are Confirmed and Failed; FailureReason is set only on Failed. Amount is
// the call argument for deposits and withdrawals, AdditionalSeconds for lock
// extensions.
type PendingOperation struct {
	Kind              OperationKind
	Amount            AtomicAmount
	AdditionalSeconds int64
	Handle            TxHandle
	Status            OperationStatus
	FailureReason     string
	StartedUnixUTC    int64
}

// Failed reports whether the operation ended in the failed terminal status.
func (operation PendingOperation) Failed() bool {
	return operation.Status == StatusFailed
}

// Confirmed reports whether the operation ended in the confirmed terminal status.
func (operation PendingOperation) Confirmed() bool {
	return operation.Status == StatusConfirmed
}

// NewAtomicAmount validates and copies a big integer amount.
func NewAtomicAmount(raw *big.Int) (AtomicAmount, error) {
	if raw == nil {
		return AtomicAmount{}, fmt.Errorf("%w: nil value", ErrInvalidAmount)
	}
	if raw.Sign() < 0 {
		return AtomicAmount{}, fmt.Errorf("%w: negative value", ErrInvalidAmount)
	}
	return AtomicAmount{value: new(big.Int).Set(raw)}, nil
}

// ZeroAtomicAmount returns the zero amount.
func ZeroAtomicAmount() AtomicAmount {
	return AtomicAmount{value: new(big.Int)}
}

// BigInt returns a copy of the underlying integer.
func (amount AtomicAmount) BigInt() *big.Int {
	if amount.value == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(amount.value)
}

// IsZero reports whether the amount is zero (including the zero value).
func (amount AtomicAmount) IsZero() bool {
	return amount.value == nil || amount.value.Sign() == 0
}

// Equal compares two amounts by value.
func (amount AtomicAmount) Equal(other AtomicAmount) bool {
	return amount.BigInt().Cmp(other.BigInt()) == 0
}

// NewAccountID validates and normalizes a wallet account identifier.
func NewAccountID(raw string) (AccountID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return AccountID{}, fmt.Errorf("%w: empty value", ErrInvalidAccountID)
	}
	if !strings.HasPrefix(trimmed, "0x") {
		return AccountID{}, fmt.Errorf("%w: missing 0x prefix", ErrInvalidAccountID)
	}
	return AccountID{value: strings.ToLower(trimmed)}, nil
}

// String returns the normalized identifier.
func (id AccountID) String() string {
	return id.value
}

// IsZero reports whether the account id is unset.
func (id AccountID) IsZero() bool {
	return id.value == ""
}

// NewChainID validates and normalizes a chain identifier.
func NewChainID(raw string) (ChainID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ChainID{}, fmt.Errorf("%w: empty value", ErrInvalidChainID)
	}
	return ChainID{value: strings.ToLower(trimmed)}, nil
}

// String returns the normalized identifier.
func (id ChainID) String() string {
	return id.value
}

// IsZero reports whether the chain id is unset.
func (id ChainID) IsZero() bool {
	return id.value == ""
}

// NewTxHandle validates and normalizes a transaction handle.
func NewTxHandle(raw string) (TxHandle, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TxHandle{}, fmt.Errorf("%w: empty value", ErrInvalidTxHandle)
	}
	return TxHandle{value: trimmed}, nil
}

// String returns the normalized handle.
func (handle TxHandle) String() string {
	return handle.value
}

// IsZero reports whether the handle is unset.
func (handle TxHandle) IsZero() bool {
	return handle.value == ""
}
