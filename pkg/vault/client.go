package vault

import "context"

// Ledger is the narrow interface of the external savings contract. It is a
// pass-through with no state and no retries; implementations normalize
// low-level failures to the vault error taxonomy: ErrConnectivity when the
// node is unreachable, ErrUserRejected when the signer declines, and a
// RevertError when the contract rejects a call.
type Ledger interface {
	// ReadBalance returns the contract balance in atomic units.
	ReadBalance(ctx context.Context) (AtomicAmount, error)
	// ReadUnlockTime returns the unlock time as unix seconds.
	ReadUnlockTime(ctx context.Context) (int64, error)
	// SubmitDeposit attaches the amount as the transferred value; the call
	// carries no separate argument.
	SubmitDeposit(ctx context.Context, amount AtomicAmount) (TxHandle, error)
	// SubmitWithdraw requests a withdrawal of the given amount.
	SubmitWithdraw(ctx context.Context, amount AtomicAmount) (TxHandle, error)
	// SubmitExtendLock pushes the unlock time forward by additionalSeconds.
	SubmitExtendLock(ctx context.Context, additionalSeconds int64) (TxHandle, error)
	// AwaitConfirmation blocks until the submitted operation resolves. A nil
	// error means confirmed; a RevertError carries the ledger's reason.
	AwaitConfirmation(ctx context.Context, handle TxHandle) error
}

// Provider is the wallet collaborator: account access, chain identity, and
// change notifications. Implementations normalize failures the same way the
// Ledger does.
type Provider interface {
	// RequestAccounts asks the wallet for its account list. An empty list
	// means the wallet granted no access.
	RequestAccounts(ctx context.Context) ([]AccountID, error)
	// ChainID reports the network the wallet is currently attached to.
	ChainID(ctx context.Context) (ChainID, error)
	// SubscribeAccountsChanged registers a callback for account changes.
	// Deliveries are serialized with user-initiated operations.
	SubscribeAccountsChanged(callback func(accounts []AccountID))
	// SubscribeChainChanged registers a callback for network switches.
	SubscribeChainChanged(callback func(chain ChainID))
}
