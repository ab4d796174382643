package vault

import (
	"context"
	"fmt"
	"sync"
)

// Service orchestrates user-initiated write operations against the vault
// contract: validate input, submit through the Ledger, track the pending
// operation's lifecycle, and resynchronize the cache after a confirmation.
//
// Validation failures never reach the network, and no error value escapes
// the public operations: every outcome is carried by the returned
// PendingOperation and its failure reason string. One operation at a time is
// tracked for display; a newer operation supersedes the older one without
// cancelling its underlying call.
type Service struct {
	ledger   Ledger
	sessions *SessionManager
	cache    *Cache
	nowFn    func() int64
	logger   OperationLogger

	mutex        sync.Mutex
	current      PendingOperation
	hasCurrent   bool
	currentToken uint64
	nextToken    uint64
}

// NewService wires a Service.
func NewService(ledger Ledger, sessions *SessionManager, cache *Cache, now func() int64, options ...ServiceOption) (*Service, error) {
	if ledger == nil {
		return nil, fmt.Errorf("%w: ledger dependency is nil", ErrInvalidServiceConfig)
	}
	if sessions == nil {
		return nil, fmt.Errorf("%w: session manager dependency is nil", ErrInvalidServiceConfig)
	}
	if cache == nil {
		return nil, fmt.Errorf("%w: cache dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{ledger: ledger, sessions: sessions, cache: cache, nowFn: now}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	sessions.OnReset(service.discardCurrent)
	return service, nil
}

// Deposit validates a decimal amount and transfers it into the vault. The
// amount travels as the value attached to the call.
func (service *Service) Deposit(ctx context.Context, rawAmount string) PendingOperation {
	ticket, operation := service.begin(OperationDeposit)
	if session := service.sessions.Session(); session.Status != SessionConnected {
		return service.fail(ctx, ticket, operation, ErrNotConnected)
	}
	amount, err := ToAtomic(rawAmount)
	if err != nil {
		return service.fail(ctx, ticket, operation, err)
	}
	operation.Amount = amount
	return service.submitAndAwait(ctx, ticket, operation, func(submitCtx context.Context) (TxHandle, error) {
		return service.ledger.SubmitDeposit(submitCtx, amount)
	})
}

// Withdraw validates a decimal amount and requests it back from the vault.
// A still-locked vault or an unauthorized caller surfaces as the ledger's
// revert reason, passed through verbatim.
func (service *Service) Withdraw(ctx context.Context, rawAmount string) PendingOperation {
	ticket, operation := service.begin(OperationWithdraw)
	if session := service.sessions.Session(); session.Status != SessionConnected {
		return service.fail(ctx, ticket, operation, ErrNotConnected)
	}
	amount, err := ToAtomic(rawAmount)
	if err != nil {
		return service.fail(ctx, ticket, operation, err)
	}
	operation.Amount = amount
	return service.submitAndAwait(ctx, ticket, operation, func(submitCtx context.Context) (TxHandle, error) {
		return service.ledger.SubmitWithdraw(submitCtx, amount)
	})
}

type operationTicket struct {
	token      uint64
	generation uint64
}

// begin creates a fresh PendingOperation in Validating state and makes it
// the displayed operation, superseding any previous one.
func (service *Service) begin(kind OperationKind) (operationTicket, PendingOperation) {
	operation := PendingOperation{
		Kind:           kind,
		Status:         StatusValidating,
		StartedUnixUTC: service.nowFn(),
	}
	service.mutex.Lock()
	service.nextToken++
	token := service.nextToken
	service.currentToken = token
	service.current = operation
	service.hasCurrent = true
	service.mutex.Unlock()
	return operationTicket{token: token, generation: service.sessions.Generation()}, operation
}

// submitAndAwait drives an operation from Submitting through its terminal
// status and refreshes the cache exactly once after a confirmation.
func (service *Service) submitAndAwait(ctx context.Context, ticket operationTicket, operation PendingOperation, submit func(ctx context.Context) (TxHandle, error)) PendingOperation {
	operation.Status = StatusSubmitting
	service.publish(ticket, operation)

	handle, err := submit(ctx)
	if err != nil {
		return service.fail(ctx, ticket, operation, err)
	}
	operation.Handle = handle
	operation.Status = StatusAwaitingConfirmation
	service.publish(ticket, operation)

	if err := service.ledger.AwaitConfirmation(ctx, handle); err != nil {
		return service.fail(ctx, ticket, operation, err)
	}
	operation.Status = StatusConfirmed
	service.publish(ticket, operation)
	if service.sessions.Generation() == ticket.generation {
		// Best effort: a failed refresh keeps the previous snapshot and the
		// user can refresh again; the confirmation itself stands.
		_ = service.cache.Refresh(ctx)
	}
	service.logOperation(ctx, operation, nil)
	return operation
}

// fail moves an operation to its Failed terminal status with a
// human-readable reason.
func (service *Service) fail(ctx context.Context, ticket operationTicket, operation PendingOperation, cause error) PendingOperation {
	operation.Status = StatusFailed
	operation.FailureReason = failureReason(cause)
	service.publish(ticket, operation)
	service.logOperation(ctx, operation, cause)
	return operation
}

// publish replaces the displayed operation snapshot, unless the operation
// has been superseded or a full reset happened since it started.
func (service *Service) publish(ticket operationTicket, operation PendingOperation) {
	if service.sessions.Generation() != ticket.generation {
		return
	}
	service.mutex.Lock()
	defer service.mutex.Unlock()
	if service.currentToken != ticket.token {
		return
	}
	service.current = operation
}

func (service *Service) discardCurrent() {
	service.mutex.Lock()
	defer service.mutex.Unlock()
	service.current = PendingOperation{}
	service.hasCurrent = false
	service.currentToken = 0
}

func (service *Service) logOperation(ctx context.Context, operation PendingOperation, cause error) {
	if service.logger == nil {
		return
	}
	status := operationStatusOK
	if cause != nil {
		status = operationStatusError
	}
	service.logger.LogOperation(ctx, OperationLog{
		Operation:         string(operation.Kind),
		Address:           service.sessions.Session().Address,
		AmountAtomic:      operation.Amount,
		AdditionalSeconds: operation.AdditionalSeconds,
		Handle:            operation.Handle,
		Status:            status,
		Error:             cause,
	})
}
