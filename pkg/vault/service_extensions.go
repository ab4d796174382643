package vault

import "context"

// ExtendLock pushes the vault's unlock time to now + (value, unit). The
// extension argument is computed against the cached unlock time; the cache
// is refreshed first only when it has never been populated. A concurrent
// external extension that confirmed unseen can therefore leave the cached
// value stale — callers that need strict accuracy should call Refresh
// immediately before extending.
func (service *Service) ExtendLock(ctx context.Context, value float64, unit DurationUnit) PendingOperation {
	ticket, operation := service.begin(OperationExtendLock)
	if session := service.sessions.Session(); session.Status != SessionConnected {
		return service.fail(ctx, ticket, operation, ErrNotConnected)
	}
	durationSeconds, err := DurationSeconds(value, unit)
	if err != nil {
		return service.fail(ctx, ticket, operation, err)
	}
	snapshot, populated := service.cache.Snapshot()
	if !populated {
		if err := service.cache.Refresh(ctx); err != nil {
			return service.fail(ctx, ticket, operation, err)
		}
		snapshot, populated = service.cache.Snapshot()
		if !populated {
			return service.fail(ctx, ticket, operation, ErrSync)
		}
	}
	additionalSeconds, err := AdditionalLockSeconds(service.nowFn(), durationSeconds, snapshot.UnlockUnixUTC)
	if err != nil {
		return service.fail(ctx, ticket, operation, err)
	}
	operation.AdditionalSeconds = additionalSeconds
	return service.submitAndAwait(ctx, ticket, operation, func(submitCtx context.Context) (TxHandle, error) {
		return service.ledger.SubmitExtendLock(submitCtx, additionalSeconds)
	})
}

// Connect establishes the wallet session and primes the snapshot with an
// initial refresh.
func (service *Service) Connect(ctx context.Context) error {
	if err := service.sessions.Connect(ctx); err != nil {
		return err
	}
	return service.cache.Refresh(ctx)
}

// Disconnect drops the wallet session.
func (service *Service) Disconnect() {
	service.sessions.Disconnect()
}

// Session returns the current session snapshot.
func (service *Service) Session() Session {
	return service.sessions.Session()
}

// ChainMismatch reports whether the wallet sits on an unexpected network.
func (service *Service) ChainMismatch() bool {
	return service.sessions.ChainMismatch()
}

// Snapshot returns the last synchronized ledger snapshot, if any.
func (service *Service) Snapshot() (Snapshot, bool) {
	return service.cache.Snapshot()
}

// Refresh resynchronizes the cached snapshot on explicit user request.
func (service *Service) Refresh(ctx context.Context) error {
	return service.cache.Refresh(ctx)
}

// CurrentOperation returns the operation currently tracked for display, if
// any. Superseded operations are no longer visible here even when their
// underlying call later resolves.
func (service *Service) CurrentOperation() (PendingOperation, bool) {
	service.mutex.Lock()
	defer service.mutex.Unlock()
	return service.current, service.hasCurrent
}
