package vault

import (
	"context"
	"fmt"
	"sync"
)

// SessionManager owns the single wallet Session and reacts to provider
// notifications. Every mutation replaces the Session snapshot wholesale; a
// chain change is a full reset that bumps the generation counter so work
// started before the reset cannot touch state created after it.
type SessionManager struct {
	mutex         sync.Mutex
	provider      Provider
	expectedChain ChainID
	session       Session
	generation    uint64
	resetHooks    []func()
	resyncHooks   []func()
}

// NewSessionManager wires a SessionManager and registers its provider
// subscriptions. expectedChain may be the zero value to disable the
// mismatch check.
func NewSessionManager(provider Provider, expectedChain ChainID) (*SessionManager, error) {
	if provider == nil {
		return nil, fmt.Errorf("%w: provider dependency is nil", ErrInvalidServiceConfig)
	}
	manager := &SessionManager{
		provider:      provider,
		expectedChain: expectedChain,
		session:       Session{Status: SessionDisconnected},
	}
	provider.SubscribeAccountsChanged(manager.OnAccountsChanged)
	provider.SubscribeChainChanged(manager.OnChainChanged)
	return manager, nil
}

// Session returns the current session snapshot.
func (manager *SessionManager) Session() Session {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	return manager.session
}

// Generation returns the current reset generation. Callers capture it before
// a suspension point and compare after, discarding results that straddle a
// reset.
func (manager *SessionManager) Generation() uint64 {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	return manager.generation
}

// Connect requests accounts and the chain id from the wallet provider. A
// Connect while already Connecting or Connected is a no-op.
func (manager *SessionManager) Connect(ctx context.Context) error {
	manager.mutex.Lock()
	if manager.session.Status != SessionDisconnected {
		manager.mutex.Unlock()
		return nil
	}
	startGeneration := manager.generation
	manager.session = Session{Status: SessionConnecting}
	manager.mutex.Unlock()

	accounts, err := manager.provider.RequestAccounts(ctx)
	if err != nil {
		manager.replaceIfGeneration(startGeneration, Session{Status: SessionDisconnected})
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	if len(accounts) == 0 {
		manager.replaceIfGeneration(startGeneration, Session{Status: SessionDisconnected})
		return fmt.Errorf("%w: wallet returned no accounts", ErrConnectionFailed)
	}
	chain, err := manager.provider.ChainID(ctx)
	if err != nil {
		manager.replaceIfGeneration(startGeneration, Session{Status: SessionDisconnected})
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}
	if !manager.replaceIfGeneration(startGeneration, Session{
		Status:  SessionConnected,
		Address: accounts[0],
		Chain:   chain,
	}) {
		return fmt.Errorf("%w: network changed during connect", ErrConnectionFailed)
	}
	return nil
}

// Disconnect drops the wallet connection.
func (manager *SessionManager) Disconnect() {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	manager.session = Session{Status: SessionDisconnected}
}

// OnAccountsChanged handles a provider account notification. An empty list
// disconnects; otherwise the active address switches to the first entry and
// resync hooks fire so dependent state re-reads the ledger.
func (manager *SessionManager) OnAccountsChanged(accounts []AccountID) {
	manager.mutex.Lock()
	if len(accounts) == 0 {
		manager.session = Session{Status: SessionDisconnected}
		manager.mutex.Unlock()
		return
	}
	if manager.session.Status != SessionConnected {
		manager.mutex.Unlock()
		return
	}
	manager.session = Session{
		Status:  SessionConnected,
		Address: accounts[0],
		Chain:   manager.session.Chain,
	}
	hooks := append([]func(){}, manager.resyncHooks...)
	manager.mutex.Unlock()
	for _, hook := range hooks {
		hook()
	}
}

// OnChainChanged handles a network switch: an unconditional full reset. The
// session drops to Disconnected, the generation advances, and reset hooks
// fire so the cache and any tracked operation are discarded.
func (manager *SessionManager) OnChainChanged(ChainID) {
	manager.mutex.Lock()
	manager.generation++
	manager.session = Session{Status: SessionDisconnected}
	hooks := append([]func(){}, manager.resetHooks...)
	manager.mutex.Unlock()
	for _, hook := range hooks {
		hook()
	}
}

// ChainMismatch reports whether the connected chain differs from the
// expected one. Surfaced for display only; reads are not blocked on it.
func (manager *SessionManager) ChainMismatch() bool {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	if manager.expectedChain.IsZero() || manager.session.Status != SessionConnected {
		return false
	}
	return manager.session.Chain != manager.expectedChain
}

// OnReset registers a hook invoked after every full reset.
func (manager *SessionManager) OnReset(hook func()) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	manager.resetHooks = append(manager.resetHooks, hook)
}

// OnResync registers a hook invoked when the active account changes.
func (manager *SessionManager) OnResync(hook func()) {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	manager.resyncHooks = append(manager.resyncHooks, hook)
}

func (manager *SessionManager) replaceIfGeneration(generation uint64, next Session) bool {
	manager.mutex.Lock()
	defer manager.mutex.Unlock()
	if manager.generation != generation {
		return false
	}
	manager.session = next
	return true
}
