package vault

import (
	"context"
	"fmt"
	"sync"
)

// Cache holds the last synchronized ledger Snapshot. The snapshot is only
// ever replaced wholesale: a failed refresh leaves the previous one intact,
// and a reader never observes a partial write. There is no background
// polling; refreshes happen on explicit request, after connect, and after a
// confirmed write.
type Cache struct {
	mutex     sync.Mutex
	ledger    Ledger
	sessions  *SessionManager
	nowFn     func() int64
	snapshot  Snapshot
	populated bool
}

// NewCache wires a Cache and registers it for invalidation on full reset and
// resynchronization on account change.
func NewCache(ledger Ledger, sessions *SessionManager, now func() int64) (*Cache, error) {
	if ledger == nil {
		return nil, fmt.Errorf("%w: ledger dependency is nil", ErrInvalidServiceConfig)
	}
	if sessions == nil {
		return nil, fmt.Errorf("%w: session manager dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	cache := &Cache{ledger: ledger, sessions: sessions, nowFn: now}
	sessions.OnReset(cache.Invalidate)
	sessions.OnResync(cache.resync)
	return cache, nil
}

// resync drops the snapshot and re-reads for the newly active account. The
// previous account's snapshot must not be presented for the new one, so the
// invalidation stands even when the re-read fails.
func (cache *Cache) resync() {
	cache.Invalidate()
	_ = cache.Refresh(context.Background())
}

// Snapshot returns the last synchronized snapshot and whether one exists.
// The value is never more current than the last successful refresh.
func (cache *Cache) Snapshot() (Snapshot, bool) {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	return cache.snapshot, cache.populated
}

// Refresh reads balance and unlock time from the ledger and replaces the
// snapshot. It requires a connected session; any failure is reported as an
// OperationError carrying ErrSync wrapping the cause, and retains the
// previous snapshot. A refresh that straddles a full reset is discarded.
func (cache *Cache) Refresh(ctx context.Context) error {
	if cache.sessions.Session().Status != SessionConnected {
		return WrapError(cacheOperation, refreshSubject, codeSessionNotConnected, fmt.Errorf("%w: %v", ErrSync, ErrNotConnected))
	}
	startGeneration := cache.sessions.Generation()
	balance, err := cache.ledger.ReadBalance(ctx)
	if err != nil {
		return WrapError(cacheOperation, refreshSubject, codeBalanceRead, fmt.Errorf("%w: read balance: %v", ErrSync, err))
	}
	unlockUnixUTC, err := cache.ledger.ReadUnlockTime(ctx)
	if err != nil {
		return WrapError(cacheOperation, refreshSubject, codeUnlockRead, fmt.Errorf("%w: read unlock time: %v", ErrSync, err))
	}
	next := Snapshot{
		BalanceAtomic:    balance,
		UnlockUnixUTC:    unlockUnixUTC,
		RefreshedUnixUTC: cache.nowFn(),
	}
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	if cache.sessions.Generation() != startGeneration {
		return WrapError(cacheOperation, refreshSubject, codeResetDuringRefresh, fmt.Errorf("%w: network changed during refresh", ErrSync))
	}
	cache.snapshot = next
	cache.populated = true
	return nil
}

// Invalidate drops the snapshot. The next read must come from a refresh.
func (cache *Cache) Invalidate() {
	cache.mutex.Lock()
	defer cache.mutex.Unlock()
	cache.snapshot = Snapshot{}
	cache.populated = false
}
