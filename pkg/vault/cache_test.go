package vault

import (
	"context"
	"errors"
	"math/big"
	"testing"
)

func TestRefreshRequiresConnectedSession(test *testing.T) {
	test.Parallel()
	f := newFixture(test)

	err := f.cache.Refresh(context.Background())
	if !errors.Is(err, ErrSync) {
		test.Fatalf("expected ErrSync, got %v", err)
	}
	if f.ledger.readCalls != 0 {
		test.Fatalf("disconnected refresh must not reach the ledger")
	}
}

func TestRefreshReplacesSnapshotWholesale(test *testing.T) {
	test.Parallel()
	f := newFixture(test)
	f.connect(test)
	f.ledger.balance = big.NewInt(500)
	f.ledger.unlockUnixUTC = testNowUnixUTC + 900

	if err := f.cache.Refresh(context.Background()); err != nil {
		test.Fatalf("refresh failed: %v", err)
	}
	snapshot, populated := f.cache.Snapshot()
	if !populated {
		test.Fatalf("expected populated snapshot")
	}
	if snapshot.BalanceAtomic.BigInt().Int64() != 500 {
		test.Fatalf("expected balance 500, got %s", snapshot.BalanceAtomic.BigInt().String())
	}
	if snapshot.UnlockUnixUTC != testNowUnixUTC+900 {
		test.Fatalf("expected unlock %d, got %d", testNowUnixUTC+900, snapshot.UnlockUnixUTC)
	}
	if snapshot.RefreshedUnixUTC != testNowUnixUTC {
		test.Fatalf("expected refresh marker %d, got %d", testNowUnixUTC, snapshot.RefreshedUnixUTC)
	}
}

func TestFailedRefreshRetainsPreviousSnapshot(test *testing.T) {
	test.Parallel()
	f := newFixture(test)
	f.connect(test)
	f.ledger.balance = big.NewInt(500)
	if err := f.cache.Refresh(context.Background()); err != nil {
		test.Fatalf("refresh failed: %v", err)
	}

	f.ledger.balance = big.NewInt(900)
	f.ledger.readUnlockErr = ErrConnectivity
	err := f.cache.Refresh(context.Background())
	if !errors.Is(err, ErrSync) {
		test.Fatalf("expected ErrSync, got %v", err)
	}
	snapshot, populated := f.cache.Snapshot()
	if !populated {
		test.Fatalf("expected previous snapshot to survive")
	}
	if snapshot.BalanceAtomic.BigInt().Int64() != 500 {
		test.Fatalf("a failed refresh must not partially overwrite, got balance %s", snapshot.BalanceAtomic.BigInt().String())
	}
}

func TestRefreshFailsOnBalanceReadError(test *testing.T) {
	test.Parallel()
	f := newFixture(test)
	f.connect(test)
	f.ledger.readBalanceErr = ErrConnectivity

	if err := f.cache.Refresh(context.Background()); !errors.Is(err, ErrSync) {
		test.Fatalf("expected ErrSync, got %v", err)
	}
	if _, populated := f.cache.Snapshot(); populated {
		test.Fatalf("expected empty cache after failed first refresh")
	}
}

func TestAccountChangeResynchronizesSnapshot(test *testing.T) {
	test.Parallel()
	f := newFixture(test)
	f.connect(test)
	f.ledger.balance = big.NewInt(111)
	if err := f.cache.Refresh(context.Background()); err != nil {
		test.Fatalf("refresh failed: %v", err)
	}

	f.ledger.balance = big.NewInt(999)
	f.provider.accountsHook([]AccountID{mustAccountID(test, testAccountOther)})

	snapshot, populated := f.cache.Snapshot()
	if !populated {
		test.Fatalf("expected re-read snapshot after account change")
	}
	if snapshot.BalanceAtomic.BigInt().Int64() != 999 {
		test.Fatalf("account change must not present the previous account's balance, got %s", snapshot.BalanceAtomic.BigInt().String())
	}
	if f.ledger.readCalls != 2 {
		test.Fatalf("expected a second balance read after account change, got %d", f.ledger.readCalls)
	}
}

func TestAccountChangeDropsSnapshotWhenResyncFails(test *testing.T) {
	test.Parallel()
	f := newFixture(test)
	f.connect(test)
	f.ledger.balance = big.NewInt(111)
	if err := f.cache.Refresh(context.Background()); err != nil {
		test.Fatalf("refresh failed: %v", err)
	}

	f.ledger.readBalanceErr = ErrConnectivity
	f.provider.accountsHook([]AccountID{mustAccountID(test, testAccountOther)})

	if _, populated := f.cache.Snapshot(); populated {
		test.Fatalf("stale snapshot must not survive an account change when the re-read fails")
	}
}

func TestRefreshFailureCarriesOperationMetadata(test *testing.T) {
	test.Parallel()
	f := newFixture(test)
	f.connect(test)
	f.ledger.readBalanceErr = ErrConnectivity

	err := f.cache.Refresh(context.Background())
	var operationError OperationError
	if !errors.As(err, &operationError) {
		test.Fatalf("expected OperationError, got %v", err)
	}
	if operationError.Operation() != cacheOperation || operationError.Subject() != refreshSubject {
		test.Fatalf("unexpected metadata: %s.%s", operationError.Operation(), operationError.Subject())
	}
	if operationError.Code() != codeBalanceRead {
		test.Fatalf("expected code %q, got %q", codeBalanceRead, operationError.Code())
	}
	if !errors.Is(err, ErrSync) {
		test.Fatalf("expected ErrSync through the wrapper, got %v", err)
	}
}

func TestInvalidateDropsSnapshot(test *testing.T) {
	test.Parallel()
	f := newFixture(test)
	f.connect(test)
	if err := f.cache.Refresh(context.Background()); err != nil {
		test.Fatalf("refresh failed: %v", err)
	}

	f.cache.Invalidate()
	if _, populated := f.cache.Snapshot(); populated {
		test.Fatalf("expected invalidated cache")
	}
}
