package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/lockvault/lockvault/pkg/vault"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	testSigningKey   = "test-signing-key"
	testIssuer       = "vaultd-test"
	testAccountValue = "0xabc0000000000000000000000000000000000001"
	testChainValue   = "0x1"
	testHandleValue  = "0xfeedface"
	testNowUnixUTC   = int64(1_700_000_000)
)

type stubProvider struct {
	accounts []vault.AccountID
	chain    vault.ChainID
}

func (provider *stubProvider) RequestAccounts(_ context.Context) ([]vault.AccountID, error) {
	return provider.accounts, nil
}

func (provider *stubProvider) ChainID(_ context.Context) (vault.ChainID, error) {
	return provider.chain, nil
}

func (provider *stubProvider) SubscribeAccountsChanged(func(accounts []vault.AccountID)) {}

func (provider *stubProvider) SubscribeChainChanged(func(chain vault.ChainID)) {}

type stubLedger struct {
	balance       *big.Int
	unlockUnixUTC int64
}

func (ledger *stubLedger) ReadBalance(_ context.Context) (vault.AtomicAmount, error) {
	return vault.NewAtomicAmount(ledger.balance)
}

func (ledger *stubLedger) ReadUnlockTime(_ context.Context) (int64, error) {
	return ledger.unlockUnixUTC, nil
}

func (ledger *stubLedger) SubmitDeposit(_ context.Context, amount vault.AtomicAmount) (vault.TxHandle, error) {
	ledger.balance.Add(ledger.balance, amount.BigInt())
	return vault.NewTxHandle(testHandleValue)
}

func (ledger *stubLedger) SubmitWithdraw(_ context.Context, amount vault.AtomicAmount) (vault.TxHandle, error) {
	ledger.balance.Sub(ledger.balance, amount.BigInt())
	return vault.NewTxHandle(testHandleValue)
}

func (ledger *stubLedger) SubmitExtendLock(_ context.Context, additionalSeconds int64) (vault.TxHandle, error) {
	ledger.unlockUnixUTC += additionalSeconds
	return vault.NewTxHandle(testHandleValue)
}

func (ledger *stubLedger) AwaitConfirmation(_ context.Context, _ vault.TxHandle) error {
	return nil
}

type apiFixture struct {
	router *gin.Engine
	token  string
}

func newAPIFixture(test *testing.T) *apiFixture {
	test.Helper()
	account, err := vault.NewAccountID(testAccountValue)
	if err != nil {
		test.Fatalf("account id init failed: %v", err)
	}
	chain, err := vault.NewChainID(testChainValue)
	if err != nil {
		test.Fatalf("chain id init failed: %v", err)
	}
	provider := &stubProvider{accounts: []vault.AccountID{account}, chain: chain}
	ledger := &stubLedger{balance: big.NewInt(0), unlockUnixUTC: testNowUnixUTC - 10}
	sessions, err := vault.NewSessionManager(provider, chain)
	if err != nil {
		test.Fatalf("session manager init failed: %v", err)
	}
	clock := func() int64 { return testNowUnixUTC }
	cache, err := vault.NewCache(ledger, sessions, clock)
	if err != nil {
		test.Fatalf("cache init failed: %v", err)
	}
	service, err := vault.NewService(ledger, sessions, cache, clock)
	if err != nil {
		test.Fatalf("service init failed: %v", err)
	}
	cfg := Config{APISigningKey: testSigningKey, APIIssuer: testIssuer}
	if err := cfg.Validate(); err != nil {
		test.Fatalf("config validate failed: %v", err)
	}
	router := setupRouter(cfg, &httpHandler{logger: zap.NewNop(), service: service})
	token, err := IssueToken([]byte(testSigningKey), testIssuer, "test-operator", time.Minute)
	if err != nil {
		test.Fatalf("token issue failed: %v", err)
	}
	return &apiFixture{router: router, token: token}
}

func (f *apiFixture) do(test *testing.T, method string, path string, body any) *httptest.ResponseRecorder {
	test.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			test.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	request := httptest.NewRequest(method, path, reader)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Authorization", bearerPrefix+f.token)
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, request)
	return recorder
}

func decodeBody[T any](test *testing.T, recorder *httptest.ResponseRecorder) T {
	test.Helper()
	var decoded T
	if err := json.Unmarshal(recorder.Body.Bytes(), &decoded); err != nil {
		test.Fatalf("decode response %q: %v", recorder.Body.String(), err)
	}
	return decoded
}

func TestRequestsWithoutTokenAreRejected(test *testing.T) {
	test.Parallel()
	f := newAPIFixture(test)

	request := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusUnauthorized {
		test.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestRequestsWithWrongIssuerAreRejected(test *testing.T) {
	test.Parallel()
	f := newAPIFixture(test)
	token, err := IssueToken([]byte(testSigningKey), "someone-else", "operator", time.Minute)
	if err != nil {
		test.Fatalf("token issue failed: %v", err)
	}

	request := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	request.Header.Set("Authorization", bearerPrefix+token)
	recorder := httptest.NewRecorder()
	f.router.ServeHTTP(recorder, request)
	if recorder.Code != http.StatusUnauthorized {
		test.Fatalf("expected 401, got %d", recorder.Code)
	}
}

func TestVaultBeforeSyncReturnsNotFound(test *testing.T) {
	test.Parallel()
	f := newAPIFixture(test)

	recorder := f.do(test, http.MethodGet, "/api/vault", nil)
	if recorder.Code != http.StatusNotFound {
		test.Fatalf("expected 404, got %d body=%s", recorder.Code, recorder.Body.String())
	}
	envelope := decodeBody[ErrorEnvelope](test, recorder)
	if envelope.Error.Code != "not_synchronized" {
		test.Fatalf("expected not_synchronized, got %q", envelope.Error.Code)
	}
}

func TestConnectDepositAndOperationFlow(test *testing.T) {
	test.Parallel()
	f := newAPIFixture(test)

	connectRecorder := f.do(test, http.MethodPost, "/api/session", nil)
	if connectRecorder.Code != http.StatusOK {
		test.Fatalf("connect status=%d body=%s", connectRecorder.Code, connectRecorder.Body.String())
	}
	session := decodeBody[SessionEnvelope](test, connectRecorder)
	if session.Status != string(vault.SessionConnected) {
		test.Fatalf("expected connected session, got %+v", session)
	}
	if session.Address != testAccountValue {
		test.Fatalf("expected address %q, got %q", testAccountValue, session.Address)
	}

	vaultRecorder := f.do(test, http.MethodGet, "/api/vault", nil)
	if vaultRecorder.Code != http.StatusOK {
		test.Fatalf("vault status=%d body=%s", vaultRecorder.Code, vaultRecorder.Body.String())
	}

	depositRecorder := f.do(test, http.MethodPost, "/api/vault/deposit", amountRequest{Amount: "0.01"})
	if depositRecorder.Code != http.StatusOK {
		test.Fatalf("deposit status=%d body=%s", depositRecorder.Code, depositRecorder.Body.String())
	}
	operation := decodeBody[OperationEnvelope](test, depositRecorder)
	if operation.Operation.Status != string(vault.StatusConfirmed) {
		test.Fatalf("expected confirmed deposit, got %+v", operation.Operation)
	}
	if operation.Operation.AmountAtomic != "10000000000000000" {
		test.Fatalf("expected atomic amount 10000000000000000, got %q", operation.Operation.AmountAtomic)
	}
	if operation.Operation.TxHandle != testHandleValue {
		test.Fatalf("expected handle %q, got %q", testHandleValue, operation.Operation.TxHandle)
	}

	refreshed := f.do(test, http.MethodGet, "/api/vault", nil)
	payload := decodeBody[VaultEnvelope](test, refreshed)
	if payload.Vault.BalanceDecimal != "0.01" {
		test.Fatalf("expected balance 0.01, got %q", payload.Vault.BalanceDecimal)
	}

	operationRecorder := f.do(test, http.MethodGet, "/api/operation", nil)
	if operationRecorder.Code != http.StatusOK {
		test.Fatalf("operation status=%d body=%s", operationRecorder.Code, operationRecorder.Body.String())
	}
	tracked := decodeBody[OperationEnvelope](test, operationRecorder)
	if tracked.Operation.Kind != string(vault.OperationDeposit) {
		test.Fatalf("expected tracked deposit, got %+v", tracked.Operation)
	}
}

func TestExtendRejectsUnknownUnit(test *testing.T) {
	test.Parallel()
	f := newAPIFixture(test)
	f.do(test, http.MethodPost, "/api/session", nil)

	recorder := f.do(test, http.MethodPost, "/api/vault/extend", extendRequest{Value: 1, Unit: "fortnights"})
	if recorder.Code != http.StatusBadRequest {
		test.Fatalf("expected 400, got %d body=%s", recorder.Code, recorder.Body.String())
	}
}

func TestExtendReportsNonIncreasingLock(test *testing.T) {
	test.Parallel()
	f := newAPIFixture(test)
	f.do(test, http.MethodPost, "/api/session", nil)

	// Push the unlock time a day out, then ask for a one-minute extension.
	first := f.do(test, http.MethodPost, "/api/vault/extend", extendRequest{Value: 1, Unit: "days"})
	firstOperation := decodeBody[OperationEnvelope](test, first)
	if firstOperation.Operation.Status != string(vault.StatusConfirmed) {
		test.Fatalf("expected confirmed extension, got %+v", firstOperation.Operation)
	}

	second := f.do(test, http.MethodPost, "/api/vault/extend", extendRequest{Value: 1, Unit: "minutes"})
	secondOperation := decodeBody[OperationEnvelope](test, second)
	if secondOperation.Operation.Status != string(vault.StatusFailed) {
		test.Fatalf("expected failed extension, got %+v", secondOperation.Operation)
	}
}

func TestDisconnectDropsSession(test *testing.T) {
	test.Parallel()
	f := newAPIFixture(test)
	f.do(test, http.MethodPost, "/api/session", nil)

	recorder := f.do(test, http.MethodDelete, "/api/session", nil)
	session := decodeBody[SessionEnvelope](test, recorder)
	if session.Status != string(vault.SessionDisconnected) {
		test.Fatalf("expected disconnected session, got %+v", session)
	}
}
