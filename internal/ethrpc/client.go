// Package ethrpc implements the vault's Ledger and Provider interfaces
// against an Ethereum JSON-RPC node with node-managed accounts. It is a
// stateless pass-through: no retries, no caching, and every low-level
// failure is normalized to the vault error taxonomy.
package ethrpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lockvault/lockvault/pkg/vault"
)

const (
	defaultPollInterval = 2 * time.Second

	methodCall           = "eth_call"
	methodSendTx         = "eth_sendTransaction"
	methodReceipt        = "eth_getTransactionReceipt"
	methodTransaction    = "eth_getTransactionByHash"
	methodAccounts       = "eth_accounts"
	methodChainID        = "eth_chainId"
	blockLatest          = "latest"
	receiptStatusSuccess = "0x1"
)

// Config carries the connection settings for a Client.
type Config struct {
	NodeURL         string
	ContractAddress string
	PollInterval    time.Duration
	HTTPClient      *http.Client
}

// Validate fills defaults and rejects incomplete configurations.
func (cfg *Config) Validate() error {
	if strings.TrimSpace(cfg.NodeURL) == "" {
		return fmt.Errorf("node url is required")
	}
	if !strings.HasPrefix(strings.TrimSpace(cfg.ContractAddress), "0x") {
		return fmt.Errorf("contract address must be 0x-prefixed")
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	return nil
}

// Client speaks JSON-RPC 2.0 over HTTP. It implements both vault.Ledger and
// vault.Provider; change notifications are dispatched by the embedding
// process through the Notify methods (see Watch).
type Client struct {
	cfg Config

	mutex             sync.Mutex
	accountsCallbacks []func(accounts []vault.AccountID)
	chainCallbacks    []func(chain vault.ChainID)
}

// New validates the configuration and returns a Client.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Client{cfg: cfg}, nil
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (client *Client) call(ctx context.Context, method string, params ...any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	payload, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", vault.ErrConnectivity, method, err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, client.cfg.NodeURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vault.ErrConnectivity, err)
	}
	request.Header.Set("Content-Type", "application/json")
	response, err := client.cfg.HTTPClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vault.ErrConnectivity, err)
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: node returned status %d", vault.ErrConnectivity, response.StatusCode)
	}
	var decoded rpcResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode %s response: %v", vault.ErrConnectivity, method, err)
	}
	if decoded.Error != nil {
		return nil, normalizeRPCError(decoded.Error)
	}
	return decoded.Result, nil
}

// normalizeRPCError maps a JSON-RPC error onto the vault taxonomy. Code 4001
// is the provider's user-rejection code; execution reverts carry the
// contract's reason. Everything else the node refused is reported as a
// ledger-side rejection with the node's message.
func normalizeRPCError(rpcErr *rpcError) error {
	message := strings.ToLower(rpcErr.Message)
	if rpcErr.Code == 4001 || strings.Contains(message, "denied") || strings.Contains(message, "rejected") {
		return fmt.Errorf("%w: %s", vault.ErrUserRejected, rpcErr.Message)
	}
	if rpcErr.Code == 3 || strings.Contains(message, "revert") {
		if reason := decodeRevertReason(errorDataString(rpcErr.Data)); reason != "" {
			return vault.NewRevertError(reason)
		}
		if _, tail, found := strings.Cut(rpcErr.Message, "reverted:"); found {
			return vault.NewRevertError(strings.TrimSpace(tail))
		}
		return vault.NewRevertError("")
	}
	return vault.NewRevertError(rpcErr.Message)
}

func errorDataString(data json.RawMessage) string {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		return asString
	}
	return ""
}

func (client *Client) callString(ctx context.Context, method string, params ...any) (string, error) {
	result, err := client.call(ctx, method, params...)
	if err != nil {
		return "", err
	}
	var decoded string
	if err := json.Unmarshal(result, &decoded); err != nil {
		return "", fmt.Errorf("%w: decode %s result: %v", vault.ErrConnectivity, method, err)
	}
	return decoded, nil
}

func (client *Client) contractRead(ctx context.Context, data string) (*big.Int, error) {
	encoded, err := client.callString(ctx, methodCall, map[string]string{
		"to":   client.cfg.ContractAddress,
		"data": data,
	}, blockLatest)
	if err != nil {
		return nil, err
	}
	value, err := decodeBig(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", vault.ErrConnectivity, err)
	}
	return value, nil
}

// ReadBalance returns the contract's tracked balance in wei.
func (client *Client) ReadBalance(ctx context.Context) (vault.AtomicAmount, error) {
	value, err := client.contractRead(ctx, selector(signatureBalance))
	if err != nil {
		return vault.AtomicAmount{}, err
	}
	return vault.NewAtomicAmount(value)
}

// ReadUnlockTime returns the unlock time as unix seconds.
func (client *Client) ReadUnlockTime(ctx context.Context) (int64, error) {
	value, err := client.contractRead(ctx, selector(signatureUnlockTime))
	if err != nil {
		return 0, err
	}
	if !value.IsInt64() {
		return 0, fmt.Errorf("%w: unlock time out of range", vault.ErrConnectivity)
	}
	return value.Int64(), nil
}

// SubmitDeposit sends the deposit call with the amount attached as value.
func (client *Client) SubmitDeposit(ctx context.Context, amount vault.AtomicAmount) (vault.TxHandle, error) {
	return client.sendTransaction(ctx, map[string]string{
		"to":    client.cfg.ContractAddress,
		"value": encodeBig(amount.BigInt()),
		"data":  selector(signatureDeposit),
	})
}

// SubmitWithdraw requests a withdrawal of the given amount.
func (client *Client) SubmitWithdraw(ctx context.Context, amount vault.AtomicAmount) (vault.TxHandle, error) {
	return client.sendTransaction(ctx, map[string]string{
		"to":   client.cfg.ContractAddress,
		"data": encodeUint256Arg(signatureWithdraw, amount.BigInt()),
	})
}

// SubmitExtendLock pushes the unlock time forward by additionalSeconds.
func (client *Client) SubmitExtendLock(ctx context.Context, additionalSeconds int64) (vault.TxHandle, error) {
	return client.sendTransaction(ctx, map[string]string{
		"to":   client.cfg.ContractAddress,
		"data": encodeUint256Arg(signatureExtendLock, big.NewInt(additionalSeconds)),
	})
}

func (client *Client) sendTransaction(ctx context.Context, transaction map[string]string) (vault.TxHandle, error) {
	accounts, err := client.RequestAccounts(ctx)
	if err != nil {
		return vault.TxHandle{}, err
	}
	if len(accounts) == 0 {
		return vault.TxHandle{}, fmt.Errorf("%w: node holds no unlocked accounts", vault.ErrUserRejected)
	}
	transaction["from"] = accounts[0].String()
	hash, err := client.callString(ctx, methodSendTx, transaction)
	if err != nil {
		return vault.TxHandle{}, err
	}
	return vault.NewTxHandle(hash)
}

type transactionReceipt struct {
	Status      string `json:"status"`
	BlockNumber string `json:"blockNumber"`
}

// AwaitConfirmation polls for the transaction receipt until the operation
// resolves or ctx is cancelled. A reverted transaction is replayed as a call
// at its block to recover the contract's reason.
func (client *Client) AwaitConfirmation(ctx context.Context, handle vault.TxHandle) error {
	for {
		result, err := client.call(ctx, methodReceipt, handle.String())
		if err != nil {
			return err
		}
		if !isJSONNull(result) {
			var receipt transactionReceipt
			if err := json.Unmarshal(result, &receipt); err != nil {
				return fmt.Errorf("%w: decode receipt: %v", vault.ErrConnectivity, err)
			}
			if receipt.Status == receiptStatusSuccess {
				return nil
			}
			return client.revertCause(ctx, handle, receipt.BlockNumber)
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%w: %v", vault.ErrConnectivity, ctx.Err())
		case <-time.After(client.cfg.PollInterval):
		}
	}
}

type transactionByHash struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Input string `json:"input"`
	Value string `json:"value"`
}

// revertCause replays a failed transaction as a read call at its block so
// the node reports the revert reason. When the replay cannot reproduce the
// failure a bare revert is reported.
func (client *Client) revertCause(ctx context.Context, handle vault.TxHandle, blockNumber string) error {
	result, err := client.call(ctx, methodTransaction, handle.String())
	if err != nil || isJSONNull(result) {
		return vault.NewRevertError("")
	}
	var transaction transactionByHash
	if err := json.Unmarshal(result, &transaction); err != nil {
		return vault.NewRevertError("")
	}
	_, replayErr := client.call(ctx, methodCall, map[string]string{
		"from":  transaction.From,
		"to":    transaction.To,
		"data":  transaction.Input,
		"value": transaction.Value,
	}, blockNumber)
	var revertError vault.RevertError
	if errors.As(replayErr, &revertError) {
		return revertError
	}
	return vault.NewRevertError("")
}

// RequestAccounts lists the node-managed accounts.
func (client *Client) RequestAccounts(ctx context.Context) ([]vault.AccountID, error) {
	result, err := client.call(ctx, methodAccounts)
	if err != nil {
		return nil, err
	}
	var raw []string
	if err := json.Unmarshal(result, &raw); err != nil {
		return nil, fmt.Errorf("%w: decode accounts: %v", vault.ErrConnectivity, err)
	}
	accounts := make([]vault.AccountID, 0, len(raw))
	for _, entry := range raw {
		account, err := vault.NewAccountID(entry)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", vault.ErrConnectivity, err)
		}
		accounts = append(accounts, account)
	}
	return accounts, nil
}

// ChainID reports the node's network id.
func (client *Client) ChainID(ctx context.Context) (vault.ChainID, error) {
	encoded, err := client.callString(ctx, methodChainID)
	if err != nil {
		return vault.ChainID{}, err
	}
	return vault.NewChainID(encoded)
}

// SubscribeAccountsChanged registers a callback for account changes.
func (client *Client) SubscribeAccountsChanged(callback func(accounts []vault.AccountID)) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	client.accountsCallbacks = append(client.accountsCallbacks, callback)
}

// SubscribeChainChanged registers a callback for network switches.
func (client *Client) SubscribeChainChanged(callback func(chain vault.ChainID)) {
	client.mutex.Lock()
	defer client.mutex.Unlock()
	client.chainCallbacks = append(client.chainCallbacks, callback)
}

// NotifyAccountsChanged fans an account change out to subscribers.
func (client *Client) NotifyAccountsChanged(accounts []vault.AccountID) {
	client.mutex.Lock()
	callbacks := append([]func(accounts []vault.AccountID){}, client.accountsCallbacks...)
	client.mutex.Unlock()
	for _, callback := range callbacks {
		callback(accounts)
	}
}

// NotifyChainChanged fans a network switch out to subscribers.
func (client *Client) NotifyChainChanged(chain vault.ChainID) {
	client.mutex.Lock()
	callbacks := append([]func(chain vault.ChainID){}, client.chainCallbacks...)
	client.mutex.Unlock()
	for _, callback := range callbacks {
		callback(chain)
	}
}

func isJSONNull(raw json.RawMessage) bool {
	trimmed := strings.TrimSpace(string(raw))
	return trimmed == "" || trimmed == "null"
}
