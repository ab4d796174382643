package ethrpc

import (
	"context"
	"time"

	"github.com/lockvault/lockvault/pkg/vault"
)

// Watch polls the node for account and chain changes and dispatches them to
// subscribers. An HTTP node exposes no push channel, so this is how the
// provider subscriptions are driven. Blocks until ctx is cancelled; poll
// errors are skipped and retried on the next tick.
func (client *Client) Watch(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var lastAccounts []vault.AccountID
	var lastChain vault.ChainID
	primed := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		accounts, err := client.RequestAccounts(ctx)
		if err != nil {
			continue
		}
		chain, err := client.ChainID(ctx)
		if err != nil {
			continue
		}
		if !primed {
			lastAccounts, lastChain, primed = accounts, chain, true
			continue
		}
		if chain != lastChain {
			lastAccounts, lastChain = accounts, chain
			client.NotifyChainChanged(chain)
			continue
		}
		if !equalAccounts(accounts, lastAccounts) {
			lastAccounts = accounts
			client.NotifyAccountsChanged(accounts)
		}
	}
}

func equalAccounts(left []vault.AccountID, right []vault.AccountID) bool {
	if len(left) != len(right) {
		return false
	}
	for index := range left {
		if left[index] != right[index] {
			return false
		}
	}
	return true
}
