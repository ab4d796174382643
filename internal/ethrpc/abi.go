package ethrpc

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

// Contract method signatures of the vault contract. Selectors are the first
// four bytes of the keccak-256 hash of the signature.
const (
	signatureBalance    = "balance()"
	signatureUnlockTime = "unlockTime()"
	signatureDeposit    = "deposit()"
	signatureWithdraw   = "withdraw(uint256)"
	signatureExtendLock = "extendLock(uint256)"
)

// errorStringSelector prefixes ABI-encoded Error(string) revert data.
const errorStringSelector = "0x08c379a0"

func selector(signature string) string {
	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(signature))
	return "0x" + hex.EncodeToString(hasher.Sum(nil)[:4])
}

func encodeUint256Arg(signature string, value *big.Int) string {
	return selector(signature) + fmt.Sprintf("%064x", value)
}

func encodeBig(value *big.Int) string {
	return "0x" + value.Text(16)
}

func decodeBig(raw string) (*big.Int, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(raw), "0x")
	if trimmed == "" {
		return new(big.Int), nil
	}
	value, ok := new(big.Int).SetString(trimmed, 16)
	if !ok {
		return nil, fmt.Errorf("malformed hex quantity %q", raw)
	}
	return value, nil
}

// decodeRevertReason extracts the human string from ABI-encoded
// Error(string) revert data. Unknown encodings yield an empty reason.
func decodeRevertReason(data string) string {
	trimmed := strings.TrimSpace(data)
	if !strings.HasPrefix(trimmed, errorStringSelector) {
		return ""
	}
	payload, err := hex.DecodeString(strings.TrimPrefix(trimmed, errorStringSelector))
	if err != nil {
		return ""
	}
	// Payload layout: 32-byte offset, 32-byte length, then the string bytes.
	if len(payload) < 64 {
		return ""
	}
	length := new(big.Int).SetBytes(payload[32:64])
	if !length.IsInt64() || length.Int64() < 0 || 64+length.Int64() > int64(len(payload)) {
		return ""
	}
	return string(payload[64 : 64+length.Int64()])
}
