package event

import (
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Bech32 human-readable prefix for public keys (NIP-19).
const npubPrefix = "npub"

var errNotNpub = errors.New("not an npub string")

// EncodeNpub converts a hex public key to its bech32 npub form.
func EncodeNpub(pubkeyHex string) (string, error) {
	raw, err := hex.DecodeString(pubkeyHex)
	if err != nil {
		return "", fmt.Errorf("decode pubkey hex: %w", err)
	}
	if len(raw) != 32 {
		return "", ErrBadPubKey
	}
	grouped, err := bech32.ConvertBits(raw, 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert pubkey bits: %w", err)
	}
	return bech32.Encode(npubPrefix, grouped)
}

// DecodeNpub converts a bech32 npub string back to its hex public key.
func DecodeNpub(npub string) (string, error) {
	prefix, grouped, err := bech32.Decode(npub)
	if err != nil {
		return "", fmt.Errorf("decode npub: %w", err)
	}
	if prefix != npubPrefix {
		return "", errNotNpub
	}
	raw, err := bech32.ConvertBits(grouped, 5, 8, false)
	if err != nil {
		return "", fmt.Errorf("convert npub bits: %w", err)
	}
	if len(raw) != 32 {
		return "", ErrBadPubKey
	}
	return hex.EncodeToString(raw), nil
}
