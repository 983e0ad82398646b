// Package keys manages secp256k1 identities for the CLI tools: key
// generation, hex and bech32 (nsec) secret forms, and the derived
// x-only public key.
package keys

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil/bech32"

	"github.com/cardbazaar/ledger/internal/event"
)

const nsecPrefix = "nsec"

var errNotNsec = errors.New("not an nsec string")

// Key is a signing identity.
type Key struct {
	sk *btcec.PrivateKey
}

// Generate creates a fresh random key.
func Generate() (*Key, error) {
	sk, err := btcec.NewPrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return &Key{sk: sk}, nil
}

// ParseSecret accepts a 64-char hex secret key or its bech32 nsec form.
func ParseSecret(s string) (*Key, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, nsecPrefix) {
		return parseNsec(s)
	}
	raw, err := hex.DecodeString(s)
	if err != nil || len(raw) != 32 {
		return nil, event.ErrBadPrivateKey
	}
	sk, _ := btcec.PrivKeyFromBytes(raw)
	return &Key{sk: sk}, nil
}

func parseNsec(s string) (*Key, error) {
	prefix, grouped, err := bech32.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("decode nsec: %w", err)
	}
	if prefix != nsecPrefix {
		return nil, errNotNsec
	}
	raw, err := bech32.ConvertBits(grouped, 5, 8, false)
	if err != nil {
		return nil, fmt.Errorf("convert nsec bits: %w", err)
	}
	if len(raw) != 32 {
		return nil, event.ErrBadPrivateKey
	}
	sk, _ := btcec.PrivKeyFromBytes(raw)
	return &Key{sk: sk}, nil
}

// SecretHex returns the 64-char hex secret key.
func (k *Key) SecretHex() string {
	return hex.EncodeToString(k.sk.Serialize())
}

// PublicHex returns the 64-char hex x-only public key.
func (k *Key) PublicHex() string {
	return hex.EncodeToString(schnorr.SerializePubKey(k.sk.PubKey()))
}

// Nsec returns the bech32 form of the secret key.
func (k *Key) Nsec() (string, error) {
	grouped, err := bech32.ConvertBits(k.sk.Serialize(), 8, 5, true)
	if err != nil {
		return "", fmt.Errorf("convert secret bits: %w", err)
	}
	return bech32.Encode(nsecPrefix, grouped)
}

// Npub returns the bech32 form of the public key.
func (k *Key) Npub() (string, error) {
	return event.EncodeNpub(k.PublicHex())
}
