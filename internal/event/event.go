package event

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
)

// Errors
var (
	ErrMissingID     = errors.New("event has no id")
	ErrMissingSig    = errors.New("event has no signature")
	ErrMissingPubKey = errors.New("event has no pubkey")
	ErrBadPrivateKey = errors.New("malformed private key")
	ErrBadPubKey     = errors.New("malformed pubkey")
	ErrBadSignature  = errors.New("malformed signature")
)

// Event is a signed protocol message. Immutable once signed: any field
// change after Sign invalidates both the id and the signature.
type Event struct {
	ID        string     `json:"id"`
	PubKey    string     `json:"pubkey"`
	CreatedAt int64      `json:"created_at"`
	Kind      int        `json:"kind"`
	Tags      [][]string `json:"tags"`
	Content   string     `json:"content"`
	Sig       string     `json:"sig"`
}

// New builds an unsigned event with CreatedAt set to the current time.
// No validation is performed here.
func New(pubkey string, kind int, content string, tags [][]string) *Event {
	if tags == nil {
		tags = [][]string{}
	}
	return &Event{
		PubKey:    pubkey,
		CreatedAt: time.Now().Unix(),
		Kind:      kind,
		Tags:      tags,
		Content:   content,
	}
}

// Serialize renders the canonical id preimage: the JSON array
// [0, pubkey, created_at, kind, tags, content] with no HTML escaping and
// no surrounding whitespace. This is the wire contract; it must be
// bit-exact across implementations.
func (e *Event) Serialize() ([]byte, error) {
	tags := e.Tags
	if tags == nil {
		tags = [][]string{}
	}
	arr := []any{0, e.PubKey, e.CreatedAt, e.Kind, tags, e.Content}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(arr); err != nil {
		return nil, fmt.Errorf("serialize event: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// CalculateID returns the hex SHA-256 of the canonical serialization.
func (e *Event) CalculateID() (string, error) {
	ser, err := e.Serialize()
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(ser)
	return hex.EncodeToString(sum[:]), nil
}

// Sign sets the event id and signs its digest with the given hex-encoded
// 32-byte secret key (BIP-340 Schnorr). If PubKey is empty it is filled
// from the key.
func (e *Event) Sign(secretKeyHex string) error {
	skBytes, err := hex.DecodeString(secretKeyHex)
	if err != nil || len(skBytes) != 32 {
		return ErrBadPrivateKey
	}
	sk, pk := btcec.PrivKeyFromBytes(skBytes)

	if e.PubKey == "" {
		e.PubKey = hex.EncodeToString(schnorr.SerializePubKey(pk))
	}

	id, err := e.CalculateID()
	if err != nil {
		return err
	}
	e.ID = id

	digest, err := hex.DecodeString(id)
	if err != nil {
		return fmt.Errorf("decode event id: %w", err)
	}
	sig, err := schnorr.Sign(sk, digest)
	if err != nil {
		return fmt.Errorf("sign event: %w", err)
	}
	e.Sig = hex.EncodeToString(sig.Serialize())
	return nil
}

// Verify checks the event id against the recomputed digest and verifies
// the Schnorr signature against the event pubkey. Returns false with a
// nil error when id or signature simply do not match; returns an error
// when the event is structurally incomplete or carries malformed fields.
func (e *Event) Verify() (bool, error) {
	if e.ID == "" {
		return false, ErrMissingID
	}
	if e.Sig == "" {
		return false, ErrMissingSig
	}
	if e.PubKey == "" {
		return false, ErrMissingPubKey
	}

	id, err := e.CalculateID()
	if err != nil {
		return false, err
	}
	if id != e.ID {
		return false, nil
	}

	pkBytes, err := hex.DecodeString(e.PubKey)
	if err != nil || len(pkBytes) != 32 {
		return false, ErrBadPubKey
	}
	pk, err := schnorr.ParsePubKey(pkBytes)
	if err != nil {
		return false, ErrBadPubKey
	}

	sigBytes, err := hex.DecodeString(e.Sig)
	if err != nil || len(sigBytes) != 64 {
		return false, ErrBadSignature
	}
	sig, err := schnorr.ParseSignature(sigBytes)
	if err != nil {
		return false, ErrBadSignature
	}

	digest, err := hex.DecodeString(e.ID)
	if err != nil {
		return false, ErrMissingID
	}
	return sig.Verify(digest, pk), nil
}

// TagValue returns the second element of the first tag named name,
// or "" and false if no such tag exists.
func (e *Event) TagValue(name string) (string, bool) {
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			return tag[1], true
		}
	}
	return "", false
}

// TagValues returns the second elements of all tags named name, in tag order.
func (e *Event) TagValues(name string) []string {
	var values []string
	for _, tag := range e.Tags {
		if len(tag) >= 2 && tag[0] == name {
			values = append(values, tag[1])
		}
	}
	return values
}

// Tag returns the first full tag named name, or nil.
func (e *Event) Tag(name string) []string {
	for _, tag := range e.Tags {
		if len(tag) >= 1 && tag[0] == name {
			return tag
		}
	}
	return nil
}
