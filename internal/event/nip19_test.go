package event

import (
	"strings"
	"testing"
)

func TestNpub_RoundTrip(t *testing.T) {
	pubkey := strings.Repeat("ab", 32)

	npub, err := EncodeNpub(pubkey)
	if err != nil {
		t.Fatalf("EncodeNpub failed: %v", err)
	}
	if !strings.HasPrefix(npub, "npub1") {
		t.Errorf("npub = %q, want npub1 prefix", npub)
	}

	back, err := DecodeNpub(npub)
	if err != nil {
		t.Fatalf("DecodeNpub failed: %v", err)
	}
	if back != pubkey {
		t.Errorf("round trip = %q, want %q", back, pubkey)
	}
}

func TestEncodeNpub_Malformed(t *testing.T) {
	if _, err := EncodeNpub("not-hex"); err == nil {
		t.Error("EncodeNpub accepted non-hex input")
	}
	if _, err := EncodeNpub("abcd"); err == nil {
		t.Error("EncodeNpub accepted short input")
	}
}

func TestDecodeNpub_Malformed(t *testing.T) {
	if _, err := DecodeNpub("npub1invalid"); err == nil {
		t.Error("DecodeNpub accepted bad checksum")
	}
	if _, err := DecodeNpub("hello"); err == nil {
		t.Error("DecodeNpub accepted non-bech32 input")
	}
}

func TestDecodeNpub_WrongPrefix(t *testing.T) {
	// A valid bech32 string with the wrong prefix must be rejected.
	pubkey := strings.Repeat("cd", 32)
	npub, err := EncodeNpub(pubkey)
	if err != nil {
		t.Fatalf("EncodeNpub failed: %v", err)
	}
	wrong := "nsec" + strings.TrimPrefix(npub, "npub")
	if _, err := DecodeNpub(wrong); err == nil {
		t.Error("DecodeNpub accepted wrong prefix")
	}
}
