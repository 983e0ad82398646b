package event

import (
	"strings"
	"testing"
)

// Deterministic test keys.
const (
	testSecKey  = "0101010101010101010101010101010101010101010101010101010101010101"
	otherSecKey = "0202020202020202020202020202020202020202020202020202020202020202"
)

func signedTestEvent(t *testing.T) *Event {
	t.Helper()
	ev := New("", KindTradeOffer, `{"card":"BTC001"}`, [][]string{
		{"card", "BTC001"},
		{"type", "sell"},
		{"price", "1000"},
		{"quantity", "1"},
	})
	ev.CreatedAt = 1705320000
	if err := ev.Sign(testSecKey); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	return ev
}

func TestCalculateID_Deterministic(t *testing.T) {
	ev := New("ab"+strings.Repeat("cd", 31), KindCardDefinition, "content", [][]string{{"d", "card:X"}})
	ev.CreatedAt = 1705320000

	id1, err := ev.CalculateID()
	if err != nil {
		t.Fatalf("CalculateID failed: %v", err)
	}
	id2, err := ev.CalculateID()
	if err != nil {
		t.Fatalf("CalculateID failed: %v", err)
	}
	if id1 != id2 {
		t.Errorf("id not deterministic: %s != %s", id1, id2)
	}
	if len(id1) != 64 {
		t.Errorf("id length = %d, want 64", len(id1))
	}
}

func TestCalculateID_FieldSensitivity(t *testing.T) {
	base := func() *Event {
		ev := New("aabb", KindCardDefinition, "content", [][]string{{"d", "card:X"}})
		ev.CreatedAt = 1705320000
		return ev
	}
	baseID, err := base().CalculateID()
	if err != nil {
		t.Fatalf("CalculateID failed: %v", err)
	}

	mutations := map[string]func(*Event){
		"pubkey":     func(e *Event) { e.PubKey = "ccdd" },
		"created_at": func(e *Event) { e.CreatedAt++ },
		"kind":       func(e *Event) { e.Kind = KindTradeOffer },
		"tags":       func(e *Event) { e.Tags = [][]string{{"d", "card:Y"}} },
		"content":    func(e *Event) { e.Content = "other" },
	}
	for name, mutate := range mutations {
		ev := base()
		mutate(ev)
		id, err := ev.CalculateID()
		if err != nil {
			t.Fatalf("%s: CalculateID failed: %v", name, err)
		}
		if id == baseID {
			t.Errorf("changing %s did not change the id", name)
		}
	}
}

func TestSignVerify_RoundTrip(t *testing.T) {
	ev := signedTestEvent(t)

	if ev.ID == "" {
		t.Fatal("Sign did not set id")
	}
	if ev.Sig == "" {
		t.Fatal("Sign did not set sig")
	}
	if len(ev.PubKey) != 64 {
		t.Fatalf("PubKey length = %d, want 64", len(ev.PubKey))
	}

	valid, err := ev.Verify()
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if !valid {
		t.Error("Verify = false for untampered event")
	}
}

func TestVerify_Tampered(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Event)
	}{
		{"content", func(e *Event) { e.Content = e.Content + "x" }},
		{"tags", func(e *Event) { e.Tags = append(e.Tags, []string{"extra", "tag"}) }},
		{"created_at", func(e *Event) { e.CreatedAt++ }},
		{"kind", func(e *Event) { e.Kind++ }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := signedTestEvent(t)
			tt.mutate(ev)
			valid, err := ev.Verify()
			if err != nil {
				t.Fatalf("Verify failed: %v", err)
			}
			if valid {
				t.Errorf("Verify = true after tampering with %s", tt.name)
			}
		})
	}
}

func TestVerify_WrongSigner(t *testing.T) {
	ev := signedTestEvent(t)

	// Re-sign with a different key but keep the original pubkey.
	pubkey := ev.PubKey
	if err := ev.Sign(otherSecKey); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	ev.PubKey = pubkey
	valid, err := ev.Verify()
	if err == nil && valid {
		t.Error("Verify = true for signature from a different key")
	}
}

func TestVerify_MissingFields(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Event)
		wantErr error
	}{
		{"no id", func(e *Event) { e.ID = "" }, ErrMissingID},
		{"no sig", func(e *Event) { e.Sig = "" }, ErrMissingSig},
		{"no pubkey", func(e *Event) { e.PubKey = "" }, ErrMissingPubKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := signedTestEvent(t)
			tt.mutate(ev)
			_, err := ev.Verify()
			if err != tt.wantErr {
				t.Errorf("Verify error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestSign_BadKey(t *testing.T) {
	ev := New("", KindCardDefinition, "", nil)
	if err := ev.Sign("not-hex"); err != ErrBadPrivateKey {
		t.Errorf("Sign error = %v, want %v", err, ErrBadPrivateKey)
	}
	if err := ev.Sign("abcd"); err != ErrBadPrivateKey {
		t.Errorf("Sign error = %v, want %v", err, ErrBadPrivateKey)
	}
}

func TestTagAccessors(t *testing.T) {
	ev := New("pk", KindTradeOffer, "", [][]string{
		{"card", "BTC001"},
		{"e", "id1", "cancel"},
		{"card", "ETH002"},
		{"empty"},
	})

	if v, ok := ev.TagValue("card"); !ok || v != "BTC001" {
		t.Errorf("TagValue(card) = %q, %v, want BTC001, true", v, ok)
	}
	if _, ok := ev.TagValue("missing"); ok {
		t.Error("TagValue(missing) = ok, want absent")
	}
	if _, ok := ev.TagValue("empty"); ok {
		t.Error("TagValue(empty) = ok for tag without value")
	}

	values := ev.TagValues("card")
	if len(values) != 2 || values[0] != "BTC001" || values[1] != "ETH002" {
		t.Errorf("TagValues(card) = %v, want [BTC001 ETH002]", values)
	}

	tag := ev.Tag("e")
	if len(tag) != 3 || tag[2] != "cancel" {
		t.Errorf("Tag(e) = %v, want [e id1 cancel]", tag)
	}
}

func TestSerialize_NilTags(t *testing.T) {
	ev := &Event{PubKey: "ab", Kind: KindCardDefinition, Content: "x"}
	ser, err := ev.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if strings.Contains(string(ser), "null") {
		t.Errorf("nil tags serialized as null: %s", ser)
	}
}

func TestSerialize_NoHTMLEscaping(t *testing.T) {
	ev := New("ab", KindCardDefinition, `<&>`, nil)
	ev.CreatedAt = 1705320000
	ser, err := ev.Serialize()
	if err != nil {
		t.Fatalf("Serialize failed: %v", err)
	}
	if !strings.Contains(string(ser), `<&>`) {
		t.Errorf("content was HTML-escaped: %s", ser)
	}
}
