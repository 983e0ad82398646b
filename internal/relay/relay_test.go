package relay

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cardbazaar/ledger/internal/event"
	"github.com/cardbazaar/ledger/internal/store"
)

const testSecKey = "0101010101010101010101010101010101010101010101010101010101010101"

// chanSink records submitted events for inspection.
type chanSink struct {
	events chan *event.Event
}

func newChanSink() *chanSink {
	return &chanSink{events: make(chan *event.Event, 16)}
}

func (s *chanSink) Submit(ev *event.Event) bool {
	select {
	case s.events <- ev:
	default:
	}
	return true
}

func newTestRelay(t *testing.T, cfg Config) (*store.Memory, *chanSink, string) {
	t.Helper()

	st := store.NewMemory()
	sink := newChanSink()
	srv := NewServer(cfg, st, sink, nil, nil)
	if err := srv.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Stop(ctx)
	})

	return st, sink, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, items ...any) {
	t.Helper()
	if err := conn.WriteJSON(items); err != nil {
		t.Fatalf("write frame: %v", err)
	}
}

func readFrame(t *testing.T, conn *websocket.Conn) []json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame []json.RawMessage
	if err := conn.ReadJSON(&frame); err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return frame
}

func frameVerb(t *testing.T, frame []json.RawMessage) string {
	t.Helper()
	if len(frame) == 0 {
		t.Fatal("empty frame")
	}
	var verb string
	if err := json.Unmarshal(frame[0], &verb); err != nil {
		t.Fatalf("parse verb: %v", err)
	}
	return verb
}

func signedOffer(t *testing.T, card string) *event.Event {
	t.Helper()
	ev, err := event.NewTradeOffer("", event.TradeOffer{
		Card:     card,
		Type:     event.OfferTypeSell,
		Price:    1000,
		Quantity: 1,
	})
	if err != nil {
		t.Fatalf("NewTradeOffer failed: %v", err)
	}
	if err := ev.Sign(testSecKey); err != nil {
		t.Fatalf("Sign failed: %v", err)
	}
	return ev
}

func readOK(t *testing.T, conn *websocket.Conn) (string, bool, string) {
	t.Helper()
	frame := readFrame(t, conn)
	if verb := frameVerb(t, frame); verb != VerbOK {
		t.Fatalf("verb = %s, want OK (frame %s)", verb, frame)
	}
	if len(frame) < 4 {
		t.Fatalf("OK frame has %d elements, want 4", len(frame))
	}
	var id, reason string
	var accepted bool
	json.Unmarshal(frame[1], &id)
	json.Unmarshal(frame[2], &accepted)
	json.Unmarshal(frame[3], &reason)
	return id, accepted, reason
}

func TestRelay_AcceptsSignedEvent(t *testing.T) {
	st, sink, url := newTestRelay(t, DefaultConfig())
	conn := dial(t, url)

	ev := signedOffer(t, "BTC001")
	writeFrame(t, conn, VerbEvent, ev)

	id, accepted, reason := readOK(t, conn)
	if id != ev.ID {
		t.Errorf("OK id = %s, want %s", id, ev.ID)
	}
	if !accepted {
		t.Fatalf("event rejected: %s", reason)
	}

	if st.Len() != 1 {
		t.Errorf("store has %d events, want 1", st.Len())
	}
	select {
	case got := <-sink.events:
		if got.ID != ev.ID {
			t.Errorf("sink received %s, want %s", got.ID, ev.ID)
		}
	case <-time.After(time.Second):
		t.Error("sink never received the event")
	}
}

func TestRelay_RejectsBadEvents(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*event.Event)
		wantPrefix string
	}{
		{
			"missing sig",
			func(ev *event.Event) { ev.Sig = "" },
			"invalid: missing required fields",
		},
		{
			"kind out of range",
			func(ev *event.Event) { ev.Kind = 1 },
			"invalid: kind not accepted",
		},
		{
			"schema violation",
			func(ev *event.Event) { ev.Tags = [][]string{{"type", "sell"}} },
			"invalid event:",
		},
		{
			"tampered content",
			func(ev *event.Event) { ev.Content = ev.Content + "x" },
			"invalid:",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, url := newTestRelay(t, DefaultConfig())
			conn := dial(t, url)

			ev := signedOffer(t, "BTC001")
			tt.mutate(ev)
			writeFrame(t, conn, VerbEvent, ev)

			_, accepted, reason := readOK(t, conn)
			if accepted {
				t.Fatal("bad event accepted")
			}
			if !strings.HasPrefix(reason, tt.wantPrefix) {
				t.Errorf("reason = %q, want prefix %q", reason, tt.wantPrefix)
			}
		})
	}
}

func TestRelay_RateLimit(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateCap = 1
	_, _, url := newTestRelay(t, cfg)
	conn := dial(t, url)

	writeFrame(t, conn, VerbEvent, signedOffer(t, "BTC001"))
	if _, accepted, reason := readOK(t, conn); !accepted {
		t.Fatalf("first event rejected: %s", reason)
	}

	writeFrame(t, conn, VerbEvent, signedOffer(t, "ETH002"))
	_, accepted, reason := readOK(t, conn)
	if accepted {
		t.Fatal("second event accepted over rate cap")
	}
	if !strings.HasPrefix(reason, "rate-limited:") {
		t.Errorf("reason = %q, want rate-limited prefix", reason)
	}
}

func TestRelay_ReqReplaysStoredThenEOSE(t *testing.T) {
	st, _, url := newTestRelay(t, DefaultConfig())

	ctx := context.Background()
	for _, card := range []string{"A", "B", "C"} {
		ev := event.New("pk", event.KindTradeOffer, "", [][]string{{"card", card}})
		ev.ID = "offer-" + card
		st.Save(ctx, ev)
	}
	def := event.New("pk", event.KindCardDefinition, "", [][]string{{"d", "card:A"}})
	def.ID = "def-A"
	st.Save(ctx, def)

	conn := dial(t, url)
	writeFrame(t, conn, VerbReq, "sub1", event.Filter{Kinds: []int{event.KindTradeOffer}})

	var got []string
	for i := 0; i < 3; i++ {
		frame := readFrame(t, conn)
		if verb := frameVerb(t, frame); verb != VerbEvent {
			t.Fatalf("frame %d verb = %s, want EVENT", i, verb)
		}
		var subID string
		json.Unmarshal(frame[1], &subID)
		if subID != "sub1" {
			t.Errorf("frame %d sub = %s, want sub1", i, subID)
		}
		var ev event.Event
		if err := json.Unmarshal(frame[2], &ev); err != nil {
			t.Fatalf("frame %d event: %v", i, err)
		}
		card, _ := ev.TagValue("card")
		got = append(got, card)
	}
	for i, want := range []string{"A", "B", "C"} {
		if got[i] != want {
			t.Errorf("replay order = %v, want [A B C]", got)
			break
		}
	}

	frame := readFrame(t, conn)
	if verb := frameVerb(t, frame); verb != VerbEOSE {
		t.Errorf("verb after replay = %s, want EOSE", verb)
	}
}

func TestRelay_BroadcastToLiveSubscription(t *testing.T) {
	_, _, url := newTestRelay(t, DefaultConfig())

	sub := dial(t, url)
	writeFrame(t, sub, VerbReq, "live", event.Filter{Kinds: []int{event.KindTradeOffer}})
	if verb := frameVerb(t, readFrame(t, sub)); verb != VerbEOSE {
		t.Fatalf("expected EOSE for empty store, got %s", verb)
	}

	pub := dial(t, url)
	ev := signedOffer(t, "BTC001")
	writeFrame(t, pub, VerbEvent, ev)
	if _, accepted, reason := readOK(t, pub); !accepted {
		t.Fatalf("event rejected: %s", reason)
	}

	frame := readFrame(t, sub)
	if verb := frameVerb(t, frame); verb != VerbEvent {
		t.Fatalf("subscriber got %s, want EVENT", verb)
	}
	var received event.Event
	if err := json.Unmarshal(frame[2], &received); err != nil {
		t.Fatalf("decode broadcast event: %v", err)
	}
	if received.ID != ev.ID {
		t.Errorf("broadcast id = %s, want %s", received.ID, ev.ID)
	}
}

func TestRelay_NoBroadcastAfterClose(t *testing.T) {
	_, _, url := newTestRelay(t, DefaultConfig())

	sub := dial(t, url)
	writeFrame(t, sub, VerbReq, "live", event.Filter{Kinds: []int{event.KindTradeOffer}})
	if verb := frameVerb(t, readFrame(t, sub)); verb != VerbEOSE {
		t.Fatalf("expected EOSE, got %s", verb)
	}

	writeFrame(t, sub, VerbClose, "live")
	if verb := frameVerb(t, readFrame(t, sub)); verb != VerbClosed {
		t.Fatalf("expected CLOSED, got %s", verb)
	}

	pub := dial(t, url)
	writeFrame(t, pub, VerbEvent, signedOffer(t, "BTC001"))
	if _, accepted, reason := readOK(t, pub); !accepted {
		t.Fatalf("event rejected: %s", reason)
	}

	sub.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var frame []json.RawMessage
	if err := sub.ReadJSON(&frame); err == nil {
		t.Errorf("received %s after CLOSE", frame)
	}
}

func TestRelay_Count(t *testing.T) {
	st, _, url := newTestRelay(t, DefaultConfig())

	ctx := context.Background()
	for i, ev := range []*event.Event{
		event.New("pk", event.KindTradeOffer, "", [][]string{{"card", "A"}}),
		event.New("pk", event.KindTradeOffer, "", [][]string{{"card", "B"}}),
		event.New("pk", event.KindCardDefinition, "", [][]string{{"d", "card:A"}}),
	} {
		ev.ID = "ev" + string(rune('a'+i))
		st.Save(ctx, ev)
	}

	conn := dial(t, url)
	writeFrame(t, conn, VerbCount, "c1", event.Filter{Kinds: []int{event.KindTradeOffer}})

	frame := readFrame(t, conn)
	if verb := frameVerb(t, frame); verb != VerbCount {
		t.Fatalf("verb = %s, want COUNT", verb)
	}
	var payload struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(frame[2], &payload); err != nil {
		t.Fatalf("decode count payload: %v", err)
	}
	if payload.Count != 2 {
		t.Errorf("count = %d, want 2", payload.Count)
	}
}

func TestRelay_NoticeOnUnknownVerb(t *testing.T) {
	_, _, url := newTestRelay(t, DefaultConfig())
	conn := dial(t, url)

	writeFrame(t, conn, "AUTH", "whatever")

	frame := readFrame(t, conn)
	if verb := frameVerb(t, frame); verb != VerbNotice {
		t.Fatalf("verb = %s, want NOTICE", verb)
	}
	var msg string
	json.Unmarshal(frame[1], &msg)
	if !strings.Contains(msg, "AUTH") {
		t.Errorf("notice = %q, want it to name the verb", msg)
	}
}

func TestRelay_NoticeOnMalformedFrame(t *testing.T) {
	_, _, url := newTestRelay(t, DefaultConfig())
	conn := dial(t, url)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}

	frame := readFrame(t, conn)
	if verb := frameVerb(t, frame); verb != VerbNotice {
		t.Errorf("verb = %s, want NOTICE", verb)
	}
}
