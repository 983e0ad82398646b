package indexer

import (
	"fmt"
	"sync"
	"testing"

	"github.com/cardbazaar/ledger/internal/event"
)

func queueEvent(id string) *event.Event {
	return &event.Event{ID: id, Kind: event.KindTradeOffer}
}

func TestEventQueue_FIFO(t *testing.T) {
	q := newEventQueue(8)

	for i := 0; i < 5; i++ {
		if !q.send(queueEvent(fmt.Sprintf("ev%d", i))) {
			t.Fatalf("send %d failed", i)
		}
	}
	for i := 0; i < 5; i++ {
		ev, ok := q.receive()
		if !ok {
			t.Fatalf("receive %d: queue closed early", i)
		}
		if want := fmt.Sprintf("ev%d", i); ev.ID != want {
			t.Errorf("receive %d = %s, want %s", i, ev.ID, want)
		}
	}
}

func TestEventQueue_GrowsUnderLoad(t *testing.T) {
	q := newEventQueue(4)

	const n = 100
	for i := 0; i < n; i++ {
		if !q.send(queueEvent(fmt.Sprintf("ev%d", i))) {
			t.Fatalf("send %d failed", i)
		}
	}
	if q.len() != n {
		t.Fatalf("len = %d, want %d", q.len(), n)
	}
	for i := 0; i < n; i++ {
		ev, ok := q.receive()
		if !ok {
			t.Fatalf("receive %d: queue closed early", i)
		}
		if want := fmt.Sprintf("ev%d", i); ev.ID != want {
			t.Fatalf("order broken at %d: got %s", i, ev.ID)
		}
	}
}

func TestEventQueue_GrowPreservesWrappedOrder(t *testing.T) {
	q := newEventQueue(8)

	// Advance head so the ring wraps before growing.
	for i := 0; i < 4; i++ {
		q.send(queueEvent(fmt.Sprintf("pre%d", i)))
	}
	for i := 0; i < 4; i++ {
		q.receive()
	}
	for i := 0; i < 20; i++ {
		q.send(queueEvent(fmt.Sprintf("ev%d", i)))
	}

	for i := 0; i < 20; i++ {
		ev, ok := q.receive()
		if !ok {
			t.Fatalf("receive %d: queue closed early", i)
		}
		if want := fmt.Sprintf("ev%d", i); ev.ID != want {
			t.Fatalf("order broken at %d: got %s", i, ev.ID)
		}
	}
}

func TestEventQueue_CloseDrains(t *testing.T) {
	q := newEventQueue(8)
	q.send(queueEvent("ev0"))
	q.send(queueEvent("ev1"))
	q.close()

	if q.send(queueEvent("ev2")) {
		t.Error("send succeeded after close")
	}

	for i := 0; i < 2; i++ {
		if _, ok := q.receive(); !ok {
			t.Fatalf("receive %d failed before drain complete", i)
		}
	}
	if _, ok := q.receive(); ok {
		t.Error("receive = ok on drained closed queue")
	}
}

func TestEventQueue_CloseWakesBlockedReceiver(t *testing.T) {
	q := newEventQueue(8)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if _, ok := q.receive(); ok {
			t.Error("receive = ok on closed empty queue")
		}
	}()

	q.close()
	wg.Wait()
}
