package indexer

import (
	"sync"

	"github.com/cardbazaar/ledger/internal/event"
)

// eventQueue is a thread-safe ring buffer between the relay and the fold
// loop. It doubles its capacity when 70% full so a burst of submissions
// never blocks the relay actor.
type eventQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	buf      []*event.Event
	head     int
	tail     int
	count    int
	capacity int
	closed   bool
}

func newEventQueue(initialCapacity int) *eventQueue {
	if initialCapacity < 1 {
		initialCapacity = 1
	}
	q := &eventQueue{
		buf:      make([]*event.Event, initialCapacity),
		capacity: initialCapacity,
	}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// send enqueues an event, growing if needed. Returns false when closed.
func (q *eventQueue) send(ev *event.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	threshold := (q.capacity * 70) / 100
	if threshold < 1 {
		threshold = 1
	}
	if q.count+1 >= threshold {
		q.grow()
	}

	q.buf[q.tail] = ev
	q.tail = (q.tail + 1) % q.capacity
	q.count++
	q.cond.Signal()
	return true
}

// receive blocks until an event is available or the queue is closed and
// drained, in which case it returns nil, false.
func (q *eventQueue) receive() (*event.Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for q.count == 0 && !q.closed {
		q.cond.Wait()
	}
	if q.count == 0 {
		return nil, false
	}

	ev := q.buf[q.head]
	q.buf[q.head] = nil
	q.head = (q.head + 1) % q.capacity
	q.count--
	return ev, true
}

// close stops further sends; receivers drain what remains.
func (q *eventQueue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}

func (q *eventQueue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.count
}

// grow doubles capacity. Caller holds the lock.
func (q *eventQueue) grow() {
	newCapacity := q.capacity * 2
	newBuf := make([]*event.Event, newCapacity)
	if q.count > 0 {
		if q.head < q.tail {
			copy(newBuf, q.buf[q.head:q.tail])
		} else {
			n := copy(newBuf, q.buf[q.head:])
			copy(newBuf[n:], q.buf[:q.tail])
		}
	}
	q.buf = newBuf
	q.head = 0
	q.tail = q.count
	q.capacity = newCapacity
}
