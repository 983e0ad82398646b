package relay

import "time"

// signerWindow is one signer's sliding-window state.
type signerWindow struct {
	start time.Time
	count int
}

// slidingLimiter caps accepted events per signer per window. A new
// window starts (count reset to 1) once the current time passes
// start + window. Owned by the dispatch goroutine, so no locking.
type slidingLimiter struct {
	window  time.Duration
	cap     int
	signers map[string]*signerWindow
}

func newSlidingLimiter(window time.Duration, cap int) *slidingLimiter {
	return &slidingLimiter{
		window:  window,
		cap:     cap,
		signers: make(map[string]*signerWindow),
	}
}

// Allow reports whether the signer may have another event accepted now,
// and counts it when so. Rejected events do not count against the window.
func (l *slidingLimiter) Allow(pubkey string, now time.Time) bool {
	sw, ok := l.signers[pubkey]
	if !ok || now.Sub(sw.start) > l.window {
		l.signers[pubkey] = &signerWindow{start: now, count: 1}
		return true
	}
	if sw.count >= l.cap {
		return false
	}
	sw.count++
	return true
}
