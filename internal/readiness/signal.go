package readiness

import (
	"sync"
	"time"
)

// Signal is a write-once readiness flag carrying the resolved address.
// Once set it is never cleared or overwritten.
type Signal struct {
	once    sync.Once
	done    chan struct{}
	address string
	at      time.Time
}

// NewSignal creates an unset signal.
func NewSignal() *Signal {
	return &Signal{done: make(chan struct{})}
}

// Set marks the signal ready with the given address.
// Only the first call has an effect; it reports whether this call set the signal.
func (s *Signal) Set(address string) bool {
	set := false
	s.once.Do(func() {
		s.address = address
		s.at = time.Now()
		close(s.done)
		set = true
	})
	return set
}

// Done returns a channel that is closed once the signal is set.
func (s *Signal) Done() <-chan struct{} {
	return s.done
}

// Ready reports whether the signal has been set.
func (s *Signal) Ready() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// Address returns the captured address, or false if the signal is not set yet.
func (s *Signal) Address() (string, bool) {
	if !s.Ready() {
		return "", false
	}
	return s.address, true
}

// SetAt returns when the signal was set. Zero if not set.
func (s *Signal) SetAt() time.Time {
	if !s.Ready() {
		return time.Time{}
	}
	return s.at
}
