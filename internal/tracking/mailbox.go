package tracking

import (
	"sync"

	"github.com/ayusman/mudra/internal/capture"
)

// mailbox holds at most one pending frame. A newer frame replaces the
// pending one, which is closed by put.
type mailbox struct {
	mu      sync.Mutex
	pending *capture.Frame
	closed  bool
	wake    chan struct{}
}

func newMailbox() *mailbox {
	return &mailbox{wake: make(chan struct{}, 1)}
}

// put stores f and wakes the worker. It reports whether a pending frame was
// superseded. On a closed mailbox f is left to the caller.
func (m *mailbox) put(f capture.Frame) (superseded bool, ok bool) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return false, false
	}
	old := m.pending
	m.pending = &f
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
	select {
	case m.wake <- struct{}{}:
	default:
	}
	return old != nil, true
}

// take removes the pending frame.
func (m *mailbox) take() (capture.Frame, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pending == nil {
		return capture.Frame{}, false
	}
	f := *m.pending
	m.pending = nil
	return f, true
}

// close rejects further frames and releases the pending one.
func (m *mailbox) close() {
	m.mu.Lock()
	m.closed = true
	old := m.pending
	m.pending = nil
	m.mu.Unlock()

	if old != nil {
		old.Close()
	}
}
