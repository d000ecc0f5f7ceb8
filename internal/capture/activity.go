package capture

import (
	"sync"
	"time"
)

// ActivityGate switches capture between an idle and an active frame rate.
// Motion makes the gate active immediately; it falls back to idle once no
// motion has been seen for the configured quiet period.
type ActivityGate struct {
	mu         sync.Mutex
	activeFPS  int
	idleFPS    int
	idleAfter  time.Duration
	active     bool
	lastMotion time.Time
	now        func() time.Time
}

// NewActivityGate starts idle.
func NewActivityGate(activeFPS, idleFPS int, idleAfter time.Duration) *ActivityGate {
	if activeFPS <= 0 {
		activeFPS = DefaultFPS
	}
	if idleFPS <= 0 || idleFPS > activeFPS {
		idleFPS = activeFPS
	}
	return &ActivityGate{
		activeFPS: activeFPS,
		idleFPS:   idleFPS,
		idleAfter: idleAfter,
		now:       time.Now,
	}
}

// Observe records one motion sample and reports the resulting mode and
// whether it changed.
func (g *ActivityGate) Observe(motion bool) (active, changed bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	was := g.active
	if motion {
		g.lastMotion = now
		g.active = true
	} else if g.active && now.Sub(g.lastMotion) > g.idleAfter {
		g.active = false
	}
	return g.active, g.active != was
}

// Active reports whether the gate is in active mode.
func (g *ActivityGate) Active() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.active
}

// FPS is the frame rate for the current mode.
func (g *ActivityGate) FPS() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.active {
		return g.activeFPS
	}
	return g.idleFPS
}

// Interval is the tick period for the current mode.
func (g *ActivityGate) Interval() time.Duration {
	return time.Second / time.Duration(g.FPS())
}
