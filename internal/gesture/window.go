package gesture

// Observation is one frame's unsmoothed classifier output.
type Observation struct {
	Extended [NumFingers]bool `json:"extended"`
	Gesture  Gesture          `json:"gesture"`
}

// Window smooths observations over the last N frames: each finger by strict
// majority, the gesture by plurality. Ties keep the previously emitted value.
// A Window is not safe for concurrent use.
type Window struct {
	size    int
	obs     []Observation
	emitted Observation
	primed  bool
}

// NewWindow returns a window holding up to size observations (minimum 1).
func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{size: size, obs: make([]Observation, 0, size)}
}

// Size returns the capacity.
func (w *Window) Size() int { return w.size }

// Len returns the number of observations held.
func (w *Window) Len() int { return len(w.obs) }

// Emitted returns the last smoothed observation.
func (w *Window) Emitted() (Observation, bool) { return w.emitted, w.primed }

// Observations returns a copy of the held observations, oldest first.
func (w *Window) Observations() []Observation {
	out := make([]Observation, len(w.obs))
	copy(out, w.obs)
	return out
}

// Push adds o, evicting the oldest observation when full, and returns the
// smoothed result.
func (w *Window) Push(o Observation) Observation {
	if len(w.obs) == w.size {
		copy(w.obs, w.obs[1:])
		w.obs[len(w.obs)-1] = o
	} else {
		w.obs = append(w.obs, o)
	}

	if !w.primed {
		w.emitted = o
		w.primed = true
		return o
	}

	var out Observation
	total := len(w.obs)
	for f := range NumFingers {
		n := 0
		for _, ob := range w.obs {
			if ob.Extended[f] {
				n++
			}
		}
		switch {
		case 2*n > total:
			out.Extended[f] = true
		case 2*n == total:
			out.Extended[f] = w.emitted.Extended[f]
		}
	}
	out.Gesture = w.plurality()

	w.emitted = out
	return out
}

// plurality returns the most frequent gesture label. A tie that includes the
// previously emitted label keeps it; any other tie goes to the most recent.
func (w *Window) plurality() Gesture {
	counts := make(map[Gesture]int, len(w.obs))
	best := 0
	for _, ob := range w.obs {
		counts[ob.Gesture]++
		if counts[ob.Gesture] > best {
			best = counts[ob.Gesture]
		}
	}
	if counts[w.emitted.Gesture] == best {
		return w.emitted.Gesture
	}
	for i := len(w.obs) - 1; i >= 0; i-- {
		if counts[w.obs[i].Gesture] == best {
			return w.obs[i].Gesture
		}
	}
	return GestureNone
}

// Resize changes the capacity, keeping the newest observations.
func (w *Window) Resize(size int) {
	if size < 1 {
		size = 1
	}
	if size == w.size {
		return
	}
	keep := w.obs
	if len(keep) > size {
		keep = keep[len(keep)-size:]
	}
	obs := make([]Observation, len(keep), size)
	copy(obs, keep)
	w.obs = obs
	w.size = size
}

// Reset drops all history.
func (w *Window) Reset() {
	w.obs = w.obs[:0]
	w.emitted = Observation{}
	w.primed = false
}
