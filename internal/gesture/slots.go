package gesture

import (
	"math"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/geom"
)

// Slot matching distances in normalized image units.
const (
	slotMatchDistance = 0.15
	slotCrossFactor   = 0.7
)

// Assignment pairs a hand with its persistent slot. Hand carries the slot's
// smoothed landmarks.
type Assignment struct {
	Slot   int
	Window *Window
	Hand   detector.HandLandmarks
}

type slot struct {
	id         int
	handedness detector.Handedness
	centroid   detector.Point3D
	points     []detector.Point3D
	missed     int
	window     *Window
}

// Slots keeps hands apart across frames so each has its own smoothing window
// and landmark filter. A slot unseen for more than persistence consecutive
// frames is dropped. Slots is owned by a single goroutine.
type Slots struct {
	windowSize  int
	persistence int
	smoothing   float64
	next        int
	slots       []*slot
}

// NewSlots returns an empty tracker with landmark smoothing off.
func NewSlots(windowSize, persistence int) *Slots {
	return &Slots{windowSize: windowSize, persistence: persistence}
}

// Len returns the number of live slots.
func (s *Slots) Len() int { return len(s.slots) }

// SetPersistence changes how many missed frames a slot survives.
func (s *Slots) SetPersistence(n int) { s.persistence = n }

// SetSmoothing sets the weight given to a slot's previous landmarks. Each
// point becomes alpha*old + (1-alpha)*new. Zero passes landmarks through.
func (s *Slots) SetSmoothing(alpha float64) {
	s.smoothing = min(max(alpha, 0), 1)
}

// Resize changes the window size of every slot, keeping newest history.
func (s *Slots) Resize(windowSize int) {
	s.windowSize = windowSize
	for _, sl := range s.slots {
		sl.window.Resize(windowSize)
	}
}

// Plan is a pending assignment. Nothing in Slots changes until Commit, so a
// caller can abandon a frame that fails later. A Plan is only valid until
// the next Plan or Assign on the same Slots.
type Plan struct {
	s         *Slots
	picks     []*slot
	centroids []detector.Point3D

	// Hands is parallel to the planned hands, with landmarks smoothed
	// against each matched slot.
	Hands []detector.HandLandmarks
}

// Plan matches hands to slots without changing any slot.
func (s *Slots) Plan(hands []detector.HandLandmarks) *Plan {
	p := &Plan{
		s:         s,
		picks:     make([]*slot, len(hands)),
		centroids: make([]detector.Point3D, len(hands)),
		Hands:     make([]detector.HandLandmarks, len(hands)),
	}
	claimed := make(map[*slot]bool, len(hands))
	for i, h := range hands {
		c := h.Centroid()
		sl := s.match(h.Handedness, c, claimed)
		if sl != nil {
			claimed[sl] = true
		}
		p.picks[i] = sl
		p.centroids[i] = c
		p.Hands[i] = s.blend(sl, h)
	}
	return p
}

// Commit applies the plan: matched slots move, unmatched hands get new
// slots, and unclaimed slots age. The result is parallel to Hands.
func (p *Plan) Commit() []Assignment {
	s := p.s
	out := make([]Assignment, len(p.Hands))
	claimed := make(map[*slot]bool, len(p.Hands))

	for i, h := range p.Hands {
		sl := p.picks[i]
		if sl == nil {
			sl = &slot{id: s.next, window: NewWindow(s.windowSize)}
			s.next++
			s.slots = append(s.slots, sl)
		}
		claimed[sl] = true
		sl.centroid = p.centroids[i]
		sl.handedness = h.Handedness
		sl.points = h.Points
		out[i] = Assignment{Slot: sl.id, Window: sl.window, Hand: h}
	}

	live := s.slots[:0]
	for _, sl := range s.slots {
		if !claimed[sl] {
			sl.missed++
			if sl.missed > s.persistence {
				continue
			}
		} else {
			sl.missed = 0
		}
		live = append(live, sl)
	}
	for i := len(live); i < len(s.slots); i++ {
		s.slots[i] = nil
	}
	s.slots = live
	return out
}

// Assign matches hands to slots and commits at once. It must be called once
// per processed frame, including frames with no hands, so that missed counts
// advance.
func (s *Slots) Assign(hands []detector.HandLandmarks) []Assignment {
	return s.Plan(hands).Commit()
}

// blend returns h with its points pulled toward sl's previous points. A new
// slot, or one whose point count differs, starts from the raw landmarks.
func (s *Slots) blend(sl *slot, h detector.HandLandmarks) detector.HandLandmarks {
	points := make([]detector.Point3D, len(h.Points))
	copy(points, h.Points)
	h.Points = points
	if sl == nil || s.smoothing == 0 || len(sl.points) != len(points) {
		return h
	}
	a := s.smoothing
	for i, p := range points {
		old := sl.points[i]
		points[i] = detector.Point3D{
			X: a*old.X + (1-a)*p.X,
			Y: a*old.Y + (1-a)*p.Y,
			Z: a*old.Z + (1-a)*p.Z,
		}
	}
	return h
}

// match prefers the nearest unclaimed slot of the same handedness, then any
// unclaimed slot within a tighter radius.
func (s *Slots) match(handedness detector.Handedness, c detector.Point3D, claimed map[*slot]bool) *slot {
	var same, near *slot
	sameDist, nearDist := math.Inf(1), math.Inf(1)
	for _, sl := range s.slots {
		if claimed[sl] {
			continue
		}
		d := geom.Distance(sl.centroid.Flat(), c.Flat())
		if sl.handedness == handedness && d < sameDist {
			same, sameDist = sl, d
		}
		if d < nearDist {
			near, nearDist = sl, d
		}
	}
	if same != nil && sameDist <= slotMatchDistance {
		return same
	}
	if near != nil && nearDist <= slotMatchDistance*slotCrossFactor {
		return near
	}
	return nil
}
