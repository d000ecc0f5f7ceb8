// Package gesture turns hand landmarks into finger states, a finger count and
// a named gesture, with per-hand temporal smoothing.
package gesture

import "fmt"

// Finger identifies a digit, thumb first.
type Finger int

const (
	Thumb Finger = iota
	Index
	Middle
	Ring
	Pinky
)

// NumFingers is the number of digits on a hand.
const NumFingers = 5

var fingerNames = [NumFingers]string{"thumb", "index", "middle", "ring", "pinky"}

// Fingers lists every digit in order.
var Fingers = [NumFingers]Finger{Thumb, Index, Middle, Ring, Pinky}

func (f Finger) String() string {
	if f < 0 || int(f) >= NumFingers {
		return fmt.Sprintf("finger(%d)", int(f))
	}
	return fingerNames[f]
}

// MarshalText encodes the finger by name.
func (f Finger) MarshalText() ([]byte, error) {
	if f < 0 || int(f) >= NumFingers {
		return nil, fmt.Errorf("invalid finger %d", int(f))
	}
	return []byte(fingerNames[f]), nil
}

// UnmarshalText decodes a finger name.
func (f *Finger) UnmarshalText(b []byte) error {
	for i, name := range fingerNames {
		if name == string(b) {
			*f = Finger(i)
			return nil
		}
	}
	return fmt.Errorf("unknown finger %q", b)
}

// FingerConfidence is the raw vote for one finger on one frame.
// Extended is always Satisfied >= the vote threshold in effect.
type FingerConfidence struct {
	Satisfied int  `json:"satisfied"`
	Extended  bool `json:"extended"`
}

// Vote counts satisfied criteria.
func Vote(criteria [5]bool, threshold int) FingerConfidence {
	n := 0
	for _, ok := range criteria {
		if ok {
			n++
		}
	}
	return FingerConfidence{Satisfied: n, Extended: n >= threshold}
}

// FingerState is the emitted state of one finger. CurlAngle is the interior
// joint angle in degrees: 180 is straight, small values are folded.
type FingerState struct {
	Finger     Finger           `json:"finger"`
	CurlAngle  float64          `json:"curl_angle"`
	Extended   bool             `json:"extended"`
	Confidence FingerConfidence `json:"confidence"`
}

// SpreadAngles holds the angles in degrees between the MCP-to-tip
// directions of adjacent digits.
type SpreadAngles struct {
	ThumbIndex  float64 `json:"thumb_index"`
	IndexMiddle float64 `json:"index_middle"`
	MiddleRing  float64 `json:"middle_ring"`
	RingPinky   float64 `json:"ring_pinky"`
}

// Between returns the spread between f and the next digit. Pinky has no
// neighbour and yields 0.
func (s SpreadAngles) Between(f Finger) float64 {
	switch f {
	case Thumb:
		return s.ThumbIndex
	case Index:
		return s.IndexMiddle
	case Middle:
		return s.MiddleRing
	case Ring:
		return s.RingPinky
	}
	return 0
}
