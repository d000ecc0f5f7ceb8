package gesture

import (
	"encoding/json"
	"strings"
)

// Gesture is a recognized hand shape. GestureNone means no match and is
// encoded as JSON null.
type Gesture string

const (
	GestureNone     Gesture = ""
	Fist            Gesture = "fist"
	OpenHand        Gesture = "open_hand"
	ThumbsUp        Gesture = "thumbs_up"
	ThumbsDown      Gesture = "thumbs_down"
	Peace           Gesture = "peace"
	Two             Gesture = "two"
	Pointing        Gesture = "pointing"
	OK              Gesture = "ok"
	Rock            Gesture = "rock"
	Three           Gesture = "three"
	Four            Gesture = "four"
	Gun             Gesture = "gun"
	CallMe          Gesture = "call_me"
	Loser           Gesture = "loser"
	PinkyUp         Gesture = "pinky_up"
	ThumbIndexPinky Gesture = "thumb_index_pinky"
	MiddleFinger    Gesture = "middle_finger"
)

// Gestures lists every recognizable gesture.
var Gestures = []Gesture{
	Fist, OpenHand, ThumbsUp, ThumbsDown, Peace, Two, Pointing, OK, Rock,
	Three, Four, Gun, CallMe, Loser, PinkyUp, ThumbIndexPinky, MiddleFinger,
}

var displayNames = map[Gesture]string{
	Fist:            "Fist",
	OpenHand:        "Open Hand",
	ThumbsUp:        "Thumbs Up",
	ThumbsDown:      "Thumbs Down",
	Peace:           "Peace",
	Two:             "Two",
	Pointing:        "Pointing",
	OK:              "OK",
	Rock:            "Rock",
	Three:           "Three",
	Four:            "Four",
	Gun:             "Gun",
	CallMe:          "Call Me",
	Loser:           "Loser",
	PinkyUp:         "Pinky Up",
	ThumbIndexPinky: "Rock On",
	MiddleFinger:    "Middle Finger",
}

// DisplayName returns a human readable label, empty for GestureNone.
func (g Gesture) DisplayName() string {
	if name, ok := displayNames[g]; ok {
		return name
	}
	if g == GestureNone {
		return ""
	}
	return strings.ReplaceAll(string(g), "_", " ")
}

// MarshalJSON implements json.Marshaler.
func (g Gesture) MarshalJSON() ([]byte, error) {
	if g == GestureNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(g))
}

// UnmarshalJSON implements json.Unmarshaler.
func (g *Gesture) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*g = GestureNone
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*g = Gesture(s)
	return nil
}

// Pattern packs the five extension flags, thumb in bit 0 through pinky in bit 4.
type Pattern uint8

// PatternOf builds the pattern for flags in thumb..pinky order.
func PatternOf(extended [NumFingers]bool) Pattern {
	var p Pattern
	for i, e := range extended {
		if e {
			p |= 1 << i
		}
	}
	return p
}

// Has reports whether f is extended in p.
func (p Pattern) Has(f Finger) bool {
	return p&(1<<f) != 0
}

// String renders the flags thumb first, e.g. "01100" for index and middle.
func (p Pattern) String() string {
	var b strings.Builder
	for f := range NumFingers {
		if p.Has(Finger(f)) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// entry resolves one pattern. resolve is set only for ambiguous patterns.
type entry struct {
	gesture Gesture
	resolve func(f features, p Params) Gesture
}

const (
	tIdx = 1 << Thumb
	iIdx = 1 << Index
	mIdx = 1 << Middle
	rIdx = 1 << Ring
	pIdx = 1 << Pinky
)

var table = func() [32]entry {
	var t [32]entry
	t[0] = entry{gesture: Fist}
	t[tIdx|iIdx|mIdx|rIdx|pIdx] = entry{gesture: OpenHand}
	t[tIdx] = entry{resolve: thumbDirection}
	t[iIdx] = entry{gesture: Pointing}
	t[mIdx] = entry{gesture: MiddleFinger}
	t[pIdx] = entry{gesture: PinkyUp}
	t[iIdx|mIdx] = entry{resolve: peaceOrTwo}
	t[tIdx|iIdx] = entry{resolve: lShapeOrGun}
	t[tIdx|pIdx] = entry{gesture: CallMe}
	t[iIdx|mIdx|rIdx] = entry{gesture: Three}
	t[iIdx|pIdx] = entry{gesture: Rock}
	t[tIdx|iIdx|pIdx] = entry{gesture: ThumbIndexPinky}
	t[iIdx|mIdx|rIdx|pIdx] = entry{gesture: Four}
	t[mIdx|rIdx|pIdx] = entry{resolve: okOrNone}
	t[tIdx|mIdx|rIdx|pIdx] = entry{resolve: okOrNone}
	return t
}()

// lookup resolves a pattern in constant time.
func lookup(p Pattern, f features, params Params) Gesture {
	e := table[p&31]
	if e.resolve != nil {
		return e.resolve(f, params)
	}
	return e.gesture
}

// Ambiguous reports whether p needs geometry beyond the flags to resolve.
func Ambiguous(p Pattern) bool {
	return table[p&31].resolve != nil
}

func thumbDirection(f features, _ Params) Gesture {
	if f.thumbRise < -thumbRiseRatio {
		return ThumbsDown
	}
	return ThumbsUp
}

func peaceOrTwo(f features, p Params) Gesture {
	if f.spread.IndexMiddle > p.SpreadThreshold {
		return Peace
	}
	return Two
}

func lShapeOrGun(f features, _ Params) Gesture {
	if f.spread.ThumbIndex > lShapeMinAngle && f.spread.ThumbIndex < lShapeMaxAngle {
		return Loser
	}
	return Gun
}

func okOrNone(f features, p Params) Gesture {
	if f.pinch < p.OKDistance {
		return OK
	}
	return GestureNone
}
