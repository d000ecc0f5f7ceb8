package gesture

import (
	"fmt"

	"github.com/ayusman/mudra/internal/detector"
)

// Params are the classifier tunables.
type Params struct {
	// FingerCurlThreshold is the minimum PIP joint angle in degrees for the
	// curl criterion of index..pinky.
	FingerCurlThreshold float64
	// ThumbCurlThreshold is the minimum MCP joint angle for the thumb.
	ThumbCurlThreshold float64
	// SpreadThreshold separates peace from two, in degrees.
	SpreadThreshold float64
	// VoteThreshold is how many of the five criteria must hold.
	VoteThreshold int
	// OKDistance is the maximum thumb-to-index tip distance for ok, in palm lengths.
	OKDistance float64
}

// DefaultParams returns the stock thresholds.
func DefaultParams() Params {
	return Params{
		FingerCurlThreshold: 120,
		ThumbCurlThreshold:  145,
		SpreadThreshold:     20,
		VoteThreshold:       3,
		OKDistance:          0.35,
	}
}

// HandAnalysis is the classifier output for one hand on one frame.
// FingerCount always equals the number of extended Fingers.
type HandAnalysis struct {
	Slot        int                     `json:"slot"`
	Handedness  detector.Handedness     `json:"handedness"`
	Score       float64                 `json:"score"`
	Fingers     [NumFingers]FingerState `json:"fingers"`
	Spread      SpreadAngles            `json:"spread"`
	Gesture     Gesture                 `json:"gesture"`
	FingerCount int                     `json:"finger_count"`
	Raw         Observation             `json:"raw"`
	WindowLen   int                     `json:"window_len"`
}

// Extended returns the emitted extension flags.
func (a HandAnalysis) Extended() [NumFingers]bool {
	var out [NumFingers]bool
	for i, f := range a.Fingers {
		out[i] = f.Extended
	}
	return out
}

// Classifier evaluates landmarks against Params. It holds no per-hand state;
// history lives in the Window passed to Classify.
type Classifier struct {
	params Params
}

// NewClassifier returns a classifier using p.
func NewClassifier(p Params) *Classifier {
	return &Classifier{params: p}
}

// Params returns the thresholds in use.
func (c *Classifier) Params() Params { return c.params }

// Analyze classifies lm on its own, without smoothing.
func (c *Classifier) Analyze(lm detector.HandLandmarks) (HandAnalysis, error) {
	return c.Classify(lm, nil)
}

// Classify evaluates lm and pushes the raw result into window. A nil window
// emits the raw result. Malformed landmarks return an error wrapping
// detector.ErrLandmarkCount and leave window untouched.
func (c *Classifier) Classify(lm detector.HandLandmarks, window *Window) (HandAnalysis, error) {
	if err := lm.Validate(); err != nil {
		return HandAnalysis{}, fmt.Errorf("classify: %w", err)
	}

	h := newHand(lm)
	a := HandAnalysis{
		Handedness: lm.Handedness,
		Score:      lm.Score,
		Spread:     h.spread(),
	}

	for _, f := range Fingers {
		var (
			curl float64
			crit [5]bool
		)
		if f == Thumb {
			curl, crit = h.thumbCriteria(c.params)
		} else {
			curl, crit = h.fingerCriteria(f, c.params)
		}
		conf := Vote(crit, c.params.VoteThreshold)
		a.Fingers[f] = FingerState{Finger: f, CurlAngle: curl, Confidence: conf}
		a.Raw.Extended[f] = conf.Extended
	}
	a.Raw.Gesture = lookup(PatternOf(a.Raw.Extended), h.features(a.Spread), c.params)

	return Settle(a, window), nil
}

// Settle pushes a.Raw into window and fills the emitted fields of a from the
// smoothed result. A nil window emits a.Raw unchanged.
func Settle(a HandAnalysis, window *Window) HandAnalysis {
	emitted := a.Raw
	if window != nil {
		emitted = window.Push(a.Raw)
		a.WindowLen = window.Len()
	}

	a.FingerCount = 0
	for f := range a.Fingers {
		a.Fingers[f].Extended = emitted.Extended[f]
		if emitted.Extended[f] {
			a.FingerCount++
		}
	}
	a.Gesture = emitted.Gesture
	return a
}
