package gesture

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/geom"
)

// Fixed ratios used by the extension criteria.
const (
	minStraightness   = 0.82
	fingerReachRatio  = 0.98
	thumbCentreRatio  = 1.05
	thumbTuckedRatio  = 0.3
	thumbReachRatio   = 0.95
	thumbRiseRatio    = 0.15
	lShapeMinAngle    = 70.0
	lShapeMaxAngle    = 110.0
	palmLengthEpsilon = 1e-6
)

// chains holds the landmark indices of each digit from base to tip.
var chains = [NumFingers][4]int{
	{detector.ThumbCMC, detector.ThumbMCP, detector.ThumbIP, detector.ThumbTip},
	{detector.IndexMCP, detector.IndexPIP, detector.IndexDIP, detector.IndexTip},
	{detector.MiddleMCP, detector.MiddlePIP, detector.MiddleDIP, detector.MiddleTip},
	{detector.RingMCP, detector.RingPIP, detector.RingDIP, detector.RingTip},
	{detector.PinkyMCP, detector.PinkyPIP, detector.PinkyDIP, detector.PinkyTip},
}

// hand caches the vectors every criterion reads. Points must hold 21 landmarks.
type hand struct {
	pts        [detector.NumLandmarks]r3.Vec
	handedness detector.Handedness
	palm       float64 // image-plane wrist to middle MCP
}

func newHand(lm detector.HandLandmarks) hand {
	h := hand{handedness: lm.Handedness}
	for i, p := range lm.Points {
		h.pts[i] = p.Vec()
	}
	h.palm = geom.Distance(lm.Points[detector.Wrist].Flat(), lm.Points[detector.MiddleMCP].Flat())
	if h.palm < palmLengthEpsilon {
		h.palm = palmLengthEpsilon
	}
	return h
}

func (h hand) at(i int) r3.Vec { return h.pts[i] }

// direction returns the base-to-tip vector of f. The thumb uses MCP to tip.
func (h hand) direction(f Finger) r3.Vec {
	c := chains[f]
	if f == Thumb {
		return r3.Sub(h.at(c[3]), h.at(c[1]))
	}
	return r3.Sub(h.at(c[3]), h.at(c[0]))
}

func (h hand) spread() SpreadAngles {
	return SpreadAngles{
		ThumbIndex:  geom.Angle(h.direction(Thumb), h.direction(Index)),
		IndexMiddle: geom.Angle(h.direction(Index), h.direction(Middle)),
		MiddleRing:  geom.Angle(h.direction(Middle), h.direction(Ring)),
		RingPinky:   geom.Angle(h.direction(Ring), h.direction(Pinky)),
	}
}

// fingerCriteria evaluates a non-thumb digit.
func (h hand) fingerCriteria(f Finger, p Params) (float64, [5]bool) {
	c := chains[f]
	mcp, pip, dip, tip := h.at(c[0]), h.at(c[1]), h.at(c[2]), h.at(c[3])
	wrist := h.at(detector.Wrist)
	axis := r3.Sub(h.at(detector.MiddleMCP), wrist)

	curl := geom.JointAngle(mcp, pip, tip)
	length := geom.Distance(mcp, pip) + geom.Distance(pip, dip) + geom.Distance(dip, tip)

	var crit [5]bool
	crit[0] = curl >= p.FingerCurlThreshold
	crit[1] = r3.Dot(r3.Sub(tip, wrist), axis) > r3.Dot(r3.Sub(pip, wrist), axis)
	crit[2] = length > 0 && geom.Distance(mcp, tip)/length > minStraightness
	crit[3] = geom.Distance(tip, wrist) > fingerReachRatio*geom.Distance(pip, wrist)
	crit[4] = r3.Dot(r3.Sub(dip, pip), r3.Sub(tip, dip)) > 0
	return curl, crit
}

// thumbCriteria evaluates the thumb, which bends across the palm rather than
// toward it.
func (h hand) thumbCriteria(p Params) (float64, [5]bool) {
	cmc, mcp, ip, tip := h.at(detector.ThumbCMC), h.at(detector.ThumbMCP), h.at(detector.ThumbIP), h.at(detector.ThumbTip)
	wrist := h.at(detector.Wrist)
	centre := geom.Mean(wrist, h.at(detector.MiddleMCP))

	curl := geom.JointAngle(cmc, mcp, tip)

	var lateral bool
	switch h.handedness {
	case detector.Left:
		lateral = tip.X > h.at(detector.IndexMCP).X
	default:
		lateral = tip.X < h.at(detector.IndexMCP).X
	}

	var crit [5]bool
	crit[0] = curl >= p.ThumbCurlThreshold
	crit[1] = geom.Distance(tip, centre) > thumbCentreRatio*geom.Distance(mcp, centre)
	crit[2] = lateral
	crit[3] = geom.Distance(tip, h.at(detector.MiddleMCP)) > thumbTuckedRatio*h.palm
	crit[4] = geom.Distance(tip, wrist) > thumbReachRatio*geom.Distance(ip, wrist)
	return curl, crit
}

// features are the geometric measurements the gesture table's tie-breaks read.
type features struct {
	spread SpreadAngles
	// thumbRise is how far the thumb tip sits above its MCP in image y, in
	// palm lengths. Negative when the thumb points down.
	thumbRise float64
	// pinch is the image-plane thumb-tip to index-tip distance in palm lengths.
	pinch float64
}

func (h hand) features(spread SpreadAngles) features {
	thumbTip, indexTip := h.at(detector.ThumbTip), h.at(detector.IndexTip)
	return features{
		spread:    spread,
		thumbRise: (h.at(detector.ThumbMCP).Y - thumbTip.Y) / h.palm,
		pinch:     geom.Distance(r3.Vec{X: thumbTip.X, Y: thumbTip.Y}, r3.Vec{X: indexTip.X, Y: indexTip.Y}) / h.palm,
	}
}
