// Package validator rejects detections that cannot be a real hand before they
// reach the classifier. All checks run on image-plane coordinates.
package validator

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/geom"
)

// Config holds the plausibility bounds. Ratios are in palm lengths
// (wrist to middle MCP).
type Config struct {
	MinPalmLength float64
	MaxPalmLength float64

	// Thumb offset from the knuckle line, only checked while the knuckle line
	// is longer than MinKnuckleRatio palm lengths.
	MinThumbOffset  float64
	MaxThumbOffset  float64
	MinKnuckleRatio float64

	MinWristRatio float64
	MaxWristRatio float64

	// StretchedRatio is the MCP-to-tip length above which a finger counts as
	// stretched for the direction coherence check.
	StretchedRatio    float64
	MaxAdjacentSpread float64
}

// DefaultConfig returns the bounds used by the tracking pipeline.
func DefaultConfig() Config {
	return Config{
		MinPalmLength:     0.02,
		MaxPalmLength:     0.6,
		MinThumbOffset:    0.1,
		MaxThumbOffset:    3.0,
		MinKnuckleRatio:   0.1,
		MinWristRatio:     0.45,
		MaxWristRatio:     1.1,
		StretchedRatio:    0.6,
		MaxAdjacentSpread: 60,
	}
}

// Reason names the check a hand failed. The zero value means accepted.
type Reason string

const (
	Accepted               Reason = ""
	ReasonPointCount       Reason = "point_count"
	ReasonPalmLength       Reason = "palm_length"
	ReasonThumbOffset      Reason = "thumb_offset"
	ReasonWristPosition    Reason = "wrist_position"
	ReasonFingerDirections Reason = "finger_directions"
)

// Reasons lists every rejection reason.
var Reasons = []Reason{ReasonPointCount, ReasonPalmLength, ReasonThumbOffset, ReasonWristPosition, ReasonFingerDirections}

var fingerChains = [4][2]int{
	{detector.IndexMCP, detector.IndexTip},
	{detector.MiddleMCP, detector.MiddleTip},
	{detector.RingMCP, detector.RingTip},
	{detector.PinkyMCP, detector.PinkyTip},
}

// Validate reports whether h is a plausible hand.
func Validate(h detector.HandLandmarks, cfg Config) bool {
	return Check(h, cfg) == Accepted
}

// Check returns the first failed check, or Accepted.
func Check(h detector.HandLandmarks, cfg Config) Reason {
	if h.Validate() != nil {
		return ReasonPointCount
	}
	p := func(i int) r3.Vec { return h.Points[i].Flat() }

	wrist := p(detector.Wrist)
	palm := geom.Distance(wrist, p(detector.MiddleMCP))
	if math.IsNaN(palm) || palm < cfg.MinPalmLength || palm > cfg.MaxPalmLength {
		return ReasonPalmLength
	}

	indexMCP, pinkyMCP := p(detector.IndexMCP), p(detector.PinkyMCP)
	if geom.Distance(indexMCP, pinkyMCP) > cfg.MinKnuckleRatio*palm {
		offset := math.Max(
			geom.LineDistance(p(detector.ThumbCMC), indexMCP, pinkyMCP),
			geom.LineDistance(p(detector.ThumbMCP), indexMCP, pinkyMCP),
		) / palm
		if offset < cfg.MinThumbOffset || offset > cfg.MaxThumbOffset {
			return ReasonThumbOffset
		}
	}

	centre := geom.Mean(wrist, indexMCP, p(detector.MiddleMCP), p(detector.RingMCP), pinkyMCP)
	wristRatio := geom.Distance(wrist, centre) / palm
	if wristRatio < cfg.MinWristRatio || wristRatio > cfg.MaxWristRatio {
		return ReasonWristPosition
	}

	var dirs [4]r3.Vec
	stretched := true
	for i, c := range fingerChains {
		dirs[i] = r3.Sub(p(c[1]), p(c[0]))
		if r3.Norm(dirs[i])/palm <= cfg.StretchedRatio {
			stretched = false
		}
	}
	if stretched {
		for i := 0; i < len(dirs)-1; i++ {
			if geom.Angle(dirs[i], dirs[i+1]) > cfg.MaxAdjacentSpread {
				return ReasonFingerDirections
			}
		}
	}

	return Accepted
}
