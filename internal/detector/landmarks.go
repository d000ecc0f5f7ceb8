// Package detector provides hand landmark sources and the landmark types shared by
// the validator, classifier and tracking pipeline.
package detector

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r3"
)

// Hand landmark indices following MediaPipe convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// ErrLandmarkCount is returned for a hand that does not carry exactly NumLandmarks points.
var ErrLandmarkCount = errors.New("hand landmarks must have exactly 21 points")

// Handedness is the side reported by the landmark model.
type Handedness string

const (
	Left  Handedness = "Left"
	Right Handedness = "Right"
)

// Opposite returns the other hand. Unknown values are returned unchanged.
func (h Handedness) Opposite() Handedness {
	switch h {
	case Left:
		return Right
	case Right:
		return Left
	}
	return h
}

// Point3D represents a landmark position. X and Y are normalized image
// coordinates in [0,1] with Y growing downward; Z is relative depth.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vec returns the point as a 3D vector.
func (p Point3D) Vec() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y, Z: p.Z}
}

// Flat returns the point projected onto the image plane.
func (p Point3D) Flat() r3.Vec {
	return r3.Vec{X: p.X, Y: p.Y}
}

// HandLandmarks is one detected hand. Values are treated as immutable once
// produced by a Detector.
type HandLandmarks struct {
	Points     []Point3D  `json:"points"`
	Handedness Handedness `json:"handedness"`
	Score      float64    `json:"score"`
}

// Validate reports ErrLandmarkCount when the hand is malformed.
func (h HandLandmarks) Validate() error {
	if len(h.Points) != NumLandmarks {
		return fmt.Errorf("%w: got %d", ErrLandmarkCount, len(h.Points))
	}
	return nil
}

// Mirror returns a copy reflected across the vertical image axis with the
// handedness swapped, which is what the model reports for a flipped frame.
func (h HandLandmarks) Mirror() HandLandmarks {
	points := make([]Point3D, len(h.Points))
	for i, p := range h.Points {
		points[i] = Point3D{X: 1 - p.X, Y: p.Y, Z: p.Z}
	}
	return HandLandmarks{
		Points:     points,
		Handedness: h.Handedness.Opposite(),
		Score:      h.Score,
	}
}

// Centroid returns the mean of all landmark positions.
func (h HandLandmarks) Centroid() Point3D {
	if len(h.Points) == 0 {
		return Point3D{}
	}
	var sum r3.Vec
	for _, p := range h.Points {
		sum = r3.Add(sum, p.Vec())
	}
	c := r3.Scale(1/float64(len(h.Points)), sum)
	return Point3D{X: c.X, Y: c.Y, Z: c.Z}
}
