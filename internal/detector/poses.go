package detector

import "math"

// Pose describes a synthetic hand for tests and the mock backend.
type Pose struct {
	// Extended flags in thumb, index, middle, ring, pinky order.
	Extended [5]bool
	// Spread is the angle in degrees between adjacent extended finger directions.
	Spread float64
	// ThumbAngle is how far in degrees an extended thumb leans from vertical
	// toward the thumb side.
	ThumbAngle float64
	Handedness Handedness
	Score      float64
}

// Right-hand skeleton in image coordinates; the palm faces the camera with
// fingers pointing up.
var (
	poseWrist    = Point3D{X: 0.5, Y: 0.8}
	poseThumbCMC = Point3D{X: 0.45, Y: 0.76}
	poseMCPs     = [4]Point3D{
		{X: 0.44, Y: 0.62},
		{X: 0.48, Y: 0.61},
		{X: 0.52, Y: 0.62},
		{X: 0.56, Y: 0.64},
	}
	poseSegments = [3]float64{0.055, 0.04, 0.03}
)

// SyntheticHand builds 21 landmarks for p. Left hands are the right-hand
// skeleton reflected across the vertical axis.
func SyntheticHand(p Pose) HandLandmarks {
	pts := make([]Point3D, NumLandmarks)
	pts[Wrist] = poseWrist
	pts[ThumbCMC] = poseThumbCMC

	if p.Extended[0] {
		d := upward(-p.ThumbAngle)
		pts[ThumbMCP] = along(pts[ThumbCMC], d, 0.05)
		pts[ThumbIP] = along(pts[ThumbMCP], d, 0.04)
		pts[ThumbTip] = along(pts[ThumbIP], d, 0.035)
	} else {
		// tucked across the palm
		pts[ThumbMCP] = offset(pts[ThumbCMC], -0.03, -0.06, 0)
		pts[ThumbIP] = offset(pts[ThumbMCP], 0.03, 0, 0)
		pts[ThumbTip] = offset(pts[ThumbIP], 0.01, 0.04, 0)
	}

	for i, mcp := range poseMCPs {
		base := IndexMCP + 4*i
		pts[base] = mcp
		if p.Extended[i+1] {
			d := upward((float64(i) - 1.5) * p.Spread)
			pts[base+1] = along(mcp, d, poseSegments[0])
			pts[base+2] = along(pts[base+1], d, poseSegments[1])
			pts[base+3] = along(pts[base+2], d, poseSegments[2])
		} else {
			pts[base+1] = offset(mcp, 0, -0.04, -0.01)
			pts[base+2] = offset(pts[base+1], 0, 0.02, -0.025)
			pts[base+3] = offset(pts[base+2], 0, 0.025, 0.005)
		}
	}

	h := HandLandmarks{Points: pts, Handedness: Right, Score: p.Score}
	if h.Score == 0 {
		h.Score = 0.95
	}
	if p.Handedness == Left {
		h = h.Mirror()
	}
	return h
}

// Rotate returns h rotated by deg degrees about (cx, cy) in the image plane.
func Rotate(h HandLandmarks, deg, cx, cy float64) HandLandmarks {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	points := make([]Point3D, len(h.Points))
	for i, p := range h.Points {
		dx, dy := p.X-cx, p.Y-cy
		points[i] = Point3D{
			X: cx + dx*cos - dy*sin,
			Y: cy + dx*sin + dy*cos,
			Z: p.Z,
		}
	}
	return HandLandmarks{Points: points, Handedness: h.Handedness, Score: h.Score}
}

// OpenHandLandmarks returns a right hand with all five digits extended.
func OpenHandLandmarks() HandLandmarks {
	return SyntheticHand(Pose{Extended: [5]bool{true, true, true, true, true}, Spread: 30, ThumbAngle: 80})
}

// FistLandmarks returns a right hand with every digit folded.
func FistLandmarks() HandLandmarks {
	return SyntheticHand(Pose{Spread: 20})
}

// ThumbsUpLandmarks returns a right fist with the thumb pointing up.
func ThumbsUpLandmarks() HandLandmarks {
	return SyntheticHand(Pose{Extended: [5]bool{true, false, false, false, false}, ThumbAngle: 5})
}

// ThumbsDownLandmarks returns ThumbsUpLandmarks turned upside down.
func ThumbsDownLandmarks() HandLandmarks {
	return Rotate(ThumbsUpLandmarks(), 180, 0.5, 0.65)
}

// PeaceLandmarks returns index and middle extended and spread apart.
func PeaceLandmarks() HandLandmarks {
	return SyntheticHand(Pose{Extended: [5]bool{false, true, true, false, false}, Spread: 35})
}

// TwoLandmarks returns index and middle extended close together.
func TwoLandmarks() HandLandmarks {
	return SyntheticHand(Pose{Extended: [5]bool{false, true, true, false, false}, Spread: 5})
}

// OKLandmarks returns middle, ring and pinky extended with the thumb tip
// pinched against the folded index tip.
func OKLandmarks() HandLandmarks {
	h := SyntheticHand(Pose{Extended: [5]bool{false, false, true, true, true}, Spread: 20})
	h.Points[ThumbTip] = Point3D{X: 0.445, Y: 0.63}
	return h
}

func upward(deg float64) Point3D {
	sin, cos := math.Sincos(deg * math.Pi / 180)
	return Point3D{X: sin, Y: -cos}
}

func along(from, dir Point3D, length float64) Point3D {
	return Point3D{X: from.X + dir.X*length, Y: from.Y + dir.Y*length, Z: from.Z + dir.Z*length}
}

func offset(from Point3D, dx, dy, dz float64) Point3D {
	return Point3D{X: from.X + dx, Y: from.Y + dy, Z: from.Z + dz}
}
