// Package geom holds the vector helpers shared by the validator and classifier.
package geom

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const eps = 1e-9

// Angle returns the angle between a and b in degrees, in [0, 180].
// Degenerate vectors yield 0.
func Angle(a, b r3.Vec) float64 {
	if r3.Norm(a) < eps || r3.Norm(b) < eps {
		return 0
	}
	c := r3.Cos(a, b)
	c = math.Max(-1, math.Min(1, c))
	return math.Acos(c) * 180 / math.Pi
}

// JointAngle returns the interior angle at b formed by a-b-c in degrees.
// A straight chain gives 180.
func JointAngle(a, b, c r3.Vec) float64 {
	return Angle(r3.Sub(a, b), r3.Sub(c, b))
}

// Distance returns the euclidean distance between a and b.
func Distance(a, b r3.Vec) float64 {
	return r3.Norm(r3.Sub(a, b))
}

// LineDistance returns the distance from p to the infinite line through a and b
// in the XY plane. It returns 0 when a and b coincide.
func LineDistance(p, a, b r3.Vec) float64 {
	ab := r3.Vec{X: b.X - a.X, Y: b.Y - a.Y}
	ap := r3.Vec{X: p.X - a.X, Y: p.Y - a.Y}
	n := r3.Norm(ab)
	if n < eps {
		return 0
	}
	return math.Abs(r3.Cross(ab, ap).Z) / n
}

// Mean returns the centroid of vs.
func Mean(vs ...r3.Vec) r3.Vec {
	if len(vs) == 0 {
		return r3.Vec{}
	}
	var sum r3.Vec
	for _, v := range vs {
		sum = r3.Add(sum, v)
	}
	return r3.Scale(1/float64(len(vs)), sum)
}
