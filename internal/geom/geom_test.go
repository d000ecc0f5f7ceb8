package geom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/spatial/r3"
)

func TestAngle(t *testing.T) {
	tests := []struct {
		name string
		a, b r3.Vec
		want float64
	}{
		{"same direction", r3.Vec{X: 1}, r3.Vec{X: 2}, 0},
		{"perpendicular", r3.Vec{X: 1}, r3.Vec{Y: 1}, 90},
		{"opposite", r3.Vec{X: 1}, r3.Vec{X: -1}, 180},
		{"forty five", r3.Vec{X: 1}, r3.Vec{X: 1, Y: 1}, 45},
		{"degenerate", r3.Vec{}, r3.Vec{X: 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Angle(tt.a, tt.b), 1e-9)
		})
	}
}

func TestJointAngle(t *testing.T) {
	a := r3.Vec{X: 0, Y: 0}
	b := r3.Vec{X: 1, Y: 0}

	assert.InDelta(t, 180, JointAngle(a, b, r3.Vec{X: 2}), 1e-9)
	assert.InDelta(t, 90, JointAngle(a, b, r3.Vec{X: 1, Y: 1}), 1e-9)
	assert.InDelta(t, 0, JointAngle(a, b, r3.Vec{X: 0.5}), 1e-9)
}

func TestLineDistance(t *testing.T) {
	a := r3.Vec{X: 0, Y: 0}
	b := r3.Vec{X: 2, Y: 0}

	assert.InDelta(t, 3, LineDistance(r3.Vec{X: 5, Y: -3}, a, b), 1e-9)
	assert.InDelta(t, 0, LineDistance(r3.Vec{X: 1}, a, a), 1e-9)
}

func TestDistanceAndMean(t *testing.T) {
	assert.InDelta(t, 5, Distance(r3.Vec{}, r3.Vec{X: 3, Y: 4}), 1e-9)
	assert.Equal(t, r3.Vec{X: 1, Y: 1}, Mean(r3.Vec{}, r3.Vec{X: 2, Y: 2}))
	assert.Equal(t, r3.Vec{}, Mean())
}
