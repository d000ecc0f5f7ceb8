package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ayusman/mudra/internal/detector"
)

// scaled returns h scaled about its wrist.
func scaled(h detector.HandLandmarks, f float64) detector.HandLandmarks {
	w := h.Points[detector.Wrist]
	points := make([]detector.Point3D, len(h.Points))
	for i, p := range h.Points {
		points[i] = detector.Point3D{X: w.X + (p.X-w.X)*f, Y: w.Y + (p.Y-w.Y)*f, Z: p.Z * f}
	}
	h.Points = points
	return h
}

func withPoint(h detector.HandLandmarks, idx int, p detector.Point3D) detector.HandLandmarks {
	points := make([]detector.Point3D, len(h.Points))
	copy(points, h.Points)
	points[idx] = p
	h.Points = points
	return h
}

func TestCheck_AcceptsRealPoses(t *testing.T) {
	cfg := DefaultConfig()
	poses := map[string]detector.HandLandmarks{
		"open":        detector.OpenHandLandmarks(),
		"fist":        detector.FistLandmarks(),
		"thumbs up":   detector.ThumbsUpLandmarks(),
		"thumbs down": detector.ThumbsDownLandmarks(),
		"peace":       detector.PeaceLandmarks(),
		"two":         detector.TwoLandmarks(),
		"ok":          detector.OKLandmarks(),
		"left open":   detector.OpenHandLandmarks().Mirror(),
	}

	for name, h := range poses {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, Accepted, Check(h, cfg))
			assert.True(t, Validate(h, cfg))
		})
	}
}

func TestCheck_Rejections(t *testing.T) {
	cfg := DefaultConfig()
	fist := detector.FistLandmarks()

	tests := []struct {
		name string
		hand detector.HandLandmarks
		want Reason
	}{
		{
			name: "too few points",
			hand: detector.HandLandmarks{Points: fist.Points[:20], Handedness: detector.Right},
			want: ReasonPointCount,
		},
		{
			name: "palm too small",
			hand: scaled(fist, 0.05),
			want: ReasonPalmLength,
		},
		{
			name: "palm too large",
			hand: scaled(fist, 4),
			want: ReasonPalmLength,
		},
		{
			name: "thumb on the knuckle line",
			hand: withPoint(withPoint(fist, detector.ThumbCMC, detector.Point3D{X: 0.5, Y: 0.63}), detector.ThumbMCP, detector.Point3D{X: 0.5, Y: 0.63}),
			want: ReasonThumbOffset,
		},
		{
			name: "thumb far from the hand",
			hand: withPoint(fist, detector.ThumbCMC, detector.Point3D{X: 0.5, Y: 1.4}),
			want: ReasonThumbOffset,
		},
		{
			name: "wrist too close to palm centre",
			hand: withPoint(fist, detector.MiddleMCP, detector.Point3D{X: 0.48, Y: 0.3}),
			want: ReasonWristPosition,
		},
		{
			name: "wrist too far from palm centre",
			hand: withPoint(fist, detector.MiddleMCP, detector.Point3D{X: 0.49, Y: 0.75}),
			want: ReasonWristPosition,
		},
		{
			name: "stretched fingers fan out too far",
			hand: detector.SyntheticHand(detector.Pose{Extended: [5]bool{true, true, true, true, true}, Spread: 70, ThumbAngle: 80}),
			want: ReasonFingerDirections,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Check(tt.hand, cfg))
			assert.False(t, Validate(tt.hand, cfg))
		})
	}
}

func TestCheck_DirectionCheckNeedsAllFingersStretched(t *testing.T) {
	h := detector.SyntheticHand(detector.Pose{Extended: [5]bool{true, true, true, true, false}, Spread: 70, ThumbAngle: 80})

	assert.Equal(t, Accepted, Check(h, DefaultConfig()))
}

func TestCheck_MirrorInvariant(t *testing.T) {
	cfg := DefaultConfig()
	hands := []detector.HandLandmarks{
		detector.OpenHandLandmarks(),
		detector.FistLandmarks(),
		scaled(detector.FistLandmarks(), 0.05),
		detector.SyntheticHand(detector.Pose{Extended: [5]bool{true, true, true, true, true}, Spread: 70, ThumbAngle: 80}),
	}
	for _, h := range hands {
		assert.Equal(t, Check(h, cfg), Check(h.Mirror(), cfg))
	}
}

func TestCheck_Deterministic(t *testing.T) {
	h := detector.PeaceLandmarks()
	cfg := DefaultConfig()
	first := Check(h, cfg)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, Check(h, cfg))
	}
}
