package capture

import (
	"testing"

	"gocv.io/x/gocv"
)

func TestNewMotionDetector(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
	}{
		{
			name:      "default threshold",
			threshold: 0.01,
		},
		{
			name:      "high threshold",
			threshold: 0.05,
		},
		{
			name:      "low threshold",
			threshold: 0.005,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			md := NewMotionDetector(tt.threshold)
			if md == nil {
				t.Fatal("NewMotionDetector returned nil")
			}
			defer md.Close()

			if md.threshold != tt.threshold {
				t.Errorf("threshold = %f, want %f", md.threshold, tt.threshold)
			}

			if md.initialized {
				t.Error("motion detector should not be initialized initially")
			}
		})
	}
}

func TestMotionDetector_NoMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(0.01)
	defer md.Close()

	// Create two identical black frames
	frame1 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame1.Close()

	frame2 := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame2.Close()

	// First frame initializes the detector
	detected, changed := md.Detect(&frame1)
	if detected {
		t.Error("first frame should not detect motion")
	}
	if changed != 0 {
		t.Errorf("first frame changed = %f, want 0", changed)
	}

	// Second identical frame should not detect motion
	detected, changed = md.Detect(&frame2)
	if detected {
		t.Errorf("identical frames should not detect motion, changed = %f", changed)
	}
}

func TestMotionDetector_WithMotion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(0.01)
	defer md.Close()

	// Create a black frame (all zeros)
	blackFrame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer blackFrame.Close()

	// Create a white frame (all 255s)
	whiteFrame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer whiteFrame.Close()

	// Fill white frame with white pixels
	whiteFrame.SetTo(gocv.NewScalar(255, 255, 255, 0))

	// First frame initializes the detector
	detected, _ := md.Detect(&blackFrame)
	if detected {
		t.Error("first frame should not detect motion")
	}

	// Second frame is completely different, should detect motion
	detected, changed := md.Detect(&whiteFrame)
	if !detected {
		t.Errorf("black to white should detect motion, changed = %f", changed)
	}

	// nearly every pixel changed
	if changed < 0.5 {
		t.Errorf("changed = %f, expected > 0.5 for black to white transition", changed)
	}
}

func TestMotionDetector_Reset(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(0.01)
	defer md.Close()

	// Create a frame and initialize the detector
	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	md.Detect(&frame)

	if !md.initialized {
		t.Error("detector should be initialized after first Detect")
	}

	// Reset should clear state
	md.Reset()

	if md.initialized {
		t.Error("detector should not be initialized after Reset")
	}

	if !md.prevGray.Empty() {
		t.Error("prevGray should be empty after Reset")
	}
}

func TestMotionDetector_SetThreshold(t *testing.T) {
	md := NewMotionDetector(0.01)
	defer md.Close()

	if md.threshold != 0.01 {
		t.Errorf("initial threshold = %f, want 0.01", md.threshold)
	}

	md.SetThreshold(0.05)
	if md.threshold != 0.05 {
		t.Errorf("threshold = %f, want 0.05 after SetThreshold", md.threshold)
	}

	md.SetThreshold(0.005)
	if md.threshold != 0.005 {
		t.Errorf("threshold = %f, want 0.005 after SetThreshold", md.threshold)
	}
}

func TestMotionDetector_SetThreshold_Negative(t *testing.T) {
	md := NewMotionDetector(0.01)
	defer md.Close()

	md.SetThreshold(-1.0)
	md.SetThreshold(2.0)
	if md.threshold != 0.01 {
		t.Errorf("out of range threshold should be ignored, got %f, want 0.01", md.threshold)
	}
}

func TestMotionDetector_Close_Multiple(t *testing.T) {
	md := NewMotionDetector(0.01)

	// Close multiple times should not panic
	md.Close()
	md.Close()
}

func TestMotionDetector_Detect_AfterClose(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(0.01)

	frame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer frame.Close()

	md.Detect(&frame)
	md.Close()

	// Detect after close should handle gracefully (re-initialize)
	detected, _ := md.Detect(&frame)
	if detected {
		t.Error("first frame after close should not detect motion")
	}
}

func TestMotionDetector_ThresholdBoundary(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	// Test with high threshold to ensure small changes don't trigger
	md := NewMotionDetector(0.99)
	defer md.Close()

	blackFrame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer blackFrame.Close()

	whiteFrame := gocv.NewMatWithSize(480, 640, gocv.MatTypeCV8UC3)
	defer whiteFrame.Close()
	whiteFrame.SetTo(gocv.NewScalar(255, 255, 255, 0))

	md.Detect(&blackFrame)
	detected, changed := md.Detect(&whiteFrame)

	// Even with 100% change, 99% threshold might not trigger
	// depending on blur effects
	t.Logf("changed with black to white: %f, threshold: 0.99, detected: %v", changed, detected)
}
