package detector

import (
	"errors"

	"gocv.io/x/gocv"
)

// ErrDetectorClosed is returned by Detect after Close, or before Open.
var ErrDetectorClosed = errors.New("detector is not open")

// Detector defines the landmark source capability used by the tracking worker.
type Detector interface {
	// Open performs one-time setup. An error here is fatal for the caller.
	Open() error

	// Detect analyzes a video frame and returns detected hand landmarks.
	// Returns an empty slice if no hands are detected.
	Detect(frame *gocv.Mat) ([]HandLandmarks, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Reconfigurer is implemented by detectors whose confidence thresholds can
// change while open. Callers should expect tracking state inside the
// detector to be lost.
type Reconfigurer interface {
	SetConfidence(detection, tracking float64) error
}

// Config holds configuration options for hand detection.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// MinTrackingConf is the minimum tracking confidence threshold (0.0-1.0).
	MinTrackingConf float64

	// ScriptPath overrides the MediaPipe service script location.
	ScriptPath string

	// PythonPath overrides the python interpreter.
	PythonPath string

	// JPEGQuality used when sending frames to the service.
	JPEGQuality int
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:        2,
		MinConfidence:   0.5,
		MinTrackingConf: 0.5,
		JPEGQuality:     80,
	}
}
