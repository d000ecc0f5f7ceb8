// Package testdata builds synthetic camera frames for tests that exercise the
// capture path without a camera.
package testdata

import (
	"gocv.io/x/gocv"
)

// Frame size used by the synthetic frames.
const (
	Width  = 320
	Height = 240
)

// SolidFrame returns a BGR frame filled with one gray level. The caller
// closes it.
func SolidFrame(level float64) *gocv.Mat {
	mat := gocv.NewMatWithSize(Height, Width, gocv.MatTypeCV8UC3)
	mat.SetTo(gocv.NewScalar(level, level, level, 0))
	return &mat
}

// StillSequence returns n identical dark frames.
func StillSequence(n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		frames[i] = SolidFrame(0)
	}
	return frames
}

// FlickerSequence returns n frames alternating dark and bright, so every
// consecutive pair differs across the whole frame.
func FlickerSequence(n int) []*gocv.Mat {
	frames := make([]*gocv.Mat, n)
	for i := range frames {
		level := 0.0
		if i%2 == 1 {
			level = 255
		}
		frames[i] = SolidFrame(level)
	}
	return frames
}

// Close releases every frame in frames.
func Close(frames []*gocv.Mat) {
	for _, f := range frames {
		if f != nil {
			f.Close()
		}
	}
}
