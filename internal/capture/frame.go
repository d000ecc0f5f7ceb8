package capture

import (
	"time"

	"gocv.io/x/gocv"
)

// Frame is one captured image in BGR channel order. The holder of a Frame owns
// its Mat and must Close it exactly once.
type Frame struct {
	Mat        *gocv.Mat
	CapturedAt time.Time
}

// NewFrame wraps mat stamped with the current time.
func NewFrame(mat *gocv.Mat) Frame {
	return Frame{Mat: mat, CapturedAt: time.Now()}
}

// Close releases the image. A Frame without a Mat is a no-op.
func (f Frame) Close() {
	if f.Mat != nil {
		f.Mat.Close()
	}
}

// Empty reports whether the frame carries no pixels.
func (f Frame) Empty() bool {
	return f.Mat == nil || f.Mat.Empty()
}
