package app

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/tracking"
)

// runCapture reads frames at the camera rate and hands them to the tracker.
// With a motion gate, frames are only submitted while there is motion and the
// rate drops to the idle rate once the scene has been still for a while.
func (a *App) runCapture(ctx context.Context) {
	interval := time.Second / time.Duration(a.camera.FPS())
	if a.gate != nil {
		a.camera.SetFPS(a.gate.FPS())
		interval = a.gate.Interval()
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !a.IsEnabled() {
			continue
		}

		frame, err := a.camera.ReadFrame()
		if err != nil {
			a.logRead.Do(func() {
				a.log.Warn("error reading frame", zap.Error(err))
			})
			continue
		}

		if a.gate != nil {
			motion, _ := a.motion.Detect(frame.Mat)
			active, changed := a.gate.Observe(motion)
			if changed {
				a.camera.SetFPS(a.gate.FPS())
				ticker.Reset(a.gate.Interval())
				a.log.Info("capture mode changed", zap.Bool("active", active), zap.Int("fps", a.gate.FPS()))
			}
			if !active {
				frame.Close()
				continue
			}
		}

		if err := a.tracker.Submit(frame); err != nil {
			if errors.Is(err, tracking.ErrNotRunning) {
				return
			}
			a.log.Warn("error submitting frame", zap.Error(err))
		}
	}
}
