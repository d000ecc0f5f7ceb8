// Package config provides typed, validated configuration for mudra.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full application configuration.
type Config struct {
	Camera   Camera   `koanf:"camera" json:"camera"`
	Detector Detector `koanf:"detector" json:"detector"`
	Tracking Tracking `koanf:"tracking" json:"tracking"`
	Server   Server   `koanf:"server" json:"server"`
	Store    Store    `koanf:"store" json:"store"`
	Plugins  Plugins  `koanf:"plugins" json:"plugins"`
	Log      Log      `koanf:"log" json:"log"`
}

// Camera configures frame capture.
type Camera struct {
	Device int  `koanf:"device" json:"device"`
	Width  int  `koanf:"width" json:"width"`
	Height int  `koanf:"height" json:"height"`
	FPS    int  `koanf:"fps" json:"fps"`
	Mirror bool `koanf:"mirror" json:"mirror"`

	// IdleFPS is used once no motion has been seen for IdleAfter.
	IdleFPS         int      `koanf:"idle_fps" json:"idle_fps"`
	MotionThreshold float64  `koanf:"motion_threshold" json:"motion_threshold"`
	IdleAfter       Duration `koanf:"idle_after" json:"idle_after"`
}

// Detector selects and configures the landmark source.
type Detector struct {
	// Backend is "mediapipe" or "mock".
	Backend     string `koanf:"backend" json:"backend"`
	MaxHands    int    `koanf:"max_hands" json:"max_hands"`
	ScriptPath  string `koanf:"script_path" json:"script_path"`
	PythonPath  string `koanf:"python_path" json:"python_path"`
	JPEGQuality int    `koanf:"jpeg_quality" json:"jpeg_quality"`
}

// Tracking holds the runtime-adjustable pipeline tunables.
type Tracking struct {
	FingerCurlThreshold    float64  `koanf:"finger_curl_threshold" json:"finger_curl_threshold"`
	ThumbCurlThreshold     float64  `koanf:"thumb_curl_threshold" json:"thumb_curl_threshold"`
	SpreadThreshold        float64  `koanf:"spread_threshold" json:"spread_threshold"`
	VoteThreshold          int      `koanf:"vote_threshold" json:"vote_threshold"`
	VoteWindowSize         int      `koanf:"vote_window_size" json:"vote_window_size"`
	MinDetectionConfidence float64  `koanf:"min_detection_confidence" json:"min_detection_confidence"`
	MinTrackingConfidence  float64  `koanf:"min_tracking_confidence" json:"min_tracking_confidence"`
	OKDistance             float64  `koanf:"ok_distance" json:"ok_distance"`
	PersistenceFrames      int      `koanf:"persistence_frames" json:"persistence_frames"`
	// LandmarkSmoothing is the weight kept from a hand's previous landmarks.
	// Zero disables it.
	LandmarkSmoothing      float64  `koanf:"landmark_smoothing" json:"landmark_smoothing"`
	IdlePollInterval       Duration `koanf:"idle_poll_interval" json:"idle_poll_interval"`
}

// Server configures the HTTP consumer surface.
type Server struct {
	Addr           string   `koanf:"addr" json:"addr"`
	StaticDir      string   `koanf:"static_dir" json:"static_dir"`
	StreamInterval Duration `koanf:"stream_interval" json:"stream_interval"`
}

// Store configures the recording database. An empty Path means
// ~/.mudra/mudra.db.
type Store struct {
	Path   string `koanf:"path" json:"path"`
	Record bool   `koanf:"record" json:"record"`
}

// Plugins configures the gesture plugins. An empty Dir means ~/.mudra/plugins.
type Plugins struct {
	Enabled bool     `koanf:"enabled" json:"enabled"`
	Dir     string   `koanf:"dir" json:"dir"`
	Timeout Duration `koanf:"timeout" json:"timeout"`
}

// Log configures the zap logger.
type Log struct {
	Level  string `koanf:"level" json:"level"`
	Format string `koanf:"format" json:"format"`
}

type rangeCheck struct {
	name     string
	value    float64
	min, max float64
}

func checkRanges(checks []rangeCheck) []string {
	var problems []string
	for _, c := range checks {
		if c.value < c.min || c.value > c.max {
			problems = append(problems, fmt.Sprintf("%s=%g outside [%g, %g]", c.name, c.value, c.min, c.max))
		}
	}
	return problems
}

func invalid(problems []string) error {
	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
}

// Validate checks every tunable against its allowed range.
func (t Tracking) Validate() error {
	return invalid(t.problems())
}

func (t Tracking) problems() []string {
	return checkRanges([]rangeCheck{
		{"tracking.finger_curl_threshold", t.FingerCurlThreshold, 60, 170},
		{"tracking.thumb_curl_threshold", t.ThumbCurlThreshold, 90, 175},
		{"tracking.spread_threshold", t.SpreadThreshold, 5, 60},
		{"tracking.vote_threshold", float64(t.VoteThreshold), 1, 5},
		{"tracking.vote_window_size", float64(t.VoteWindowSize), 1, 30},
		{"tracking.min_detection_confidence", t.MinDetectionConfidence, 0, 1},
		{"tracking.min_tracking_confidence", t.MinTrackingConfidence, 0, 1},
		{"tracking.ok_distance", t.OKDistance, 0.05, 2},
		{"tracking.persistence_frames", float64(t.PersistenceFrames), 0, 300},
		{"tracking.landmark_smoothing", t.LandmarkSmoothing, 0, 0.95},
		{"tracking.idle_poll_interval", float64(t.IdlePollInterval.Duration()), float64(time.Millisecond), float64(time.Second)},
	})
}

// Validate checks the whole configuration.
func (c Config) Validate() error {
	problems := c.Tracking.problems()
	problems = append(problems, checkRanges([]rangeCheck{
		{"camera.fps", float64(c.Camera.FPS), 1, 240},
		{"camera.idle_fps", float64(c.Camera.IdleFPS), 1, 240},
		{"camera.motion_threshold", c.Camera.MotionThreshold, 0, 1},
		{"detector.max_hands", float64(c.Detector.MaxHands), 1, 2},
		{"detector.jpeg_quality", float64(c.Detector.JPEGQuality), 1, 100},
	})...)

	switch c.Detector.Backend {
	case "mediapipe", "mock":
	default:
		problems = append(problems, fmt.Sprintf("detector.backend %q must be mediapipe or mock", c.Detector.Backend))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("log.format %q must be json or console", c.Log.Format))
	}
	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is required")
	}
	if c.Server.StreamInterval.Duration() <= 0 {
		problems = append(problems, "server.stream_interval must be positive")
	}
	if c.Plugins.Enabled && c.Plugins.Timeout.Duration() <= 0 {
		problems = append(problems, "plugins.timeout must be positive")
	}

	return invalid(problems)
}
