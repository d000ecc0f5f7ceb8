package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "mudra.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 120.0, cfg.Tracking.FingerCurlThreshold)
	assert.Equal(t, 145.0, cfg.Tracking.ThumbCurlThreshold)
	assert.Equal(t, 20.0, cfg.Tracking.SpreadThreshold)
	assert.Equal(t, 3, cfg.Tracking.VoteThreshold)
	assert.Equal(t, 5, cfg.Tracking.VoteWindowSize)
	assert.Equal(t, 0.5, cfg.Tracking.MinDetectionConfidence)
	assert.Equal(t, 5, cfg.Tracking.PersistenceFrames)
	assert.Equal(t, 0.5, cfg.Tracking.LandmarkSmoothing)
	assert.Equal(t, 10*time.Millisecond, cfg.Tracking.IdlePollInterval.Duration())
	assert.Equal(t, "mediapipe", cfg.Detector.Backend)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Camera.IdleAfter.Duration())
	assert.True(t, cfg.Camera.Mirror)
	assert.True(t, cfg.Plugins.Enabled)
	assert.Equal(t, 5*time.Second, cfg.Plugins.Timeout.Duration())

	require.NoError(t, cfg.Validate())
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
tracking:
  spread_threshold: 25
  vote_window_size: 7
  idle_poll_interval: 20ms
detector:
  backend: mock
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 25.0, cfg.Tracking.SpreadThreshold)
	assert.Equal(t, 7, cfg.Tracking.VoteWindowSize)
	assert.Equal(t, 20*time.Millisecond, cfg.Tracking.IdlePollInterval.Duration())
	assert.Equal(t, "mock", cfg.Detector.Backend)
	assert.Equal(t, 120.0, cfg.Tracking.FingerCurlThreshold, "untouched keys keep defaults")
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "tracking:\n  spread_threshold: 25\n")
	t.Setenv("MUDRA_TRACKING_SPREAD_THRESHOLD", "30")
	t.Setenv("MUDRA_CAMERA_IDLE_FPS", "2")
	t.Setenv("MUDRA_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 30.0, cfg.Tracking.SpreadThreshold)
	assert.Equal(t, 2, cfg.Camera.IdleFPS)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidValuesFail(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"vote threshold too high", "tracking:\n  vote_threshold: 6\n"},
		{"window zero", "tracking:\n  vote_window_size: 0\n"},
		{"confidence above one", "tracking:\n  min_detection_confidence: 1.5\n"},
		{"unknown backend", "detector:\n  backend: opencv\n"},
		{"bad format", "log:\n  format: xml\n"},
		{"bad duration", "tracking:\n  idle_poll_interval: soon\n"},
		{"zero plugin timeout", "plugins:\n  timeout: 0s\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_DirectoryRejected(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestTracking_Validate(t *testing.T) {
	ok := DefaultTracking()
	require.NoError(t, ok.Validate())

	mutations := map[string]func(*Tracking){
		"finger curl":  func(c *Tracking) { c.FingerCurlThreshold = 10 },
		"thumb curl":   func(c *Tracking) { c.ThumbCurlThreshold = 179 },
		"spread":       func(c *Tracking) { c.SpreadThreshold = 90 },
		"vote":         func(c *Tracking) { c.VoteThreshold = 0 },
		"window":       func(c *Tracking) { c.VoteWindowSize = 31 },
		"tracking":     func(c *Tracking) { c.MinTrackingConfidence = -0.1 },
		"ok distance":  func(c *Tracking) { c.OKDistance = 0 },
		"persistence":  func(c *Tracking) { c.PersistenceFrames = -1 },
		"smoothing":    func(c *Tracking) { c.LandmarkSmoothing = 1 },
		"smoothing<0":  func(c *Tracking) { c.LandmarkSmoothing = -0.2 },
		"poll too low": func(c *Tracking) { c.IdlePollInterval = 0 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			c := DefaultTracking()
			mutate(&c)
			err := c.Validate()
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestTracking_ValidateReportsAllProblems(t *testing.T) {
	c := DefaultTracking()
	c.VoteThreshold = 9
	c.SpreadThreshold = 0

	err := c.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "vote_threshold")
	assert.Contains(t, err.Error(), "spread_threshold")
}

func TestConfig_YAMLRoundTrip(t *testing.T) {
	cfg := Default()
	cfg.Tracking.SpreadThreshold = 33
	cfg.Tracking.IdlePollInterval = Duration(25 * time.Millisecond)

	out, err := cfg.YAML()
	require.NoError(t, err)
	assert.Contains(t, string(out), "spread_threshold: 33")

	loaded, err := Load(writeConfig(t, string(out)))
	require.NoError(t, err)
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDuration_JSON(t *testing.T) {
	var tr Tracking
	require.NoError(t, json.Unmarshal([]byte(`{"idle_poll_interval":"15ms","vote_threshold":4}`), &tr))
	assert.Equal(t, 15*time.Millisecond, tr.IdlePollInterval.Duration())
	assert.Equal(t, 4, tr.VoteThreshold)

	data, err := json.Marshal(Duration(time.Second))
	require.NoError(t, err)
	assert.Equal(t, `"1s"`, string(data))

	var d Duration
	assert.Error(t, json.Unmarshal([]byte(`12`), &d))
	assert.Error(t, json.Unmarshal([]byte(`"-1s"`), &d))
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "tracking.spread_threshold", envKey("MUDRA_TRACKING_SPREAD_THRESHOLD"))
	assert.Equal(t, "server.addr", envKey("MUDRA_SERVER_ADDR"))
	assert.Equal(t, "debug", envKey("MUDRA_DEBUG"))
}
