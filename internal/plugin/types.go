// Package plugin runs external executables when a tracked hand settles on a
// new gesture.
package plugin

import (
	"encoding/json"
	"slices"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// ManifestFile is the manifest name looked up in each plugin directory.
const ManifestFile = "plugin.json"

// Manifest describes a plugin and the gestures it reacts to. An empty
// Gestures list subscribes to every gesture.
type Manifest struct {
	Name        string            `json:"name"`
	Version     string            `json:"version"`
	Description string            `json:"description"`
	Executable  string            `json:"executable"`
	Gestures    []gesture.Gesture `json:"gestures"`
	Config      json.RawMessage   `json:"config,omitempty"`
}

// Handles reports whether the plugin subscribes to g.
func (m Manifest) Handles(g gesture.Gesture) bool {
	return len(m.Gestures) == 0 || slices.Contains(m.Gestures, g)
}

// Event is one gesture change on one hand slot.
type Event struct {
	Gesture     gesture.Gesture     `json:"gesture"`
	Previous    gesture.Gesture     `json:"previous,omitempty"`
	Slot        int                 `json:"slot"`
	Handedness  detector.Handedness `json:"handedness"`
	FingerCount int                 `json:"finger_count"`
	Seq         uint64              `json:"seq"`
	At          time.Time           `json:"at"`
}

// Request is written to the plugin's stdin.
type Request struct {
	Event  Event           `json:"event"`
	Config json.RawMessage `json:"config,omitempty"`
}

// Response is read from the plugin's stdout.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}
