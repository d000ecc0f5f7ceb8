// Package main is a mudra plugin that sends a keyboard shortcut for each
// gesture bound in its manifest config. It drives macOS System Events through
// osascript.
//
// Example plugin.json:
//
//	{
//	  "name": "keyboard",
//	  "executable": "keyboard",
//	  "gestures": ["peace", "thumbs_up"],
//	  "config": {
//	    "bindings": {
//	      "peace":     {"key": "tab", "modifiers": ["command"]},
//	      "thumbs_up": {"key": " "}
//	    }
//	  }
//	}
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Request mirrors the message the plugin dispatcher writes to stdin.
type Request struct {
	Event  Event           `json:"event"`
	Config json.RawMessage `json:"config"`
}

// Event is the subset of the gesture event this plugin reads.
type Event struct {
	Gesture string `json:"gesture"`
	Slot    int    `json:"slot"`
}

// Response is written to stdout.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Config maps gesture names to shortcuts.
type Config struct {
	Bindings map[string]Shortcut `json:"bindings"`
}

// Shortcut is a key with optional modifiers: command, option, control, shift.
type Shortcut struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"`
}

var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

var errUnbound = errors.New("no binding for gesture")

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		respond(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	sc, err := lookup(req)
	if err != nil {
		respond(err)
		return
	}
	respond(runAppleScript(keystrokeScript(sc)))
}

func lookup(req Request) (Shortcut, error) {
	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			return Shortcut{}, fmt.Errorf("invalid config: %w", err)
		}
	}
	sc, ok := cfg.Bindings[req.Event.Gesture]
	if !ok {
		return Shortcut{}, fmt.Errorf("%w %q", errUnbound, req.Event.Gesture)
	}
	if sc.Key == "" {
		return Shortcut{}, fmt.Errorf("binding for %q has no key", req.Event.Gesture)
	}
	return sc, nil
}

// keystrokeScript builds the System Events command for sc. Unknown modifiers
// are ignored.
func keystrokeScript(sc Shortcut) string {
	key := strings.ReplaceAll(sc.Key, `"`, `\"`)

	var mods []string
	for _, m := range sc.Modifiers {
		if am, ok := modifierMap[strings.ToLower(m)]; ok {
			mods = append(mods, am)
		}
	}
	if len(mods) == 0 {
		return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, key)
	}
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s" using {%s}`, key, strings.Join(mods, ", "))
}

func respond(err error) {
	resp := Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	_ = json.NewEncoder(os.Stdout).Encode(resp)
}

func runAppleScript(script string) error {
	out, err := exec.Command("osascript", "-e", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}
