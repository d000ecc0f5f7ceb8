package plugin

import (
	"encoding/json"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script plugins need a POSIX shell")
	}
}

// writePlugin creates dir/<name> with a manifest and an executable script.
func writePlugin(t *testing.T, dir string, m Manifest, script string) *Plugin {
	t.Helper()

	pluginDir := filepath.Join(dir, m.Name)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if m.Executable == "" {
		m.Executable = "run.sh"
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, ManifestFile), data, 0644); err != nil {
		t.Fatalf("write manifest: %v", err)
	}
	exe := filepath.Join(pluginDir, m.Executable)
	if err := os.WriteFile(exe, []byte(script), 0755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return &Plugin{Manifest: m, Path: pluginDir, Executable: exe}
}

const successScript = `#!/bin/sh
cat > /dev/null
echo '{"success":true}'
`
