package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tracking"
	"github.com/ayusman/mudra/testdata"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Detector.Backend = "mock"
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.Store.Path = filepath.Join(t.TempDir(), "data.db")
	cfg.Plugins.Enabled = false
	cfg.Tracking.IdlePollInterval = config.Duration(time.Millisecond)
	return cfg
}

func startApp(t *testing.T, cfg config.Config, cam capture.Camera, det detector.Detector) (*app.App, *httptest.Server) {
	t.Helper()

	a, err := app.New(app.Options{Config: cfg, Camera: cam, Detector: det})
	if err != nil {
		t.Fatalf("app.New() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- a.Run(ctx) }()

	ts := httptest.NewServer(a.Server())
	t.Cleanup(func() {
		ts.Close()
		cancel()
		select {
		case err := <-errCh:
			if err != nil {
				t.Errorf("Run() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Run() did not return")
		}
		a.Close()
	})
	return a, ts
}

func getJSON(t *testing.T, client *http.Client, url string, v any) int {
	t.Helper()
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s error = %v", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusOK && v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func send(t *testing.T, client *http.Client, method, url string, body any, v any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, url, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s error = %v", method, url, err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestE2E_CompleteWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	cfg := testConfig(t)
	cfg.Camera.MotionThreshold = 0

	mock := detector.NewMockDetector()
	mock.SetHands([]detector.HandLandmarks{detector.PeaceLandmarks()})

	_, ts := startApp(t, cfg, capture.NewMockCamera(nil, true), mock)
	client := ts.Client()

	t.Run("Snapshot", func(t *testing.T) {
		var snap tracking.Snapshot
		eventually(t, "a peace snapshot", func() bool {
			snap = tracking.Snapshot{}
			return getJSON(t, client, ts.URL+"/api/snapshot", &snap) == http.StatusOK &&
				len(snap.Hands) == 1 && snap.Hands[0].Gesture == gesture.Peace
		})
		if snap.Hands[0].FingerCount != 2 {
			t.Errorf("finger_count = %d, want 2", snap.Hands[0].FingerCount)
		}
	})

	var sessionID string
	t.Run("StartRecording", func(t *testing.T) {
		var rec struct {
			Recording bool           `json:"recording"`
			Session   *store.Session `json:"session"`
		}
		if code := send(t, client, http.MethodPost, ts.URL+"/api/recording", map[string]string{"label": "e2e"}, &rec); code != http.StatusCreated {
			t.Fatalf("POST /api/recording status = %d, want %d", code, http.StatusCreated)
		}
		if !rec.Recording || rec.Session == nil || rec.Session.Label != "e2e" {
			t.Fatalf("recording = %+v", rec)
		}
		sessionID = rec.Session.ID
	})

	t.Run("FramesRecorded", func(t *testing.T) {
		eventually(t, "recorded frames", func() bool {
			var sess store.Session
			return getJSON(t, client, ts.URL+"/api/sessions/"+sessionID, &sess) == http.StatusOK && sess.Frames >= 3
		})
	})

	t.Run("StopRecording", func(t *testing.T) {
		if code := send(t, client, http.MethodDelete, ts.URL+"/api/recording", nil, nil); code != http.StatusOK {
			t.Fatalf("DELETE /api/recording status = %d", code)
		}
		if code := send(t, client, http.MethodDelete, ts.URL+"/api/recording", nil, nil); code != http.StatusConflict {
			t.Errorf("second DELETE status = %d, want %d", code, http.StatusConflict)
		}
	})

	t.Run("ReadFrames", func(t *testing.T) {
		var out struct {
			Session *store.Session    `json:"session"`
			Frames  []store.HandFrame `json:"frames"`
		}
		url := fmt.Sprintf("%s/api/sessions/%s/frames?limit=2", ts.URL, sessionID)
		if code := getJSON(t, client, url, &out); code != http.StatusOK {
			t.Fatalf("GET frames status = %d", code)
		}
		if out.Session == nil || out.Session.Active() {
			t.Errorf("session = %+v, want ended", out.Session)
		}
		if len(out.Frames) != 2 {
			t.Fatalf("frames = %d, want 2", len(out.Frames))
		}
		for _, f := range out.Frames {
			if f.Gesture != gesture.Peace || f.FingerCount != 2 {
				t.Errorf("frame = %+v", f)
			}
		}
	})

	t.Run("TuneAndPersist", func(t *testing.T) {
		var tr config.Tracking
		if code := send(t, client, http.MethodPut, ts.URL+"/api/config", map[string]any{"spread_threshold": 30}, &tr); code != http.StatusOK {
			t.Fatalf("PUT /api/config status = %d", code)
		}
		if tr.SpreadThreshold != 30 {
			t.Errorf("spread_threshold = %v, want 30", tr.SpreadThreshold)
		}
		if code := send(t, client, http.MethodPut, ts.URL+"/api/config", map[string]any{"vote_threshold": 9}, nil); code != http.StatusBadRequest {
			t.Errorf("invalid PUT status = %d, want %d", code, http.StatusBadRequest)
		}

		st, err := store.New(cfg.Store.Path)
		if err != nil {
			t.Fatalf("store.New() error = %v", err)
		}
		defer st.Close()
		var saved config.Tracking
		if err := st.Settings().Get("tracking", &saved); err != nil {
			t.Fatalf("saved tracking config missing: %v", err)
		}
		if saved.SpreadThreshold != 30 {
			t.Errorf("saved spread_threshold = %v, want 30", saved.SpreadThreshold)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		var stats struct {
			tracking.Stats
			SkipRatio float64 `json:"skip_ratio"`
			State     string  `json:"state"`
		}
		if code := getJSON(t, client, ts.URL+"/api/stats", &stats); code != http.StatusOK {
			t.Fatalf("GET /api/stats status = %d", code)
		}
		if stats.State != "running" || stats.FramesProcessed == 0 {
			t.Errorf("stats = %+v", stats)
		}
	})
}

func TestE2E_MotionGate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}

	tests := []struct {
		name       string
		frames     []*gocv.Mat
		wantFrames bool
	}{
		{"still scene stays idle", testdata.StillSequence(4), false},
		{"motion activates capture", testdata.FlickerSequence(4), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(func() { testdata.Close(tt.frames) })

			cfg := testConfig(t)
			cfg.Camera.FPS = 30
			cfg.Camera.IdleFPS = 20
			cfg.Camera.MotionThreshold = 0.02

			mock := detector.NewMockDetector()
			mock.SetHands([]detector.HandLandmarks{detector.FistLandmarks()})
			cam := capture.NewMockCamera(tt.frames, true)

			a, _ := startApp(t, cfg, cam, mock)

			eventually(t, "camera reads", func() bool { return cam.Reads() >= 6 })

			if tt.wantFrames {
				eventually(t, "processed frames", func() bool { return a.Tracker().Stats().FramesProcessed > 0 })
				snap, ok := a.Tracker().Latest()
				if !ok || len(snap.Hands) != 1 {
					t.Fatalf("snapshot = %+v, %v", snap, ok)
				}
				return
			}
			if got := a.Tracker().Stats().FramesSubmitted; got != 0 {
				t.Errorf("FramesSubmitted = %d for a still scene, want 0", got)
			}
		})
	}
}
