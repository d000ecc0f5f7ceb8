// Package app wires capture, tracking, recording and the HTTP server into the
// mudra service.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/plugin"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tracking"
	"github.com/ayusman/mudra/internal/validator"
)

// trackingSettingsKey is where runtime tunables are persisted.
const trackingSettingsKey = "tracking"

// Options configures an App. Camera and Detector override the devices
// selected by Config.
type Options struct {
	Config   config.Config
	Logger   *zap.Logger
	Camera   capture.Camera
	Detector detector.Detector
}

// App is the main application that moves frames from the camera through the
// tracking orchestrator to its consumers.
type App struct {
	cfg      config.Config
	log      *zap.Logger
	camera   capture.Camera
	motion   *capture.MotionDetector
	gate     *capture.ActivityGate
	detector detector.Detector
	tracker  *tracking.Orchestrator
	store    *store.Store
	recorder *store.Recorder
	plugins  *plugin.Manager
	dispatch *plugin.Dispatcher
	server   *server.Server
	logRead  rate.Sometimes

	mu      sync.RWMutex
	enabled bool
}

// New builds the application. It opens the store but no devices; those are
// opened by Run. Close releases the store.
func New(opts Options) (*App, error) {
	cfg := opts.Config
	log := logging.OrNop(opts.Logger)

	st, err := openStore(cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	// keys missing from older saved settings keep their configured values
	saved := cfg.Tracking
	switch err := st.Settings().Get(trackingSettingsKey, &saved); {
	case err == nil:
		if verr := saved.Validate(); verr != nil {
			log.Warn("ignoring saved tracking config", zap.Error(verr))
		} else {
			cfg.Tracking = saved
			log.Info("restored saved tracking config")
		}
	case !errors.Is(err, store.ErrNotFound):
		log.Warn("failed to read saved tracking config", zap.Error(err))
	}

	a := &App{
		cfg:     cfg,
		log:     log,
		store:   st,
		logRead: rate.Sometimes{First: 1, Interval: 10 * time.Second},
		enabled: true,
	}

	a.camera = opts.Camera
	if a.camera == nil {
		a.camera = capture.NewCamera(capture.Options{
			Device: cfg.Camera.Device,
			Width:  cfg.Camera.Width,
			Height: cfg.Camera.Height,
			FPS:    cfg.Camera.FPS,
			Mirror: cfg.Camera.Mirror,
		})
	}
	if cfg.Camera.MotionThreshold > 0 {
		a.motion = capture.NewMotionDetector(cfg.Camera.MotionThreshold)
		a.gate = capture.NewActivityGate(cfg.Camera.FPS, cfg.Camera.IdleFPS, cfg.Camera.IdleAfter.Duration())
	}

	a.detector = opts.Detector
	if a.detector == nil {
		a.detector = newDetector(cfg, log)
	}

	a.tracker, err = tracking.New(tracking.Options{
		Detector:  a.detector,
		Config:    cfg.Tracking,
		Validator: validator.DefaultConfig(),
		MaxHands:  cfg.Detector.MaxHands,
		Logger:    log,
	})
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("create tracker: %w", err)
	}

	a.recorder = store.NewRecorder(st, a.tracker, cfg.Server.StreamInterval.Duration()/2, log)

	if cfg.Plugins.Enabled {
		if err := a.setupPlugins(); err != nil {
			st.Close()
			return nil, err
		}
	}

	a.server = server.New(server.Config{
		StaticDir:      cfg.Server.StaticDir,
		Tracker:        a.tracker,
		Store:          st,
		Recorder:       a.recorder,
		PersistConfig:  a.persistTracking,
		StreamInterval: cfg.Server.StreamInterval.Duration(),
		Logger:         log,
	})

	return a, nil
}

func (a *App) setupPlugins() error {
	dir := a.cfg.Plugins.Dir
	if dir == "" {
		dataDir, err := DataDir()
		if err != nil {
			return err
		}
		dir = filepath.Join(dataDir, "plugins")
	}

	a.plugins = plugin.NewManager(dir, a.log)
	if err := a.plugins.Discover(); err != nil {
		return fmt.Errorf("discover plugins: %w", err)
	}
	a.dispatch = plugin.NewDispatcher(a.tracker, a.plugins,
		plugin.NewExecutor(a.cfg.Plugins.Timeout.Duration()),
		a.cfg.Server.StreamInterval.Duration(), a.log)
	return nil
}

func newDetector(cfg config.Config, log *zap.Logger) detector.Detector {
	if cfg.Detector.Backend == "mock" {
		log.Info("using mock hand detector")
		return detector.NewMockDetector()
	}
	return detector.NewMediaPipeDetector(detector.Config{
		MaxHands:        cfg.Detector.MaxHands,
		MinConfidence:   cfg.Tracking.MinDetectionConfidence,
		MinTrackingConf: cfg.Tracking.MinTrackingConfidence,
		ScriptPath:      cfg.Detector.ScriptPath,
		PythonPath:      cfg.Detector.PythonPath,
		JPEGQuality:     cfg.Detector.JPEGQuality,
	}, log)
}

// openStore opens path, or ~/.mudra/mudra.db when path is empty.
func openStore(path string) (*store.Store, error) {
	if path == "" {
		dir, err := DataDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, "mudra.db")
	} else if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	st, err := store.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}
	return st, nil
}

// DataDir returns ~/.mudra, creating it if needed.
func DataDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	dir := filepath.Join(homeDir, ".mudra")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}
	return dir, nil
}

func (a *App) persistTracking(cfg config.Tracking) error {
	return a.store.Settings().Put(trackingSettingsKey, cfg)
}

// Run opens the camera and detector and serves until ctx is done. Everything
// it started is stopped before it returns.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.tracker.Start(ctx); err != nil {
		return err
	}
	defer func() {
		if err := a.tracker.Stop(); err != nil {
			a.log.Warn("error stopping tracker", zap.Error(err))
		}
	}()

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	defer func() {
		if err := a.camera.Close(); err != nil {
			a.log.Warn("error closing camera", zap.Error(err))
		}
		if a.motion != nil {
			a.motion.Close()
		}
	}()

	if a.cfg.Store.Record {
		if _, err := a.recorder.Begin("startup"); err != nil {
			return err
		}
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		a.runCapture(ctx)
	}()
	go func() {
		defer wg.Done()
		a.recorder.Run(ctx)
	}()
	if a.dispatch != nil && len(a.plugins.List()) > 0 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.dispatch.Run(ctx)
		}()
	}

	a.log.Info("pipeline started",
		zap.String("detector", a.cfg.Detector.Backend),
		zap.Bool("motion_gate", a.gate != nil))

	err := a.server.Run(ctx, a.cfg.Server.Addr)
	cancel()
	wg.Wait()

	a.log.Info("pipeline stopped")
	return err
}

// Close releases the store. Call it once Run has returned.
func (a *App) Close() error {
	return a.store.Close()
}

// SetEnabled pauses or resumes frame submission.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.enabled = enabled
}

// IsEnabled returns whether frames are being submitted.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Tracker returns the tracking orchestrator.
func (a *App) Tracker() *tracking.Orchestrator {
	return a.tracker
}

// Recorder returns the session recorder.
func (a *App) Recorder() *store.Recorder {
	return a.recorder
}

// Plugins returns the plugin manager, or nil when plugins are disabled.
func (a *App) Plugins() *plugin.Manager {
	return a.plugins
}

// Server returns the HTTP handler.
func (a *App) Server() *server.Server {
	return a.server
}
