// Package commands implements the mudra CLI commands.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/tracking"
)

type runOptions struct {
	configPath    string
	addr          string
	backend       string
	record        bool
	statsInterval time.Duration
}

// NewRunCommand creates the run command.
func NewRunCommand() *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the tracking service",
		Long: `Start capturing from the camera and serve tracking results.

Examples:
  mudra run
  mudra run --config mudra.yaml --addr :9090
  mudra run --backend mock --record`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runService(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "path to a YAML config file")
	cmd.Flags().StringVar(&opts.addr, "addr", "", "HTTP listen address (overrides server.addr)")
	cmd.Flags().StringVar(&opts.backend, "backend", "", "detector backend: mediapipe or mock")
	cmd.Flags().BoolVar(&opts.record, "record", false, "record a session from startup")
	cmd.Flags().DurationVar(&opts.statsInterval, "stats-interval", 10*time.Second, "how often to print pipeline stats, 0 disables")

	return cmd
}

func runService(cmd *cobra.Command, opts runOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	a, err := app.New(app.Options{Config: cfg, Logger: log})
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if opts.statsInterval > 0 {
		go printStats(ctx, cmd.ErrOrStderr(), a.Tracker(), opts.statsInterval)
	}

	log.Info("starting mudra", zap.String("addr", cfg.Server.Addr), zap.String("static", cfg.Server.StaticDir))
	return a.Run(ctx)
}

func loadConfig(cmd *cobra.Command, opts runOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return config.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Server.Addr = opts.addr
	}
	if flags.Changed("backend") {
		cfg.Detector.Backend = opts.backend
	}
	if flags.Changed("record") {
		cfg.Store.Record = opts.record
	}
	if cfg.Server.StaticDir == "" {
		cfg.Server.StaticDir = findWebDir()
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func printStats(ctx context.Context, w io.Writer, tracker *tracking.Orchestrator, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprintln(w, formatStats(tracker.State(), tracker.Stats()))
		}
	}
}

func formatStats(state tracking.State, s tracking.Stats) string {
	return fmt.Sprintf("%s: %s processed, %s skipped (%.1f%%), %s superseded, %s failed, avg %s, latency %s",
		state,
		humanize.Comma(int64(s.FramesProcessed)),
		humanize.Comma(int64(s.FramesSkipped)),
		s.SkipRatio()*100,
		humanize.Comma(int64(s.FramesSuperseded)),
		humanize.Comma(int64(s.FramesFailed)),
		s.AvgProcessingTime.Round(time.Microsecond),
		s.LastLatency.Round(time.Microsecond),
	)
}

// findWebDir returns the first of web, ../web, ../../web or ~/.mudra/web
// that exists, or "".
func findWebDir() string {
	for _, p := range []string{"web", "../web", "../../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}

	dir, err := app.DataDir()
	if err != nil {
		return ""
	}
	homeWeb := filepath.Join(dir, "web")
	if info, err := os.Stat(homeWeb); err == nil && info.IsDir() {
		return homeWeb
	}
	return ""
}
