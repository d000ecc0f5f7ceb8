// Package tracking runs landmark detection and classification on a dedicated
// worker and publishes the newest result for lock-free reads.
package tracking

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/validator"
)

var (
	// ErrAlreadyStarted is returned by Start on a running orchestrator.
	ErrAlreadyStarted = errors.New("tracking: already started")
	// ErrNotRunning is returned once the orchestrator has stopped.
	ErrNotRunning = errors.New("tracking: not running")
)

// MaxHands is the most hands a snapshot carries.
const MaxHands = 2

const reasonLowConfidence = "low_confidence"

// State is the orchestrator lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options configures an Orchestrator. Detector is required.
type Options struct {
	Detector detector.Detector
	Config   config.Tracking
	// Validator defaults to validator.DefaultConfig when zero.
	Validator validator.Config
	// MaxHands caps hands per snapshot, highest score first. Zero means MaxHands.
	MaxHands int
	Logger   *zap.Logger
	Metrics  *Metrics
}

// analyzer classifies one hand without touching any smoothing window.
type analyzer interface {
	Analyze(lm detector.HandLandmarks) (gesture.HandAnalysis, error)
}

// Orchestrator owns the worker goroutine. Submit, Latest, Stats, Config and
// SetConfig are safe for concurrent use.
type Orchestrator struct {
	det       detector.Detector
	validator validator.Config
	maxHands  int
	log       *zap.Logger
	metrics   *Metrics
	logFailed rate.Sometimes

	cfg   atomic.Pointer[config.Tracking]
	state atomic.Int32
	box   *mailbox
	buf   doubleBuffer
	stats statsTracker

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	// Owned by the worker.
	applied    config.Tracking
	classifier analyzer
	slots      *gesture.Slots
	seq        uint64
}

// New validates opts.Config and returns an idle orchestrator.
func New(opts Options) (*Orchestrator, error) {
	if opts.Detector == nil {
		return nil, errors.New("tracking: detector is required")
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	maxHands := opts.MaxHands
	if maxHands <= 0 || maxHands > MaxHands {
		maxHands = MaxHands
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	vcfg := opts.Validator
	if vcfg == (validator.Config{}) {
		vcfg = validator.DefaultConfig()
	}

	o := &Orchestrator{
		det:       opts.Detector,
		validator: vcfg,
		maxHands:  maxHands,
		log:       logging.OrNop(opts.Logger).Named("tracking"),
		metrics:   metrics,
		logFailed: rate.Sometimes{First: 3, Interval: 5 * time.Second},
		box:       newMailbox(),
		done:      make(chan struct{}),
	}
	cfg := opts.Config
	o.cfg.Store(&cfg)
	o.applyConfig(cfg)
	return o, nil
}

// ParamsFrom maps tracking tunables to classifier parameters.
func ParamsFrom(cfg config.Tracking) gesture.Params {
	return gesture.Params{
		FingerCurlThreshold: cfg.FingerCurlThreshold,
		ThumbCurlThreshold:  cfg.ThumbCurlThreshold,
		SpreadThreshold:     cfg.SpreadThreshold,
		VoteThreshold:       cfg.VoteThreshold,
		OKDistance:          cfg.OKDistance,
	}
}

// State returns the lifecycle state. A worker ended by its parent context
// reports StateStopping until Stop releases the detector.
func (o *Orchestrator) State() State {
	return State(o.state.Load())
}

// Start opens the detector and launches the worker. A detector failure is
// returned and the orchestrator stays idle.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.State() {
	case StateIdle:
	case StateStopped:
		return ErrNotRunning
	default:
		return ErrAlreadyStarted
	}

	if err := o.det.Open(); err != nil {
		return fmt.Errorf("open detector: %w", err)
	}

	ctx, o.cancel = context.WithCancel(ctx)
	o.state.Store(int32(StateRunning))
	go o.run(ctx)

	o.log.Info("worker started", zap.Int("max_hands", o.maxHands))
	return nil
}

// Stop cancels the worker, waits for the in-flight frame, then closes the
// detector and any pending frame. It is safe to call more than once.
func (o *Orchestrator) Stop() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	switch o.State() {
	case StateStopped:
		return nil
	case StateIdle:
		o.box.close()
		o.state.Store(int32(StateStopped))
		return nil
	}

	o.state.Store(int32(StateStopping))
	o.cancel()
	<-o.done
	o.box.close()

	err := o.det.Close()
	o.state.Store(int32(StateStopped))

	s := o.stats.snapshot()
	o.log.Info("worker stopped",
		zap.Uint64("processed", s.FramesProcessed),
		zap.Uint64("skipped", s.FramesSkipped),
		zap.Uint64("failed", s.FramesFailed))
	if err != nil {
		return fmt.Errorf("close detector: %w", err)
	}
	return nil
}

// Submit hands f to the worker without blocking, replacing any frame not yet
// taken. The orchestrator owns f from here on. After Stop the frame is closed
// and ErrNotRunning returned.
func (o *Orchestrator) Submit(f capture.Frame) error {
	if f.CapturedAt.IsZero() {
		f.CapturedAt = time.Now()
	}
	superseded, ok := o.box.put(f)
	if !ok {
		f.Close()
		return ErrNotRunning
	}
	o.stats.submitted(superseded)
	o.metrics.recordFrame(resultSubmitted)
	if superseded {
		o.metrics.recordFrame(resultSuperseded)
	}
	return nil
}

// Latest returns the current snapshot without blocking. It reports false
// until the first frame has been processed.
func (o *Orchestrator) Latest() (Snapshot, bool) {
	s := o.buf.load()
	if s == nil {
		return Snapshot{}, false
	}
	return *s, true
}

// Stats returns a copy of the counters.
func (o *Orchestrator) Stats() Stats {
	return o.stats.snapshot()
}

// Config returns the tunables in effect for the next frame.
func (o *Orchestrator) Config() config.Tracking {
	return *o.cfg.Load()
}

// SetConfig validates cfg and makes it effective from the next processed frame.
func (o *Orchestrator) SetConfig(cfg config.Tracking) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg.Store(&cfg)
	o.log.Debug("config updated", zap.Any("tracking", cfg))
	return nil
}

func (o *Orchestrator) run(ctx context.Context) {
	defer close(o.done)
	defer o.box.close()
	defer o.state.CompareAndSwap(int32(StateRunning), int32(StateStopping))

	idle := time.NewTimer(o.Config().IdlePollInterval.Duration())
	defer idle.Stop()

	for {
		if ctx.Err() != nil {
			return
		}

		frame, ok := o.box.take()
		if !ok {
			o.stats.skipped()
			o.metrics.recordFrame(resultSkipped)

			idle.Reset(o.Config().IdlePollInterval.Duration())
			select {
			case <-ctx.Done():
				return
			case <-o.box.wake:
			case <-idle.C:
			}
			continue
		}

		o.process(frame)
	}
}

func (o *Orchestrator) process(frame capture.Frame) {
	defer frame.Close()

	start := time.Now()
	cfg := o.Config()
	if cfg != o.applied {
		o.applyConfig(cfg)
	}

	hands, rejected, err := o.analyze(frame, cfg)
	if err != nil {
		o.stats.failed(rejected)
		o.metrics.recordFrame(resultFailed)
		o.logFailed.Do(func() {
			o.log.Warn("frame dropped", zap.Error(err), zap.Uint64("failed", o.stats.snapshot().FramesFailed))
		})
		return
	}

	now := time.Now()
	o.seq++
	snap := &Snapshot{
		Seq:            o.seq,
		FrameTime:      frame.CapturedAt,
		PublishedAt:    now,
		Hands:          hands,
		Latency:        now.Sub(frame.CapturedAt),
		ProcessingTime: now.Sub(start),
	}
	o.buf.publish(snap)

	o.stats.processed(snap.ProcessingTime, snap.Latency, rejected)
	o.metrics.recordPublish(snap)
}

// analyze runs one frame through detection, filtering, slot assignment and
// classification. A panic anywhere in it becomes an error.
func (o *Orchestrator) analyze(frame capture.Frame, cfg config.Tracking) (hands []gesture.HandAnalysis, rejected int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	detected, err := o.det.Detect(frame.Mat)
	if err != nil {
		return nil, 0, fmt.Errorf("detect: %w", err)
	}

	accepted := make([]detector.HandLandmarks, 0, len(detected))
	for _, h := range detected {
		if h.Score < cfg.MinDetectionConfidence {
			rejected++
			o.metrics.recordRejected(reasonLowConfidence)
			continue
		}
		if reason := validator.Check(h, o.validator); reason != validator.Accepted {
			rejected++
			o.metrics.recordRejected(string(reason))
			continue
		}
		accepted = append(accepted, h)
	}
	if len(accepted) > o.maxHands {
		slices.SortStableFunc(accepted, func(a, b detector.HandLandmarks) int {
			return cmp.Compare(b.Score, a.Score)
		})
		accepted = accepted[:o.maxHands]
	}

	// Classify every hand before any slot or window changes so a failure
	// leaves tracking history as it was.
	plan := o.slots.Plan(accepted)
	raw := make([]gesture.HandAnalysis, len(plan.Hands))
	for i, h := range plan.Hands {
		if raw[i], err = o.classifier.Analyze(h); err != nil {
			return nil, rejected, err
		}
	}

	assigned := plan.Commit()
	hands = make([]gesture.HandAnalysis, len(raw))
	for i, a := range raw {
		hands[i] = gesture.Settle(a, assigned[i].Window)
		hands[i].Slot = assigned[i].Slot
	}
	return hands, rejected, nil
}

// applyConfig rebuilds worker state that depends on cfg. New confidence
// thresholds are pushed to a detector that supports it and restart hand
// tracking from empty slots. If the detector refuses, the old thresholds
// stay applied and the next frame retries.
func (o *Orchestrator) applyConfig(cfg config.Tracking) {
	if o.slots != nil && confidenceChanged(o.applied, cfg) {
		if err := o.reconfigure(cfg); err != nil {
			o.logFailed.Do(func() {
				o.log.Warn("detector reconfigure failed", zap.Error(err))
			})
			cfg.MinDetectionConfidence = o.applied.MinDetectionConfidence
			cfg.MinTrackingConfidence = o.applied.MinTrackingConfidence
		} else {
			o.slots = nil
		}
	}

	o.classifier = gesture.NewClassifier(ParamsFrom(cfg))
	if o.slots == nil {
		o.slots = gesture.NewSlots(cfg.VoteWindowSize, cfg.PersistenceFrames)
	} else {
		if cfg.VoteWindowSize != o.applied.VoteWindowSize {
			o.slots.Resize(cfg.VoteWindowSize)
		}
		o.slots.SetPersistence(cfg.PersistenceFrames)
	}
	o.slots.SetSmoothing(cfg.LandmarkSmoothing)
	o.applied = cfg
}

func confidenceChanged(a, b config.Tracking) bool {
	return a.MinDetectionConfidence != b.MinDetectionConfidence ||
		a.MinTrackingConfidence != b.MinTrackingConfidence
}

func (o *Orchestrator) reconfigure(cfg config.Tracking) error {
	r, ok := o.det.(detector.Reconfigurer)
	if !ok {
		return nil
	}
	if err := r.SetConfidence(cfg.MinDetectionConfidence, cfg.MinTrackingConfidence); err != nil {
		return fmt.Errorf("set confidence: %w", err)
	}
	o.log.Info("detector reconfigured",
		zap.Float64("min_detection_confidence", cfg.MinDetectionConfidence),
		zap.Float64("min_tracking_confidence", cfg.MinTrackingConfidence))
	return nil
}
