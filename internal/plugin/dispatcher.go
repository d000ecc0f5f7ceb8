package plugin

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/tracking"
)

// eventQueueSize bounds events waiting for a plugin run. Events beyond it are
// dropped.
const eventQueueSize = 16

var (
	runsTotal     *prometheus.CounterVec
	runsTotalOnce sync.Once
)

func pluginRuns() *prometheus.CounterVec {
	runsTotalOnce.Do(func() {
		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mudra_plugin_runs_total",
				Help: "Total number of plugin executions by plugin and result",
			},
			[]string{"plugin", "result"},
		)
	})
	return runsTotal
}

// SnapshotSource is the read side of the tracking orchestrator.
type SnapshotSource interface {
	Latest() (tracking.Snapshot, bool)
}

// Dispatcher watches published snapshots and runs the subscribed plugins
// each time a hand slot settles on a different gesture.
type Dispatcher struct {
	src      SnapshotSource
	manager  *Manager
	executor *Executor
	interval time.Duration
	log      *zap.Logger
	logDrop  rate.Sometimes

	lastSeq uint64
	current map[int]gesture.Gesture
}

// NewDispatcher creates a Dispatcher polling src every interval.
func NewDispatcher(src SnapshotSource, manager *Manager, executor *Executor, interval time.Duration, log *zap.Logger) *Dispatcher {
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	return &Dispatcher{
		src:      src,
		manager:  manager,
		executor: executor,
		interval: interval,
		log:      logging.OrNop(log).Named("plugins"),
		logDrop:  rate.Sometimes{First: 1, Interval: 10 * time.Second},
		current:  make(map[int]gesture.Gesture),
	}
}

// Poll reads the latest snapshot and returns the gesture changes since the
// previous poll. A slot that changes to no gesture updates state but yields
// no event; a slot that disappears is forgotten. Poll is not safe for
// concurrent use.
func (d *Dispatcher) Poll() []Event {
	snap, ok := d.src.Latest()
	if !ok || snap.Seq == d.lastSeq {
		return nil
	}
	d.lastSeq = snap.Seq

	var events []Event
	seen := make(map[int]bool, len(snap.Hands))
	for _, h := range snap.Hands {
		seen[h.Slot] = true
		prev := d.current[h.Slot]
		if h.Gesture == prev {
			continue
		}
		d.current[h.Slot] = h.Gesture
		if h.Gesture == gesture.GestureNone {
			continue
		}
		events = append(events, Event{
			Gesture:     h.Gesture,
			Previous:    prev,
			Slot:        h.Slot,
			Handedness:  h.Handedness,
			FingerCount: h.FingerCount,
			Seq:         snap.Seq,
			At:          snap.FrameTime,
		})
	}
	for slot := range d.current {
		if !seen[slot] {
			delete(d.current, slot)
		}
	}
	return events
}

// Dispatch runs every plugin subscribed to ev.Gesture, one after another.
// It returns the number of plugins that reported success.
func (d *Dispatcher) Dispatch(ctx context.Context, ev Event) int {
	ok := 0
	for _, p := range d.manager.ForGesture(ev.Gesture) {
		resp, err := d.executor.Execute(ctx, p, &Request{Event: ev, Config: p.Manifest.Config})
		switch {
		case err != nil:
			pluginRuns().WithLabelValues(p.Manifest.Name, "error").Inc()
			d.log.Warn("plugin failed", zap.String("plugin", p.Manifest.Name),
				zap.String("gesture", string(ev.Gesture)), zap.Error(err))
		case !resp.Success:
			pluginRuns().WithLabelValues(p.Manifest.Name, "rejected").Inc()
			d.log.Warn("plugin reported failure", zap.String("plugin", p.Manifest.Name),
				zap.String("gesture", string(ev.Gesture)), zap.String("error", resp.Error))
		default:
			pluginRuns().WithLabelValues(p.Manifest.Name, "success").Inc()
			d.log.Debug("plugin ran", zap.String("plugin", p.Manifest.Name),
				zap.String("gesture", string(ev.Gesture)), zap.Int("slot", ev.Slot))
			ok++
		}
	}
	return ok
}

// Run polls until ctx is done. Plugins run on a separate goroutine so a slow
// plugin never delays change detection.
func (d *Dispatcher) Run(ctx context.Context) {
	queue := make(chan Event, eventQueueSize)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range queue {
			d.Dispatch(ctx, ev)
		}
	}()
	defer func() {
		close(queue)
		wg.Wait()
	}()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		for _, ev := range d.Poll() {
			select {
			case queue <- ev:
			default:
				d.logDrop.Do(func() {
					d.log.Warn("plugin queue full, dropping event", zap.String("gesture", string(ev.Gesture)))
				})
			}
		}
	}
}
