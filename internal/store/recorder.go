package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/logging"
	"github.com/ayusman/mudra/internal/tracking"
)

// ErrNotRecording is returned when stopping a recorder that has no session.
var ErrNotRecording = errors.New("not recording")

// SnapshotSource is the read side of the tracking orchestrator.
type SnapshotSource interface {
	Latest() (tracking.Snapshot, bool)
}

// Recorder polls a SnapshotSource and writes each new snapshot into the
// active session. Snapshots replaced between polls are not recorded; the gap
// in sequence numbers is added to the session's missed count.
type Recorder struct {
	store    *Store
	src      SnapshotSource
	interval time.Duration
	log      *zap.Logger

	mu      sync.Mutex
	session *Session
	lastSeq uint64
}

// NewRecorder returns an idle recorder.
func NewRecorder(s *Store, src SnapshotSource, interval time.Duration, log *zap.Logger) *Recorder {
	if interval <= 0 {
		interval = 30 * time.Millisecond
	}
	return &Recorder{
		store:    s,
		src:      src,
		interval: interval,
		log:      logging.OrNop(log).Named("recorder"),
	}
}

// Begin starts a new session, ending any active one first.
func (r *Recorder) Begin(label string) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session != nil {
		if err := r.store.Sessions().End(r.session.ID); err != nil {
			return nil, fmt.Errorf("end session %s: %w", r.session.ID, err)
		}
	}

	sess, err := r.store.Sessions().Create(label)
	if err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	r.session = sess
	if snap, ok := r.src.Latest(); ok {
		r.lastSeq = snap.Seq
	} else {
		r.lastSeq = 0
	}

	r.log.Info("recording started", zap.String("session", sess.ID), zap.String("label", label))
	return sess, nil
}

// End finishes the active session and returns it as stored.
func (r *Recorder) End() (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return nil, ErrNotRecording
	}
	id := r.session.ID
	r.session = nil

	if err := r.store.Sessions().End(id); err != nil {
		return nil, fmt.Errorf("end session %s: %w", id, err)
	}
	sess, err := r.store.Sessions().GetByID(id)
	if err != nil {
		return nil, err
	}

	r.log.Info("recording stopped", zap.String("session", id),
		zap.Int("frames", sess.Frames), zap.Int("missed", sess.Missed))
	return sess, nil
}

// Active returns the session being recorded, or nil.
func (r *Recorder) Active() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session == nil {
		return nil
	}
	s := *r.session
	return &s
}

// Poll records the current snapshot if it is newer than the last one
// recorded. It reports whether a snapshot was written.
func (r *Recorder) Poll() (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.session == nil {
		return false, nil
	}
	snap, ok := r.src.Latest()
	if !ok || snap.Seq <= r.lastSeq {
		return false, nil
	}

	missed := int(snap.Seq - r.lastSeq - 1)
	if err := r.store.Frames().Record(r.session.ID, missed, HandFrames(snap)); err != nil {
		return false, fmt.Errorf("record seq %d: %w", snap.Seq, err)
	}
	if missed > 0 {
		r.log.Debug("snapshots missed", zap.Uint64("seq", snap.Seq), zap.Int("missed", missed))
	}
	r.lastSeq = snap.Seq
	return true, nil
}

// Run polls until ctx is done and then ends any active session.
func (r *Recorder) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if _, err := r.End(); err != nil && !errors.Is(err, ErrNotRecording) {
				r.log.Warn("failed to end session", zap.Error(err))
			}
			return
		case <-ticker.C:
			if _, err := r.Poll(); err != nil {
				r.log.Warn("failed to record snapshot", zap.Error(err))
			}
		}
	}
}

// HandFrames flattens a snapshot into export records.
func HandFrames(snap tracking.Snapshot) []HandFrame {
	out := make([]HandFrame, 0, len(snap.Hands))
	for _, h := range snap.Hands {
		out = append(out, HandFrame{
			Seq:         snap.Seq,
			CapturedAt:  snap.FrameTime,
			Slot:        h.Slot,
			Handedness:  h.Handedness,
			Score:       h.Score,
			Fingers:     h.Fingers,
			Gesture:     h.Gesture,
			FingerCount: h.FingerCount,
		})
	}
	return out
}
