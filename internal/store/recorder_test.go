package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/tracking"
)

type fakeSource struct {
	mu   sync.Mutex
	snap tracking.Snapshot
	ok   bool
}

func (f *fakeSource) Latest() (tracking.Snapshot, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snap, f.ok
}

func (f *fakeSource) publish(seq uint64, hands ...gesture.HandAnalysis) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snap = tracking.Snapshot{Seq: seq, FrameTime: time.Now(), Hands: hands}
	f.ok = true
}

func analysis(t *testing.T, lm detector.HandLandmarks) gesture.HandAnalysis {
	t.Helper()
	a, err := gesture.NewClassifier(gesture.DefaultParams()).Analyze(lm)
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	return a
}

func TestRecorder_RecordsNewSnapshotsOnly(t *testing.T) {
	s := newTestStore(t)
	src := &fakeSource{}
	rec := NewRecorder(s, src, 0, nil)

	if ok, err := rec.Poll(); ok || err != nil {
		t.Fatalf("Poll without session = %v, %v", ok, err)
	}

	src.publish(7, analysis(t, detector.PeaceLandmarks()))
	sess, err := rec.Begin("demo")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	// snapshot published before Begin is not recorded
	if ok, _ := rec.Poll(); ok {
		t.Error("snapshot from before the session should be skipped")
	}

	src.publish(8, analysis(t, detector.PeaceLandmarks()), analysis(t, detector.FistLandmarks()))
	if ok, err := rec.Poll(); !ok || err != nil {
		t.Fatalf("Poll = %v, %v, want recorded", ok, err)
	}
	if ok, _ := rec.Poll(); ok {
		t.Error("same seq should not be recorded twice")
	}

	src.publish(9)
	if ok, err := rec.Poll(); !ok || err != nil {
		t.Fatalf("Poll = %v, %v, want recorded", ok, err)
	}

	ended, err := rec.End()
	if err != nil {
		t.Fatalf("End failed: %v", err)
	}
	if ended.Frames != 2 {
		t.Errorf("Frames = %d, want 2", ended.Frames)
	}
	if ended.Active() {
		t.Error("ended session should not be active")
	}

	frames, err := s.Frames().ListBySession(sess.ID, 0)
	if err != nil {
		t.Fatalf("ListBySession failed: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d hand frames, want 2", len(frames))
	}
	if frames[0].Gesture != gesture.Peace || frames[0].FingerCount != 2 {
		t.Errorf("unexpected first record %+v", frames[0])
	}
	if frames[1].Gesture != gesture.Fist || frames[1].FingerCount != 0 {
		t.Errorf("unexpected second record %+v", frames[1])
	}

	if _, err := rec.End(); !errors.Is(err, ErrNotRecording) {
		t.Errorf("End error = %v, want ErrNotRecording", err)
	}
}

func TestRecorder_CountsMissedSnapshots(t *testing.T) {
	s := newTestStore(t)
	src := &fakeSource{}
	src.publish(3)
	rec := NewRecorder(s, src, 0, nil)

	sess, err := rec.Begin("gaps")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	for _, seq := range []uint64{4, 7, 8, 12} {
		src.publish(seq, analysis(t, detector.FistLandmarks()))
		if ok, err := rec.Poll(); !ok || err != nil {
			t.Fatalf("Poll seq %d = %v, %v", seq, ok, err)
		}
	}

	got, err := s.Sessions().GetByID(sess.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Frames != 4 {
		t.Errorf("Frames = %d, want 4", got.Frames)
	}
	// 5, 6, 9, 10, 11
	if got.Missed != 5 {
		t.Errorf("Missed = %d, want 5", got.Missed)
	}
}

func TestRecorder_BeginEndsPreviousSession(t *testing.T) {
	s := newTestStore(t)
	rec := NewRecorder(s, &fakeSource{}, 0, nil)

	first, err := rec.Begin("one")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	second, err := rec.Begin("two")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	if active := rec.Active(); active == nil || active.ID != second.ID {
		t.Errorf("Active = %+v, want %s", active, second.ID)
	}
	got, _ := s.Sessions().GetByID(first.ID)
	if got.Active() {
		t.Error("first session should have been ended")
	}
}

func TestRecorder_RunEndsSessionOnCancel(t *testing.T) {
	s := newTestStore(t)
	src := &fakeSource{}
	rec := NewRecorder(s, src, time.Millisecond, nil)

	sess, err := rec.Begin("")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()

	src.publish(1, analysis(t, detector.OpenHandLandmarks()))
	deadline := time.Now().Add(2 * time.Second)
	for {
		got, _ := s.Sessions().GetByID(sess.ID)
		if got.Frames == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("snapshot was not recorded")
		}
		time.Sleep(time.Millisecond)
	}

	cancel()
	<-done

	if rec.Active() != nil {
		t.Error("no session should be active after Run returns")
	}
	got, _ := s.Sessions().GetByID(sess.ID)
	if got.Active() {
		t.Error("session should be ended after Run returns")
	}
}
