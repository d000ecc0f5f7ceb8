package store

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

func testHandFrame(seq uint64) HandFrame {
	var fingers [gesture.NumFingers]gesture.FingerState
	for _, f := range gesture.Fingers {
		fingers[f] = gesture.FingerState{
			Finger:     f,
			CurlAngle:  170,
			Extended:   true,
			Confidence: gesture.FingerConfidence{Satisfied: 5, Extended: true},
		}
	}
	return HandFrame{
		Seq:         seq,
		CapturedAt:  time.Date(2026, 3, 1, 12, 0, 0, int(seq)*1000, time.UTC),
		Handedness:  detector.Right,
		Score:       0.95,
		Fingers:     fingers,
		Gesture:     gesture.OpenHand,
		FingerCount: 5,
	}
}

func TestFrameRepository_InsertAndList(t *testing.T) {
	s := newTestStore(t)
	sess, err := s.Sessions().Create("")
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}

	none := testHandFrame(2)
	none.Slot = 1
	none.Handedness = detector.Left
	none.Gesture = gesture.GestureNone

	if err := s.Frames().InsertBatch(sess.ID, []HandFrame{testHandFrame(2), none}); err != nil {
		t.Fatalf("failed to insert batch: %v", err)
	}
	if err := s.Frames().InsertBatch(sess.ID, []HandFrame{testHandFrame(1)}); err != nil {
		t.Fatalf("failed to insert batch: %v", err)
	}
	if err := s.Frames().InsertBatch(sess.ID, nil); err != nil {
		t.Fatalf("failed to insert empty batch: %v", err)
	}

	frames, err := s.Frames().ListBySession(sess.ID, 0)
	if err != nil {
		t.Fatalf("failed to list frames: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	if frames[0].Seq != 1 || frames[1].Seq != 2 || frames[2].Slot != 1 {
		t.Errorf("frames not ordered by seq then slot: %+v", frames)
	}

	got := frames[0]
	want := testHandFrame(1)
	if got.SessionID != sess.ID {
		t.Errorf("SessionID = %q, want %q", got.SessionID, sess.ID)
	}
	if !got.CapturedAt.Equal(want.CapturedAt) {
		t.Errorf("CapturedAt = %v, want %v", got.CapturedAt, want.CapturedAt)
	}
	if got.Fingers != want.Fingers {
		t.Errorf("Fingers = %+v, want %+v", got.Fingers, want.Fingers)
	}
	if got.Gesture != gesture.OpenHand || got.FingerCount != 5 || got.Handedness != detector.Right {
		t.Errorf("unexpected record %+v", got)
	}
	if frames[2].Gesture != gesture.GestureNone {
		t.Errorf("Gesture = %q, want none", frames[2].Gesture)
	}

	sessAfter, _ := s.Sessions().GetByID(sess.ID)
	if sessAfter.Frames != 3 {
		t.Errorf("session Frames = %d, want 3", sessAfter.Frames)
	}

	limited, err := s.Frames().ListBySession(sess.ID, 1)
	if err != nil {
		t.Fatalf("failed to list frames: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("got %d frames with limit 1", len(limited))
	}
}

func TestFrameRepository_NullGestureInJSON(t *testing.T) {
	f := testHandFrame(1)
	f.Gesture = gesture.GestureNone

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(data), `"gesture":null`) {
		t.Errorf("expected null gesture in %s", data)
	}
}

func TestFrameRepository_EndedSessionRejectsFrames(t *testing.T) {
	s := newTestStore(t)
	sess, _ := s.Sessions().Create("")
	if err := s.Sessions().End(sess.ID); err != nil {
		t.Fatalf("failed to end session: %v", err)
	}

	err := s.Frames().InsertBatch(sess.ID, []HandFrame{testHandFrame(1)})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("InsertBatch error = %v, want ErrNotFound", err)
	}

	err = s.Frames().InsertBatch("missing", []HandFrame{testHandFrame(1)})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("InsertBatch error = %v, want ErrNotFound", err)
	}
}
