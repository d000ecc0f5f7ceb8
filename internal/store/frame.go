package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/gesture"
)

// HandFrame is the exported record for one hand on one processed frame.
type HandFrame struct {
	ID          int64                                   `json:"id"`
	SessionID   string                                  `json:"session_id"`
	Seq         uint64                                  `json:"seq"`
	CapturedAt  time.Time                               `json:"captured_at"`
	Slot        int                                     `json:"slot"`
	Handedness  detector.Handedness                     `json:"handedness"`
	Score       float64                                 `json:"score"`
	Fingers     [gesture.NumFingers]gesture.FingerState `json:"fingers"`
	Gesture     gesture.Gesture                         `json:"gesture"`
	FingerCount int                                     `json:"finger_count"`
}

// FrameRepository provides operations on recorded hand frames.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the frame repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// InsertBatch stores the hands of one snapshot and bumps the session frame
// count in a single transaction. An empty batch still counts the frame.
func (r *FrameRepository) InsertBatch(sessionID string, frames []HandFrame) error {
	return r.Record(sessionID, 0, frames)
}

// Record is InsertBatch that also adds missed to the session's count of
// snapshots skipped since the previous one.
func (r *FrameRepository) Record(sessionID string, missed int, frames []HandFrame) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE sessions SET frames = frames + 1, missed = missed + ? WHERE id = ? AND ended_at IS NULL`,
		missed, sessionID,
	)
	if err != nil {
		return err
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}

	stmt, err := tx.Prepare(
		`INSERT INTO hand_frames (session_id, seq, captured_at, slot, handedness, score, fingers, gesture, finger_count)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, f := range frames {
		fingers, err := json.Marshal(f.Fingers)
		if err != nil {
			return fmt.Errorf("failed to encode fingers: %w", err)
		}
		var g sql.NullString
		if f.Gesture != gesture.GestureNone {
			g = sql.NullString{String: string(f.Gesture), Valid: true}
		}

		_, err = stmt.Exec(sessionID, int64(f.Seq), f.CapturedAt.UTC(), f.Slot, string(f.Handedness),
			f.Score, string(fingers), g, f.FingerCount)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListBySession returns a session's frames in capture order. A limit of zero
// or less returns everything.
func (r *FrameRepository) ListBySession(sessionID string, limit int) ([]HandFrame, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, session_id, seq, captured_at, slot, handedness, score, fingers, gesture, finger_count
		 FROM hand_frames WHERE session_id = ? ORDER BY seq, slot LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []HandFrame
	for rows.Next() {
		var (
			f          HandFrame
			seq        int64
			handedness string
			fingers    string
			g          sql.NullString
		)

		err := rows.Scan(&f.ID, &f.SessionID, &seq, &f.CapturedAt, &f.Slot, &handedness, &f.Score, &fingers, &g, &f.FingerCount)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(fingers), &f.Fingers); err != nil {
			return nil, fmt.Errorf("failed to decode fingers for frame %d: %w", f.ID, err)
		}

		f.Seq = uint64(seq)
		f.Handedness = detector.Handedness(handedness)
		f.Gesture = gesture.Gesture(g.String)
		frames = append(frames, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return frames, nil
}
