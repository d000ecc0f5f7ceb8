package store

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Session is one recording.
type Session struct {
	ID        string     `json:"id"`
	Label     string     `json:"label"`
	Frames    int        `json:"frames"`
	// Missed counts snapshots published while recording that were never
	// written because a newer one replaced them first.
	Missed    int        `json:"missed"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
}

// Active reports whether the session is still recording.
func (s *Session) Active() bool {
	return s.EndedAt == nil
}

// SessionRepository provides operations on recording sessions.
type SessionRepository struct {
	db *sql.DB
}

// Sessions returns the session repository for this store.
func (s *Store) Sessions() *SessionRepository {
	return &SessionRepository{db: s.db}
}

// Create starts a new session with a fresh ID.
func (r *SessionRepository) Create(label string) (*Session, error) {
	sess := &Session{
		ID:        uuid.NewString(),
		Label:     label,
		StartedAt: time.Now().UTC(),
	}

	_, err := r.db.Exec(
		`INSERT INTO sessions (id, label, started_at) VALUES (?, ?, ?)`,
		sess.ID, sess.Label, sess.StartedAt,
	)
	if err != nil {
		return nil, err
	}

	return sess, nil
}

// End marks a session finished. Ending an already ended session keeps the
// first end time.
func (r *SessionRepository) End(id string) error {
	result, err := r.db.Exec(
		`UPDATE sessions SET ended_at = COALESCE(ended_at, ?) WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetByID retrieves a session by its ID.
func (r *SessionRepository) GetByID(id string) (*Session, error) {
	row := r.db.QueryRow(
		`SELECT id, label, frames, missed, started_at, ended_at FROM sessions WHERE id = ?`,
		id,
	)

	sess, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return sess, nil
}

// List retrieves all sessions, newest first.
func (r *SessionRepository) List() ([]*Session, error) {
	rows, err := r.db.Query(
		`SELECT id, label, frames, missed, started_at, ended_at
		 FROM sessions ORDER BY started_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

// Delete removes a session and its frames.
func (r *SessionRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*Session, error) {
	sess := &Session{}
	var ended sql.NullTime

	if err := row.Scan(&sess.ID, &sess.Label, &sess.Frames, &sess.Missed, &sess.StartedAt, &ended); err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		sess.EndedAt = &t
	}
	return sess, nil
}
