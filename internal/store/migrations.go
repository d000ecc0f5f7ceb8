package store

import "fmt"

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		// Sessions table - one row per recording
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			frames INTEGER NOT NULL DEFAULT 0,
			missed INTEGER NOT NULL DEFAULT 0,
			started_at DATETIME NOT NULL,
			ended_at DATETIME
		)`,

		// Hand frames table - one row per processed frame and hand
		`CREATE TABLE IF NOT EXISTS hand_frames (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			captured_at DATETIME NOT NULL,
			slot INTEGER NOT NULL,
			handedness TEXT NOT NULL CHECK(handedness IN ('Left', 'Right')),
			score REAL NOT NULL,
			fingers TEXT NOT NULL,
			gesture TEXT,
			finger_count INTEGER NOT NULL CHECK(finger_count BETWEEN 0 AND 5)
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_hand_frames_session_seq ON hand_frames(session_id, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_started_at ON sessions(started_at)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	// Columns added after the first release.
	return s.ensureColumn("sessions", "missed", "INTEGER NOT NULL DEFAULT 0")
}

// ensureColumn adds column to table unless it already exists.
func (s *Store) ensureColumn(table, column, decl string) error {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM pragma_table_info(?) WHERE name = ?`, table, column).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	_, err = s.db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, decl))
	return err
}
