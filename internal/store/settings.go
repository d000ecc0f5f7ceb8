package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// SettingsRepository stores JSON values by key.
type SettingsRepository struct {
	db *sql.DB
}

// Settings returns the settings repository for this store.
func (s *Store) Settings() *SettingsRepository {
	return &SettingsRepository{db: s.db}
}

// Put encodes v as JSON under key, replacing any previous value.
func (r *SettingsRepository) Put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}

	_, err = r.db.Exec(
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, string(data),
	)
	return err
}

// Get decodes the value under key into v. It returns ErrNotFound for a
// missing key.
func (r *SettingsRepository) Get(key string, v any) error {
	var value string
	err := r.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}

	if err := json.Unmarshal([]byte(value), v); err != nil {
		return fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return nil
}
