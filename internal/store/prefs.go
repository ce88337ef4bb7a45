package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// GetPreference returns the stored value for key, or def when unset.
func (s *Store) GetPreference(key, def string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM preferences WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return def, nil
	}
	if err != nil {
		return "", fmt.Errorf("get preference %s: %w", key, err)
	}
	return value, nil
}

// SavePreference stores a preference value.
func (s *Store) SavePreference(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO preferences (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("save preference %s: %w", key, err)
	}
	return nil
}

// DeletePreference removes a preference if present.
func (s *Store) DeletePreference(key string) error {
	if _, err := s.db.Exec("DELETE FROM preferences WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete preference %s: %w", key, err)
	}
	return nil
}

// ClearFileMetadata drops every cached remote file handle and the cached
// remote index, forcing full downloads on the next sync. Used after the
// remote store is wiped.
func (s *Store) ClearFileMetadata() error {
	if _, err := s.db.Exec(
		"DELETE FROM preferences WHERE key LIKE 'file_meta.%' OR key = 'remote_index_cache'"); err != nil {
		return fmt.Errorf("clear file metadata: %w", err)
	}
	return nil
}
