package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/NateEaton/mind-pwa-sub000/internal/model"
)

// GetArchiveRecord returns the archived week for the given anchor date, or
// nil when that week was never archived.
func (s *Store) GetArchiveRecord(anchorDate string) (*model.ArchiveRecord, error) {
	var payload string
	err := s.db.QueryRow("SELECT payload FROM archive_weeks WHERE week_start = ?", anchorDate).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load archive %s: %w", anchorDate, err)
	}

	var rec model.ArchiveRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decode archive %s: %w", anchorDate, err)
	}
	return &rec, nil
}

// SaveArchiveRecord inserts or replaces an archived week.
func (s *Store) SaveArchiveRecord(rec *model.ArchiveRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode archive %s: %w", rec.WeekStartDate, err)
	}
	_, err = s.db.Exec(`
		INSERT INTO archive_weeks (week_start, payload, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (week_start) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		rec.WeekStartDate, string(payload), rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save archive %s: %w", rec.WeekStartDate, err)
	}
	return nil
}

// GetAllArchiveRecords returns every archived week, newest anchor first.
func (s *Store) GetAllArchiveRecords() ([]*model.ArchiveRecord, error) {
	rows, err := s.db.Query("SELECT payload FROM archive_weeks ORDER BY week_start DESC")
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var out []*model.ArchiveRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		var rec model.ArchiveRecord
		if err := json.Unmarshal([]byte(payload), &rec); err != nil {
			return nil, fmt.Errorf("decode archive: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

// LocalArchiveIndex builds an index projection of the local archive.
func (s *Store) LocalArchiveIndex() (*model.ArchiveIndex, error) {
	rows, err := s.db.Query("SELECT week_start, updated_at FROM archive_weeks ORDER BY week_start")
	if err != nil {
		return nil, fmt.Errorf("index archives: %w", err)
	}
	defer rows.Close()

	ix := &model.ArchiveIndex{}
	for rows.Next() {
		var anchor string
		var updatedAt int64
		if err := rows.Scan(&anchor, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan archive index: %w", err)
		}
		ix.Upsert(anchor, updatedAt)
	}
	return ix, rows.Err()
}
