package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/NateEaton/mind-pwa-sub000/internal/model"
)

const deviceIDKey = "device_id"

// DeviceID returns the stable identifier for this device, generating and
// persisting one on first use.
func (s *Store) DeviceID() (string, error) {
	id, err := s.GetPreference(deviceIDKey, "")
	if err != nil {
		return "", err
	}
	if id != "" {
		return id, nil
	}
	id = uuid.NewString()
	if err := s.SavePreference(deviceIDKey, id); err != nil {
		return "", err
	}
	return id, nil
}

// LoadCurrentRecord returns the current-week tracking record, or nil when
// none has been created yet.
func (s *Store) LoadCurrentRecord() (*model.TrackingRecord, error) {
	var payload string
	err := s.db.QueryRow("SELECT payload FROM current_state WHERE id = 1").Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load current record: %w", err)
	}

	var rec model.TrackingRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decode current record: %w", err)
	}
	return &rec, nil
}

// SaveCurrentRecord persists the current-week tracking record.
func (s *Store) SaveCurrentRecord(rec *model.TrackingRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode current record: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO current_state (id, payload, updated_at) VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		string(payload), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save current record: %w", err)
	}
	return nil
}

// AddServing adjusts the serving count for a food group on a day, re-derives
// the weekly totals and marks the record dirty, all in one transaction. The
// record must exist (callers run the rollover check first, which creates it).
func (s *Store) AddServing(dayKey, group string, delta int, now time.Time) (*model.TrackingRecord, error) {
	if !model.IsFoodGroup(group) {
		return nil, fmt.Errorf("unknown food group %q", group)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var payload string
	if err := tx.QueryRow("SELECT payload FROM current_state WHERE id = 1").Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("no current record")
		}
		return nil, fmt.Errorf("load current record: %w", err)
	}

	var rec model.TrackingRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("decode current record: %w", err)
	}

	rec.AddCount(dayKey, group, delta, model.NowMillis(now))

	out, err := json.Marshal(&rec)
	if err != nil {
		return nil, fmt.Errorf("encode current record: %w", err)
	}
	if _, err := tx.Exec("UPDATE current_state SET payload = ?, updated_at = ? WHERE id = 1",
		string(out), now.UnixMilli()); err != nil {
		return nil, fmt.Errorf("save current record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &rec, nil
}

// DirtyState reports whether the current week or the archive carry unsynced
// mutations. Used by the daemon's local-change poller.
func (s *Store) DirtyState() (current, history bool, err error) {
	rec, err := s.LoadCurrentRecord()
	if err != nil || rec == nil {
		return false, false, err
	}
	return rec.Metadata.CurrentDirty(), rec.Metadata.HistoryDirty, nil
}
