package sync

import (
	"fmt"
	"time"

	"github.com/NateEaton/mind-pwa-sub000/internal/model"
)

// EnsureCurrentPeriod detects a week boundary and rolls the finished week
// into the archive before the new week's record is adopted. The archive's
// totals come from the finished week's own day sums, so a device that was
// offline across the boundary archives exactly what it recorded. Returns
// the (possibly fresh) current record and whether a rollover happened.
func EnsureCurrentPeriod(store LocalStore, targets map[string]model.Target, weekStart time.Weekday, now time.Time) (*model.TrackingRecord, bool, error) {
	rec, err := store.LoadCurrentRecord()
	if err != nil {
		return nil, false, fmt.Errorf("load current record: %w", err)
	}

	anchor := model.WeekStart(now, weekStart)

	if rec == nil {
		deviceID, err := store.DeviceID()
		if err != nil {
			return nil, false, fmt.Errorf("device id: %w", err)
		}
		rec = model.NewTrackingRecord(anchor, deviceID)
		if err := store.SaveCurrentRecord(rec); err != nil {
			return nil, false, err
		}
		return rec, false, nil
	}

	if rec.WeekStartDate == anchor {
		return rec, false, nil
	}

	ts := model.NowMillis(now)

	// Archive the finished week, folding into any record already there.
	archived := model.ArchiveFromRecord(rec, targets, ts)
	if existing, err := store.GetArchiveRecord(rec.WeekStartDate); err != nil {
		return nil, false, err
	} else if existing != nil {
		archived, _ = MergeArchiveRecord(existing, archived)
		archived.UpdatedAt = ts
	}
	if err := store.SaveArchiveRecord(archived); err != nil {
		return nil, false, err
	}

	fresh := model.NewTrackingRecord(anchor, rec.Metadata.DeviceID)
	fresh.Metadata.IsFreshInstall = rec.Metadata.IsFreshInstall
	fresh.Metadata.ResetPerformed = true
	fresh.Metadata.ResetType = model.ResetWeekly
	fresh.Metadata.ResetTimestamp = ts
	fresh.Metadata.PreviousWeekStartDate = rec.WeekStartDate
	fresh.Metadata.MarkHistoryDirty(ts)

	if err := store.SaveCurrentRecord(fresh); err != nil {
		return nil, false, err
	}
	return fresh, true, nil
}
