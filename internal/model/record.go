package model

import (
	"time"
)

// DayKeyLayout is the date format used for day keys and week anchors.
const DayKeyLayout = "2006-01-02"

// DayCounts maps a food-group ID to the number of servings recorded that day.
type DayCounts map[string]int

// SyncMetadata travels inside the Tracking Record and carries the dirty
// flags, timestamps and reset bookkeeping the sync engine reconciles on.
// Timestamps are Unix milliseconds.
type SyncMetadata struct {
	DeviceID         string `json:"deviceId"`
	DailyDirty       bool   `json:"dailyDirty"`
	WeeklyDirty      bool   `json:"weeklyDirty"`
	HistoryDirty     bool   `json:"historyDirty"`
	Dirty            bool   `json:"dirty"`
	DailyUpdatedAt   int64  `json:"dailyUpdatedAt"`
	WeeklyUpdatedAt  int64  `json:"weeklyUpdatedAt"`
	HistoryUpdatedAt int64  `json:"historyUpdatedAt"`
	IsFreshInstall   bool   `json:"isFreshInstall"`

	ResetPerformed        bool   `json:"resetPerformed"`
	ResetType             string `json:"resetType,omitempty"`
	ResetTimestamp        int64  `json:"resetTimestamp,omitempty"`
	PreviousWeekStartDate string `json:"previousWeekStartDate,omitempty"`
}

// Reset types recorded in SyncMetadata.ResetType.
const (
	ResetDaily  = "daily"
	ResetWeekly = "weekly"
)

// MarkDailyDirty flags a day-level mutation at the given time.
func (m *SyncMetadata) MarkDailyDirty(ts int64) {
	m.DailyDirty = true
	m.DailyUpdatedAt = ts
	m.syncCombined()
}

// MarkWeeklyDirty flags a week-level mutation at the given time.
func (m *SyncMetadata) MarkWeeklyDirty(ts int64) {
	m.WeeklyDirty = true
	m.WeeklyUpdatedAt = ts
	m.syncCombined()
}

// MarkHistoryDirty flags an archive mutation at the given time.
func (m *SyncMetadata) MarkHistoryDirty(ts int64) {
	m.HistoryDirty = true
	m.HistoryUpdatedAt = ts
}

// ClearCurrentDirty clears the day and week flags after a confirmed upload.
func (m *SyncMetadata) ClearCurrentDirty() {
	m.DailyDirty = false
	m.WeeklyDirty = false
	m.syncCombined()
}

// ClearHistoryDirty clears the archive flag after a confirmed upload.
func (m *SyncMetadata) ClearHistoryDirty() {
	m.HistoryDirty = false
}

// CurrentDirty reports whether the current week has unsynced mutations.
func (m *SyncMetadata) CurrentDirty() bool {
	return m.DailyDirty || m.WeeklyDirty
}

// LastUpdated returns the newest of the per-unit update timestamps.
func (m *SyncMetadata) LastUpdated() int64 {
	ts := m.DailyUpdatedAt
	if m.WeeklyUpdatedAt > ts {
		ts = m.WeeklyUpdatedAt
	}
	return ts
}

// The legacy combined flag mirrors the two specific current-week flags.
func (m *SyncMetadata) syncCombined() {
	m.Dirty = m.DailyDirty || m.WeeklyDirty
}

// TrackingRecord is the mutable current-week aggregate. WeeklyCounts is
// always derivable from DailyCounts; every mutation re-derives it.
type TrackingRecord struct {
	WeekStartDate string               `json:"weekStartDate"`
	DailyCounts   map[string]DayCounts `json:"dailyCounts"`
	WeeklyCounts  map[string]int       `json:"weeklyCounts"`
	Metadata      SyncMetadata         `json:"metadata"`
}

// NewTrackingRecord creates an empty record anchored on the given week start.
func NewTrackingRecord(weekStart, deviceID string) *TrackingRecord {
	return &TrackingRecord{
		WeekStartDate: weekStart,
		DailyCounts:   make(map[string]DayCounts),
		WeeklyCounts:  make(map[string]int),
		Metadata: SyncMetadata{
			DeviceID:       deviceID,
			IsFreshInstall: true,
		},
	}
}

// AddCount adjusts a day's serving count for a food group, floors at zero,
// re-derives the weekly totals and marks the record dirty.
func (r *TrackingRecord) AddCount(dayKey, group string, delta int, ts int64) {
	if r.DailyCounts == nil {
		r.DailyCounts = make(map[string]DayCounts)
	}
	day := r.DailyCounts[dayKey]
	if day == nil {
		day = make(DayCounts)
		r.DailyCounts[dayKey] = day
	}
	n := day[group] + delta
	if n < 0 {
		n = 0
	}
	day[group] = n
	r.RecomputeWeeklyTotals()
	r.Metadata.MarkDailyDirty(ts)
	r.Metadata.MarkWeeklyDirty(ts)
}

// RecomputeWeeklyTotals rebuilds WeeklyCounts from the day map. Transmitted
// totals are never trusted over their day breakdown.
func (r *TrackingRecord) RecomputeWeeklyTotals() {
	totals := make(map[string]int)
	for _, day := range r.DailyCounts {
		for group, n := range day {
			totals[group] += n
		}
	}
	r.WeeklyCounts = totals
}

// HasContent reports whether any serving has been recorded.
func (r *TrackingRecord) HasContent() bool {
	for _, day := range r.DailyCounts {
		for _, n := range day {
			if n > 0 {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy of the record.
func (r *TrackingRecord) Clone() *TrackingRecord {
	out := *r
	out.DailyCounts = cloneDays(r.DailyCounts)
	out.WeeklyCounts = cloneCounts(r.WeeklyCounts)
	return &out
}

func cloneDays(days map[string]DayCounts) map[string]DayCounts {
	out := make(map[string]DayCounts, len(days))
	for key, day := range days {
		out[key] = cloneCounts(day)
	}
	return out
}

func cloneCounts(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[k] = v
	}
	return out
}

// WeekStart returns the anchor date of the week containing t.
func WeekStart(t time.Time, startDay time.Weekday) string {
	offset := (int(t.Weekday()) - int(startDay) + 7) % 7
	anchor := t.AddDate(0, 0, -offset)
	return anchor.Format(DayKeyLayout)
}

// DayKey returns the day key for t.
func DayKey(t time.Time) string {
	return t.Format(DayKeyLayout)
}

// WeekDays lists the seven day keys of the week anchored at weekStart.
func WeekDays(weekStart string) []string {
	anchor, err := time.Parse(DayKeyLayout, weekStart)
	if err != nil {
		return nil
	}
	days := make([]string, 7)
	for i := range days {
		days[i] = anchor.AddDate(0, 0, i).Format(DayKeyLayout)
	}
	return days
}

// NowMillis converts a time to the Unix-millisecond representation used on
// the wire.
func NowMillis(t time.Time) int64 {
	return t.UnixMilli()
}
