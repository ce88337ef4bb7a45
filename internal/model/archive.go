package model

import "sort"

// ArchiveSchemaVersion is written into new archive records.
const ArchiveSchemaVersion = 2

// Sync status tags carried in ArchiveRecord.SyncStatus.
const (
	SyncStatusLocal  = "local"
	SyncStatusSynced = "synced"
)

// ArchiveRecord is one completed week, keyed by its anchor date. Once
// written it is only ever merged: counts may be revised upward, never
// truncated. Targets are snapshotted so later target changes do not
// retroactively alter historical evaluation.
type ArchiveRecord struct {
	WeekStartDate string               `json:"weekStartDate"`
	DailyCounts   map[string]DayCounts `json:"dailyCounts"`
	Totals        map[string]int       `json:"totals"`
	Targets       map[string]Target    `json:"targets"`

	CreatedAt        int64  `json:"createdAt"`
	UpdatedAt        int64  `json:"updatedAt"`
	SchemaVersion    int    `json:"schemaVersion"`
	OriginDevice     string `json:"originDevice,omitempty"`
	SyncStatus       string `json:"syncStatus,omitempty"`
	MergedAfterReset bool   `json:"mergedAfterReset,omitempty"`
}

// ArchiveFromRecord rolls a finished week's tracking record into an archive
// record. Totals are re-derived from the day map, never copied.
func ArchiveFromRecord(r *TrackingRecord, targets map[string]Target, ts int64) *ArchiveRecord {
	rec := &ArchiveRecord{
		WeekStartDate: r.WeekStartDate,
		DailyCounts:   cloneDays(r.DailyCounts),
		Targets:       targets,
		CreatedAt:     ts,
		UpdatedAt:     ts,
		SchemaVersion: ArchiveSchemaVersion,
		OriginDevice:  r.Metadata.DeviceID,
		SyncStatus:    SyncStatusLocal,
	}
	rec.RecomputeTotals()
	return rec
}

// RecomputeTotals rebuilds Totals from the day map.
func (a *ArchiveRecord) RecomputeTotals() {
	totals := make(map[string]int)
	for _, day := range a.DailyCounts {
		for group, n := range day {
			totals[group] += n
		}
	}
	a.Totals = totals
}

// Clone returns a deep copy of the archive record.
func (a *ArchiveRecord) Clone() *ArchiveRecord {
	out := *a
	out.DailyCounts = cloneDays(a.DailyCounts)
	out.Totals = cloneCounts(a.Totals)
	if a.Targets != nil {
		targets := make(map[string]Target, len(a.Targets))
		for k, v := range a.Targets {
			targets[k] = v
		}
		out.Targets = targets
	}
	return &out
}

// ArchiveIndexEntry is one (anchor date, last update) pair in the remote
// archive index.
type ArchiveIndexEntry struct {
	AnchorDate string `json:"anchorDate"`
	UpdatedAt  int64  `json:"updatedAt"`
}

// ArchiveIndex is the lightweight remote-only projection of the archive,
// used to decide which individual week files need transfer.
type ArchiveIndex struct {
	LastUpdated int64               `json:"lastUpdated"`
	Weeks       []ArchiveIndexEntry `json:"weeks"`
}

// Entry returns the index entry for the given anchor date, if present.
func (ix *ArchiveIndex) Entry(anchorDate string) (ArchiveIndexEntry, bool) {
	for _, e := range ix.Weeks {
		if e.AnchorDate == anchorDate {
			return e, true
		}
	}
	return ArchiveIndexEntry{}, false
}

// Upsert adds or updates the entry for an anchor date, keeping the newer
// UpdatedAt, and refreshes LastUpdated. Entries stay sorted by anchor date.
func (ix *ArchiveIndex) Upsert(anchorDate string, updatedAt int64) {
	for i, e := range ix.Weeks {
		if e.AnchorDate == anchorDate {
			if updatedAt > e.UpdatedAt {
				ix.Weeks[i].UpdatedAt = updatedAt
			}
			ix.touch(updatedAt)
			return
		}
	}
	ix.Weeks = append(ix.Weeks, ArchiveIndexEntry{AnchorDate: anchorDate, UpdatedAt: updatedAt})
	sort.Slice(ix.Weeks, func(i, j int) bool { return ix.Weeks[i].AnchorDate < ix.Weeks[j].AnchorDate })
	ix.touch(updatedAt)
}

func (ix *ArchiveIndex) touch(ts int64) {
	if ts > ix.LastUpdated {
		ix.LastUpdated = ts
	}
}
