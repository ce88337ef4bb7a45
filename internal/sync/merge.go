package sync

import (
	"github.com/NateEaton/mind-pwa-sub000/internal/model"
)

// Merge strategies. Every function here is a pure function of its inputs:
// no clock reads, no I/O. Counts are monotonically-entered user
// observations, so the per-(day, category) rule is always max. Max never
// discards user input and keeps merges commutative and idempotent.

// CurrentMergeResult reports a current-week merge.
type CurrentMergeResult struct {
	// Record is the reconciled current-week snapshot.
	Record *model.TrackingRecord

	// ChangedFromLocal is set when the result differs from the local
	// input, meaning the local store needs updating.
	ChangedFromLocal bool

	// ChangedFromRemote is set when the result differs from the remote
	// input, meaning an upload is warranted.
	ChangedFromRemote bool

	// Superseded is the losing side's snapshot when a one-sided rollover
	// made the two records describe different weeks. Its week has ended
	// and its counts belong in the archive.
	Superseded *model.TrackingRecord
}

// MergeCurrentWeek reconciles local and remote current-week records.
// Either input may be nil (absent side).
func MergeCurrentWeek(local, remote *model.TrackingRecord) *CurrentMergeResult {
	switch {
	case local == nil && remote == nil:
		return &CurrentMergeResult{}
	case remote == nil:
		return &CurrentMergeResult{Record: local.Clone(), ChangedFromRemote: true}
	case local == nil:
		return &CurrentMergeResult{Record: remote.Clone(), ChangedFromLocal: true}
	}

	if local.WeekStartDate == remote.WeekStartDate {
		return mergeSameWeek(local, remote)
	}
	return mergeRolledOver(local, remote)
}

// mergeSameWeek merges two records describing the same week: per (day,
// category) take the max, then re-derive the weekly totals from the merged
// day map. Transmitted totals that disagree with their day breakdown are
// never trusted.
func mergeSameWeek(local, remote *model.TrackingRecord) *CurrentMergeResult {
	merged := local.Clone()
	merged.DailyCounts = maxMergeDays(local.DailyCounts, remote.DailyCounts)
	merged.RecomputeWeeklyTotals()

	return &CurrentMergeResult{
		Record:            merged,
		ChangedFromLocal:  !daysEqual(merged.DailyCounts, local.DailyCounts),
		ChangedFromRemote: !daysEqual(merged.DailyCounts, remote.DailyCounts),
	}
}

// mergeRolledOver handles records anchored on different weeks: a rollover
// happened on one side only. The side describing the newer week wins as the
// current record; the older snapshot is superseded and surfaced for archive
// merging. A local reset performed after the remote's last update also wins
// outright: the remote is describing a week that has already ended here.
func mergeRolledOver(local, remote *model.TrackingRecord) *CurrentMergeResult {
	localWins := local.WeekStartDate > remote.WeekStartDate
	if local.Metadata.ResetPerformed && local.Metadata.ResetTimestamp > remote.Metadata.LastUpdated() {
		localWins = true
	}

	if localWins {
		return &CurrentMergeResult{
			Record:            local.Clone(),
			ChangedFromRemote: true,
			Superseded:        remote.Clone(),
		}
	}
	return &CurrentMergeResult{
		Record:           remote.Clone(),
		ChangedFromLocal: true,
		Superseded:       local.Clone(),
	}
}

// MergeArchiveIndex unions week entries by anchor date, keeping whichever
// side's updatedAt is larger. Either input may be nil.
func MergeArchiveIndex(local, remote *model.ArchiveIndex) (merged *model.ArchiveIndex, changedFromLocal, changedFromRemote bool) {
	merged = &model.ArchiveIndex{}
	if local != nil {
		for _, e := range local.Weeks {
			merged.Upsert(e.AnchorDate, e.UpdatedAt)
		}
	}
	if remote != nil {
		for _, e := range remote.Weeks {
			merged.Upsert(e.AnchorDate, e.UpdatedAt)
		}
	}
	return merged, !indexEqual(merged, local), !indexEqual(merged, remote)
}

// MergeArchiveRecord folds a remote archive record into a local one after
// local archiving already happened. Day counts merge by max; a category
// total is then replaced only when the remote total is strictly larger than
// the re-derived one (the remote may carry servings whose day detail was
// lost). The record is marked as merged after a reset.
func MergeArchiveRecord(local, remote *model.ArchiveRecord) (*model.ArchiveRecord, bool) {
	if remote == nil {
		return local.Clone(), false
	}
	if local == nil {
		return remote.Clone(), true
	}

	merged := local.Clone()
	merged.DailyCounts = maxMergeDays(local.DailyCounts, remote.DailyCounts)
	merged.RecomputeTotals()
	for group, n := range remote.Totals {
		if n > merged.Totals[group] {
			merged.Totals[group] = n
		}
	}
	if remote.UpdatedAt > merged.UpdatedAt {
		merged.UpdatedAt = remote.UpdatedAt
	}

	changed := !daysEqual(merged.DailyCounts, local.DailyCounts) || !countsEqual(merged.Totals, local.Totals)
	if changed {
		merged.MergedAfterReset = true
	}
	return merged, changed
}

func maxMergeDays(a, b map[string]model.DayCounts) map[string]model.DayCounts {
	merged := make(map[string]model.DayCounts)
	for dayKey, day := range a {
		for group, n := range day {
			setMax(merged, dayKey, group, n)
		}
	}
	for dayKey, day := range b {
		for group, n := range day {
			setMax(merged, dayKey, group, n)
		}
	}
	return merged
}

func setMax(days map[string]model.DayCounts, dayKey, group string, n int) {
	day := days[dayKey]
	if day == nil {
		day = make(model.DayCounts)
		days[dayKey] = day
	}
	if n > day[group] {
		day[group] = n
	}
}

// daysEqual compares day maps treating absent entries as zero.
func daysEqual(a, b map[string]model.DayCounts) bool {
	for dayKey, day := range a {
		for group, n := range day {
			if n != b[dayKey][group] {
				return false
			}
		}
	}
	for dayKey, day := range b {
		for group, n := range day {
			if n != a[dayKey][group] {
				return false
			}
		}
	}
	return true
}

func countsEqual(a, b map[string]int) bool {
	for k, v := range a {
		if v != b[k] {
			return false
		}
	}
	for k, v := range b {
		if v != a[k] {
			return false
		}
	}
	return true
}

func indexEqual(a, b *model.ArchiveIndex) bool {
	if b == nil {
		return a == nil || len(a.Weeks) == 0
	}
	if len(a.Weeks) != len(b.Weeks) {
		return false
	}
	entries := make(map[string]int64, len(b.Weeks))
	for _, e := range b.Weeks {
		entries[e.AnchorDate] = e.UpdatedAt
	}
	for _, e := range a.Weeks {
		ts, ok := entries[e.AnchorDate]
		if !ok || ts != e.UpdatedAt {
			return false
		}
	}
	return true
}
