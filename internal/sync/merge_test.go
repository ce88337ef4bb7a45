package sync

import (
	"testing"

	"github.com/NateEaton/mind-pwa-sub000/internal/model"
)

func testRecord(anchor string, days map[string]model.DayCounts) *model.TrackingRecord {
	rec := model.NewTrackingRecord(anchor, "device-test")
	rec.Metadata.IsFreshInstall = false
	for day, counts := range days {
		d := make(model.DayCounts, len(counts))
		for group, n := range counts {
			d[group] = n
		}
		rec.DailyCounts[day] = d
	}
	rec.RecomputeWeeklyTotals()
	return rec
}

func TestMergeSameWeekTakesMaxPerDayAndCategory(t *testing.T) {
	local := testRecord("2026-08-23", map[string]model.DayCounts{
		"2026-08-24": {"berries": 2, "nuts": 1},
	})
	remote := testRecord("2026-08-23", map[string]model.DayCounts{
		"2026-08-24": {"berries": 1, "fish": 1},
		"2026-08-25": {"nuts": 3},
	})

	res := MergeCurrentWeek(local, remote)

	got := res.Record.DailyCounts
	if got["2026-08-24"]["berries"] != 2 {
		t.Errorf("berries on 24th = %d, want 2", got["2026-08-24"]["berries"])
	}
	if got["2026-08-24"]["nuts"] != 1 || got["2026-08-25"]["nuts"] != 3 {
		t.Errorf("nuts not merged: %v", got)
	}
	if got["2026-08-24"]["fish"] != 1 {
		t.Errorf("fish lost in merge: %v", got)
	}
	if res.Record.WeeklyCounts["nuts"] != 4 {
		t.Errorf("weekly nuts = %d, want 4 (re-derived)", res.Record.WeeklyCounts["nuts"])
	}
	if !res.ChangedFromLocal || !res.ChangedFromRemote {
		t.Errorf("both sides gained data, got ChangedFromLocal=%v ChangedFromRemote=%v",
			res.ChangedFromLocal, res.ChangedFromRemote)
	}
	if res.Superseded != nil {
		t.Error("same-week merge should not supersede anything")
	}
}

func TestMergeIsIdempotent(t *testing.T) {
	local := testRecord("2026-08-23", map[string]model.DayCounts{
		"2026-08-24": {"berries": 2},
	})
	remote := testRecord("2026-08-23", map[string]model.DayCounts{
		"2026-08-24": {"berries": 1, "wine": 1},
	})

	once := MergeCurrentWeek(local, remote)
	twice := MergeCurrentWeek(once.Record, remote)

	if !daysEqual(once.Record.DailyCounts, twice.Record.DailyCounts) {
		t.Errorf("re-merge changed counts: %v vs %v", once.Record.DailyCounts, twice.Record.DailyCounts)
	}
	if twice.ChangedFromLocal {
		t.Error("re-merging the same remote should not change the record again")
	}
}

func TestMergeIsCommutative(t *testing.T) {
	a := testRecord("2026-08-23", map[string]model.DayCounts{
		"2026-08-24": {"berries": 2, "nuts": 1},
	})
	b := testRecord("2026-08-23", map[string]model.DayCounts{
		"2026-08-25": {"beans": 4},
		"2026-08-24": {"berries": 1},
	})

	ab := MergeCurrentWeek(a, b)
	ba := MergeCurrentWeek(b, a)

	if !daysEqual(ab.Record.DailyCounts, ba.Record.DailyCounts) {
		t.Errorf("merge order changed counts: %v vs %v", ab.Record.DailyCounts, ba.Record.DailyCounts)
	}
}

func TestMergeNeverLosesRecordedServings(t *testing.T) {
	local := testRecord("2026-08-23", map[string]model.DayCounts{
		"2026-08-24": {"oliveOil": 1},
		"2026-08-26": {"greenLeafy": 2},
	})
	remote := testRecord("2026-08-23", map[string]model.DayCounts{
		"2026-08-25": {"wholeGrains": 3},
	})

	res := MergeCurrentWeek(local, remote)

	for _, src := range []*model.TrackingRecord{local, remote} {
		for day, counts := range src.DailyCounts {
			for group, n := range counts {
				if res.Record.DailyCounts[day][group] < n {
					t.Errorf("lost servings: %s/%s merged=%d source=%d",
						day, group, res.Record.DailyCounts[day][group], n)
				}
			}
		}
	}
}

func TestMergeNilSides(t *testing.T) {
	rec := testRecord("2026-08-23", map[string]model.DayCounts{"2026-08-24": {"fish": 1}})

	if res := MergeCurrentWeek(rec, nil); !res.ChangedFromRemote || res.ChangedFromLocal {
		t.Errorf("local-only merge flags wrong: %+v", res)
	}
	if res := MergeCurrentWeek(nil, rec); !res.ChangedFromLocal || res.ChangedFromRemote {
		t.Errorf("remote-only merge flags wrong: %+v", res)
	}
	if res := MergeCurrentWeek(nil, nil); res.Record != nil {
		t.Error("nil merge should produce nil record")
	}
}

func TestRolloverNewerWeekWins(t *testing.T) {
	old := testRecord("2026-08-16", map[string]model.DayCounts{"2026-08-17": {"nuts": 2}})
	fresh := testRecord("2026-08-23", map[string]model.DayCounts{"2026-08-24": {"fish": 1}})

	// Remote rolled over first.
	res := MergeCurrentWeek(old, fresh)
	if res.Record.WeekStartDate != "2026-08-23" {
		t.Fatalf("winner = %s, want the newer week", res.Record.WeekStartDate)
	}
	if res.Superseded == nil || res.Superseded.WeekStartDate != "2026-08-16" {
		t.Fatal("older week must surface as superseded for archiving")
	}
	if !res.ChangedFromLocal {
		t.Error("adopting the remote week must update the local store")
	}

	// Local rolled over first.
	res = MergeCurrentWeek(fresh, old)
	if res.Record.WeekStartDate != "2026-08-23" {
		t.Fatalf("winner = %s, want the newer week", res.Record.WeekStartDate)
	}
	if res.Superseded == nil || res.Superseded.WeekStartDate != "2026-08-16" {
		t.Fatal("older week must surface as superseded for archiving")
	}
	if !res.ChangedFromRemote {
		t.Error("local newer week must be uploaded")
	}
}

func TestLocalResetAfterRemoteUpdateWins(t *testing.T) {
	remote := testRecord("2026-08-23", map[string]model.DayCounts{"2026-08-24": {"nuts": 2}})
	remote.Metadata.DailyUpdatedAt = 1000

	local := testRecord("2026-08-30", nil)
	local.Metadata.ResetPerformed = true
	local.Metadata.ResetType = model.ResetWeekly
	local.Metadata.ResetTimestamp = 2000

	res := MergeCurrentWeek(local, remote)
	if res.Record.WeekStartDate != "2026-08-30" {
		t.Fatalf("winner = %s, want the reset local week", res.Record.WeekStartDate)
	}
	if res.Superseded == nil || res.Superseded.DailyCounts["2026-08-24"]["nuts"] != 2 {
		t.Error("remote counts must survive via the superseded snapshot")
	}
}

func TestMergeArchiveIndexKeepsNewerEntries(t *testing.T) {
	local := &model.ArchiveIndex{}
	local.Upsert("2026-08-16", 100)
	local.Upsert("2026-08-09", 500)

	remote := &model.ArchiveIndex{}
	remote.Upsert("2026-08-16", 300)
	remote.Upsert("2026-08-02", 50)

	merged, fromLocal, fromRemote := MergeArchiveIndex(local, remote)

	if len(merged.Weeks) != 3 {
		t.Fatalf("merged %d weeks, want 3", len(merged.Weeks))
	}
	if e, ok := merged.Entry("2026-08-16"); !ok || e.UpdatedAt != 300 {
		t.Errorf("entry 2026-08-16 = %+v, want the larger timestamp", e)
	}
	if !fromLocal || !fromRemote {
		t.Errorf("both sides contributed, got fromLocal=%v fromRemote=%v", fromLocal, fromRemote)
	}
}

func TestMergeArchiveIndexNilRemote(t *testing.T) {
	local := &model.ArchiveIndex{}
	local.Upsert("2026-08-16", 100)

	merged, fromLocal, fromRemote := MergeArchiveIndex(local, nil)
	if len(merged.Weeks) != 1 || fromLocal {
		t.Errorf("nil remote should reproduce local: %+v fromLocal=%v", merged, fromLocal)
	}
	if !fromRemote {
		t.Error("remote side is missing everything, fromRemote must be set")
	}
}

func TestMergeArchiveRecordAdoptsLargerRemoteTotal(t *testing.T) {
	local := &model.ArchiveRecord{
		WeekStartDate: "2026-08-16",
		DailyCounts:   map[string]model.DayCounts{"2026-08-17": {"nuts": 1}},
		Totals:        map[string]int{"nuts": 1},
		UpdatedAt:     100,
	}
	// The remote total exceeds its own day detail: servings recorded on a
	// device that archived before detail synced.
	remote := &model.ArchiveRecord{
		WeekStartDate: "2026-08-16",
		DailyCounts:   map[string]model.DayCounts{"2026-08-17": {"nuts": 1}},
		Totals:        map[string]int{"nuts": 5},
		UpdatedAt:     200,
	}

	merged, changed := MergeArchiveRecord(local, remote)
	if !changed {
		t.Fatal("merge must report a change")
	}
	if merged.Totals["nuts"] != 5 {
		t.Errorf("total = %d, want the strictly larger remote total", merged.Totals["nuts"])
	}
	if merged.UpdatedAt != 200 {
		t.Errorf("UpdatedAt = %d, want max of both sides", merged.UpdatedAt)
	}
	if !merged.MergedAfterReset {
		t.Error("changed archive merge must be flagged")
	}
}

func TestMergeArchiveRecordNoChange(t *testing.T) {
	rec := &model.ArchiveRecord{
		WeekStartDate: "2026-08-16",
		DailyCounts:   map[string]model.DayCounts{"2026-08-17": {"nuts": 2}},
		Totals:        map[string]int{"nuts": 2},
		UpdatedAt:     100,
	}

	merged, changed := MergeArchiveRecord(rec, rec.Clone())
	if changed {
		t.Error("identical records must merge without change")
	}
	if merged.MergedAfterReset {
		t.Error("unchanged merge must not be flagged")
	}
}
