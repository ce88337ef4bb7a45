package sync

import (
	"testing"
	"time"

	"github.com/NateEaton/mind-pwa-sub000/internal/model"
	"github.com/NateEaton/mind-pwa-sub000/internal/store"
)

func newRolloverStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func TestEnsureCurrentPeriodCreatesFirstRecord(t *testing.T) {
	st := newRolloverStore(t)
	now := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)

	rec, rolled, err := EnsureCurrentPeriod(st, model.DefaultTargets(), time.Sunday, now)
	if err != nil {
		t.Fatal(err)
	}
	if rolled {
		t.Error("first record creation is not a rollover")
	}
	if rec.WeekStartDate != "2026-08-23" {
		t.Errorf("anchor = %s, want 2026-08-23", rec.WeekStartDate)
	}
	if !rec.Metadata.IsFreshInstall {
		t.Error("a brand-new record starts as a fresh install")
	}
	if rec.Metadata.DeviceID == "" {
		t.Error("record must carry the device id")
	}
}

func TestEnsureCurrentPeriodSameWeekIsNoop(t *testing.T) {
	st := newRolloverStore(t)
	now := time.Date(2026, 8, 26, 9, 0, 0, 0, time.UTC)

	first, _, err := EnsureCurrentPeriod(st, model.DefaultTargets(), time.Sunday, now)
	if err != nil {
		t.Fatal(err)
	}

	again, rolled, err := EnsureCurrentPeriod(st, model.DefaultTargets(), time.Sunday, now.AddDate(0, 0, 2))
	if err != nil {
		t.Fatal(err)
	}
	if rolled {
		t.Error("same week must not roll over")
	}
	if again.WeekStartDate != first.WeekStartDate {
		t.Errorf("anchor changed within the week: %s -> %s", first.WeekStartDate, again.WeekStartDate)
	}
}

func TestEnsureCurrentPeriodArchivesFinishedWeek(t *testing.T) {
	st := newRolloverStore(t)
	lastWeek := time.Date(2026, 8, 19, 9, 0, 0, 0, time.UTC)

	if _, _, err := EnsureCurrentPeriod(st, model.DefaultTargets(), time.Sunday, lastWeek); err != nil {
		t.Fatal(err)
	}
	if _, err := st.AddServing("2026-08-18", "beans", 3, lastWeek); err != nil {
		t.Fatal(err)
	}

	now := lastWeek.AddDate(0, 0, 7)
	rec, rolled, err := EnsureCurrentPeriod(st, model.DefaultTargets(), time.Sunday, now)
	if err != nil {
		t.Fatal(err)
	}
	if !rolled {
		t.Fatal("crossing the week boundary must roll over")
	}

	archived, err := st.GetArchiveRecord("2026-08-16")
	if err != nil {
		t.Fatal(err)
	}
	if archived == nil {
		t.Fatal("finished week missing from the archive")
	}
	if archived.Totals["beans"] != 3 {
		t.Errorf("archived beans = %d, want 3 (derived from day counts)", archived.Totals["beans"])
	}
	if archived.Targets == nil {
		t.Error("archive must snapshot the targets in force")
	}
	if archived.SyncStatus != model.SyncStatusLocal {
		t.Errorf("fresh archive status = %q, want local", archived.SyncStatus)
	}

	if rec.WeekStartDate != "2026-08-23" {
		t.Errorf("new anchor = %s, want 2026-08-23", rec.WeekStartDate)
	}
	if !rec.Metadata.ResetPerformed || rec.Metadata.ResetType != model.ResetWeekly {
		t.Error("rollover must record a weekly reset")
	}
	if rec.Metadata.PreviousWeekStartDate != "2026-08-16" {
		t.Errorf("previous anchor = %s, want 2026-08-16", rec.Metadata.PreviousWeekStartDate)
	}
	if !rec.Metadata.HistoryDirty {
		t.Error("a new archive entry must mark history dirty")
	}
	if rec.HasContent() {
		t.Error("the new week starts empty")
	}
}

func TestEnsureCurrentPeriodMergesIntoExistingArchive(t *testing.T) {
	st := newRolloverStore(t)
	lastWeek := time.Date(2026, 8, 19, 9, 0, 0, 0, time.UTC)

	if _, _, err := EnsureCurrentPeriod(st, model.DefaultTargets(), time.Sunday, lastWeek); err != nil {
		t.Fatal(err)
	}
	if _, err := st.AddServing("2026-08-18", "beans", 2, lastWeek); err != nil {
		t.Fatal(err)
	}

	// Another device already archived this week with more servings.
	existing := &model.ArchiveRecord{
		WeekStartDate: "2026-08-16",
		DailyCounts:   map[string]model.DayCounts{"2026-08-18": {"beans": 1}, "2026-08-19": {"fish": 1}},
		UpdatedAt:     model.NowMillis(lastWeek),
	}
	existing.RecomputeTotals()
	if err := st.SaveArchiveRecord(existing); err != nil {
		t.Fatal(err)
	}

	if _, _, err := EnsureCurrentPeriod(st, model.DefaultTargets(), time.Sunday, lastWeek.AddDate(0, 0, 7)); err != nil {
		t.Fatal(err)
	}

	archived, err := st.GetArchiveRecord("2026-08-16")
	if err != nil {
		t.Fatal(err)
	}
	if archived.Totals["beans"] != 2 {
		t.Errorf("beans = %d, want the max of both archives", archived.Totals["beans"])
	}
	if archived.Totals["fish"] != 1 {
		t.Error("existing archive servings must survive the fold")
	}
}
