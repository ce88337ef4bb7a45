package model

import (
	"testing"
	"time"
)

func TestAddCountDerivesTotalsAndFlags(t *testing.T) {
	rec := NewTrackingRecord("2026-08-23", "dev-1")

	rec.AddCount("2026-08-24", "berries", 2, 1000)
	rec.AddCount("2026-08-25", "berries", 1, 2000)

	if rec.DailyCounts["2026-08-24"]["berries"] != 2 {
		t.Errorf("day count = %d, want 2", rec.DailyCounts["2026-08-24"]["berries"])
	}
	if rec.WeeklyCounts["berries"] != 3 {
		t.Errorf("weekly total = %d, want the sum of days", rec.WeeklyCounts["berries"])
	}
	if !rec.Metadata.CurrentDirty() || !rec.Metadata.Dirty {
		t.Error("a mutation must mark the record dirty")
	}
	if rec.Metadata.LastUpdated() != 2000 {
		t.Errorf("LastUpdated = %d, want the latest mutation", rec.Metadata.LastUpdated())
	}
}

func TestAddCountFloorsAtZero(t *testing.T) {
	rec := NewTrackingRecord("2026-08-23", "dev-1")
	rec.AddCount("2026-08-24", "wine", -3, 1000)

	if got := rec.DailyCounts["2026-08-24"]["wine"]; got != 0 {
		t.Errorf("count = %d, corrections must floor at zero", got)
	}
}

func TestClearCurrentDirtySyncsCombinedFlag(t *testing.T) {
	rec := NewTrackingRecord("2026-08-23", "dev-1")
	rec.AddCount("2026-08-24", "nuts", 1, 1000)

	rec.Metadata.ClearCurrentDirty()
	if rec.Metadata.CurrentDirty() || rec.Metadata.Dirty {
		t.Error("clearing must reset both specific and combined flags")
	}
}

func TestCloneIsDeep(t *testing.T) {
	rec := NewTrackingRecord("2026-08-23", "dev-1")
	rec.AddCount("2026-08-24", "fish", 1, 1000)

	clone := rec.Clone()
	clone.AddCount("2026-08-24", "fish", 5, 2000)

	if rec.DailyCounts["2026-08-24"]["fish"] != 1 {
		t.Error("mutating a clone must not touch the original")
	}
}

func TestWeekStart(t *testing.T) {
	tests := []struct {
		day      time.Time
		startDay time.Weekday
		want     string
	}{
		{time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC), time.Sunday, "2026-08-23"},
		{time.Date(2026, 8, 23, 0, 0, 0, 0, time.UTC), time.Sunday, "2026-08-23"},
		{time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC), time.Monday, "2026-08-24"},
		{time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC), time.Monday, "2026-08-24"},
		{time.Date(2026, 8, 23, 12, 0, 0, 0, time.UTC), time.Monday, "2026-08-17"},
	}
	for _, tt := range tests {
		if got := WeekStart(tt.day, tt.startDay); got != tt.want {
			t.Errorf("WeekStart(%s, %s) = %s, want %s", tt.day.Format(DayKeyLayout), tt.startDay, got, tt.want)
		}
	}
}

func TestWeekDays(t *testing.T) {
	days := WeekDays("2026-08-23")
	if len(days) != 7 {
		t.Fatalf("got %d days, want 7", len(days))
	}
	if days[0] != "2026-08-23" || days[6] != "2026-08-29" {
		t.Errorf("week span = %s..%s", days[0], days[6])
	}
}

func TestHasContent(t *testing.T) {
	rec := NewTrackingRecord("2026-08-23", "dev-1")
	if rec.HasContent() {
		t.Error("empty record reports content")
	}
	rec.AddCount("2026-08-24", "beans", 1, 1000)
	rec.AddCount("2026-08-24", "beans", -1, 1000)
	if rec.HasContent() {
		t.Error("zeroed counts are not content")
	}
	rec.AddCount("2026-08-24", "beans", 2, 1000)
	if !rec.HasContent() {
		t.Error("recorded servings are content")
	}
}
