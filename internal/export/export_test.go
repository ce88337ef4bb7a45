package export

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/NateEaton/mind-pwa-sub000/internal/model"
)

func sampleRecords() []*model.ArchiveRecord {
	rec := &model.ArchiveRecord{
		WeekStartDate: "2026-08-16",
		DailyCounts: map[string]model.DayCounts{
			"2026-08-17": {"berries": 2, "nuts": 1},
			"2026-08-18": {"berries": 1},
		},
		Targets:   model.DefaultTargets(),
		UpdatedAt: 1000,
	}
	rec.RecomputeTotals()
	return []*model.ArchiveRecord{rec}
}

func TestToCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weeks.csv")
	if err := ToCSV(sampleRecords(), path); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatal(err)
	}

	// Header, two day rows, one totals row.
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if rows[0][0] != "Week Start" || rows[0][1] != "Day" {
		t.Errorf("header = %v", rows[0])
	}
	if len(rows[0]) != 2+len(model.FoodGroups()) {
		t.Errorf("header has %d columns, want one per food group plus two", len(rows[0]))
	}

	last := rows[len(rows)-1]
	if last[1] != "total" {
		t.Errorf("final row = %v, want the weekly totals", last)
	}
}

func TestToJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weeks.json")
	if err := ToJSON(sampleRecords(), path); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	var doc struct {
		ExportedAt string                 `json:"exported_at"`
		Count      int                    `json:"count"`
		Weeks      []*model.ArchiveRecord `json:"weeks"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.Count != 1 || len(doc.Weeks) != 1 {
		t.Fatalf("doc = %+v", doc)
	}
	if doc.Weeks[0].Totals["berries"] != 3 {
		t.Errorf("totals did not survive export: %+v", doc.Weeks[0].Totals)
	}
}
