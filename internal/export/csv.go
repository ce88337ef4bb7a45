// Package export writes archived weeks to CSV and JSON files.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"

	"github.com/NateEaton/mind-pwa-sub000/internal/model"
)

// ToCSV writes one row per archived week and day, with a column per food
// group, ordered the way the scoring sheet lists them.
func ToCSV(records []*model.ArchiveRecord, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	groups := model.FoodGroups()

	header := []string{"Week Start", "Day"}
	for _, g := range groups {
		header = append(header, g.Name)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, rec := range records {
		days := make([]string, 0, len(rec.DailyCounts))
		for day := range rec.DailyCounts {
			days = append(days, day)
		}
		sort.Strings(days)

		for _, day := range days {
			row := []string{rec.WeekStartDate, day}
			for _, g := range groups {
				row = append(row, fmt.Sprintf("%d", rec.DailyCounts[day][g.ID]))
			}
			if err := w.Write(row); err != nil {
				return err
			}
		}

		// Weekly totals row closes out each week.
		row := []string{rec.WeekStartDate, "total"}
		for _, g := range groups {
			row = append(row, fmt.Sprintf("%d", rec.Totals[g.ID]))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}
