package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/NateEaton/mind-pwa-sub000/internal/model"
)

type jsonExport struct {
	ExportedAt string                 `json:"exported_at"`
	Count      int                    `json:"count"`
	Weeks      []*model.ArchiveRecord `json:"weeks"`
}

// ToJSON writes the archived weeks as one pretty-printed document.
func ToJSON(records []*model.ArchiveRecord, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(records),
		Weeks:      records,
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
