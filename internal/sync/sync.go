// Package sync is the multi-device reconciliation engine: it reconciles the
// locally-held tracking data with the copy held by a cloud storage provider,
// using only the provider's key-value file store as transport.
package sync

import (
	"github.com/NateEaton/mind-pwa-sub000/internal/model"
)

// Logical remote file names. These are part of the wire contract between
// devices and must not change.
const (
	CurrentWeekFile  = "current-week.json"
	HistoryIndexFile = "history-index.json"
)

// HistoryWeekFile returns the remote file name for one archived week.
func HistoryWeekFile(anchorDate string) string {
	return "history-week-" + anchorDate + ".json"
}

// Unit names used in outcomes and errors.
const (
	UnitCurrent = "current"
	UnitHistory = "history"
)

// LocalStore is the on-device data store capability the engine consumes.
type LocalStore interface {
	LoadCurrentRecord() (*model.TrackingRecord, error)
	SaveCurrentRecord(*model.TrackingRecord) error
	GetArchiveRecord(anchorDate string) (*model.ArchiveRecord, error)
	SaveArchiveRecord(*model.ArchiveRecord) error
	GetAllArchiveRecords() ([]*model.ArchiveRecord, error)
	LocalArchiveIndex() (*model.ArchiveIndex, error)
	GetPreference(key, def string) (string, error)
	SavePreference(key, value string) error
	DeviceID() (string, error)
}
