package sync

import (
	"github.com/NateEaton/mind-pwa-sub000/internal/model"
)

// LocalFlags is the slice of local sync metadata change detection looks at.
type LocalFlags struct {
	CurrentDirty   bool
	HistoryDirty   bool
	ResetPerformed bool
	ResetType      string
	IsFreshInstall bool
}

// FlagsFrom extracts the change-detection view from record metadata.
func FlagsFrom(m *model.SyncMetadata) LocalFlags {
	return LocalFlags{
		CurrentDirty:   m.CurrentDirty(),
		HistoryDirty:   m.HistoryDirty,
		ResetPerformed: m.ResetPerformed,
		ResetType:      m.ResetType,
		IsFreshInstall: m.IsFreshInstall,
	}
}

// RemoteChange is the remote side of the decision: whether each unit's file
// revision differs from the last one this device observed.
type RemoteChange struct {
	CurrentChanged bool
	HistoryChanged bool
}

// Needs is the per-unit sync decision. It decides intent, never content.
type Needs struct {
	SyncCurrent bool
	SyncHistory bool
	Reasons     []string
}

// DetermineSyncNeeds decides which units warrant reconciliation. checkRemote
// is the normal periodic/triggered case: units are examined even without
// local changes so remote edits are picked up.
func DetermineSyncNeeds(flags LocalFlags, remote RemoteChange, checkRemote bool) Needs {
	var needs Needs

	switch {
	case flags.CurrentDirty:
		needs.SyncCurrent = true
		needs.Reasons = append(needs.Reasons, "current: local changes pending")
	case flags.ResetPerformed:
		needs.SyncCurrent = true
		needs.Reasons = append(needs.Reasons, "current: reset performed")
	case remote.CurrentChanged:
		needs.SyncCurrent = true
		needs.Reasons = append(needs.Reasons, "current: remote changed")
	case checkRemote:
		needs.SyncCurrent = true
		needs.Reasons = append(needs.Reasons, "current: remote check requested")
	}

	switch {
	case flags.HistoryDirty:
		needs.SyncHistory = true
		needs.Reasons = append(needs.Reasons, "history: local changes pending")
	case flags.ResetPerformed && flags.ResetType == model.ResetWeekly:
		needs.SyncHistory = true
		needs.Reasons = append(needs.Reasons, "history: weekly rollover performed")
	case remote.HistoryChanged:
		needs.SyncHistory = true
		needs.Reasons = append(needs.Reasons, "history: remote changed")
	case checkRemote:
		needs.SyncHistory = true
		needs.Reasons = append(needs.Reasons, "history: remote check requested")
	}

	return needs
}

// ShouldUpload computes upload necessity separately from download necessity.
//
// The fresh-install exception is a safety rule, not a default: a device that
// has never completed a sync must not clobber existing cloud data with its
// blank state, even when its local dirty flags are set. This is what keeps a
// second-device install from erasing the first device's history.
func ShouldUpload(localDirty, mergeChanged, isNew, freshInstall, remoteHasContent bool) bool {
	if freshInstall && remoteHasContent {
		return false
	}
	return localDirty || mergeChanged || isNew
}
