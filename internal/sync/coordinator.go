package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/NateEaton/mind-pwa-sub000/internal/model"
	"github.com/NateEaton/mind-pwa-sub000/internal/provider"
)

// NetworkPolicy gates sync against the network preference. Check returns
// nil when syncing is allowed on the current network.
type NetworkPolicy interface {
	Check(ctx context.Context) error
}

// allowAll is the default policy.
type allowAll struct{}

func (allowAll) Check(ctx context.Context) error { return nil }

// Options control one sync call.
type Options struct {
	// Silent suppresses interactive authentication: a missing session is
	// reported as AuthenticationRequired instead of prompting.
	Silent bool
}

// UnitOutcome reports one logical unit's part of a sync call.
type UnitOutcome struct {
	Needed     bool
	Downloaded bool
	Merged     bool
	Uploaded   bool
	Changed    bool
	Err        error
}

// Outcome is the structured result of a sync call. Unit-scoped failures
// land in the unit outcomes; only the network gate and authentication
// abort the whole call.
type Outcome struct {
	Skipped    bool
	StartTime  time.Time
	Duration   time.Duration
	RolledOver bool
	Current    UnitOutcome
	History    UnitOutcome
	Reasons    []string
}

// Failed reports whether any unit failed.
func (o *Outcome) Failed() bool {
	return o.Current.Err != nil || o.History.Err != nil
}

// Config assembles a Coordinator. Provider and Store are required; the
// rest default sensibly.
type Config struct {
	Provider  provider.Provider
	Store     LocalStore
	Gate      NetworkPolicy
	Logger    *slog.Logger
	Clock     func() time.Time
	WeekStart time.Weekday
	Targets   map[string]model.Target
}

// Coordinator drives one provider through auth-check, change detection,
// download, merge and upload for both logical units. All collaborators are
// passed in explicitly so the engine is testable with fakes.
type Coordinator struct {
	provider  provider.Provider
	store     LocalStore
	meta      *MetadataManager
	gate      NetworkPolicy
	logger    *slog.Logger
	clock     func() time.Time
	weekStart time.Weekday
	targets   map[string]model.Target

	syncing  atomic.Bool
	mu       sync.Mutex
	lastSync time.Time
}

// NewCoordinator creates the sync coordinator.
func NewCoordinator(cfg Config) *Coordinator {
	c := &Coordinator{
		provider:  cfg.Provider,
		store:     cfg.Store,
		meta:      NewMetadataManager(cfg.Store),
		gate:      cfg.Gate,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
		weekStart: cfg.WeekStart,
		targets:   cfg.Targets,
	}
	if c.gate == nil {
		c.gate = allowAll{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.clock == nil {
		c.clock = time.Now
	}
	if c.targets == nil {
		c.targets = model.DefaultTargets()
	}
	return c
}

// LastSync returns when the last sync call completed its work.
func (c *Coordinator) LastSync() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSync
}

// Sync runs one reconciliation pass. Exactly one call executes at a time;
// a concurrent call returns {Skipped: true} immediately without touching
// the network. The single-flight guard is released on every path.
func (c *Coordinator) Sync(ctx context.Context, opts Options) (*Outcome, error) {
	if !c.syncing.CompareAndSwap(false, true) {
		return &Outcome{Skipped: true}, nil
	}
	defer c.syncing.Store(false)

	now := c.clock()
	outcome := &Outcome{StartTime: now}
	defer func() { outcome.Duration = time.Since(outcome.StartTime) }()

	// Network policy gate: fail fast, no partial work.
	if err := c.gate.Check(ctx); err != nil {
		return nil, newError(OpSync, "", KindNetworkConstraint, err)
	}

	// Roll a finished week into the archive before reconciling, so the
	// archive unit sees it this same pass.
	rec, rolled, err := EnsureCurrentPeriod(c.store, c.targets, c.weekStart, now)
	if err != nil {
		return nil, newError(OpStore, "", "", err)
	}
	outcome.RolledOver = rolled

	if err := c.ensureAuthenticated(ctx, opts.Silent); err != nil {
		return nil, err
	}

	remote := c.probeRemoteChanges(ctx)
	needs := DetermineSyncNeeds(FlagsFrom(&rec.Metadata), remote, true)
	outcome.Reasons = needs.Reasons

	if needs.SyncCurrent {
		outcome.Current = c.syncCurrent(ctx, rec)
		if outcome.Current.Err != nil {
			c.logger.Warn("current unit failed", "error", outcome.Current.Err)
		}
		// The current unit may have replaced the record.
		if fresh, err := c.store.LoadCurrentRecord(); err == nil && fresh != nil {
			rec = fresh
		}
	}

	if needs.SyncHistory {
		outcome.History = c.syncHistory(ctx, rec)
		if outcome.History.Err != nil {
			c.logger.Warn("history unit failed", "error", outcome.History.Err)
		}
	}

	// Reset bookkeeping has served its purpose once both units settled.
	if !outcome.Failed() && rec.Metadata.ResetPerformed {
		rec.Metadata.ResetPerformed = false
		rec.Metadata.ResetType = ""
		if err := c.store.SaveCurrentRecord(rec); err != nil {
			c.logger.Warn("failed to clear reset bookkeeping", "error", err)
		}
	}

	c.mu.Lock()
	c.lastSync = now
	c.mu.Unlock()

	c.logger.Info("sync finished",
		"rolled_over", outcome.RolledOver,
		"current_uploaded", outcome.Current.Uploaded,
		"history_uploaded", outcome.History.Uploaded,
		"failed", outcome.Failed())
	return outcome, nil
}

// probeRemoteChanges asks the metadata manager whether either unit's file
// changed remotely. Probe errors are ignored: the per-unit pass resolves
// handles itself and will surface real failures.
func (c *Coordinator) probeRemoteChanges(ctx context.Context) RemoteChange {
	var remote RemoteChange
	for _, probe := range []struct {
		name string
		dst  *bool
	}{
		{CurrentWeekFile, &remote.CurrentChanged},
		{HistoryIndexFile, &remote.HistoryChanged},
	} {
		id, _, err := c.meta.Cached(probe.name)
		if err != nil || id == "" {
			continue
		}
		err = c.withAuthRetry(ctx, OpMetadata, "", func(ctx context.Context) error {
			changed, _, err := c.meta.CheckIfFileChanged(ctx, probe.name, id, c.provider)
			if err == nil {
				*probe.dst = changed
			}
			return err
		})
		if err != nil {
			c.logger.Debug("remote change probe failed", "file", probe.name, "error", err)
		}
	}
	return remote
}

// resolveHandle locates a logical file remotely, preferring the cached
// file ID, creating the file when create is set and it does not exist.
func (c *Coordinator) resolveHandle(ctx context.Context, unit, logicalName, cachedID string, create bool) (handle *provider.FileHandle, isNew bool, err error) {
	err = c.withAuthRetry(ctx, OpSearch, unit, func(ctx context.Context) error {
		var err error
		if cachedID != "" {
			handle, err = c.provider.GetFileMetadata(ctx, cachedID)
			if err != nil || handle != nil {
				return err
			}
		}
		handle, err = c.provider.SearchFile(ctx, logicalName)
		if err != nil || handle != nil {
			return err
		}
		isNew = true
		if create {
			handle, err = c.provider.FindOrCreateFile(ctx, logicalName)
		}
		return err
	})
	return handle, isNew, err
}

func (c *Coordinator) download(ctx context.Context, unit, fileID string) ([]byte, error) {
	var payload []byte
	err := c.withAuthRetry(ctx, OpDownload, unit, func(ctx context.Context) error {
		var err error
		payload, err = c.provider.DownloadFile(ctx, fileID)
		return err
	})
	return payload, err
}

func (c *Coordinator) upload(ctx context.Context, unit, fileID string, payload []byte) (*provider.FileHandle, error) {
	var handle *provider.FileHandle
	err := c.withAuthRetry(ctx, OpUpload, unit, func(ctx context.Context) error {
		var err error
		handle, err = c.provider.UploadFile(ctx, fileID, payload)
		return err
	})
	return handle, err
}

// syncCurrent reconciles the current-week unit.
func (c *Coordinator) syncCurrent(ctx context.Context, local *model.TrackingRecord) UnitOutcome {
	out := UnitOutcome{Needed: true}

	cachedID, cachedRev, err := c.meta.Cached(CurrentWeekFile)
	if err != nil {
		out.Err = newError(OpMetadata, UnitCurrent, "", err)
		return out
	}

	handle, isNew, err := c.resolveHandle(ctx, UnitCurrent, CurrentWeekFile, cachedID, true)
	if err != nil {
		out.Err = err
		return out
	}

	// Download only when the remote revision differs from the last one
	// this device observed.
	var remote *model.TrackingRecord
	if !isNew && (cachedRev.IsZero() || !cachedRev.Equal(handle.Revision)) {
		payload, err := c.download(ctx, UnitCurrent, handle.ID)
		if err != nil {
			out.Err = err
			return out
		}
		out.Downloaded = true
		if !provider.IsEmptyPayload(payload) {
			var r model.TrackingRecord
			if err := json.Unmarshal(payload, &r); err != nil {
				// Malformed remote payload: the local record stays
				// untouched.
				out.Err = newError(OpMerge, UnitCurrent, KindMerge, err)
				return out
			}
			r.RecomputeWeeklyTotals()
			remote = &r
		}
	}

	res := MergeCurrentWeek(local, remote)
	out.Merged = remote != nil
	merged := res.Record
	if merged == nil {
		return out
	}

	// A one-sided rollover surfaces the ended week; fold it into the
	// local archive so the history unit transfers it.
	if res.Superseded != nil && res.Superseded.HasContent() {
		if err := c.archiveSuperseded(res.Superseded, merged); err != nil {
			out.Err = newError(OpStore, UnitCurrent, "", err)
			return out
		}
	}

	// The merged record lives on this device from here on.
	deviceID := local.Metadata.DeviceID
	historyDirty := merged.Metadata.HistoryDirty || local.Metadata.HistoryDirty
	merged.Metadata.DeviceID = deviceID
	merged.Metadata.HistoryDirty = historyDirty

	localDirty := local.Metadata.CurrentDirty()
	freshInstall := local.Metadata.IsFreshInstall
	remoteHasContent := remote != nil && remote.HasContent()

	// A skipped download means the remote still matches what this device
	// last saw; only an observed difference argues for an upload.
	mergeChanged := res.ChangedFromRemote && (out.Downloaded || isNew)

	if ShouldUpload(localDirty, mergeChanged, isNew, freshInstall, remoteHasContent) {
		snapshot := merged.Clone()
		snapshot.Metadata.ClearCurrentDirty()
		snapshot.Metadata.IsFreshInstall = false
		payload, err := json.Marshal(snapshot)
		if err != nil {
			out.Err = newError(OpUpload, UnitCurrent, "", err)
			return out
		}

		uploaded, err := c.upload(ctx, UnitCurrent, handle.ID, payload)
		if err != nil {
			// Keep the merged content but leave the dirty flags set: they
			// clear only with a confirmed upload.
			if res.ChangedFromLocal {
				if saveErr := c.store.SaveCurrentRecord(merged); saveErr != nil {
					c.logger.Warn("failed to persist merged record", "error", saveErr)
				}
			}
			out.Err = err
			return out
		}
		out.Uploaded = true

		// Upload confirmed: persist the cleared flags and the revision
		// handle the upload produced.
		merged.Metadata.ClearCurrentDirty()
		merged.Metadata.IsFreshInstall = false
		if err := c.store.SaveCurrentRecord(merged); err != nil {
			out.Err = newError(OpStore, UnitCurrent, "", err)
			return out
		}
		if err := c.meta.StoreFileMetadata(CurrentWeekFile, uploaded); err != nil {
			out.Err = newError(OpMetadata, UnitCurrent, "", err)
			return out
		}
	} else {
		// Download-only pass. Dirty flags stay set: anything recorded
		// locally (a fresh install's pre-sync servings included) uploads
		// on the next pass, as part of the merged state.
		if res.ChangedFromLocal || freshInstall && remoteHasContent {
			merged.Metadata.IsFreshInstall = false
			if err := c.store.SaveCurrentRecord(merged); err != nil {
				out.Err = newError(OpStore, UnitCurrent, "", err)
				return out
			}
		}
		if out.Downloaded {
			if err := c.meta.StoreFileMetadata(CurrentWeekFile, handle); err != nil {
				out.Err = newError(OpMetadata, UnitCurrent, "", err)
				return out
			}
		}
	}

	out.Changed = res.ChangedFromLocal || res.ChangedFromRemote
	return out
}

// archiveSuperseded folds the losing side of a one-sided rollover into the
// local archive and marks history dirty on the adopted record.
func (c *Coordinator) archiveSuperseded(superseded, current *model.TrackingRecord) error {
	ts := model.NowMillis(c.clock())
	archived := model.ArchiveFromRecord(superseded, c.targets, ts)
	if existing, err := c.store.GetArchiveRecord(superseded.WeekStartDate); err != nil {
		return err
	} else if existing != nil {
		archived, _ = MergeArchiveRecord(existing, archived)
	}
	if err := c.store.SaveArchiveRecord(archived); err != nil {
		return err
	}
	current.Metadata.MarkHistoryDirty(ts)
	return nil
}

// syncHistory reconciles the archive unit: index merge first, then the
// individual week records the merged index says need transfer.
func (c *Coordinator) syncHistory(ctx context.Context, rec *model.TrackingRecord) UnitOutcome {
	out := UnitOutcome{Needed: true}

	cachedID, cachedRev, err := c.meta.Cached(HistoryIndexFile)
	if err != nil {
		out.Err = newError(OpMetadata, UnitHistory, "", err)
		return out
	}

	handle, isNew, err := c.resolveHandle(ctx, UnitHistory, HistoryIndexFile, cachedID, true)
	if err != nil {
		out.Err = err
		return out
	}

	var remoteIx *model.ArchiveIndex
	if !isNew && (cachedRev.IsZero() || !cachedRev.Equal(handle.Revision)) {
		payload, err := c.download(ctx, UnitHistory, handle.ID)
		if err != nil {
			out.Err = err
			return out
		}
		out.Downloaded = true
		if !provider.IsEmptyPayload(payload) {
			var ix model.ArchiveIndex
			if err := json.Unmarshal(payload, &ix); err != nil {
				out.Err = newError(OpMerge, UnitHistory, KindMerge, err)
				return out
			}
			remoteIx = &ix
		}
	} else if !isNew {
		// Unchanged revision: the remote still matches the index we saw
		// last time, so reconcile against that snapshot instead of
		// treating every local week as missing remotely.
		remoteIx, err = c.cachedRemoteIndex()
		if err != nil {
			out.Err = newError(OpStore, UnitHistory, "", err)
			return out
		}
	}

	localIx, err := c.store.LocalArchiveIndex()
	if err != nil {
		out.Err = newError(OpStore, UnitHistory, "", err)
		return out
	}

	merged, _, changedFromRemote := MergeArchiveIndex(localIx, remoteIx)
	out.Merged = remoteIx != nil

	// The fresh-install guard applies to the archive as well: a brand-new
	// device never pushes its (blank) archive over existing cloud history.
	remoteHasContent := remoteIx != nil && len(remoteIx.Weeks) > 0
	uploadAllowed := !(rec.Metadata.IsFreshInstall && remoteHasContent)

	uploadedAny := false
	for _, entry := range merged.Weeks {
		changed, uploaded, err := c.syncHistoryWeek(ctx, entry, remoteIx, merged, uploadAllowed)
		if err != nil {
			out.Err = err
			return out
		}
		out.Changed = out.Changed || changed
		uploadedAny = uploadedAny || uploaded
	}

	if uploadAllowed && (changedFromRemote || uploadedAny || isNew) {
		payload, err := json.Marshal(merged)
		if err != nil {
			out.Err = newError(OpUpload, UnitHistory, "", err)
			return out
		}
		uploaded, err := c.upload(ctx, UnitHistory, handle.ID, payload)
		if err != nil {
			out.Err = err
			return out
		}
		out.Uploaded = true
		if err := c.meta.StoreFileMetadata(HistoryIndexFile, uploaded); err != nil {
			out.Err = newError(OpMetadata, UnitHistory, "", err)
			return out
		}
		if err := c.storeCachedRemoteIndex(merged); err != nil {
			out.Err = newError(OpStore, UnitHistory, "", err)
			return out
		}

		// History upload confirmed, clear its flag.
		if rec.Metadata.HistoryDirty {
			rec.Metadata.ClearHistoryDirty()
			if err := c.store.SaveCurrentRecord(rec); err != nil {
				out.Err = newError(OpStore, UnitHistory, "", err)
				return out
			}
		}
	} else if out.Downloaded {
		if err := c.meta.StoreFileMetadata(HistoryIndexFile, handle); err != nil {
			out.Err = newError(OpMetadata, UnitHistory, "", err)
			return out
		}
		if err := c.storeCachedRemoteIndex(remoteIx); err != nil {
			out.Err = newError(OpStore, UnitHistory, "", err)
			return out
		}
	}

	return out
}

const remoteIndexCacheKey = "remote_index_cache"

// cachedRemoteIndex returns the remote archive index as last observed, or
// nil when no sync has seen one yet.
func (c *Coordinator) cachedRemoteIndex() (*model.ArchiveIndex, error) {
	raw, err := c.store.GetPreference(remoteIndexCacheKey, "")
	if err != nil || raw == "" {
		return nil, err
	}
	var ix model.ArchiveIndex
	if err := json.Unmarshal([]byte(raw), &ix); err != nil {
		return nil, fmt.Errorf("decode cached remote index: %w", err)
	}
	return &ix, nil
}

func (c *Coordinator) storeCachedRemoteIndex(ix *model.ArchiveIndex) error {
	if ix == nil {
		ix = &model.ArchiveIndex{}
	}
	raw, err := json.Marshal(ix)
	if err != nil {
		return fmt.Errorf("encode cached remote index: %w", err)
	}
	return c.store.SavePreference(remoteIndexCacheKey, string(raw))
}

// syncHistoryWeek transfers one archived week in whichever direction the
// index comparison demands.
func (c *Coordinator) syncHistoryWeek(ctx context.Context, entry model.ArchiveIndexEntry, remoteIx, merged *model.ArchiveIndex, uploadAllowed bool) (changed, uploaded bool, err error) {
	localRec, err := c.store.GetArchiveRecord(entry.AnchorDate)
	if err != nil {
		return false, false, newError(OpStore, UnitHistory, "", err)
	}

	var remoteEntry model.ArchiveIndexEntry
	inRemote := false
	if remoteIx != nil {
		remoteEntry, inRemote = remoteIx.Entry(entry.AnchorDate)
	}

	fileName := HistoryWeekFile(entry.AnchorDate)

	if inRemote && (localRec == nil || remoteEntry.UpdatedAt > localRec.UpdatedAt) {
		weekHandle, _, err := c.resolveHandle(ctx, UnitHistory, fileName, "", false)
		if err != nil {
			return false, false, err
		}
		if weekHandle != nil {
			payload, err := c.download(ctx, UnitHistory, weekHandle.ID)
			if err != nil {
				return false, false, err
			}
			if !provider.IsEmptyPayload(payload) {
				var remoteRec model.ArchiveRecord
				if err := json.Unmarshal(payload, &remoteRec); err != nil {
					return false, false, newError(OpMerge, UnitHistory, KindMerge, err)
				}
				mergedRec, recChanged := MergeArchiveRecord(localRec, &remoteRec)
				if recChanged || localRec == nil {
					mergedRec.SyncStatus = model.SyncStatusSynced
					if err := c.store.SaveArchiveRecord(mergedRec); err != nil {
						return false, false, newError(OpStore, UnitHistory, "", err)
					}
					changed = true
				}
				localRec = mergedRec
			}
			if err := c.meta.StoreFileMetadata(fileName, weekHandle); err != nil {
				return false, false, newError(OpMetadata, UnitHistory, "", err)
			}
		}
	}

	if uploadAllowed && localRec != nil && (!inRemote || localRec.UpdatedAt > remoteEntry.UpdatedAt) {
		weekHandle, _, err := c.resolveHandle(ctx, UnitHistory, fileName, "", true)
		if err != nil {
			return changed, false, err
		}
		snapshot := localRec.Clone()
		snapshot.SyncStatus = model.SyncStatusSynced
		payload, err := json.Marshal(snapshot)
		if err != nil {
			return changed, false, newError(OpUpload, UnitHistory, "", err)
		}
		freshHandle, err := c.upload(ctx, UnitHistory, weekHandle.ID, payload)
		if err != nil {
			return changed, false, err
		}
		if err := c.meta.StoreFileMetadata(fileName, freshHandle); err != nil {
			return changed, true, newError(OpMetadata, UnitHistory, "", err)
		}
		if localRec.SyncStatus != model.SyncStatusSynced {
			localRec.SyncStatus = model.SyncStatusSynced
			if err := c.store.SaveArchiveRecord(localRec); err != nil {
				return changed, true, newError(OpStore, UnitHistory, "", err)
			}
		}
		merged.Upsert(entry.AnchorDate, localRec.UpdatedAt)
		uploaded = true
	}

	return changed, uploaded, nil
}
