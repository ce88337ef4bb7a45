package sync

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/NateEaton/mind-pwa-sub000/internal/model"
	"github.com/NateEaton/mind-pwa-sub000/internal/provider"
)

const fileMetaPrefix = "file_meta."

// fileMeta is what the manager persists per logical file: the remote file
// ID and the last revision handle this device observed or produced.
type fileMeta struct {
	FileID   string             `json:"fileId"`
	Revision model.FileRevision `json:"revision"`
}

// MetadataManager persists per-file revision handles and answers "has this
// file changed remotely since we last looked?" without downloading content.
type MetadataManager struct {
	store LocalStore
}

// NewMetadataManager creates a manager over the given store.
func NewMetadataManager(store LocalStore) *MetadataManager {
	return &MetadataManager{store: store}
}

// Cached returns the stored file ID and revision handle for a logical name.
func (m *MetadataManager) Cached(logicalName string) (string, model.FileRevision, error) {
	raw, err := m.store.GetPreference(fileMetaPrefix+logicalName, "")
	if err != nil || raw == "" {
		return "", model.FileRevision{}, err
	}
	var meta fileMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return "", model.FileRevision{}, fmt.Errorf("decode cached metadata for %s: %w", logicalName, err)
	}
	return meta.FileID, meta.Revision, nil
}

// StoreFileMetadata persists the latest handle. This is the only writer of
// revision handles, and it runs only after a successful download or upload,
// so the cache always reflects the last state this device actually saw.
func (m *MetadataManager) StoreFileMetadata(logicalName string, handle *provider.FileHandle) error {
	raw, err := json.Marshal(fileMeta{FileID: handle.ID, Revision: handle.Revision})
	if err != nil {
		return fmt.Errorf("encode metadata for %s: %w", logicalName, err)
	}
	return m.store.SavePreference(fileMetaPrefix+logicalName, string(raw))
}

// CheckIfFileChanged fetches the remote file's current handle and compares
// it against the cached one. It returns whether they differ along with the
// fresh handle. A file with no cached handle counts as changed; a remote
// file that has vanished returns (true, nil, nil).
func (m *MetadataManager) CheckIfFileChanged(ctx context.Context, logicalName, remoteFileID string, p provider.Provider) (bool, *provider.FileHandle, error) {
	handle, err := p.GetFileMetadata(ctx, remoteFileID)
	if err != nil {
		return false, nil, err
	}
	if handle == nil {
		return true, nil, nil
	}

	_, cached, err := m.Cached(logicalName)
	if err != nil {
		return false, nil, err
	}
	if cached.IsZero() {
		return true, handle, nil
	}
	return !cached.Equal(handle.Revision), handle, nil
}
