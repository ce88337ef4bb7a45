package sync

import (
	"context"
	"testing"

	"github.com/NateEaton/mind-pwa-sub000/internal/model"
	"github.com/NateEaton/mind-pwa-sub000/internal/provider"
	"github.com/NateEaton/mind-pwa-sub000/internal/store"
)

func newTestMeta(t *testing.T) *MetadataManager {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return NewMetadataManager(st)
}

func TestMetadataCachedEmpty(t *testing.T) {
	m := newTestMeta(t)

	id, rev, err := m.Cached(CurrentWeekFile)
	if err != nil {
		t.Fatal(err)
	}
	if id != "" || !rev.IsZero() {
		t.Errorf("empty cache returned id=%q rev=%+v", id, rev)
	}
}

func TestMetadataRoundTrip(t *testing.T) {
	m := newTestMeta(t)

	handle := &provider.FileHandle{
		ID:   "file-1",
		Name: CurrentWeekFile,
		Revision: model.FileRevision{
			Rev:      "rev-7",
			Checksum: "abc123",
		},
	}
	if err := m.StoreFileMetadata(CurrentWeekFile, handle); err != nil {
		t.Fatal(err)
	}

	id, rev, err := m.Cached(CurrentWeekFile)
	if err != nil {
		t.Fatal(err)
	}
	if id != "file-1" {
		t.Errorf("id = %q, want file-1", id)
	}
	if !rev.Equal(handle.Revision) {
		t.Errorf("revision %+v does not round-trip", rev)
	}
}

func TestCheckIfFileChanged(t *testing.T) {
	m := newTestMeta(t)
	p := newFakeProvider()
	f := p.seed(CurrentWeekFile, map[string]int{"x": 1})
	ctx := context.Background()

	// No cached handle: counts as changed.
	changed, handle, err := m.CheckIfFileChanged(ctx, CurrentWeekFile, f.id, p)
	if err != nil || !changed || handle == nil {
		t.Fatalf("uncached check = (%v, %v, %v), want changed with handle", changed, handle, err)
	}

	if err := m.StoreFileMetadata(CurrentWeekFile, handle); err != nil {
		t.Fatal(err)
	}

	// Unchanged remote.
	changed, _, err = m.CheckIfFileChanged(ctx, CurrentWeekFile, f.id, p)
	if err != nil || changed {
		t.Fatalf("unchanged file reported changed=%v err=%v", changed, err)
	}

	// Remote revision moved.
	f.rev++
	changed, _, err = m.CheckIfFileChanged(ctx, CurrentWeekFile, f.id, p)
	if err != nil || !changed {
		t.Fatalf("revised file reported changed=%v err=%v", changed, err)
	}

	// Remote file vanished.
	delete(p.files, f.id)
	changed, handle, err = m.CheckIfFileChanged(ctx, CurrentWeekFile, f.id, p)
	if err != nil || !changed || handle != nil {
		t.Fatalf("vanished file = (%v, %v, %v), want (true, nil, nil)", changed, handle, err)
	}
}
