package model

// FileRevision is an opaque per-provider revision handle. Providers fill
// whichever indicators they have; the fields are compared for equality,
// never parsed for meaning.
type FileRevision struct {
	Rev      string `json:"rev,omitempty"`      // provider revision string (e.g. Drive headRevisionId, Dropbox rev)
	Version  int64  `json:"version,omitempty"`  // monotonically increasing version number
	Checksum string `json:"checksum,omitempty"` // content checksum
	Modified int64  `json:"modified,omitempty"` // server modified time, Unix millis
}

// IsZero reports whether no revision indicator is present.
func (r FileRevision) IsZero() bool {
	return r.Rev == "" && r.Version == 0 && r.Checksum == "" && r.Modified == 0
}

// Equal compares two handles using the first indicator both sides carry:
// revision string, then version number, then checksum, then modified time.
// A provider returning partial revision information still yields a usable
// comparison this way. With no shared indicator the handles are treated as
// differing, which at worst costs one redundant download.
func (r FileRevision) Equal(other FileRevision) bool {
	if r.Rev != "" && other.Rev != "" {
		return r.Rev == other.Rev
	}
	if r.Version != 0 && other.Version != 0 {
		return r.Version == other.Version
	}
	if r.Checksum != "" && other.Checksum != "" {
		return r.Checksum == other.Checksum
	}
	if r.Modified != 0 && other.Modified != 0 {
		return r.Modified == other.Modified
	}
	return false
}
