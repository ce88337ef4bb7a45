// Package provider defines the cloud storage capability the sync engine
// consumes. Each vendor adapter implements the same surface; the engine
// never branches on anything but the Kind tag.
package provider

import (
	"context"
	"errors"

	"github.com/NateEaton/mind-pwa-sub000/internal/model"
)

// Kind tags a provider implementation at construction.
type Kind string

const (
	KindGDrive  Kind = "gdrive"
	KindDropbox Kind = "dropbox"
)

// FileHandle identifies a remote file and carries its revision handle.
type FileHandle struct {
	ID       string
	Name     string
	Revision model.FileRevision
}

// UserInfo describes the authenticated account.
type UserInfo struct {
	Email string
	Name  string
	ID    string
}

// Sentinel errors adapters attach (via errors.Join) to classify failures.
// The sync engine maps these onto its own taxonomy.
var (
	// ErrUnauthorized marks an authorization failure (expired or revoked
	// credentials). The engine retries exactly once after a refresh.
	ErrUnauthorized = errors.New("provider: unauthorized")
	// ErrNotFound marks a missing remote file, a normal first-sync state.
	ErrNotFound = errors.New("provider: not found")
	// ErrTransient marks rate limits and transient network failures, safe
	// to retry on the next trigger.
	ErrTransient = errors.New("provider: transient failure")
)

// IsUnauthorized reports whether err carries ErrUnauthorized.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsNotFound reports whether err carries ErrNotFound.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsTransient reports whether err carries ErrTransient.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// Provider is the uniform cloud storage capability.
//
// DownloadFile returns an empty JSON object for a missing or empty file,
// never an error: absence is a normal first-sync state, not a fault.
type Provider interface {
	// Kind returns the capability tag set at construction.
	Kind() Kind

	// Initialize prepares the adapter, proactively refreshing credentials
	// when only a refresh credential is cached.
	Initialize(ctx context.Context) error

	// CheckAuth reports whether a usable credential is currently held.
	CheckAuth(ctx context.Context) bool

	// Authenticate runs the interactive authentication flow.
	Authenticate(ctx context.Context) error

	// BeginAuth starts the two-phase flow: it persists a resumable
	// pending-auth record and returns it with the URL to visit.
	BeginAuth(ctx context.Context) (*PendingAuth, error)

	// CompleteAuth exchanges the redirect code for tokens and clears the
	// pending-auth record.
	CompleteAuth(ctx context.Context, code string) error

	// RefreshToken renews the access credential from the refresh credential.
	RefreshToken(ctx context.Context) error

	// ClearStoredAuth drops stored credentials, forcing interactive
	// re-authentication on the next attempt.
	ClearStoredAuth() error

	// SearchFile looks a logical file up by name; (nil, nil) when absent.
	SearchFile(ctx context.Context, name string) (*FileHandle, error)

	// FindOrCreateFile returns the handle for name, creating an empty file
	// when it does not exist yet.
	FindOrCreateFile(ctx context.Context, name string) (*FileHandle, error)

	// DownloadFile fetches the file content as JSON.
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)

	// UploadFile replaces the file content and returns the new handle.
	UploadFile(ctx context.Context, fileID string, payload []byte) (*FileHandle, error)

	// GetFileMetadata fetches the current handle without content;
	// (nil, nil) when the file is gone.
	GetFileMetadata(ctx context.Context, fileID string) (*FileHandle, error)

	// ClearAllAppFiles deletes every file in the app scope and returns the
	// count removed.
	ClearAllAppFiles(ctx context.Context) (int, error)

	// UserInfo returns the authenticated account, or nil when logged out.
	UserInfo(ctx context.Context) (*UserInfo, error)
}

// EmptyObject is what DownloadFile returns for absent or empty files.
var EmptyObject = []byte("{}")

// IsEmptyPayload reports whether a downloaded payload carries no content.
func IsEmptyPayload(data []byte) bool {
	if len(data) == 0 {
		return true
	}
	trimmed := string(data)
	return trimmed == "{}" || trimmed == "null"
}
