package sync

import (
	"errors"
	"fmt"

	"github.com/NateEaton/mind-pwa-sub000/internal/provider"
)

// Kind classifies a sync failure.
type Kind string

const (
	// KindNetworkConstraint: the network policy gate blocked the sync.
	// Not retried automatically.
	KindNetworkConstraint Kind = "NETWORK_CONSTRAINT"
	// KindAuthRequired: credentials are invalid or expired and refresh
	// failed; interactive re-authentication is needed.
	KindAuthRequired Kind = "AUTHENTICATION_REQUIRED"
	// KindTransient: rate limit or transient network failure, safe to
	// retry on the next trigger.
	KindTransient Kind = "PROVIDER_TRANSIENT"
	// KindMerge: malformed remote payload. Unit-scoped.
	KindMerge Kind = "MERGE_FAILURE"
	// KindNotFound: nothing to sync yet. Not an error condition.
	KindNotFound Kind = "NOT_FOUND"
)

// Op names the operation during which a failure occurred.
type Op string

const (
	OpSync     Op = "sync"
	OpAuth     Op = "auth"
	OpSearch   Op = "search"
	OpDownload Op = "download"
	OpUpload   Op = "upload"
	OpMerge    Op = "merge"
	OpMetadata Op = "metadata"
	OpStore    Op = "store"
)

// SyncError is the structured failure the engine reports.
type SyncError struct {
	Op   Op
	Unit string // "current", "history" or "" for call-scoped failures
	Kind Kind
	Err  error
}

func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s operation failed", e.Op)
	if e.Unit != "" {
		msg = fmt.Sprintf("%s operation failed for %s unit", e.Op, e.Unit)
	}
	if e.Kind != "" {
		msg += fmt.Sprintf(" [%s]", e.Kind)
	}
	return msg + fmt.Sprintf(": %v", e.Err)
}

func (e *SyncError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the next natural trigger may succeed.
func (e *SyncError) Retryable() bool {
	return e.Kind == KindTransient
}

func newError(op Op, unit string, kind Kind, err error) *SyncError {
	return &SyncError{Op: op, Unit: unit, Kind: kind, Err: err}
}

// fromProvider maps a provider failure onto the engine taxonomy.
func fromProvider(op Op, unit string, err error) *SyncError {
	switch {
	case provider.IsUnauthorized(err):
		return newError(op, unit, KindAuthRequired, err)
	case provider.IsNotFound(err):
		return newError(op, unit, KindNotFound, err)
	case provider.IsTransient(err):
		return newError(op, unit, KindTransient, err)
	}
	return newError(op, unit, "", err)
}

// IsRetryable reports whether err is a transient sync failure.
func IsRetryable(err error) bool {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Retryable()
	}
	return false
}

// IsAuthRequired reports whether err demands interactive re-authentication.
func IsAuthRequired(err error) bool {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Kind == KindAuthRequired
	}
	return false
}

// IsNetworkConstraint reports whether the network policy gate blocked the
// call.
func IsNetworkConstraint(err error) bool {
	var syncErr *SyncError
	if errors.As(err, &syncErr) {
		return syncErr.Kind == KindNetworkConstraint
	}
	return false
}
