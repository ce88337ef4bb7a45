package sync

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/NateEaton/mind-pwa-sub000/internal/provider"
)

func TestFromProviderMapsSentinels(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantKind  Kind
		retryable bool
	}{
		{
			name:      "unauthorized",
			err:       errors.Join(provider.ErrUnauthorized, errors.New("401")),
			wantKind:  KindAuthRequired,
			retryable: false,
		},
		{
			name:     "not found",
			err:      errors.Join(provider.ErrNotFound, errors.New("404")),
			wantKind: KindNotFound,
		},
		{
			name:      "transient",
			err:       errors.Join(provider.ErrTransient, errors.New("503")),
			wantKind:  KindTransient,
			retryable: true,
		},
		{
			name:     "unclassified",
			err:      errors.New("something else"),
			wantKind: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			syncErr := fromProvider(OpDownload, UnitCurrent, tt.err)
			if syncErr.Kind != tt.wantKind {
				t.Errorf("Kind = %q, want %q", syncErr.Kind, tt.wantKind)
			}
			if syncErr.Retryable() != tt.retryable {
				t.Errorf("Retryable = %v, want %v", syncErr.Retryable(), tt.retryable)
			}
			if !errors.Is(syncErr, tt.err) && syncErr.Err != tt.err {
				t.Error("cause must stay reachable through Unwrap")
			}
		})
	}
}

func TestSyncErrorMessageCarriesContext(t *testing.T) {
	err := newError(OpUpload, UnitHistory, KindTransient, errors.New("rate limited"))
	msg := err.Error()
	for _, want := range []string{"upload", "history", string(KindTransient), "rate limited"} {
		if !strings.Contains(msg, want) {
			t.Errorf("message %q missing %q", msg, want)
		}
	}
}

func TestErrorPredicatesSeeThroughWrapping(t *testing.T) {
	inner := newError(OpAuth, "", KindAuthRequired, errors.New("refresh revoked"))
	wrapped := fmt.Errorf("sync pass: %w", inner)

	if !IsAuthRequired(wrapped) {
		t.Error("IsAuthRequired must see through fmt.Errorf wrapping")
	}
	if IsNetworkConstraint(wrapped) || IsRetryable(wrapped) {
		t.Error("predicates must not cross kinds")
	}
}
