package provider

import (
	"encoding/json"
	"fmt"
	"os"
)

// PendingAuth is the resumable state of an in-flight authentication: phase
// one persists it and hands the user the URL, phase two exchanges the code
// and clears it. Persisting the record lets a separate invocation (or the
// next process start) finish the flow.
type PendingAuth struct {
	Provider  Kind   `json:"provider"`
	State     string `json:"state"`
	Verifier  string `json:"verifier,omitempty"` // PKCE code verifier
	AuthURL   string `json:"authUrl"`
	CreatedAt int64  `json:"createdAt"`
}

// SavePending writes the pending-auth record to path.
func SavePending(path string, p *PendingAuth) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pending auth: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("save pending auth: %w", err)
	}
	return nil
}

// LoadPending reads the pending-auth record at path, or nil when absent.
func LoadPending(path string) (*PendingAuth, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read pending auth: %w", err)
	}
	var p PendingAuth
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode pending auth: %w", err)
	}
	return &p, nil
}

// ClearPending removes the pending-auth record if present.
func ClearPending(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("clear pending auth: %w", err)
	}
	return nil
}
