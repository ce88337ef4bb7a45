// Package dropbox implements the cloud storage provider on the Dropbox v2
// API. The adapter is path-scoped: inside an app folder, the file path is
// the file ID.
package dropbox

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/NateEaton/mind-pwa-sub000/internal/config"
	"github.com/NateEaton/mind-pwa-sub000/internal/model"
	"github.com/NateEaton/mind-pwa-sub000/internal/provider"
	"github.com/NateEaton/mind-pwa-sub000/internal/retry"
)

// Client is the Dropbox provider adapter.
type Client struct {
	cfg        *config.DropboxConfig
	oauth      *oauth2.Config
	token      *oauth2.Token
	httpClient *http.Client
}

// fileMetadata is the subset of Dropbox file metadata the adapter reads.
type fileMetadata struct {
	Tag            string `json:".tag"`
	Name           string `json:"name"`
	PathLower      string `json:"path_lower"`
	Rev            string `json:"rev"`
	ContentHash    string `json:"content_hash"`
	ServerModified string `json:"server_modified"`
}

// apiError is the envelope Dropbox returns on failures.
type apiError struct {
	ErrorSummary string `json:"error_summary"`
}

// NewClient creates a Dropbox adapter.
func NewClient(cfg *config.DropboxConfig) (*Client, error) {
	if cfg.AppKey == "" {
		return nil, fmt.Errorf("dropbox app_key is not configured")
	}
	return &Client{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID: cfg.AppKey,
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://www.dropbox.com/oauth2/authorize",
				TokenURL: cfg.APIHost + "/oauth2/token",
			},
		},
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}, nil
}

// Kind returns the provider tag.
func (c *Client) Kind() provider.Kind { return provider.KindDropbox }

// Initialize loads the stored token, proactively refreshing when only the
// refresh token is usable.
func (c *Client) Initialize(ctx context.Context) error {
	tok, err := tokenFromFile(c.cfg.TokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("unable to load token: %w", err)
	}
	c.token = tok

	if !tok.Valid() && tok.RefreshToken != "" {
		err := retry.Do(ctx, retry.Config{MaxAttempts: 3, BaseDelay: time.Second, Multiplier: 2},
			func(err error) bool { return !provider.IsUnauthorized(err) },
			func(ctx context.Context) error { return c.RefreshToken(ctx) })
		if err != nil {
			c.token = nil
			return nil
		}
	}
	return nil
}

// CheckAuth reports whether a usable credential is held.
func (c *Client) CheckAuth(ctx context.Context) bool {
	return c.token != nil && (c.token.Valid() || c.token.RefreshToken != "")
}

// Authenticate runs the interactive PKCE flow on the terminal.
func (c *Client) Authenticate(ctx context.Context) error {
	pending, err := c.BeginAuth(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Go to the following link in your browser then type the authorization code:\n%v\n", pending.AuthURL)

	var authCode string
	if _, err := fmt.Scan(&authCode); err != nil {
		return fmt.Errorf("unable to read authorization code: %w", err)
	}
	return c.CompleteAuth(ctx, authCode)
}

// BeginAuth persists a resumable pending-auth record including the PKCE
// verifier and returns it.
func (c *Client) BeginAuth(ctx context.Context) (*provider.PendingAuth, error) {
	verifier := oauth2.GenerateVerifier()
	pending := &provider.PendingAuth{
		Provider: provider.KindDropbox,
		State:    verifier[:16],
		Verifier: verifier,
		AuthURL: c.oauth.AuthCodeURL(verifier[:16],
			oauth2.S256ChallengeOption(verifier),
			oauth2.SetAuthURLParam("token_access_type", "offline")),
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := provider.SavePending(c.pendingPath(), pending); err != nil {
		return nil, err
	}
	return pending, nil
}

// CompleteAuth exchanges the code using the persisted PKCE verifier.
func (c *Client) CompleteAuth(ctx context.Context, code string) error {
	pending, err := provider.LoadPending(c.pendingPath())
	if err != nil {
		return err
	}
	if pending == nil {
		return fmt.Errorf("no pending authentication to resume")
	}

	tok, err := c.oauth.Exchange(ctx, code, oauth2.VerifierOption(pending.Verifier))
	if err != nil {
		return fmt.Errorf("unable to retrieve token: %w", classify(err))
	}
	c.token = tok
	if err := saveToken(c.cfg.TokenPath, tok); err != nil {
		return err
	}
	return provider.ClearPending(c.pendingPath())
}

// RefreshToken renews the access token from the stored refresh token.
func (c *Client) RefreshToken(ctx context.Context) error {
	if c.token == nil || c.token.RefreshToken == "" {
		return fmt.Errorf("no refresh token: %w", provider.ErrUnauthorized)
	}

	src := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: c.token.RefreshToken})
	tok, err := src.Token()
	if err != nil {
		return fmt.Errorf("token refresh failed: %w", classify(err))
	}
	if tok.RefreshToken == "" {
		tok.RefreshToken = c.token.RefreshToken
	}
	c.token = tok
	return saveToken(c.cfg.TokenPath, tok)
}

// ClearStoredAuth drops the in-memory and on-disk credentials.
func (c *Client) ClearStoredAuth() error {
	c.token = nil
	if err := os.Remove(c.cfg.TokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unable to remove token: %w", err)
	}
	return nil
}

// SearchFile looks a file up by name in the app folder.
func (c *Client) SearchFile(ctx context.Context, name string) (*provider.FileHandle, error) {
	return c.GetFileMetadata(ctx, pathFor(name))
}

// FindOrCreateFile returns the handle for name, creating an empty JSON
// file when missing.
func (c *Client) FindOrCreateFile(ctx context.Context, name string) (*provider.FileHandle, error) {
	handle, err := c.SearchFile(ctx, name)
	if err != nil || handle != nil {
		return handle, err
	}
	return c.UploadFile(ctx, pathFor(name), provider.EmptyObject)
}

// DownloadFile fetches file content. A missing or empty file yields an
// empty JSON object.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	arg, _ := json.Marshal(map[string]string{"path": fileID})

	req, err := c.contentRequest(ctx, "/2/files/download", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Dropbox-API-Arg", string(arg))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download request failed: %w", classify(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := c.statusError(resp)
		if provider.IsNotFound(err) {
			return provider.EmptyObject, nil
		}
		return nil, fmt.Errorf("failed to download %s: %w", fileID, err)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fileID, classify(err))
	}
	if len(data) == 0 {
		return provider.EmptyObject, nil
	}
	return data, nil
}

// UploadFile overwrites file content and returns the fresh handle.
func (c *Client) UploadFile(ctx context.Context, fileID string, payload []byte) (*provider.FileHandle, error) {
	arg, _ := json.Marshal(map[string]interface{}{
		"path": fileID,
		"mode": "overwrite",
		"mute": true,
	})

	req, err := c.contentRequest(ctx, "/2/files/upload", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Dropbox-API-Arg", string(arg))
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", classify(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to upload %s: %w", fileID, c.statusError(resp))
	}

	var meta fileMetadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return handleFrom(&meta), nil
}

// GetFileMetadata fetches the current revision handle without content.
func (c *Client) GetFileMetadata(ctx context.Context, fileID string) (*provider.FileHandle, error) {
	var meta fileMetadata
	err := c.rpc(ctx, "/2/files/get_metadata", map[string]string{"path": fileID}, &meta)
	if err != nil {
		if provider.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get metadata for %s: %w", fileID, err)
	}
	return handleFrom(&meta), nil
}

// ClearAllAppFiles deletes every file in the app folder.
func (c *Client) ClearAllAppFiles(ctx context.Context) (int, error) {
	var listing struct {
		Entries []fileMetadata `json:"entries"`
	}
	if err := c.rpc(ctx, "/2/files/list_folder", map[string]string{"path": ""}, &listing); err != nil {
		return 0, fmt.Errorf("failed to list app files: %w", err)
	}

	count := 0
	for _, entry := range listing.Entries {
		if entry.Tag != "file" {
			continue
		}
		var deleted json.RawMessage
		if err := c.rpc(ctx, "/2/files/delete_v2", map[string]string{"path": entry.PathLower}, &deleted); err != nil {
			return count, fmt.Errorf("failed to delete %s: %w", entry.PathLower, err)
		}
		count++
	}
	return count, nil
}

// UserInfo returns the authenticated account.
func (c *Client) UserInfo(ctx context.Context) (*provider.UserInfo, error) {
	var account struct {
		AccountID string `json:"account_id"`
		Email     string `json:"email"`
		Name      struct {
			DisplayName string `json:"display_name"`
		} `json:"name"`
	}
	if err := c.rpc(ctx, "/2/users/get_current_account", nil, &account); err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}
	return &provider.UserInfo{
		Email: account.Email,
		Name:  account.Name.DisplayName,
		ID:    account.AccountID,
	}, nil
}

// rpc makes a JSON request against the API host.
func (c *Client) rpc(ctx context.Context, endpoint string, args interface{}, out interface{}) error {
	var body io.Reader = strings.NewReader("null")
	if args != nil {
		data, err := json.Marshal(args)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	token, err := c.accessToken(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.APIHost+endpoint, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", classify(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return c.statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// contentRequest builds an authenticated request against the content host.
func (c *Client) contentRequest(ctx context.Context, endpoint string, body io.Reader) (*http.Request, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.cfg.ContentHost+endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return req, nil
}

// accessToken returns a currently valid access token, refreshing in place
// when it has expired and a refresh token is available.
func (c *Client) accessToken(ctx context.Context) (string, error) {
	if c.token == nil {
		return "", fmt.Errorf("not authenticated: %w", provider.ErrUnauthorized)
	}
	if !c.token.Valid() && c.token.RefreshToken != "" {
		if err := c.RefreshToken(ctx); err != nil {
			return "", err
		}
	}
	return c.token.AccessToken, nil
}

// statusError reads the error envelope and attaches the matching sentinel.
func (c *Client) statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var envelope apiError
	_ = json.Unmarshal(body, &envelope)
	summary := envelope.ErrorSummary
	if summary == "" {
		summary = strings.TrimSpace(string(body))
	}

	err := fmt.Errorf("dropbox api status %d: %s", resp.StatusCode, summary)
	switch {
	case resp.StatusCode == 401:
		return errors.Join(provider.ErrUnauthorized, err)
	case resp.StatusCode == 409 && strings.Contains(summary, "not_found"):
		return errors.Join(provider.ErrNotFound, err)
	case resp.StatusCode == 429, resp.StatusCode >= 500:
		return errors.Join(provider.ErrTransient, err)
	}
	return err
}

func (c *Client) pendingPath() string {
	return filepath.Join(filepath.Dir(c.cfg.TokenPath), "dropbox-pending-auth.json")
}

// pathFor maps a logical file name to its app-folder path.
func pathFor(name string) string {
	return "/" + name
}

func handleFrom(meta *fileMetadata) *provider.FileHandle {
	rev := model.FileRevision{
		Rev:      meta.Rev,
		Checksum: meta.ContentHash,
	}
	if meta.ServerModified != "" {
		if t, err := time.Parse(time.RFC3339, meta.ServerModified); err == nil {
			rev.Modified = t.UnixMilli()
		}
	}
	return &provider.FileHandle{ID: meta.PathLower, Name: meta.Name, Revision: rev}
}

// classify attaches the provider sentinel matching a transport failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var rerr *oauth2.RetrieveError
	if errors.As(err, &rerr) {
		return errors.Join(provider.ErrUnauthorized, err)
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.Join(provider.ErrTransient, err)
}
