// Package gdrive implements the cloud storage provider on Google Drive.
// All app files live in the hidden appDataFolder space.
package gdrive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/NateEaton/mind-pwa-sub000/internal/config"
	"github.com/NateEaton/mind-pwa-sub000/internal/model"
	"github.com/NateEaton/mind-pwa-sub000/internal/provider"
	"github.com/NateEaton/mind-pwa-sub000/internal/retry"
)

const (
	appDataSpace = "appDataFolder"
	fileFields   = "id, name, headRevisionId, version, md5Checksum, modifiedTime"
)

// Client is the Google Drive provider adapter.
type Client struct {
	cfg     *config.GoogleDriveConfig
	oauth   *oauth2.Config
	token   *oauth2.Token
	service *drive.Service
}

// NewClient creates a Drive adapter. Credentials (the OAuth client) must be
// present; a stored token is optional, the adapter starts unauthenticated
// without one.
func NewClient(cfg *config.GoogleDriveConfig) (*Client, error) {
	credBytes, err := os.ReadFile(cfg.CredentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{drive.DriveAppdataScope}
	}

	oauthCfg, err := google.ConfigFromJSON(credBytes, scopes...)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	return &Client{cfg: cfg, oauth: oauthCfg}, nil
}

// Kind returns the provider tag.
func (c *Client) Kind() provider.Kind { return provider.KindGDrive }

// Initialize loads the stored token and, when only a refresh credential is
// usable, proactively refreshes up to three times with growing backoff.
func (c *Client) Initialize(ctx context.Context) error {
	tok, err := tokenFromFile(c.cfg.TokenPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // unauthenticated until Authenticate is called
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
			return nil // session is simply unauthenticated
		}
	}
	return nil
}

// CheckAuth reports whether a usable credential is held.
func (c *Client) CheckAuth(ctx context.Context) bool {
	return c.token != nil && (c.token.Valid() || c.token.RefreshToken != "")
}

// Authenticate runs the interactive flow on the terminal: phase one prints
// the consent URL, phase two exchanges the pasted code.
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

// BeginAuth persists a resumable pending-auth record and returns it.
func (c *Client) BeginAuth(ctx context.Context) (*provider.PendingAuth, error) {
	state, err := randomState()
	if err != nil {
		return nil, err
	}
	pending := &provider.PendingAuth{
		Provider:  provider.KindGDrive,
		State:     state,
		AuthURL:   c.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline),
		CreatedAt: time.Now().UnixMilli(),
	}
	if err := provider.SavePending(c.pendingPath(), pending); err != nil {
		return nil, err
	}
	return pending, nil
}

// CompleteAuth exchanges the authorization code, stores the token and
// clears the pending-auth record.
func (c *Client) CompleteAuth(ctx context.Context, code string) error {
	tok, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("unable to retrieve token from web: %w", classify(err))
	}
	c.token = tok
	c.service = nil
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
	c.service = nil
	return saveToken(c.cfg.TokenPath, tok)
}

// ClearStoredAuth drops the in-memory and on-disk credentials.
func (c *Client) ClearStoredAuth() error {
	c.token = nil
	c.service = nil
	if err := os.Remove(c.cfg.TokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("unable to remove token: %w", err)
	}
	return nil
}

// SearchFile looks a file up by name in the app data space.
func (c *Client) SearchFile(ctx context.Context, name string) (*provider.FileHandle, error) {
	if err := c.ensureService(ctx); err != nil {
		return nil, err
	}

	query := fmt.Sprintf("name='%s' and trashed=false", name)
	files, err := c.service.Files.List().
		Q(query).
		Spaces(appDataSpace).
		Fields(googleapi.Field("files(" + fileFields + ")")).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to search for %s: %w", name, classify(err))
	}

	if len(files.Files) == 0 {
		return nil, nil
	}
	return handleFrom(files.Files[0]), nil
}

// FindOrCreateFile returns the handle for name, creating an empty JSON file
// when missing.
func (c *Client) FindOrCreateFile(ctx context.Context, name string) (*provider.FileHandle, error) {
	handle, err := c.SearchFile(ctx, name)
	if err != nil || handle != nil {
		return handle, err
	}

	file := &drive.File{
		Name:    name,
		Parents: []string{appDataSpace},
	}
	created, err := c.service.Files.Create(file).
		Media(bytes.NewReader(provider.EmptyObject)).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", name, classify(err))
	}
	return handleFrom(created), nil
}

// DownloadFile fetches file content. A missing or empty file yields an
// empty JSON object.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, error) {
	if err := c.ensureService(ctx); err != nil {
		return nil, err
	}

	resp, err := c.service.Files.Get(fileID).Context(ctx).Download()
	if err != nil {
		if provider.IsNotFound(classify(err)) {
			return provider.EmptyObject, nil
		}
		return nil, fmt.Errorf("failed to download %s: %w", fileID, classify(err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", fileID, classify(err))
	}
	if len(data) == 0 {
		return provider.EmptyObject, nil
	}
	return data, nil
}

// UploadFile replaces file content and returns the fresh handle.
func (c *Client) UploadFile(ctx context.Context, fileID string, payload []byte) (*provider.FileHandle, error) {
	if err := c.ensureService(ctx); err != nil {
		return nil, err
	}

	updated, err := c.service.Files.Update(fileID, &drive.File{}).
		Media(bytes.NewReader(payload)).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to upload %s: %w", fileID, classify(err))
	}
	return handleFrom(updated), nil
}

// GetFileMetadata fetches the current revision handle without content.
func (c *Client) GetFileMetadata(ctx context.Context, fileID string) (*provider.FileHandle, error) {
	if err := c.ensureService(ctx); err != nil {
		return nil, err
	}

	file, err := c.service.Files.Get(fileID).
		Fields(googleapi.Field(fileFields)).
		Context(ctx).
		Do()
	if err != nil {
		if provider.IsNotFound(classify(err)) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get metadata for %s: %w", fileID, classify(err))
	}
	return handleFrom(file), nil
}

// ClearAllAppFiles deletes everything in the app data space.
func (c *Client) ClearAllAppFiles(ctx context.Context) (int, error) {
	if err := c.ensureService(ctx); err != nil {
		return 0, err
	}

	files, err := c.service.Files.List().
		Q("trashed=false").
		Spaces(appDataSpace).
		Fields("files(id)").
		Context(ctx).
		Do()
	if err != nil {
		return 0, fmt.Errorf("failed to list app files: %w", classify(err))
	}

	count := 0
	for _, f := range files.Files {
		if err := c.service.Files.Delete(f.Id).Context(ctx).Do(); err != nil {
			return count, fmt.Errorf("failed to delete %s: %w", f.Id, classify(err))
		}
		count++
	}
	return count, nil
}

// UserInfo returns the authenticated account.
func (c *Client) UserInfo(ctx context.Context) (*provider.UserInfo, error) {
	if err := c.ensureService(ctx); err != nil {
		return nil, err
	}

	about, err := c.service.About.Get().Fields("user").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", classify(err))
	}
	if about.User == nil {
		return nil, nil
	}
	return &provider.UserInfo{
		Email: about.User.EmailAddress,
		Name:  about.User.DisplayName,
		ID:    about.User.PermissionId,
	}, nil
}

func (c *Client) ensureService(ctx context.Context) error {
	if c.service != nil {
		return nil
	}
	if c.token == nil {
		return fmt.Errorf("not authenticated: %w", provider.ErrUnauthorized)
	}

	client := oauth2.NewClient(ctx, c.persistingSource(ctx))
	service, err := drive.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return fmt.Errorf("unable to create Drive service: %w", err)
	}
	c.service = service
	return nil
}

// persistingSource wraps the standard auto-refreshing source so silently
// refreshed access tokens land back in the token file.
func (c *Client) persistingSource(ctx context.Context) oauth2.TokenSource {
	return &savingSource{client: c, src: c.oauth.TokenSource(ctx, c.token)}
}

type savingSource struct {
	client *Client
	src    oauth2.TokenSource
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.client.token == nil || tok.AccessToken != s.client.token.AccessToken {
		if tok.RefreshToken == "" && s.client.token != nil {
			tok.RefreshToken = s.client.token.RefreshToken
		}
		s.client.token = tok
		if err := saveToken(s.client.cfg.TokenPath, tok); err != nil {
			return nil, err
		}
	}
	return tok, nil
}

func (c *Client) pendingPath() string {
	return filepath.Join(filepath.Dir(c.cfg.TokenPath), "gdrive-pending-auth.json")
}

func handleFrom(f *drive.File) *provider.FileHandle {
	rev := model.FileRevision{
		Rev:      f.HeadRevisionId,
		Version:  f.Version,
		Checksum: f.Md5Checksum,
	}
	if f.ModifiedTime != "" {
		if t, err := time.Parse(time.RFC3339, f.ModifiedTime); err == nil {
			rev.Modified = t.UnixMilli()
		}
	}
	return &provider.FileHandle{ID: f.Id, Name: f.Name, Revision: rev}
}

// classify attaches the provider sentinel matching a Drive API failure.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch {
		case gerr.Code == 401:
			return errors.Join(provider.ErrUnauthorized, err)
		case gerr.Code == 404:
			return errors.Join(provider.ErrNotFound, err)
		case gerr.Code == 403, gerr.Code == 429, gerr.Code >= 500:
			return errors.Join(provider.ErrTransient, err)
		}
		return err
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
