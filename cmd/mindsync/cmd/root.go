// Package cmd implements the mindsync command line interface.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/NateEaton/mind-pwa-sub000/internal/config"
	"github.com/NateEaton/mind-pwa-sub000/internal/logging"
	"github.com/NateEaton/mind-pwa-sub000/internal/netpolicy"
	"github.com/NateEaton/mind-pwa-sub000/internal/provider"
	"github.com/NateEaton/mind-pwa-sub000/internal/provider/dropbox"
	"github.com/NateEaton/mind-pwa-sub000/internal/provider/gdrive"
	"github.com/NateEaton/mind-pwa-sub000/internal/store"
	syncpkg "github.com/NateEaton/mind-pwa-sub000/internal/sync"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "mindsync",
	Short: "Sync MIND diet tracking data across devices through cloud storage",
	Long: `mindsync keeps weekly MIND diet serving counts consistent across
devices by reconciling the local store with files in Google Drive or
Dropbox. Merges never lose a recorded serving.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is "+config.DefaultDir()+"/config.yaml)")
}

// app bundles the wired collaborators every command needs.
type app struct {
	cfg    *config.Config
	store  *store.Store
	prov   provider.Provider
	logger *slog.Logger
}

// newApp loads configuration, opens the store and constructs the configured
// provider adapter. Initialization failures of the adapter's credentials are
// tolerated here; commands that need a session surface them properly.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	logger := logging.Init(cfg.Logging)

	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return nil, err
	}

	prov, err := buildProvider(cfg)
	if err != nil {
		st.Close()
		return nil, err
	}
	if err := prov.Initialize(ctx); err != nil {
		logger.Debug("provider initialization incomplete", "error", err)
	}

	return &app{cfg: cfg, store: st, prov: prov, logger: logger}, nil
}

func (a *app) Close() {
	a.store.Close()
}

func buildProvider(cfg *config.Config) (provider.Provider, error) {
	switch cfg.Provider {
	case "gdrive":
		return gdrive.NewClient(&cfg.GoogleDrive)
	case "dropbox":
		return dropbox.NewClient(&cfg.Dropbox)
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// coordinator assembles the sync engine for this app.
func (a *app) coordinator() (*syncpkg.Coordinator, error) {
	weekStart, err := a.cfg.WeekStart()
	if err != nil {
		return nil, err
	}

	var gate syncpkg.NetworkPolicy
	if a.cfg.Sync.UnmeteredOnly {
		gate = netpolicy.NewUnmetered(a.cfg.Sync.MeteredInterfaces)
	}

	return syncpkg.NewCoordinator(syncpkg.Config{
		Provider:  a.prov,
		Store:     a.store,
		Gate:      gate,
		Logger:    a.logger,
		WeekStart: weekStart,
	}), nil
}
