// Package daemon runs the background sync loop: periodic syncs, a local
// dirty-flag poller and a connectivity watcher, all funneled through the
// request coordinator.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/NateEaton/mind-pwa-sub000/internal/config"
	"github.com/NateEaton/mind-pwa-sub000/internal/netpolicy"
	"github.com/NateEaton/mind-pwa-sub000/internal/store"
	"github.com/NateEaton/mind-pwa-sub000/internal/sync"
)

// Daemon is the background sync process.
type Daemon struct {
	cfg      *config.Config
	store    *store.Store
	triggers *sync.RequestCoordinator
	logger   *slog.Logger

	pidFile      string
	syncInterval time.Duration
	pollInterval time.Duration
}

// New creates a daemon around an assembled trigger coordinator.
func New(cfg *config.Config, st *store.Store, triggers *sync.RequestCoordinator, logger *slog.Logger) (*Daemon, error) {
	if cfg.Daemon.SyncInterval <= 0 {
		return nil, fmt.Errorf("invalid sync interval %s", cfg.Daemon.SyncInterval)
	}
	if cfg.Daemon.PollInterval <= 0 {
		return nil, fmt.Errorf("invalid poll interval %s", cfg.Daemon.PollInterval)
	}
	return &Daemon{
		cfg:          cfg,
		store:        st,
		triggers:     triggers,
		logger:       logger,
		pidFile:      cfg.Daemon.PidFile,
		syncInterval: cfg.Daemon.SyncInterval,
		pollInterval: cfg.Daemon.PollInterval,
	}, nil
}

// Run starts the daemon and blocks until the context ends or a termination
// signal arrives.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.writePIDFile(); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer d.removePIDFile()

	d.logger.Info("daemon started",
		"pid", os.Getpid(),
		"sync_interval", d.syncInterval,
		"poll_interval", d.pollInterval)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go d.triggers.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	syncTicker := time.NewTicker(d.syncInterval)
	defer syncTicker.Stop()
	pollTicker := time.NewTicker(d.pollInterval)
	defer pollTicker.Stop()

	// Catch-up sync on startup covers changes made while the daemon was
	// down, and is the moment the proactive token refresh happens.
	d.triggers.Request(sync.SourceStartup)

	online := netpolicy.Online()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("context cancelled, shutting down")
			return ctx.Err()

		case sig := <-sigChan:
			switch sig {
			case syscall.SIGHUP:
				d.logger.Info("SIGHUP received, requesting sync")
				d.triggers.Request(sync.SourceManual)
			case syscall.SIGINT, syscall.SIGTERM:
				d.logger.Info("shutting down", "signal", sig.String())
				return nil
			}

		case <-syncTicker.C:
			d.triggers.Request(sync.SourcePeriodic)

		case <-pollTicker.C:
			d.poll(&online)
		}
	}
}

// poll checks for unsynced local mutations and for connectivity returning.
func (d *Daemon) poll(online *bool) {
	current, history, err := d.store.DirtyState()
	if err != nil {
		d.logger.Warn("dirty state check failed", "error", err)
	} else if current || history {
		d.triggers.Request(sync.SourceDataChange)
	}

	nowOnline := netpolicy.Online()
	if nowOnline && !*online {
		d.logger.Info("network connectivity regained")
		d.triggers.Request(sync.SourceNetworkRegained)
	}
	*online = nowOnline
}

func (d *Daemon) writePIDFile() error {
	if d.pidFile == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(d.pidFile), 0o755); err != nil {
		return err
	}
	return os.WriteFile(d.pidFile, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func (d *Daemon) removePIDFile() {
	if d.pidFile != "" {
		os.Remove(d.pidFile)
	}
}

// IsRunning checks the PID file for a live daemon process.
func IsRunning(pidFile string) (bool, int, error) {
	if pidFile == "" {
		return false, 0, nil
	}
	if _, err := os.Stat(pidFile); os.IsNotExist(err) {
		return false, 0, nil
	}

	pidBytes, err := os.ReadFile(pidFile)
	if err != nil {
		return false, 0, fmt.Errorf("read pid file: %w", err)
	}
	pid, err := strconv.Atoi(string(pidBytes))
	if err != nil {
		return false, 0, fmt.Errorf("invalid pid in file: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return false, pid, nil
	}
	if err := process.Signal(syscall.Signal(0)); err != nil {
		return false, pid, nil
	}
	return true, pid, nil
}

// Stop terminates a running daemon by sending SIGTERM.
func Stop(pidFile string) error {
	running, pid, err := IsRunning(pidFile)
	if err != nil {
		return err
	}
	if !running {
		return fmt.Errorf("daemon is not running")
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		return fmt.Errorf("find process %d: %w", pid, err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return fmt.Errorf("signal process %d: %w", pid, err)
	}
	return nil
}
