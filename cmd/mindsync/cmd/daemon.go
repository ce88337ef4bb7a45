package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/NateEaton/mind-pwa-sub000/internal/daemon"
	syncpkg "github.com/NateEaton/mind-pwa-sub000/internal/sync"
)

var daemonCmd = &cobra.Command{
	Use:   "daemon",
	Short: "Manage the background sync process",
}

var daemonStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the sync daemon in the foreground",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		if running, pid, err := daemon.IsRunning(app.cfg.Daemon.PidFile); err != nil {
			return err
		} else if running {
			return fmt.Errorf("daemon already running (pid %d)", pid)
		}

		coord, err := app.coordinator()
		if err != nil {
			return err
		}

		triggers := syncpkg.NewRequestCoordinator(syncpkg.TriggerConfig{
			Debounce:    app.cfg.Sync.Debounce,
			MinInterval: app.cfg.Sync.MinInterval,
			Cooldown:    app.cfg.Sync.Cooldown,
		}, coord.Sync, app.logger)

		d, err := daemon.New(app.cfg, app.store, triggers, app.logger)
		if err != nil {
			return err
		}
		return d.Run(cmd.Context())
	},
}

var daemonStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running sync daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		if err := daemon.Stop(app.cfg.Daemon.PidFile); err != nil {
			return err
		}
		color.Green("Daemon stopped.")
		return nil
	},
}

func init() {
	daemonCmd.AddCommand(daemonStartCmd)
	daemonCmd.AddCommand(daemonStopCmd)
	rootCmd.AddCommand(daemonCmd)
}
