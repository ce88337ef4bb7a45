package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/NateEaton/mind-pwa-sub000/internal/daemon"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connection, daemon and pending-change status",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		fmt.Printf("Provider:  %s\n", app.cfg.Provider)

		if app.prov.CheckAuth(cmd.Context()) {
			if info, err := app.prov.UserInfo(cmd.Context()); err == nil && info != nil {
				color.Green("Connected: %s", info.Email)
			} else {
				color.Green("Connected")
			}
		} else {
			color.Yellow("Not connected (run 'mindsync connect')")
		}

		running, pid, err := daemon.IsRunning(app.cfg.Daemon.PidFile)
		if err != nil {
			return err
		}
		if running {
			fmt.Printf("Daemon:    running (pid %d)\n", pid)
		} else {
			fmt.Println("Daemon:    stopped")
		}

		rec, err := app.store.LoadCurrentRecord()
		if err != nil {
			return err
		}
		if rec == nil {
			fmt.Println("Week:      no data recorded yet")
			return nil
		}

		fmt.Printf("Week:      starting %s\n", rec.WeekStartDate)
		if ts := rec.Metadata.LastUpdated(); ts > 0 {
			fmt.Printf("Updated:   %s\n", time.UnixMilli(ts).Local().Format(time.RFC1123))
		}

		switch {
		case rec.Metadata.CurrentDirty() && rec.Metadata.HistoryDirty:
			color.Yellow("Pending:   current week and history changes not yet synced")
		case rec.Metadata.CurrentDirty():
			color.Yellow("Pending:   current week changes not yet synced")
		case rec.Metadata.HistoryDirty:
			color.Yellow("Pending:   history changes not yet synced")
		default:
			color.Green("Pending:   nothing, all changes synced")
		}

		if rec.Metadata.IsFreshInstall {
			fmt.Println("Note:      first sync pending, existing cloud data will be adopted")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
