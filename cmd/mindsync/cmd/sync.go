package cmd

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	syncpkg "github.com/NateEaton/mind-pwa-sub000/internal/sync"
)

var syncSilent bool

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile local data with cloud storage now",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		coord, err := app.coordinator()
		if err != nil {
			return err
		}

		outcome, err := coord.Sync(cmd.Context(), syncpkg.Options{Silent: syncSilent})
		if err != nil {
			switch {
			case syncpkg.IsNetworkConstraint(err):
				color.Yellow("Sync skipped: %v", err)
				return nil
			case syncpkg.IsAuthRequired(err):
				return fmt.Errorf("not connected to %s, run 'mindsync connect' first", app.cfg.Provider)
			default:
				return err
			}
		}

		if outcome.Skipped {
			color.Yellow("A sync is already running.")
			return nil
		}

		printUnit("current week", outcome.Current)
		printUnit("history", outcome.History)
		if outcome.RolledOver {
			fmt.Println("Finished week archived.")
		}
		if outcome.Failed() {
			return fmt.Errorf("sync completed with errors")
		}
		color.Green("Sync completed in %s.", outcome.Duration.Round(time.Millisecond))
		return nil
	},
}

func printUnit(name string, u syncpkg.UnitOutcome) {
	switch {
	case u.Err != nil:
		color.Red("  %s: failed: %v", name, u.Err)
	case !u.Needed:
		fmt.Printf("  %s: up to date\n", name)
	case u.Uploaded && u.Downloaded:
		fmt.Printf("  %s: merged and uploaded\n", name)
	case u.Uploaded:
		fmt.Printf("  %s: uploaded\n", name)
	case u.Downloaded:
		fmt.Printf("  %s: downloaded\n", name)
	default:
		fmt.Printf("  %s: no changes\n", name)
	}
}

func init() {
	syncCmd.Flags().BoolVar(&syncSilent, "silent", false, "fail instead of prompting when authentication is required")
	rootCmd.AddCommand(syncCmd)
}
