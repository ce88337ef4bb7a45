package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var wipeYes bool

var wipeRemoteCmd = &cobra.Command{
	Use:   "wipe-remote",
	Short: "Delete all app data from cloud storage",
	Long: `Wipe-remote removes every file this app stored with the provider.
Local data stays intact and will be re-uploaded on the next sync. Other
devices will adopt whatever this device uploads afterwards.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		if !wipeYes {
			fmt.Printf("Delete all mindsync data from %s? Type 'yes' to confirm: ", app.cfg.Provider)
			reader := bufio.NewReader(os.Stdin)
			answer, err := reader.ReadString('\n')
			if err != nil {
				return err
			}
			if strings.TrimSpace(answer) != "yes" {
				fmt.Println("Aborted.")
				return nil
			}
		}

		count, err := app.prov.ClearAllAppFiles(cmd.Context())
		if err != nil {
			return err
		}

		// Cached revision handles point at files that no longer exist.
		if err := app.store.ClearFileMetadata(); err != nil {
			return err
		}

		color.Green("Removed %d files from %s.", count, app.cfg.Provider)
		return nil
	},
}

func init() {
	wipeRemoteCmd.Flags().BoolVarP(&wipeYes, "yes", "y", false, "skip the confirmation prompt")
	rootCmd.AddCommand(wipeRemoteCmd)
}
