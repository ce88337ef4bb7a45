package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Drop stored credentials for the configured provider",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.prov.ClearStoredAuth(); err != nil {
			return err
		}
		color.Green("Disconnected from %s. Local data is untouched.", app.cfg.Provider)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(disconnectCmd)
}
