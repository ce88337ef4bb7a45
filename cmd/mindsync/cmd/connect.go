package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Authorize access to the configured cloud provider",
	Long: `Connect starts the OAuth flow for the configured provider. The
authorization URL is printed; after approving access in a browser, paste
the resulting code back here.

The flow survives a restart: 'connect start' prints the URL and exits,
'connect finish CODE' completes a previously started flow.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		if app.prov.CheckAuth(cmd.Context()) {
			color.Green("Already connected to %s.", app.cfg.Provider)
			return nil
		}

		pending, err := app.prov.BeginAuth(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Println("Open this URL in a browser and approve access:")
		fmt.Println()
		fmt.Println("  " + pending.AuthURL)
		fmt.Println()
		fmt.Print("Enter the authorization code: ")

		reader := bufio.NewReader(os.Stdin)
		code, err := reader.ReadString('\n')
		if err != nil {
			return fmt.Errorf("read authorization code: %w", err)
		}
		code = strings.TrimSpace(code)
		if code == "" {
			return fmt.Errorf("no authorization code entered")
		}

		if err := app.prov.CompleteAuth(cmd.Context(), code); err != nil {
			return err
		}
		return printConnected(cmd, app)
	},
}

var connectStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Print the authorization URL and exit",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		pending, err := app.prov.BeginAuth(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(pending.AuthURL)
		fmt.Fprintln(os.Stderr, "Approve access, then run: mindsync connect finish CODE")
		return nil
	},
}

var connectFinishCmd = &cobra.Command{
	Use:   "finish CODE",
	Short: "Complete a previously started authorization",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.prov.CompleteAuth(cmd.Context(), args[0]); err != nil {
			return err
		}
		return printConnected(cmd, app)
	},
}

func printConnected(cmd *cobra.Command, app *app) error {
	if info, err := app.prov.UserInfo(cmd.Context()); err == nil && info != nil {
		color.Green("Connected to %s as %s.", app.cfg.Provider, info.Email)
	} else {
		color.Green("Connected to %s.", app.cfg.Provider)
	}
	fmt.Println("Run 'mindsync sync' to reconcile your data.")
	return nil
}

func init() {
	connectCmd.AddCommand(connectStartCmd)
	connectCmd.AddCommand(connectFinishCmd)
	rootCmd.AddCommand(connectCmd)
}
