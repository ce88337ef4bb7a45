package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/NateEaton/mind-pwa-sub000/internal/export"
	"github.com/NateEaton/mind-pwa-sub000/internal/model"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List archived weeks",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		records, err := app.store.GetAllArchiveRecords()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No archived weeks yet.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Week\tServings\tSync\tUpdated\t")
		for _, rec := range records {
			total := 0
			for _, n := range rec.Totals {
				total += n
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\t\n",
				rec.WeekStartDate,
				total,
				rec.SyncStatus,
				time.UnixMilli(rec.UpdatedAt).Local().Format(model.DayKeyLayout))
		}
		if err := w.Flush(); err != nil {
			return err
		}
		fmt.Printf("\n%d weeks archived.\n", len(records))
		return nil
	},
}

var (
	exportFormat string
)

var exportCmd = &cobra.Command{
	Use:   "export PATH",
	Short: "Export archived weeks to a CSV or JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		records, err := app.store.GetAllArchiveRecords()
		if err != nil {
			return err
		}

		switch exportFormat {
		case "csv":
			err = export.ToCSV(records, args[0])
		case "json":
			err = export.ToJSON(records, args[0])
		default:
			return fmt.Errorf("unknown format %q (want csv or json)", exportFormat)
		}
		if err != nil {
			return err
		}
		fmt.Printf("Exported %d weeks to %s.\n", len(records), args[0])
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "csv", "output format (csv, json)")
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(exportCmd)
}
