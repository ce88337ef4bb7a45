package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/NateEaton/mind-pwa-sub000/internal/model"
	syncpkg "github.com/NateEaton/mind-pwa-sub000/internal/sync"
)

var weekCmd = &cobra.Command{
	Use:   "week",
	Short: "Show the current week's serving counts against targets",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		weekStart, err := app.cfg.WeekStart()
		if err != nil {
			return err
		}

		rec, _, err := syncpkg.EnsureCurrentPeriod(app.store, model.DefaultTargets(), weekStart, time.Now())
		if err != nil {
			return err
		}

		fmt.Printf("Week starting %s\n\n", rec.WeekStartDate)

		met := color.New(color.FgGreen).SprintFunc()
		missed := color.New(color.FgRed).SprintFunc()

		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "Food group\tServings\tTarget\t")
		for _, g := range model.FoodGroups() {
			total := rec.WeeklyCounts[g.ID]
			var target, mark string
			switch g.Target.Type {
			case model.TargetMin:
				target = fmt.Sprintf(">= %d/week", g.Target.Servings)
				if total >= g.Target.Servings {
					mark = met("met")
				}
			case model.TargetMax:
				target = fmt.Sprintf("<= %d/week", g.Target.Servings)
				if total > g.Target.Servings {
					mark = missed("over")
				}
			}
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", g.Name, total, target, mark)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(weekCmd)
}
