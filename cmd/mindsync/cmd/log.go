package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/NateEaton/mind-pwa-sub000/internal/model"
	syncpkg "github.com/NateEaton/mind-pwa-sub000/internal/sync"
)

var logDay string

var logCmd = &cobra.Command{
	Use:   "log GROUP [DELTA]",
	Short: "Record servings for a food group",
	Long: `Log adjusts today's serving count for a food group. DELTA defaults
to +1; a negative value corrects a mistaken entry (counts never drop
below zero). Use --day to log for another day of the current week.

Food group IDs: wholeGrains, greenLeafy, otherVegs, berries, nuts,
beans, poultry, fish, oliveOil, wine, redMeat, butter, cheese,
pastriesSweets, friedFastFood.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		group := args[0]
		delta := 1
		if len(args) == 2 {
			var err error
			delta, err = strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid delta %q", args[1])
			}
		}

		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		weekStart, err := app.cfg.WeekStart()
		if err != nil {
			return err
		}

		now := time.Now()
		// Rolling the week over first keeps a log entry out of a week that
		// has already ended.
		if _, _, err := syncpkg.EnsureCurrentPeriod(app.store, model.DefaultTargets(), weekStart, now); err != nil {
			return err
		}

		dayKey := model.DayKey(now)
		if logDay != "" {
			if _, err := time.Parse(model.DayKeyLayout, logDay); err != nil {
				return fmt.Errorf("invalid --day %q (want YYYY-MM-DD)", logDay)
			}
			dayKey = logDay
		}

		rec, err := app.store.AddServing(dayKey, group, delta, now)
		if err != nil {
			return err
		}

		color.Green("%s on %s: %d today, %d this week.",
			group, dayKey, rec.DailyCounts[dayKey][group], rec.WeeklyCounts[group])
		return nil
	},
}

func init() {
	logCmd.Flags().StringVar(&logDay, "day", "", "day to log for (YYYY-MM-DD, defaults to today)")
	rootCmd.AddCommand(logCmd)
}
