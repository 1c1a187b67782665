package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"strava-wrapped/internal/card"
)

func newCardCmd() *cobra.Command {
	var (
		year  int
		chart bool
	)

	cmd := &cobra.Command{
		Use:   "card",
		Short: "Render a shareable summary card",
		Example: `  strava-wrapped card
  strava-wrapped card --year 2023 --chart`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := loadReport(cmd, a, year, false)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), card.Render(report, card.Options{
				Units: a.units,
				Now:   time.Now(),
				Chart: chart,
			}))
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "year to summarize, 0 for all time")
	cmd.Flags().BoolVar(&chart, "chart", false, "include a distance-per-month chart")
	return cmd
}
