package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"strava-wrapped/internal/roast"
)

func newRoastCmd() *cobra.Command {
	var (
		year   int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "roast",
		Short: "Get roasted for your training",
		Args:  cobra.NoArgs,
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

			r := roast.Generate(report.Athlete.Firstname, report.Stats, a.units)
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), r)
			}
			fmt.Fprint(cmd.OutOrStdout(), r.String())
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "only roast activities from this year (default all time)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the roast as JSON")
	return cmd
}
