package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"strava-wrapped/internal/format"
	"strava-wrapped/internal/service"
	"strava-wrapped/internal/stats"
	"strava-wrapped/internal/strava"
)

func newStatsCmd() *cobra.Command {
	var (
		year    int
		asJSON  bool
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print totals, records and monthly breakdown",
		Example: `  strava-wrapped stats
  strava-wrapped stats --year 2024
  strava-wrapped stats --json | jq .stats.total_distance_km`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			report, err := loadReport(cmd, a, year, refresh)
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), report)
			}
			writeStats(cmd.OutOrStdout(), report, a.units)
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "only count activities from this year (default all time)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "ignore the in-memory copy and refetch")
	return cmd
}

// loadReport fetches the report, drawing progress on stderr
func loadReport(cmd *cobra.Command, a *app, year int, refresh bool) (*service.Report, error) {
	stderr := cmd.ErrOrStderr()
	report, err := a.reports.Load(cmd.Context(), service.LoadOptions{
		Year:       year,
		Force:      refresh,
		OnProgress: progressPrinter(stderr),
	})
	fmt.Fprint(stderr, "\r\033[K")
	if err != nil {
		return nil, fmt.Errorf("loading activities: %w", err)
	}
	return report, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeStats prints the report as aligned plain text
func writeStats(w io.Writer, r *service.Report, units format.Units) {
	s := r.Stats

	period := "all time"
	if r.Year > 0 {
		period = fmt.Sprint(r.Year)
	}
	name := r.Athlete.DisplayName()
	if name == "" {
		name = "you"
	}
	fmt.Fprintf(w, "Strava stats for %s (%s)\n\n", name, period)

	if s.ActivityCount == 0 {
		fmt.Fprintln(w, "No activities.")
		return
	}

	line := func(label, value string) {
		fmt.Fprintf(w, "  %-14s %s\n", label, value)
	}

	line("Activities", format.Count(s.ActivityCount))
	line("Distance", units.FormatDistance(s.TotalDistanceKm))
	line("Moving time", format.Hours(s.TotalTimeHours))
	line("Elevation", format.Count(int(s.TotalElevationM))+" m")
	line("Avg run pace", units.FormatPace(s.AveragePaceMinPerKm))
	line("Active days", fmt.Sprintf("%s (best streak %d)", format.Count(s.ActiveDays), s.LongestStreakDays))

	fmt.Fprintln(w, "\nRecords")
	record := func(label string, a *strava.Activity, value func(strava.Activity) string) {
		if a == nil {
			line(label, "-")
			return
		}
		line(label, fmt.Sprintf("%-10s %s", value(*a), describeActivity(*a)))
	}
	record("Longest run", s.PersonalRecords.LongestRun, func(a strava.Activity) string {
		return units.FormatMeters(a.Distance.Float64())
	})
	record("Fastest pace", s.PersonalRecords.FastestPaceRun, func(a strava.Activity) string {
		return units.FormatActivityPace(a.MovingTime.Float64(), a.Distance.Float64())
	})
	record("Biggest climb", s.PersonalRecords.MostElevation, func(a strava.Activity) string {
		return fmt.Sprintf("%.0f m", a.TotalElevationGain.Float64())
	})

	fmt.Fprintln(w, "\nBy type")
	for _, t := range stats.SortedTypes(s.TypeHistogram) {
		line(t, format.Count(s.TypeHistogram[t]))
	}

	if len(r.Predictions) > 0 {
		fmt.Fprintln(w, "\nRace predictions")
		for _, p := range r.Predictions {
			line(p.Target.Label, fmt.Sprintf("%-10s %s confidence", format.RaceTime(p.PredictedSeconds), p.Confidence))
		}
	}

	fmt.Fprintln(w, "\nPer month")
	for _, m := range s.Monthly {
		fmt.Fprintf(w, "  %s  %10s  %8s  %3d %s\n",
			m.Month, units.FormatDistance(m.Km), format.Hours(m.Hours), m.Count, plural(m.Count, "activity", "activities"))
	}
}

func describeActivity(a strava.Activity) string {
	parts := []string{}
	if a.Name != "" {
		parts = append(parts, format.Truncate(a.Name, 30))
	}
	if start := a.LocalStart(); !start.IsZero() {
		parts = append(parts, start.Format("2006-01-02"))
	}
	return strings.Join(parts, ", ")
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
