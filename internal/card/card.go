// Package card renders a shareable summary card for the terminal.
package card

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"strava-wrapped/internal/format"
	"strava-wrapped/internal/service"
	"strava-wrapped/internal/stats"
	"strava-wrapped/internal/strava"
)

const chartWidth = 40

// Options controls what the card includes
type Options struct {
	Units format.Units
	Now   time.Time
	Chart bool
}

// Render draws the card for a report
func Render(r *service.Report, opts Options) string {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	s := r.Stats

	sections := []string{
		titleStyle.Render(title(r.Year)),
		subtitleStyle.Render(subtitle(r.Athlete)),
	}

	if s.ActivityCount == 0 {
		sections = append(sections, noteStyle.Render("No activities yet. Go outside."))
		return frameStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
	}

	sections = append(sections,
		row("Distance", opts.Units.FormatDistance(s.TotalDistanceKm), ""),
		row("Moving time", format.Hours(s.TotalTimeHours), ""),
		row("Activities", format.Count(s.ActivityCount), topTypes(s.TypeHistogram)),
		row("Avg pace", opts.Units.FormatPace(s.AveragePaceMinPerKm), ""),
		row("Elevation", format.Count(int(s.TotalElevationM))+" m", ""),
		row("Active days", format.Count(s.ActiveDays), fmt.Sprintf("best streak %d", s.LongestStreakDays)),
	)

	sections = append(sections, sectionStyle.Render("Records"))
	sections = append(sections, recordRows(s.PersonalRecords, opts)...)

	if len(r.Predictions) > 0 {
		sections = append(sections, sectionStyle.Render("Race predictions"))
		for _, p := range r.Predictions {
			sections = append(sections, row(p.Target.Label, format.RaceTime(p.PredictedSeconds), p.Confidence+" confidence"))
		}
	}

	if opts.Chart {
		if chart := MonthlyChart(s.Monthly, opts.Units); chart != "" {
			sections = append(sections, sectionStyle.Render("Per month"), chart)
		}
	}

	return frameStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func title(year int) string {
	if year > 0 {
		return fmt.Sprintf("STRAVA WRAPPED %d", year)
	}
	return "STRAVA WRAPPED"
}

func subtitle(a strava.Athlete) string {
	name := a.DisplayName()
	if name == "" {
		name = "Anonymous athlete"
	}
	if a.City != "" {
		return name + " · " + a.City
	}
	return name
}

func topTypes(histogram map[string]int) string {
	types := stats.SortedTypes(histogram)
	if len(types) > 3 {
		types = types[:3]
	}
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = fmt.Sprintf("%d %s", histogram[t], t)
	}
	return strings.Join(parts, ", ")
}

func recordRows(prs stats.PersonalRecords, opts Options) []string {
	var rows []string
	if a := prs.LongestRun; a != nil {
		rows = append(rows, row("Longest run", opts.Units.FormatMeters(a.Distance.Float64()), describe(*a, opts.Now)))
	}
	if a := prs.FastestPaceRun; a != nil {
		rows = append(rows, row("Fastest pace", opts.Units.FormatActivityPace(a.MovingTime.Float64(), a.Distance.Float64()), describe(*a, opts.Now)))
	}
	if a := prs.MostElevation; a != nil {
		rows = append(rows, row("Biggest climb", fmt.Sprintf("%.0f m", a.TotalElevationGain.Float64()), describe(*a, opts.Now)))
	}
	if len(rows) == 0 {
		rows = append(rows, noteStyle.Render("No records yet"))
	}
	return rows
}

func describe(a strava.Activity, now time.Time) string {
	name := format.Truncate(a.Name, 24)
	start := a.LocalStart()
	if start.IsZero() {
		return name
	}
	if name == "" {
		return format.Ago(start, now)
	}
	return name + ", " + format.Ago(start, now)
}

// MonthlyChart plots distance per month for the last months. It returns
// "" when there are fewer than two months to draw.
func MonthlyChart(buckets []stats.MonthBucket, units format.Units) string {
	if len(buckets) > service.ChartMonths {
		buckets = buckets[len(buckets)-service.ChartMonths:]
	}
	if len(buckets) < 2 {
		return ""
	}

	data := make([]float64, len(buckets))
	for i, b := range buckets {
		data[i] = units.Distance(b.Km)
	}

	return asciigraph.Plot(data,
		asciigraph.Height(8),
		asciigraph.Width(chartWidth),
		asciigraph.Precision(0),
		asciigraph.Caption(fmt.Sprintf("%s per month, %s to %s", units.DistanceLabel(), buckets[0].Month, buckets[len(buckets)-1].Month)),
	)
}
