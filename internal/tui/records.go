package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"strava-wrapped/internal/analysis"
	"strava-wrapped/internal/format"
	"strava-wrapped/internal/service"
	"strava-wrapped/internal/strava"
)

// RecordsModel shows personal records and race predictions
type RecordsModel struct {
	report *service.Report
	units  format.Units
	now    time.Time
}

// NewRecordsModel creates a new records model
func NewRecordsModel(r *service.Report, units format.Units, now time.Time) RecordsModel {
	return RecordsModel{report: r, units: units, now: now}
}

// View renders the records screen
func (m RecordsModel) View() string {
	if m.report == nil {
		return "\n  No data yet."
	}

	sections := []string{m.renderRecords(), m.renderPredictions()}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m RecordsModel) renderRecords() string {
	prs := m.report.Stats.PersonalRecords
	var lines []string
	lines = append(lines, cardTitleStyle.Render("Personal Records"))

	add := func(label string, a *strava.Activity, value func(strava.Activity) string) {
		if a == nil {
			lines = append(lines, RenderMetric(label, "-", "no qualifying activity"))
			return
		}
		lines = append(lines, RenderMetric(label, value(*a), m.describe(*a)))
	}

	add("Longest run", prs.LongestRun, func(a strava.Activity) string {
		return m.units.FormatMeters(a.Distance.Float64())
	})
	add("Fastest pace", prs.FastestPaceRun, func(a strava.Activity) string {
		return m.units.FormatActivityPace(a.MovingTime.Float64(), a.Distance.Float64())
	})
	add("Biggest climb", prs.MostElevation, func(a strava.Activity) string {
		return fmt.Sprintf("%.0f m", a.TotalElevationGain.Float64())
	})

	return cardStyle.Render(strings.Join(lines, "\n"))
}

func (m RecordsModel) renderPredictions() string {
	var lines []string
	lines = append(lines, cardTitleStyle.Render("Race Predictions"))

	src := m.report.Source
	if src == nil || len(m.report.Predictions) == 0 {
		lines = append(lines, mutedStyle.Render("Run a 5K, 10K, half or full marathon in the last year to unlock predictions."))
		return cardStyle.Render(strings.Join(lines, "\n"))
	}

	vdot := analysis.CalculateVDOT(src.DistanceMeters, src.DurationSeconds)
	basis := fmt.Sprintf("Based on %s in %s (%s), VDOT %.1f, %s",
		src.Race.Label, format.RaceTime(src.DurationSeconds), format.Ago(src.AchievedAt, m.now),
		vdot, analysis.FitnessLabel(vdot))
	lines = append(lines, mutedStyle.Render(basis), "")

	header := fmt.Sprintf("%-14s  %9s  %9s  %-10s", "Distance", "Time", "Pace", "Confidence")
	lines = append(lines, tableHeaderStyle.Render(header))

	for _, p := range m.report.Predictions {
		pace := p.PaceSecPerKm / 60
		lines = append(lines, tableRowStyle.Render(fmt.Sprintf("%-14s  %9s  %9s  %-10s",
			p.Target.Label,
			format.RaceTime(p.PredictedSeconds),
			m.units.FormatPace(&pace),
			p.Confidence,
		)))
	}

	return cardStyle.Render(strings.Join(lines, "\n"))
}

func (m RecordsModel) describe(a strava.Activity) string {
	start := a.LocalStart()
	if start.IsZero() {
		return format.Truncate(a.Name, 30)
	}
	return format.Truncate(a.Name, 30) + ", " + start.Format("Jan 2 2006")
}
