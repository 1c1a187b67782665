package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"strava-wrapped/internal/card"
	"strava-wrapped/internal/format"
	"strava-wrapped/internal/service"
)

// DashboardModel is the dashboard screen model
type DashboardModel struct {
	report *service.Report
	units  format.Units
	now    time.Time
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel(r *service.Report, units format.Units, now time.Time) DashboardModel {
	return DashboardModel{report: r, units: units, now: now}
}

// View renders the dashboard
func (m DashboardModel) View() string {
	if m.report == nil || m.report.Stats.ActivityCount == 0 {
		return "\n  No activities found. Go record something and press 'r'."
	}

	var sections []string

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, m.renderTotalsCard(), "  ", m.renderHabitsCard())
	sections = append(sections, topRow)

	if chart := card.MonthlyChart(m.report.Stats.Monthly, m.units); chart != "" {
		title := cardTitleStyle.Render("Distance per Month")
		sections = append(sections, cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, chart)))
	}

	sections = append(sections, m.renderRecentActivities())
	sections = append(sections, statusStyle.Render("Press 'r' to refresh, '2' for the full activities list"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderTotalsCard() string {
	s := m.report.Stats
	title := cardTitleStyle.Render("Totals")

	lines := []string{
		RenderMetric("Distance", m.units.FormatDistance(s.TotalDistanceKm), ""),
		RenderMetric("Moving time", format.Hours(s.TotalTimeHours), ""),
		RenderMetric("Elevation", format.Count(int(s.TotalElevationM))+" m", ""),
		RenderMetric("Avg run pace", m.units.FormatPace(s.AveragePaceMinPerKm), ""),
		RenderMetric("Activities", format.Count(s.ActivityCount), ""),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(40).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderHabitsCard() string {
	s := m.report.Stats
	title := cardTitleStyle.Render("Habits")

	busiest := "-"
	if day, ok := s.Weekdays.Busiest(); ok {
		busiest = day.String()
	}

	last := "never"
	if len(m.report.Recent) > 0 {
		last = format.Ago(m.report.Recent[0].LocalStart(), m.now)
	}

	lines := []string{
		RenderMetric("Active days", format.Count(s.ActiveDays), ""),
		RenderMetric("Best streak", fmt.Sprintf("%d days", s.LongestStreakDays), ""),
		RenderMetric("Busiest day", busiest, ""),
		RenderMetric("Last activity", last, ""),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(40).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderRecentActivities() string {
	title := cardTitleStyle.Render("Recent Activities")

	header := tableHeaderStyle.Render(fmt.Sprintf("%-10s  %-24s  %-8s  %10s  %9s",
		"Date", "Name", "Type", "Distance", "Pace"))

	rows := []string{header}
	for i, a := range m.report.Recent {
		if i >= 5 {
			break
		}

		date := "-"
		if start := a.LocalStart(); !start.IsZero() {
			date = start.Format("Jan 02")
		}

		row := tableRowStyle.Render(fmt.Sprintf("%-10s  %-24s  %-8s  %10s  %9s",
			date,
			format.Truncate(a.Name, 24),
			format.Truncate(a.Type, 8),
			m.units.FormatMeters(a.Distance.Float64()),
			m.units.FormatActivityPace(a.MovingTime.Float64(), a.Distance.Float64()),
		))
		rows = append(rows, row)
	}

	table := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, table))
}
