package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"strava-wrapped/internal/format"
	"strava-wrapped/internal/strava"
)

// ActivityDetailModel is the activity detail screen model
type ActivityDetailModel struct {
	details    DetailSource
	units      format.Units
	activityID int64
	detail     *strava.DetailedActivity
	viewport   viewport.Model
	loading    bool
	err        error
	width      int
	height     int
	ready      bool
}

// NewActivityDetailModel creates a new activity detail model
func NewActivityDetailModel(details DetailSource, units format.Units, activityID int64, width, height int) ActivityDetailModel {
	m := ActivityDetailModel{
		details:    details,
		units:      units,
		activityID: activityID,
		loading:    true,
		width:      width,
		height:     height,
	}

	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6) // Reserve space for header/footer
		m.ready = true
	}

	return m
}

// Init initializes the activity detail screen
func (m ActivityDetailModel) Init() tea.Cmd {
	return m.loadDetail
}

type activityDetailLoadedMsg struct {
	id     int64
	detail *strava.DetailedActivity
	err    error
}

func (m ActivityDetailModel) loadDetail() tea.Msg {
	if m.details == nil {
		return activityDetailLoadedMsg{id: m.activityID, err: fmt.Errorf("activity details unavailable")}
	}
	detail, err := m.details.GetActivityByID(context.Background(), m.activityID)
	return activityDetailLoadedMsg{id: m.activityID, detail: detail, err: err}
}

// Update handles messages
func (m ActivityDetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case activityDetailLoadedMsg:
		// A late answer for an activity we already left
		if msg.id != m.activityID {
			return m, nil
		}
		m.loading = false
		m.err = msg.err
		m.detail = msg.detail
		if m.ready {
			m.viewport.SetContent(m.renderContent())
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		if m.detail != nil {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.KeyMsg:
		if msg.String() == "r" {
			m.loading = true
			m.err = nil
			return m, m.loadDetail
		}
	}

	// Handle viewport scrolling
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the activity detail screen
func (m ActivityDetailModel) View() string {
	if m.loading {
		return "\n  Loading activity details..."
	}

	if m.err != nil {
		return errorStyle.Render("\n  "+describeError(m.err)) + "\n" + statusStyle.Render("  esc: back  r: retry")
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	footer := statusStyle.Render("  esc: back to list  j/k or arrows: scroll  r: refresh")

	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m ActivityDetailModel) renderContent() string {
	if m.detail == nil {
		return "No data"
	}

	sections := []string{m.renderHeader(), m.renderSummary()}

	if len(m.detail.SplitsMetric) > 0 {
		sections = append(sections, m.renderSplits())
	}

	if len(m.detail.SplitsMetric) > 2 {
		sections = append(sections, m.renderPaceChart())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m ActivityDetailModel) renderHeader() string {
	a := m.detail.Activity
	title := cardTitleStyle.Render(a.Name)

	date := "Unknown date"
	if start := a.LocalStart(); !start.IsZero() {
		date = start.Format("Monday, January 2, 2006 at 3:04 PM")
	}
	subtitle := lipgloss.NewStyle().Foreground(mutedColor).Render(date)

	stats := fmt.Sprintf("%s  •  %s  •  %s",
		m.units.FormatMeters(a.Distance.Float64()),
		format.Duration(a.MovingTime.Float64()),
		m.units.FormatActivityPace(a.MovingTime.Float64(), a.Distance.Float64()))
	statsLine := lipgloss.NewStyle().Foreground(textColor).Bold(true).Render(stats)

	lines := []string{"", title, subtitle, statsLine}
	if m.detail.Description != "" {
		lines = append(lines, mutedStyle.Render(m.detail.Description))
	}
	return lipgloss.JoinVertical(lipgloss.Left, append(lines, "")...)
}

func (m ActivityDetailModel) renderSummary() string {
	d := m.detail
	var lines []string

	lines = append(lines, sectionStyle.Render("Summary"))
	lines = append(lines, fmt.Sprintf("  Type:                 %s", d.Type))
	lines = append(lines, fmt.Sprintf("  Elapsed time:         %s", format.Duration(d.ElapsedTime.Float64())))
	lines = append(lines, fmt.Sprintf("  Elevation gain:       %.0f m", d.TotalElevationGain.Float64()))

	if d.HasHeartrate && d.AverageHeartrate > 0 {
		lines = append(lines, fmt.Sprintf("  Average HR:           %.0f bpm", d.AverageHeartrate.Float64()))
	}
	if d.MaxHeartrate > 0 {
		lines = append(lines, fmt.Sprintf("  Max HR:               %.0f bpm", d.MaxHeartrate.Float64()))
	}
	if d.Calories > 0 {
		lines = append(lines, fmt.Sprintf("  Calories:             %.0f", d.Calories.Float64()))
	}
	if d.DeviceName != "" {
		lines = append(lines, fmt.Sprintf("  Device:               %s", d.DeviceName))
	}
	lines = append(lines, fmt.Sprintf("  Kudos:                %d", d.KudosCount))

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (m ActivityDetailModel) renderSplits() string {
	var lines []string

	lines = append(lines, sectionStyle.Render("Kilometer Splits"))

	header := fmt.Sprintf("  %-5s  %8s  %9s  %6s  %6s", "Km", "Distance", "Pace", "HR", "Elev")
	lines = append(lines, lipgloss.NewStyle().Foreground(primaryColor).Render(header))

	fastest := fastestSplit(m.detail.SplitsMetric)

	for i, s := range m.detail.SplitsMetric {
		hrStr := "-"
		if s.AverageHeartrate > 0 {
			hrStr = fmt.Sprintf("%.0f", s.AverageHeartrate.Float64())
		}

		row := fmt.Sprintf("  %-5d  %8s  %9s  %6s  %+5.0fm",
			s.Split,
			m.units.FormatMeters(s.Distance.Float64()),
			m.units.FormatActivityPace(s.MovingTime.Float64(), s.Distance.Float64()),
			hrStr,
			s.ElevationDifference,
		)

		if i == fastest {
			lines = append(lines, lipgloss.NewStyle().Foreground(secondaryColor).Bold(true).Render(row))
		} else {
			lines = append(lines, row)
		}
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

func (m ActivityDetailModel) renderPaceChart() string {
	var lines []string

	lines = append(lines, sectionStyle.Render(fmt.Sprintf("Pace per Split (%s)", m.units.PaceLabel())))

	data := splitPaces(m.detail.SplitsMetric, m.units.IsMiles())
	if len(data) > 2 {
		chart := asciigraph.Plot(data,
			asciigraph.Height(8),
			asciigraph.Width(50),
		)
		lines = append(lines, chart)
	}

	lines = append(lines, "")
	return strings.Join(lines, "\n")
}

// fastestSplit returns the index of the fastest full split, or -1. A final
// partial split only counts when it is the only one.
func fastestSplit(splits []strava.Split) int {
	best := -1
	bestPace := 0.0
	for i, s := range splits {
		if s.Distance <= 0 || s.MovingTime <= 0 {
			continue
		}
		if len(splits) > 1 && i == len(splits)-1 && s.Distance < 900 {
			continue
		}
		pace := s.MovingTime.Float64() / s.Distance.Float64()
		if best == -1 || pace < bestPace {
			best = i
			bestPace = pace
		}
	}
	return best
}

// splitPaces returns minutes per unit for every split with movement
func splitPaces(splits []strava.Split, miles bool) []float64 {
	unit := 1000.0
	if miles {
		unit = 1609.344
	}
	data := make([]float64, 0, len(splits))
	for _, s := range splits {
		if s.Distance <= 0 || s.MovingTime <= 0 {
			continue
		}
		data = append(data, (s.MovingTime.Float64()/60)/(s.Distance.Float64()/unit))
	}
	return data
}
