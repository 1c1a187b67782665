package tui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"strava-wrapped/internal/format"
	"strava-wrapped/internal/strava"
)

// ActivitiesModel is the activities list screen model. It pages through
// the already loaded history; nothing is fetched here.
type ActivitiesModel struct {
	activities []strava.Activity
	units      format.Units
	cursor     int
	offset     int
	pageSize   int
}

// NewActivitiesModel creates a new activities model
func NewActivitiesModel(activities []strava.Activity, units format.Units) ActivitiesModel {
	return ActivitiesModel{
		activities: activities,
		units:      units,
		pageSize:   15,
	}
}

// Init initializes the activities screen
func (m ActivitiesModel) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m ActivitiesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok || len(m.activities) == 0 {
		return m, nil
	}

	last := len(m.activities) - 1
	switch key.String() {
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < last {
			m.cursor++
		}
	case "pgup":
		m.cursor -= m.pageSize
		if m.cursor < 0 {
			m.cursor = 0
		}
	case "pgdown":
		m.cursor += m.pageSize
		if m.cursor > last {
			m.cursor = last
		}
	case "enter":
		id := m.activities[m.cursor].ID
		return m, func() tea.Msg {
			return OpenActivityDetailMsg{ActivityID: id}
		}
	}

	// Keep the cursor on the visible page
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+m.pageSize {
		m.offset = m.cursor - m.pageSize + 1
	}
	return m, nil
}

// Selected returns the activity under the cursor
func (m ActivitiesModel) Selected() (strava.Activity, bool) {
	if len(m.activities) == 0 {
		return strava.Activity{}, false
	}
	return m.activities[m.cursor], true
}

// View renders the activities list
func (m ActivitiesModel) View() string {
	if len(m.activities) == 0 {
		return "\n  No activities found."
	}

	end := m.offset + m.pageSize
	if end > len(m.activities) {
		end = len(m.activities)
	}

	var sections []string
	title := cardTitleStyle.Render(fmt.Sprintf("Activities (%d-%d of %d)", m.offset+1, end, len(m.activities)))
	sections = append(sections, title)

	header := tableHeaderStyle.Render(fmt.Sprintf("   %-10s  %-26s  %-10s  %10s  %9s  %8s  %6s",
		"Date", "Name", "Type", "Distance", "Pace", "Time", "Climb"))
	sections = append(sections, header)

	for i := m.offset; i < end; i++ {
		a := m.activities[i]

		date := "-"
		if start := a.LocalStart(); !start.IsZero() {
			date = start.Format("2006-01-02")
		}

		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-10s  %-26s  %-10s  %10s  %9s  %8s  %5.0fm",
			cursor,
			date,
			format.Truncate(a.Name, 26),
			format.Truncate(a.Type, 10),
			m.units.FormatMeters(a.Distance.Float64()),
			m.units.FormatActivityPace(a.MovingTime.Float64(), a.Distance.Float64()),
			format.Duration(a.MovingTime.Float64()),
			a.TotalElevationGain.Float64(),
		)

		if i == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row))
		} else {
			sections = append(sections, tableRowStyle.Render(row))
		}
	}

	help := statusStyle.Render("\n  enter: view details  j/k: navigate  pgup/pgdn: page")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
