package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"strava-wrapped/internal/format"
	"strava-wrapped/internal/roast"
	"strava-wrapped/internal/service"
)

// RoastModel shows the roast for the loaded report
type RoastModel struct {
	roast roast.Roast
}

// NewRoastModel creates a new roast model
func NewRoastModel(r *service.Report, units format.Units) RoastModel {
	if r == nil {
		return RoastModel{}
	}
	return RoastModel{roast: roast.Generate(r.Athlete.Firstname, r.Stats, units)}
}

// View renders the roast
func (m RoastModel) View() string {
	if m.roast.Title == "" {
		return "\n  Nothing to roast yet."
	}

	lines := []string{cardTitleStyle.Render(m.roast.Title)}
	for _, line := range m.roast.Lines {
		lines = append(lines, primaryBullet+" "+line)
	}

	return cardStyle.Width(80).Render(lipgloss.JoinVertical(lipgloss.Left, strings.Join(lines, "\n")))
}

var primaryBullet = lipgloss.NewStyle().Foreground(primaryColor).Render("🔥")
