package card

import "github.com/charmbracelet/lipgloss"

// Colors
var (
	stravaOrange = lipgloss.Color("#FC4C02")
	accentColor  = lipgloss.Color("#10B981")
	mutedColor   = lipgloss.Color("#6B7280")
	textColor    = lipgloss.Color("#F9FAFB")
)

var (
	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(stravaOrange).
			Padding(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(stravaOrange)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			MarginBottom(1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	noteStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// row renders "label  value  note"
func row(label, value, note string) string {
	parts := []string{labelStyle.Render(label), valueStyle.Render(value)}
	if note != "" {
		parts = append(parts, noteStyle.Render("  "+note))
	}
	return lipgloss.JoinHorizontal(lipgloss.Left, parts...)
}
