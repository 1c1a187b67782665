package tui

import (
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// LoadingModel shows a spinner and a running count while activities load
type LoadingModel struct {
	spinner spinner.Model
	fetched *atomic.Int64
	active  bool
}

// NewLoadingModel creates an active loading model
func NewLoadingModel() LoadingModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)
	return LoadingModel{
		spinner: s,
		fetched: new(atomic.Int64),
		active:  true,
	}
}

// Init starts the spinner
func (m LoadingModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// Active reports whether a load is in progress
func (m LoadingModel) Active() bool {
	return m.active
}

// SetFetched records progress; safe to call from the loading goroutine
func (m LoadingModel) SetFetched(n int) {
	m.fetched.Store(int64(n))
}

// Start resets the counter and restarts the spinner
func (m *LoadingModel) Start() tea.Cmd {
	m.fetched.Store(0)
	m.active = true
	return m.spinner.Tick
}

// Stop halts the spinner after the current tick
func (m *LoadingModel) Stop() {
	m.active = false
}

// Update advances the spinner
func (m LoadingModel) Update(msg tea.Msg) (LoadingModel, tea.Cmd) {
	if _, ok := msg.(spinner.TickMsg); !ok || !m.active {
		return m, nil
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return m, cmd
}

// View renders the spinner line
func (m LoadingModel) View() string {
	line := fmt.Sprintf("\n  %s Fetching activities from Strava...", m.spinner.View())
	if n := m.fetched.Load(); n > 0 {
		line += mutedStyle.Render(fmt.Sprintf(" %d so far", n))
	}
	return line
}
