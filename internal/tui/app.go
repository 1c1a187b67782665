package tui

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"strava-wrapped/internal/auth"
	"strava-wrapped/internal/format"
	"strava-wrapped/internal/service"
	"strava-wrapped/internal/strava"
)

// Screen identifiers
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenActivities
	ScreenRecords
	ScreenRoast
	ScreenDetail
	ScreenHelp
)

// ReportLoader loads aggregated reports; *service.ReportService implements it
type ReportLoader interface {
	Load(ctx context.Context, opts service.LoadOptions) (*service.Report, error)
}

// DetailSource fetches a single activity; *strava.Client implements it
type DetailSource interface {
	GetActivityByID(ctx context.Context, id int64) (*strava.DetailedActivity, error)
}

// Options configures the app
type Options struct {
	Units format.Units
	Year  int
	Now   func() time.Time
}

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	// Screen models
	loading    LoadingModel
	dashboard  DashboardModel
	activities ActivitiesModel
	records    RecordsModel
	roast      RoastModel
	detail     ActivityDetailModel
	help       HelpModel

	// Services
	loader  ReportLoader
	details DetailSource
	opts    Options

	report *service.Report
	err    error

	// Window dimensions
	width  int
	height int
}

// NewApp creates a new App with all dependencies
func NewApp(loader ReportLoader, details DetailSource, opts Options) *App {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &App{
		screen:  ScreenDashboard,
		loader:  loader,
		details: details,
		opts:    opts,
		loading: NewLoadingModel(),
		help:    NewHelpModel(),
	}
}

// Init starts the first report load
func (a *App) Init() tea.Cmd {
	return tea.Batch(a.loading.Init(), a.load(false))
}

type reportLoadedMsg struct {
	report *service.Report
	err    error
}

// OpenActivityDetailMsg asks the app to show one activity
type OpenActivityDetailMsg struct {
	ActivityID int64
}

func (a *App) load(force bool) tea.Cmd {
	loader := a.loader
	opts := service.LoadOptions{
		Year:       a.opts.Year,
		Force:      force,
		OnProgress: a.loading.SetFetched,
	}
	return func() tea.Msg {
		r, err := loader.Load(context.Background(), opts)
		return reportLoadedMsg{report: r, err: err}
	}
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if cmd, handled := a.handleKey(msg); handled {
			return a, cmd
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case reportLoadedMsg:
		a.loading.Stop()
		a.err = msg.err
		if msg.err == nil {
			a.setReport(msg.report)
		}
		return a, nil

	case OpenActivityDetailMsg:
		a.prevScreen = a.screen
		a.screen = ScreenDetail
		a.detail = NewActivityDetailModel(a.details, a.opts.Units, msg.ActivityID, a.width, a.height)
		return a, a.detail.Init()
	}

	if a.loading.Active() {
		var cmd tea.Cmd
		a.loading, cmd = a.loading.Update(msg)
		return a, cmd
	}

	// Delegate to current screen
	var cmd tea.Cmd
	switch a.screen {
	case ScreenActivities:
		var m tea.Model
		m, cmd = a.activities.Update(msg)
		a.activities = m.(ActivitiesModel)
	case ScreenDetail:
		var m tea.Model
		m, cmd = a.detail.Update(msg)
		a.detail = m.(ActivityDetailModel)
	}

	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch msg.String() {
	case "q", "ctrl+c":
		return tea.Quit, true
	}
	if a.loading.Active() {
		return nil, true
	}

	switch msg.String() {
	case "1":
		a.screen = ScreenDashboard
	case "2":
		a.screen = ScreenActivities
	case "3":
		a.screen = ScreenRecords
	case "4":
		a.screen = ScreenRoast
	case "r":
		if a.screen == ScreenDetail {
			return nil, false
		}
		a.err = nil
		return tea.Batch(a.loading.Start(), a.load(true)), true
	case "?":
		if a.screen != ScreenHelp {
			a.prevScreen = a.screen
		}
		a.screen = ScreenHelp
	case "esc":
		if a.screen == ScreenHelp || a.screen == ScreenDetail {
			a.screen = a.prevScreen
			return nil, true
		}
		return nil, false
	default:
		return nil, false
	}
	return nil, true
}

func (a *App) setReport(r *service.Report) {
	a.report = r
	now := a.opts.Now()
	a.dashboard = NewDashboardModel(r, a.opts.Units, now)
	a.activities = NewActivitiesModel(r.Activities, a.opts.Units)
	a.records = NewRecordsModel(r, a.opts.Units, now)
	a.roast = NewRoastModel(r, a.opts.Units)
}

// View renders the app
func (a *App) View() string {
	header := a.renderHeader()
	nav := a.renderNav()

	var content string
	switch {
	case a.loading.Active():
		content = a.loading.View()
	case a.err != nil:
		content = errorStyle.Render("\n  "+describeError(a.err)) + "\n" + statusStyle.Render("  Press 'r' to retry, 'q' to quit")
	case a.screen == ScreenHelp:
		content = a.help.View()
	case a.report == nil:
		content = "\n  No data yet."
	default:
		content = a.screenView()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, content)
}

func (a *App) screenView() string {
	switch a.screen {
	case ScreenActivities:
		return a.activities.View()
	case ScreenRecords:
		return a.records.View()
	case ScreenRoast:
		return a.roast.View()
	case ScreenDetail:
		return a.detail.View()
	default:
		return a.dashboard.View()
	}
}

func (a *App) renderHeader() string {
	if a.opts.Year > 0 {
		return headerStyle.Render(fmt.Sprintf("Strava Wrapped %d", a.opts.Year))
	}
	return headerStyle.Render("Strava Wrapped")
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Dashboard", ScreenDashboard},
		{"2", "Activities", ScreenActivities},
		{"3", "Records", ScreenRecords},
		{"4", "Roast", ScreenRoast},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		if a.screen == item.screen {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}

	nav += "  " + navInactiveStyle.Render("[r] Refresh  [q] Quit")

	return navStyle.Render(nav)
}

// describeError turns load failures into something the user can act on
func describeError(err error) string {
	if errors.Is(err, auth.ErrUnauthenticated) {
		return "Not signed in. Run 'strava-wrapped login' first."
	}
	var apiErr *strava.APIError
	if errors.As(err, &apiErr) {
		return apiErr.UserMessage()
	}
	return fmt.Sprintf("Error: %v", err)
}
