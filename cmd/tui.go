package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"strava-wrapped/internal/auth"
	"strava-wrapped/internal/tui"
)

func newTUICmd() *cobra.Command {
	var year int

	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Browse your stats in an interactive dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if !a.gate.IsAuthenticated(cmd.Context()) {
				return fmt.Errorf("%w: run 'strava-wrapped login'", auth.ErrUnauthenticated)
			}

			model := tui.NewApp(a.reports, a.client, tui.Options{Units: a.units, Year: year})
			p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("running TUI: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&year, "year", 0, "only show activities from this year (default all time)")
	return cmd
}
