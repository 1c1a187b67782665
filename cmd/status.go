package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"strava-wrapped/internal/auth"
	"strava-wrapped/internal/store"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether a Strava session is available",
		Long: `Show whether a usable Strava session is stored.

A session that is about to expire is refreshed first. Exits with code 2
when no session is available.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			if !a.gate.IsAuthenticated(ctx) {
				fmt.Fprintln(cmd.OutOrStdout(), "Not signed in.")
				return fmt.Errorf("%w: run 'strava-wrapped login'", auth.ErrUnauthenticated)
			}

			cred, _ := a.gate.Session(ctx)
			printStatus(cmd.OutOrStdout(), cred, a.cfg.Storage.Backend, time.Now())
			return nil
		},
	}
}

func printStatus(w io.Writer, cred store.Credential, backend string, now time.Time) {
	fmt.Fprintln(w, "Signed in.")
	if cred.AthleteID != 0 {
		fmt.Fprintf(w, "  Athlete:   %d\n", cred.AthleteID)
	}
	fmt.Fprintf(w, "  Expires:   %s (%s)\n",
		cred.Expiry().Local().Format("2006-01-02 15:04"),
		humanize.RelTime(cred.Expiry(), now, "ago", "from now"))
	fmt.Fprintf(w, "  Storage:   %s\n", backend)
}
