package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"strava-wrapped/internal/auth"
)

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in to Strava",
		Long: `Sign in to Strava through the browser.

A temporary callback server listens on the configured redirect URL
until the authorization completes or times out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			err = auth.Authenticate(cmd.Context(), a.oauth, a.gate, func(authURL string) {
				fmt.Fprintln(out, "Open this URL in your browser to authorize strava-wrapped:")
				fmt.Fprintln(out)
				fmt.Fprintln(out, "  "+authURL)
				fmt.Fprintln(out)
				fmt.Fprintln(out, "Waiting for authorization...")
			})
			if err != nil {
				return &AuthFailedError{Err: err}
			}

			cred, _ := a.gate.Session(cmd.Context())
			if cred.AthleteID != 0 {
				fmt.Fprintf(out, "Signed in as athlete %d.\n", cred.AthleteID)
			} else {
				fmt.Fprintln(out, "Signed in.")
			}
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored Strava session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.gate.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("signing out: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
			return nil
		},
	}
}
