package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"strava-wrapped/internal/server"
)

func newServeCmd() *cobra.Command {
	var (
		addr      string
		keepAlive string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the local API and Strava relay",
		Long: `Run a local HTTP server exposing the session and your stats:

  GET  /auth/login       redirect to Strava's authorize page
  GET  /auth/callback    OAuth redirect target
  POST /auth/logout      forget the stored session
  GET  /auth/status      session and rate limit status
  GET  /api/stats        aggregated report (?year=, ?refresh=)
  GET  /api/roast        roast for the report (?year=)
  GET  /api/strava/*     relay to the Strava API with the stored token

A keep-alive job refreshes the session before it expires.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			opts := server.Options{
				Addr:      a.cfg.Server.Addr,
				KeepAlive: a.cfg.Server.KeepAlive,
				Units:     a.units,
			}
			if cmd.Flags().Changed("addr") {
				opts.Addr = addr
			}
			if cmd.Flags().Changed("keep-alive") {
				opts.KeepAlive = keepAlive
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return server.New(a.gate, a.oauth, a.reports, a.client, opts).Run(ctx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, localhost:8089)")
	cmd.Flags().StringVar(&keepAlive, "keep-alive", "", "cron schedule for the session keep-alive, empty disables")
	return cmd
}
