package cmd

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"strava-wrapped/internal/auth"
	"strava-wrapped/internal/config"
	"strava-wrapped/internal/format"
	"strava-wrapped/internal/logging"
	"strava-wrapped/internal/service"
	"strava-wrapped/internal/store"
	"strava-wrapped/internal/strava"
)

// app holds the wired dependencies shared by the commands
type app struct {
	cfg     *config.Config
	store   store.TokenStore
	oauth   *auth.OAuthClient
	gate    *auth.Gate
	client  *strava.Client
	reports *service.ReportService
	units   format.Units

	closeStore func() error
}

// newApp loads the configuration and wires the store, session gate and
// Strava client. The caller must call close.
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if logLevel == "" {
		logging.Init(logging.ParseLevel(cfg.Log.Level), cmd.ErrOrStderr())
	}

	s, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(cfg.Strava.TimeoutSeconds) * time.Second
	oauth := auth.NewOAuthClient(auth.Config{
		ClientID:     cfg.Strava.ClientID,
		ClientSecret: cfg.Strava.ClientSecret,
		RedirectURL:  cfg.Strava.RedirectURL,
		Timeout:      timeout,
	})
	gate := auth.NewGate(s, oauth)
	client := strava.NewClient(gate, strava.WithTimeout(timeout))

	return &app{
		cfg:        cfg,
		store:      s,
		oauth:      oauth,
		gate:       gate,
		client:     client,
		reports:    service.NewReportService(client, service.DefaultMaxAge),
		units:      format.NewUnits(cfg.Display),
		closeStore: closeStore,
	}, nil
}

func (a *app) close() {
	if err := a.closeStore(); err != nil {
		logging.Warn("CLI", "closing credential store: %v", err)
	}
}

// loadConfig reads the config file, creating an example on first run
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}

	if errors.Is(err, config.ErrNoConfig) {
		location := configPath
		if location == "" {
			if err := config.CreateExample(); err != nil {
				return nil, fmt.Errorf("creating example config: %w", err)
			}
			dir, _ := config.GetConfigDir()
			location = dir + "/config.json"
		}
		return nil, fmt.Errorf("no Strava credentials configured: edit %s or set %s and %s (see https://www.strava.com/settings/api)",
			location, config.EnvClientID, config.EnvClientSecret)
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openStore opens the configured credential backend
func openStore(cfg *config.Config) (store.TokenStore, func() error, error) {
	noop := func() error { return nil }

	if cfg.Storage.Backend == "memory" {
		return store.NewMemoryTokenStore(), noop, nil
	}

	path, err := cfg.StoragePath()
	if err != nil {
		return nil, nil, err
	}

	switch cfg.Storage.Backend {
	case "file":
		s, err := store.NewFileTokenStore(path)
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil
	default:
		s, err := store.OpenSQLite(path)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	}
}

// progressPrinter reports fetch progress on w, overwriting one line
func progressPrinter(w io.Writer) func(fetched int) {
	return func(fetched int) {
		fmt.Fprintf(w, "\rFetched %d activities...", fetched)
	}
}
