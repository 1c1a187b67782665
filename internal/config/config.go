package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config represents the application configuration
type Config struct {
	Strava  StravaConfig  `json:"strava"`
	Storage StorageConfig `json:"storage"`
	Server  ServerConfig  `json:"server"`
	Display DisplayConfig `json:"display"`
	Log     LogConfig     `json:"log"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID       string `json:"client_id"`
	ClientSecret   string `json:"client_secret"`
	RedirectURL    string `json:"redirect_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// StorageConfig selects where the credential is kept.
type StorageConfig struct {
	Backend string `json:"backend"` // "sqlite", "file" or "memory"
	Path    string `json:"path"`    // defaults to ~/.strava-wrapped/credential.db or credential.json
}

// ServerConfig holds settings for the local relay server
type ServerConfig struct {
	Addr      string `json:"addr"`
	KeepAlive string `json:"keep_alive"` // cron spec for proactive token refresh, "" disables
}

// DisplayConfig holds display preferences
type DisplayConfig struct {
	DistanceUnit string `json:"distance_unit"`
	PaceUnit     string `json:"pace_unit"`
}

// LogConfig holds logging preferences
type LogConfig struct {
	Level string `json:"level"`
}

// Environment variables that override the config file
const (
	EnvClientID     = "STRAVA_CLIENT_ID"
	EnvClientSecret = "STRAVA_CLIENT_SECRET"
	EnvRedirectURL  = "STRAVA_REDIRECT_URL"
	EnvStore        = "STRAVA_WRAPPED_STORE"
	EnvLogLevel     = "STRAVA_WRAPPED_LOG_LEVEL"
	EnvTimeout      = "STRAVA_WRAPPED_TIMEOUT"
)

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Strava: StravaConfig{
			RedirectURL:    "http://localhost:8089/auth/callback",
			TimeoutSeconds: 10,
		},
		Storage: StorageConfig{
			Backend: "sqlite",
		},
		Server: ServerConfig{
			Addr:      "localhost:8089",
			KeepAlive: "@every 5m",
		},
		Display: DisplayConfig{
			DistanceUnit: "km",
			PaceUnit:     "min/km",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}

// LoadDotEnv loads variables from a .env file into the process environment.
// A missing file is not an error. Variables already set are left alone.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration from ~/.strava-wrapped/config.json
func Load() (*Config, error) {
	path, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFrom(path)
}

// LoadFrom reads the configuration file at path, fills in defaults and
// applies environment overrides. If the file is missing but the Strava
// credentials are available from the environment, the defaults are used.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if os.Getenv(EnvClientID) == "" {
			return nil, ErrNoConfig
		}
		data = []byte("{}")
	} else if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	defaults := DefaultConfig()
	if cfg.Strava.RedirectURL == "" {
		cfg.Strava.RedirectURL = defaults.Strava.RedirectURL
	}
	if cfg.Strava.TimeoutSeconds == 0 {
		cfg.Strava.TimeoutSeconds = defaults.Strava.TimeoutSeconds
	}
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = defaults.Storage.Backend
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaults.Server.Addr
	}
	if cfg.Display.DistanceUnit == "" {
		cfg.Display.DistanceUnit = defaults.Display.DistanceUnit
	}
	if cfg.Display.PaceUnit == "" {
		cfg.Display.PaceUnit = defaults.Display.PaceUnit
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = defaults.Log.Level
	}
}

func applyEnv(cfg *Config) {
	if v := os.Getenv(EnvClientID); v != "" {
		cfg.Strava.ClientID = v
	}
	if v := os.Getenv(EnvClientSecret); v != "" {
		cfg.Strava.ClientSecret = v
	}
	if v := os.Getenv(EnvRedirectURL); v != "" {
		cfg.Strava.RedirectURL = v
	}
	if v := os.Getenv(EnvStore); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvTimeout); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.Strava.TimeoutSeconds = secs
		}
	}
}

// Save writes the configuration to ~/.strava-wrapped/config.json
func Save(cfg *Config) error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

// SaveTo writes the configuration to path
func SaveTo(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CreateExample creates an example config file if none exists
func CreateExample() error {
	path, err := getConfigPath()
	if err != nil {
		return err
	}

	if _, err := os.Stat(path); err == nil {
		return nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava.ClientID = "YOUR_CLIENT_ID"
	example.Strava.ClientSecret = "YOUR_CLIENT_SECRET"

	return SaveTo(path, &example)
}

// Validate checks if the config has required fields
func (c *Config) Validate() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}

	switch c.Storage.Backend {
	case "", "sqlite", "file", "memory":
	default:
		return fmt.Errorf("storage.backend must be \"sqlite\", \"file\" or \"memory\", got %q", c.Storage.Backend)
	}

	if c.Display.DistanceUnit != "" && c.Display.DistanceUnit != "km" && c.Display.DistanceUnit != "mi" {
		return fmt.Errorf("display.distance_unit must be \"km\" or \"mi\", got %q", c.Display.DistanceUnit)
	}
	if c.Display.PaceUnit != "" && c.Display.PaceUnit != "min/km" && c.Display.PaceUnit != "min/mi" {
		return fmt.Errorf("display.pace_unit must be \"min/km\" or \"min/mi\", got %q", c.Display.PaceUnit)
	}

	if c.Strava.TimeoutSeconds < 0 {
		return fmt.Errorf("strava.timeout_seconds must not be negative, got %d", c.Strava.TimeoutSeconds)
	}

	return nil
}

// StoragePath returns the configured credential path, or the default for the backend
func (c *Config) StoragePath() (string, error) {
	if c.Storage.Path != "" {
		return c.Storage.Path, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	if c.Storage.Backend == "file" {
		return filepath.Join(dir, "credential.json"), nil
	}
	return filepath.Join(dir, "credential.db"), nil
}

// getConfigPath returns the path to the config file
func getConfigPath() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".strava-wrapped"), nil
}
