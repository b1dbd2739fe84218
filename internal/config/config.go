// Package config loads the skip tracker configuration from a TOML file,
// a .env file and the environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

var (
	// ErrMissingSpotify is returned when Spotify credentials are not configured.
	ErrMissingSpotify = errors.New("missing Spotify client id or secret (set SPOTIFY_ID and SPOTIFY_SECRET)")

	// ErrMissingDatabase is returned when no database URL is configured.
	ErrMissingDatabase = errors.New("missing database url (set DATABASE_URL)")
)

// Config is the application configuration.
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Spotify   SpotifyConfig   `toml:"spotify"`
	Database  DatabaseConfig  `toml:"database"`
	Log       LogConfig       `toml:"log"`
	Tracker   TrackerConfig   `toml:"tracker"`
	Dashboard DashboardConfig `toml:"dashboard"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Addr string `toml:"addr"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	RedirectURI  string `toml:"redirect_uri"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	URL string `toml:"url"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// TrackerConfig tunes skip detection.
type TrackerConfig struct {
	PollInterval Duration `toml:"poll_interval"`
	SkipWindow   Duration `toml:"skip_window"`
	EndTolerance Duration `toml:"end_tolerance"`
}

// DashboardConfig configures the terminal dashboard's backend.
type DashboardConfig struct {
	BackendURL    string `toml:"backend_url"`
	SessionID     string `toml:"session_id"`
	HighThreshold int    `toml:"high_threshold"`
	TopN          int    `toml:"top_n"`
}

// Duration is a time.Duration decoded from a TOML string such as "3s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("parsing duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the configuration defaults from the embedded example config.
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(exampleConf, &cfg); err != nil {
		panic(fmt.Sprintf("parsing embedded default config: %v", err))
	}
	return &cfg
}

// Load builds the configuration: defaults, then the TOML file at path (if
// path is non-empty), then .env, then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)
	return cfg, nil
}

// applyEnv overrides settings from environment variables.
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	set(&c.Spotify.ClientID, "SPOTIFY_ID")
	set(&c.Spotify.ClientSecret, "SPOTIFY_SECRET")
	set(&c.Database.URL, "DATABASE_URL")
	set(&c.Server.Addr, "SKIP_TRACKER_ADDR")
	set(&c.Dashboard.BackendURL, "SKIP_TRACKER_URL")
	set(&c.Dashboard.SessionID, "SKIP_TRACKER_SESSION")
}

// RequireSpotify returns ErrMissingSpotify unless both credentials are set.
func (c *Config) RequireSpotify() error {
	if c.Spotify.ClientID == "" || c.Spotify.ClientSecret == "" {
		return ErrMissingSpotify
	}
	return nil
}

// RequireDatabase returns ErrMissingDatabase unless a database URL is set.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return ErrMissingDatabase
	}
	return nil
}

// WriteExample writes the example configuration to path. It fails if the file exists.
func WriteExample(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.WriteFile(path, exampleConf, 0o600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
