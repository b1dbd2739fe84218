package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	configDirName = "spotify-skip-tracker"
	loginFileName = "login.json"
)

// ErrIncompleteLogin is returned by Save for a login without a token or user ID.
var ErrIncompleteLogin = errors.New("login needs a token and a user id")

// Login is a terminal login: the Spotify account and its OAuth token.
type Login struct {
	UserID      string        `json:"user_id"`
	DisplayName string        `json:"display_name,omitempty"`
	Email       string        `json:"email,omitempty"`
	Token       *oauth2.Token `json:"token"`
	SavedAt     time.Time     `json:"saved_at"`
}

// LoginCache persists the terminal login as a JSON file.
type LoginCache struct {
	path string
	now  func() time.Time
}

// DefaultLoginCache returns a cache at ~/.config/spotify-skip-tracker/login.json.
func DefaultLoginCache() (*LoginCache, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("getting user config dir: %w", err)
	}
	return NewLoginCache(filepath.Join(configDir, configDirName, loginFileName)), nil
}

// NewLoginCache creates a cache stored at path.
func NewLoginCache(path string) *LoginCache {
	return &LoginCache{path: path, now: time.Now}
}

// Path returns the cache file location.
func (c *LoginCache) Path() string {
	return c.path
}

// Load reads the cached login. It returns (nil, nil) when there is no usable
// login: the file is missing, or it lacks a token or user ID.
func (c *LoginCache) Load() (*Login, error) {
	data, err := os.ReadFile(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading login file: %w", err)
	}

	var login Login
	if err := json.Unmarshal(data, &login); err != nil {
		return nil, fmt.Errorf("parsing login file: %w", err)
	}
	if login.Token == nil || login.UserID == "" {
		log.Debug().Str("path", c.path).Msg("ignoring incomplete cached login")
		return nil, nil
	}
	return &login, nil
}

// Save writes the login, replacing the file atomically. SavedAt is set to now.
func (c *LoginCache) Save(login *Login) error {
	if login == nil || login.Token == nil || login.UserID == "" {
		return ErrIncompleteLogin
	}

	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	stored := *login
	stored.SavedAt = c.now().UTC()
	data, err := json.MarshalIndent(stored, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding login: %w", err)
	}

	tmp, err := os.CreateTemp(dir, loginFileName+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing login file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing login file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		return fmt.Errorf("replacing login file: %w", err)
	}

	log.Debug().Str("path", c.path).Str("user", login.UserID).Time("expiry", login.Token.Expiry).Msg("login cached")
	return nil
}

// Delete removes the cached login. A missing file is not an error.
// It reports whether a file was removed.
func (c *LoginCache) Delete() (bool, error) {
	err := os.Remove(c.path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("removing login file: %w", err)
	}
	log.Debug().Str("path", c.path).Msg("login removed")
	return true, nil
}
