// Package config handles TOML-based configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"tubesb/internal/site"
)

// Config holds all application configuration.
type Config struct {
	TimeoutMS       int    `toml:"timeout_ms"`
	ResolutionGapMS int    `toml:"resolution_gap_ms"`
	SkipResolution  bool   `toml:"skip_resolution"`
	ChromePath      string `toml:"chrome_path"`
	Headless        bool   `toml:"headless"`
	UserAgent       string `toml:"user_agent"`
	Fingerprint     bool   `toml:"fingerprint"`
	Player          string `toml:"player"`
	DownloadDir     string `toml:"download_dir"`
	Debug           bool   `toml:"debug"`
	JSONLogs        bool   `toml:"json_logs"`

	// Site overrides selectors and patterns of the default site profile.
	Site site.Profile `toml:"site"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		TimeoutMS:       10000,
		ResolutionGapMS: 1000,
		Headless:        true,
		Player:          "mpv",
		DownloadDir:     "~/Videos/tubesb",
		Site:            site.Default(),
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "tubesb"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", "tubesb"), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file and merges with defaults.
// If the config file doesn't exist, defaults are returned.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads the config at path. Keys absent from the file keep their
// default values.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if c.TimeoutMS <= 0 {
		return fmt.Errorf("timeout_ms must be positive, got %d", c.TimeoutMS)
	}
	if c.ResolutionGapMS < 0 {
		return fmt.Errorf("resolution_gap_ms cannot be negative, got %d", c.ResolutionGapMS)
	}
	if c.ResolutionGapMS >= c.TimeoutMS {
		return fmt.Errorf("resolution_gap_ms (%d) must be shorter than timeout_ms (%d)", c.ResolutionGapMS, c.TimeoutMS)
	}

	validPlayers := map[string]bool{
		"mpv": true, "vlc": true, "iina": true, "celluloid": true,
	}
	if !validPlayers[strings.ToLower(c.Player)] {
		return fmt.Errorf("unsupported player %q (valid: mpv, vlc, iina, celluloid)", c.Player)
	}

	if err := c.Site.Validate(); err != nil {
		return fmt.Errorf("site: %w", err)
	}

	return nil
}

// Timeout returns the run deadline.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutMS) * time.Millisecond
}

// ResolutionGap returns the wait before the quality menu is read.
func (c *Config) ResolutionGap() time.Duration {
	return time.Duration(c.ResolutionGapMS) * time.Millisecond
}

// ExpandDownloadDir resolves ~ in the download directory path.
func (c *Config) ExpandDownloadDir() (string, error) {
	dir := c.DownloadDir
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home dir: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return filepath.Abs(dir)
}
