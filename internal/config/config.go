// Package config handles TOML-based configuration loading and validation.
// Values come from defaults, then the config file, then ODKDL_* environment
// variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"odkdl/internal/player"
)

const appName = "odkdl"

// envPrefix namespaces the environment overlay, e.g. ODKDL_SUBS_LANGUAGE.
const envPrefix = "ODKDL_"

// siteHosts are the origins whose redirects the player URL extractor accepts.
var siteHosts = []string{"www.ondemandkorea.com", "classic.ondemandkorea.com", "ondemandkorea.com"}

// Config holds all application configuration.
type Config struct {
	RESTBase     string `toml:"rest_base" env:"REST_BASE"`
	SiteURL      string `toml:"site_url" env:"SITE_URL"`
	SubsLanguage string `toml:"subs_language" env:"SUBS_LANGUAGE"`
	Player       string `toml:"player" env:"PLAYER"`
	DownloadDir  string `toml:"download_dir" env:"DOWNLOAD_DIR"`
	History      bool   `toml:"history" env:"HISTORY"`
	Debug        bool   `toml:"debug" env:"DEBUG"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		RESTBase:     "https://odkmedia.io/odx/api/v2",
		SiteURL:      "https://www.ondemandkorea.com",
		SubsLanguage: "English",
		Player:       "mpv",
		DownloadDir:  "~/Videos/odkdl",
		History:      true,
		Debug:        false,
	}
}

// configDir returns the XDG-compliant config directory.
func configDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".config", appName), nil
}

// ConfigPath returns the path to the config file.
func ConfigPath() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load reads the config file, applies the environment overlay and
// validates the result. A missing config file is not an error.
func Load() (*Config, error) {
	cfg := Default()

	path, err := ConfigPath()
	if err == nil {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: envPrefix}); err != nil {
		return nil, fmt.Errorf("reading %s environment: %w", envPrefix+"*", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// Validate checks config values are within acceptable bounds.
func (c *Config) Validate() error {
	if err := requireHTTPS("rest_base", c.RESTBase); err != nil {
		return err
	}
	if err := requireHTTPS("site_url", c.SiteURL); err != nil {
		return err
	}
	if u, _ := url.Parse(c.SiteURL); !slices.Contains(siteHosts, u.Hostname()) {
		return fmt.Errorf("site_url must be one of %s, got %q", strings.Join(siteHosts, ", "), c.SiteURL)
	}
	if strings.TrimSpace(c.SubsLanguage) == "" {
		return fmt.Errorf("subs_language cannot be empty")
	}
	if !slices.Contains(player.Supported, strings.ToLower(c.Player)) {
		return fmt.Errorf("unsupported player %q (valid: %s)", c.Player, strings.Join(player.Supported, ", "))
	}
	return nil
}

func requireHTTPS(key, raw string) error {
	if raw == "" {
		return fmt.Errorf("%s cannot be empty", key)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("%s must be an https URL, got %q", key, raw)
	}
	return nil
}

// ExpandDownloadDir resolves ~ in the download directory path.
func (c *Config) ExpandDownloadDir() (string, error) {
	return expandHome(c.DownloadDir)
}

func expandHome(dir string) (string, error) {
	if strings.HasPrefix(dir, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expanding home dir: %w", err)
		}
		dir = filepath.Join(home, dir[2:])
	}
	return filepath.Abs(dir)
}

// HistoryPath returns the path to the history database.
func HistoryPath() (string, error) {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, appName, "history.db"), nil
}
