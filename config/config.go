package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Options       OptionsConfig       `toml:"options"`
	Media         MediaConfig         `toml:"media"`
	Notifications NotificationsConfig `toml:"notifications"`
}

type OptionsConfig struct {
	SaveLocation      string `toml:"save_location"`
	TitleTemplate     string `toml:"title_template"`
	BatchSize         int    `toml:"batch_size"`
	MaxFileNameLength int    `toml:"max_file_name_length"`
	NoParent          bool   `toml:"no_parent"`
	// RequestsPerMinute throttles search index page requests.
	RequestsPerMinute int    `toml:"requests_per_minute"`
	UserAgent         string `toml:"user_agent"`
}

type MediaConfig struct {
	GfycatType  string `toml:"gfycat_type"`
	VRedditMode string `toml:"vreddit_mode"`
}

type NotificationsConfig struct {
	Enabled            bool `toml:"enabled"`
	NotifyOnCompletion bool `toml:"notify_on_completion"`
}

// DefaultConfig returns the built-in defaults, matching the original
// command line defaults.
func DefaultConfig() *Config {
	return &Config{
		Options: OptionsConfig{
			SaveLocation:      ".",
			TitleTemplate:     "{id}-{title}",
			BatchSize:         16,
			MaxFileNameLength: 255,
			RequestsPerMinute: 60,
			UserAgent:         "redditrip",
		},
		Media: MediaConfig{
			GfycatType:  "mp4",
			VRedditMode: "no-audio",
		},
		Notifications: NotificationsConfig{
			NotifyOnCompletion: true,
		},
	}
}

// GetConfigPath prefers a config.toml in the working directory over
// the per-user location.
func GetConfigPath() string {
	if _, err := os.Stat("config.toml"); err == nil {
		return "config.toml"
	}
	return filepath.Join(getConfigDir(), "config.toml")
}

func getConfigDir() string {
	if runtime.GOOS == "darwin" {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, ".config", "redditrip")
		}
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return filepath.Join(dir, "redditrip")
}

// EnsureConfigExists writes a default config file when none exists.
func EnsureConfigExists(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return toml.NewEncoder(file).Encode(DefaultConfig())
}

// LoadConfig reads path and fills in defaults for anything unset.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Options.BatchSize < 1 || c.Options.BatchSize > 1000 {
		return fmt.Errorf("batch_size must be between 1 and 1000, got %d", c.Options.BatchSize)
	}
	if c.Options.MaxFileNameLength < 8 {
		return fmt.Errorf("max_file_name_length must be at least 8, got %d", c.Options.MaxFileNameLength)
	}
	switch c.Media.GfycatType {
	case "mp4", "webm":
	default:
		return fmt.Errorf("gfycat_type must be 'mp4' or 'webm', got %q", c.Media.GfycatType)
	}
	return nil
}
