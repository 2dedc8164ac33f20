// Package config resolves application paths and loads the daemon
// configuration file and user preferences.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Paths holds the resolved filesystem layout under the application
// data root.
type Paths struct {
	DataDir       string // application data root
	DBFile        string // history database
	ImagesDir     string // full-resolution image blobs
	ThumbnailsDir string // derived thumbnails
	LogDir        string // log files
	ConfigFile    string // daemon config (yaml)
	PrefsFile     string // user preferences (json)
}

// GetPaths resolves platform-specific paths. CLIPVAULT_DATA_DIR
// overrides the data root.
func GetPaths() (*Paths, error) {
	dataDir := os.Getenv("CLIPVAULT_DATA_DIR")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		switch runtime.GOOS {
		case "darwin":
			dataDir = filepath.Join(homeDir, "Library", "Application Support", "Clipvault")
		case "windows":
			configDir, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("failed to resolve config directory: %w", err)
			}
			dataDir = filepath.Join(configDir, "Clipvault")
		default:
			if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
				dataDir = filepath.Join(xdg, "clipvault")
			} else {
				dataDir = filepath.Join(homeDir, ".clipvault")
			}
		}
	}

	paths := &Paths{
		DataDir:       dataDir,
		DBFile:        filepath.Join(dataDir, "clipvault.db"),
		ImagesDir:     filepath.Join(dataDir, "images"),
		ThumbnailsDir: filepath.Join(dataDir, "thumbnails"),
		LogDir:        filepath.Join(dataDir, "logs"),
		ConfigFile:    filepath.Join(dataDir, "config.yaml"),
		PrefsFile:     filepath.Join(dataDir, "preferences.json"),
	}

	if err := os.MkdirAll(paths.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return paths, nil
}

// Config holds daemon configuration. Preferences the user can change
// at runtime live separately (see Preferences).
type Config struct {
	LogLevel          string `yaml:"log_level"`
	PollingIntervalMs int64  `yaml:"polling_interval_ms"`

	Log LogConfig `yaml:"log"`
}

// LogConfig holds logging-related configuration.
type LogConfig struct {
	Format string `yaml:"format"` // "json" or "console"
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:          "info",
		PollingIntervalMs: 50,
		Log: LogConfig{
			Format: "console",
		},
	}
}

// Load reads the config file at path, creating it with defaults when
// absent. Environment variables override file values.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := cfg.Save(path); err != nil {
				return nil, fmt.Errorf("failed to create default config: %w", err)
			}
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if level := os.Getenv("CLIPVAULT_LOG_LEVEL"); level != "" {
		cfg.LogLevel = level
	}
	if cfg.PollingIntervalMs <= 0 {
		cfg.PollingIntervalMs = DefaultConfig().PollingIntervalMs
	}
	return cfg, nil
}

// Save writes the config to path as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
