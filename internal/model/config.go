package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Store backends selectable in configuration.
const (
	BackendLocal  = "local"
	BackendRemote = "remote"
)

// RemoteStoreConfig holds the settings for the remote record service.
type RemoteStoreConfig struct {
	// BaseURL is the root URL of the record service.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`

	// ProjectID is sent with every request to scope the collection.
	ProjectID string `mapstructure:"project_id" yaml:"project_id"`

	// Collection is the record collection holding tasks.
	Collection string `mapstructure:"collection" yaml:"collection"`

	// TimeoutSec bounds a single HTTP request.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// LocalStoreConfig holds the settings for the on-disk fallback store.
type LocalStoreConfig struct {
	Path string `mapstructure:"path" yaml:"path"`
}

// StoreConfig selects and configures the task store backend.
type StoreConfig struct {
	Backend string            `mapstructure:"backend" yaml:"backend"`
	Remote  RemoteStoreConfig `mapstructure:"remote" yaml:"remote"`
	Local   LocalStoreConfig  `mapstructure:"local" yaml:"local"`
}

// LogConfig controls where and how verbosely the application logs.
type LogConfig struct {
	File  string `mapstructure:"file" yaml:"file"`
	Level string `mapstructure:"level" yaml:"level"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Store StoreConfig `mapstructure:"store" yaml:"store"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`
}

// configDir returns ~/.config/vibratodo, or the working directory when the
// home directory cannot be resolved.
func configDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "vibratodo")
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/vibratodo/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		Store: StoreConfig{
			Backend: BackendLocal,
			Remote: RemoteStoreConfig{
				Collection: "task5",
				TimeoutSec: 30,
			},
			Local: LocalStoreConfig{
				Path: filepath.Join(configDir(), "tasks.db"),
			},
		},
		Log: LogConfig{
			File:  filepath.Join(configDir(), "vibratodo.log"),
			Level: "info",
		},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	defaults := defaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("store.backend", defaults.Store.Backend)
	v.SetDefault("store.remote.collection", defaults.Store.Remote.Collection)
	v.SetDefault("store.remote.timeout_sec", defaults.Store.Remote.TimeoutSec)
	v.SetDefault("store.local.path", defaults.Store.Local.Path)
	v.SetDefault("log.file", defaults.Log.File)
	v.SetDefault("log.level", defaults.Log.Level)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaults, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.Store.Backend = strings.ToLower(strings.TrimSpace(cfg.Store.Backend))
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks that the selected backend is fully configured.
func (c *AppConfig) Validate() error {
	switch c.Store.Backend {
	case BackendLocal:
		if c.Store.Local.Path == "" {
			return fmt.Errorf("store.local.path is required for the local backend")
		}
	case BackendRemote:
		if c.Store.Remote.BaseURL == "" {
			return fmt.Errorf("store.remote.base_url is required for the remote backend")
		}
		if c.Store.Remote.Collection == "" {
			return fmt.Errorf("store.remote.collection is required for the remote backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}
	return nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("store", cfg.Store)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
