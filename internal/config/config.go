package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/charmbracelet/log"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/llehouerou/tagsync/internal/safefile"
	"github.com/llehouerou/tagsync/internal/tags"
)

const (
	appName        = "tagsync"
	configFileName = "config.toml"

	defaultWorkers = 4
	maxWorkers     = 64
)

type Config struct {
	// Tag export settings
	Export ExportConfig `koanf:"export"`

	// Logging settings
	Log LogConfig `koanf:"log"`

	// Command line settings
	CLI CLIConfig `koanf:"cli"`
}

// ExportConfig controls how exports replace the audio file.
type ExportConfig struct {
	UseTemporaryFile     *bool         `koanf:"use_temporary_file"`     // write a verified copy, then replace (default: true)
	ReplaceRetries       int           `koanf:"replace_retries"`        // attempts on sharing violations (default: 5)
	ReplaceRetryInterval time.Duration `koanf:"replace_retry_interval"` // delay between attempts (default: 100ms)
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `koanf:"level"` // "debug", "info", "warn" or "error" (default: "info")
	File  string `koanf:"file"`  // log destination, empty means stderr
}

// CLIConfig holds command line configuration.
type CLIConfig struct {
	Workers int `koanf:"workers"` // files processed concurrently (1-64, default: 4)
}

// ErrNotFound is returned when an explicitly requested config file does not
// exist.
var ErrNotFound = errors.New("config file not found")

// Load reads the configuration. An explicit path replaces the default
// search; otherwise every existing file of getConfigPaths is merged, the
// last one winning.
func Load(explicit string) (*Config, error) {
	k := koanf.New(".")

	configPaths := getConfigPaths()
	if explicit != "" {
		explicit = expandPath(explicit)
		if _, err := os.Stat(explicit); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, explicit)
		}
		configPaths = []string{explicit}
	}

	for _, path := range configPaths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	if cfg.Log.File != "" {
		cfg.Log.File = expandPath(cfg.Log.File)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/tagsync/config.toml
		filepath.Join(xdg.ConfigHome, appName, configFileName),
		// 2. ./config.toml (pwd, highest priority)
		configFileName,
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetExportConfig returns the export configuration with defaults applied.
func (c *Config) GetExportConfig() ExportConfig {
	cfg := c.Export

	if cfg.UseTemporaryFile == nil {
		useTemp := true
		cfg.UseTemporaryFile = &useTemp
	}
	if cfg.ReplaceRetries <= 0 {
		cfg.ReplaceRetries = safefile.DefaultRetryPolicy.Attempts
	}
	if cfg.ReplaceRetryInterval <= 0 {
		cfg.ReplaceRetryInterval = safefile.DefaultRetryPolicy.Interval
	}

	return cfg
}

// RetryPolicy returns the native replace retry policy.
func (c *Config) RetryPolicy() safefile.RetryPolicy {
	cfg := c.GetExportConfig()
	return safefile.RetryPolicy{
		Attempts: cfg.ReplaceRetries,
		Interval: cfg.ReplaceRetryInterval,
	}
}

// TagOptions returns the options for tag sources. inPlace forces in-place
// writes regardless of the configured mode.
func (c *Config) TagOptions(logger *log.Logger, inPlace bool) tags.Options {
	cfg := c.GetExportConfig()
	return tags.Options{
		Logger:  logger,
		InPlace: inPlace || !*cfg.UseTemporaryFile,
		Retry:   c.RetryPolicy(),
	}
}

// LogLevel returns the configured log level. Unknown or empty levels fall
// back to info.
func (c *Config) LogLevel() log.Level {
	level, err := log.ParseLevel(c.Log.Level)
	if err != nil {
		return log.InfoLevel
	}
	return level
}

// Workers returns the number of files processed concurrently.
func (c *Config) Workers() int {
	if c.CLI.Workers <= 0 || c.CLI.Workers > maxWorkers {
		return defaultWorkers
	}
	return c.CLI.Workers
}
