// Package config loads service settings from defaults, a TOML file, the
// environment and command-line flags, in increasing order of priority.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/ritzau/service-catalog/pkg/logging"
)

const (
	// DefaultFile is read from the working directory when present
	DefaultFile = "service-catalog.toml"
	// EnvPrefix marks variables such as SERVICE_CATALOG_METADATA_URL
	EnvPrefix = "SERVICE_CATALOG_"
)

// Config holds all service settings
type Config struct {
	Port         int           `koanf:"port"`
	MetadataFile string        `koanf:"metadata-file"`
	MetadataURL  string        `koanf:"metadata-url"`
	FetchTimeout time.Duration `koanf:"fetch-timeout"`
	Watch        bool          `koanf:"watch"`
	SeedStore    bool          `koanf:"seed-store"`
	Top          int           `koanf:"top"`
	Verbosity    string        `koanf:"verbosity"`
	VerboseCnt   int           `koanf:"verbose"`
	LogFormat    string        `koanf:"log-format"`
	CORSOrigin   string        `koanf:"cors-origin"`
}

// Defaults returns the built-in settings.
func Defaults() map[string]any {
	return map[string]any{
		"port":          8080,
		"metadata-file": "",
		"metadata-url":  "",
		"fetch-timeout": "7s",
		"watch":         false,
		"seed-store":    false,
		"top":           5,
		"verbosity":     "",
		"verbose":       0,
		"log-format":    "text",
		"cors-origin":   "*",
	}
}

// Load merges defaults, the config file, SERVICE_CATALOG_* variables and
// flags. A "config" flag, when defined and set, names the file to read.
func Load(f *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(mapProvider(Defaults()), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	path, explicit := DefaultFile, false
	if f != nil {
		if fl := f.Lookup("config"); fl != nil && fl.Changed {
			path, explicit = fl.Value.String(), true
		}
	}
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		// The default file is optional; an explicitly named one is not
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if f != nil {
		if err := k.Load(posflag.Provider(f, ".", k), nil); err != nil {
			return nil, fmt.Errorf("load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey turns SERVICE_CATALOG_METADATA_URL into metadata-url.
func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", "-")
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("fetch-timeout must be positive, got %s", c.FetchTimeout)
	}
	if c.Top < 0 {
		return fmt.Errorf("top must not be negative, got %d", c.Top)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log-format must be text or json, got %q", c.LogFormat)
	}
	if c.Watch && c.MetadataFile == "" {
		return errors.New("watch requires metadata-file")
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

// LogLevel resolves the level from verbosity, or from the -v count when
// verbosity is unset (-v debug, -vv trace).
func (c *Config) LogLevel() (slog.Level, error) {
	if c.Verbosity != "" {
		return logging.ParseLevel(c.Verbosity)
	}
	switch {
	case c.VerboseCnt >= 2:
		return logging.LevelTrace, nil
	case c.VerboseCnt == 1:
		return slog.LevelDebug, nil
	}
	return slog.LevelInfo, nil
}

// mapProvider adapts a plain map to a koanf provider
type mapProvider map[string]any

func (p mapProvider) Read() (map[string]any, error) {
	return p, nil
}

func (p mapProvider) ReadBytes() ([]byte, error) {
	return nil, errors.New("map provider does not support raw bytes")
}
