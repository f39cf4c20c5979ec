// Package config loads packdex configuration.
//
// Configuration comes from a single YAML file named by the --config flag or
// the PACKDEX_CONFIG environment variable. Without either, Default is used.
// Command-line flags are applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/agentic-research/packdex/internal/datacache"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "PACKDEX_CONFIG"

// Config is the packdex configuration.
type Config struct {
	// BasePack is the pack scanned first.
	BasePack string `yaml:"base_pack"`

	// ExternalPacks is a directory whose subdirectories are packs,
	// scanned in name order after the base pack.
	ExternalPacks string `yaml:"external_packs"`

	// CacheDir holds the content cache blobs.
	CacheDir string `yaml:"cache_dir"`

	// HashAlgorithm is "sha256" (default) or "blake3".
	HashAlgorithm string `yaml:"hash_algorithm"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// LogFormat is "text" or "json".
	LogFormat string `yaml:"log_format"`

	// TemplateCacheSize bounds the parsed entity templates kept in memory.
	TemplateCacheSize int `yaml:"template_cache_size"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cacheRoot, err := os.UserCacheDir()
	if err != nil {
		cacheRoot = os.TempDir()
	}
	return &Config{
		BasePack:          "default_assets",
		ExternalPacks:     "external",
		CacheDir:          filepath.Join(cacheRoot, "packdex"),
		HashAlgorithm:     string(datacache.SHA256),
		LogLevel:          "info",
		LogFormat:         "text",
		TemplateCacheSize: 256,
	}
}

// Load reads path, or the file named by PACKDEX_CONFIG when path is empty.
// With neither set it returns Default.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}
	if path == "" {
		return Default(), nil
	}
	return LoadFile(path)
}

// LoadFile reads a config file over the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.BasePack == "" && c.ExternalPacks == "" {
		errs = append(errs, errors.New("at least one of base_pack or external_packs is required"))
	}
	if c.CacheDir == "" {
		errs = append(errs, errors.New("cache_dir is required"))
	}
	if _, err := datacache.ParseAlgorithm(c.HashAlgorithm); err != nil {
		errs = append(errs, fmt.Errorf("hash_algorithm: %w", err))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log_format must be text or json, got %q", c.LogFormat))
	}
	if c.TemplateCacheSize < 0 {
		errs = append(errs, errors.New("template_cache_size must not be negative"))
	}

	return errors.Join(errs...)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.ToLower(s))); err != nil {
		return 0, fmt.Errorf("log_level must be one of debug, info, warn, error, got %q", s)
	}
	return level, nil
}

// Logger builds the slog logger described by LogLevel and LogFormat.
func (c *Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
