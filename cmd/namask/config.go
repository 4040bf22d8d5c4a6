package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the namask configuration file (~/.config/namask/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	// Mask acquisition
	Allocator    string `yaml:"allocator"`
	MultiValued  *bool  `yaml:"multi_valued"`
	MaxMaskBytes *int64 `yaml:"max_mask_bytes"`

	// Server
	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "namask", "config.yaml")
}

// LoadConfig reads the config file. A missing file yields a zero Config.
func LoadConfig() (Config, error) {
	path := configPath()
	if path == "" {
		return Config{}, nil
	}
	return loadConfigFile(path)
}

func loadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Config{}, nil
	}
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func applyLoggingConfig(c *cli.Command, cfg Config) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		logFormat = cfg.LogFormat
	}
}

// applyMaskConfig applies config file defaults to the mask flags when the
// corresponding CLI flag was not explicitly set.
func applyMaskConfig(c *cli.Command, cfg Config) {
	if cfg.Allocator != "" && !c.IsSet("allocator") {
		allocatorName = cfg.Allocator
	}
	if cfg.MultiValued != nil && !c.IsSet("multi") {
		multiValued = *cfg.MultiValued
	}
	if cfg.MaxMaskBytes != nil && !c.IsSet("max-mask-bytes") {
		maxMaskBytes = *cfg.MaxMaskBytes
	}
}

func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	applyMaskConfig(c, cfg)
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
