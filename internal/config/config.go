// Package config loads the mirror configuration file (YAML or JSON).
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Config holds the mirror settings. Zero values fall back to Default().
type Config struct {
	// Root is the local mirror directory.
	Root string `yaml:"root" json:"root"`
	// Protocol is the git transport: "https" or "ssh".
	Protocol string `yaml:"protocol" json:"protocol"`
	// LFS pulls large-file-storage objects on sync.
	LFS bool `yaml:"lfs" json:"lfs"`
	// KeepRaw keeps the raw dumps after extraction.
	KeepRaw bool `yaml:"keep_raw" json:"keep_raw"`
	// Workers bounds concurrent materializations (1 = sequential).
	Workers int `yaml:"workers" json:"workers"`
	// LogLevel is debug, info, warn, or error.
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogFormat is text or json.
	LogFormat string `yaml:"log_format" json:"log_format"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Root:      "core_database",
		Protocol:  "https",
		Workers:   1,
		LogLevel:  "info",
		LogFormat: "text",
	}
}

// LoadFromPath reads a config file and returns the parsed Config with
// defaults applied. Format is detected by extension (.yaml/.yml/.json) or
// by content.
func LoadFromPath(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read: %w", err)
	}
	return Load(data, filepath.Ext(path))
}

// Load parses a config from bytes. ext is the file extension for format
// hint; empty means detect from content (JSON when it starts with "{").
func Load(data []byte, ext string) (Config, error) {
	cfg := Default()

	ext = strings.ToLower(ext)
	if ext == ".yml" {
		ext = ".yaml"
	}
	if ext == "" {
		if strings.HasPrefix(strings.TrimSpace(string(data)), "{") {
			ext = ".json"
		} else {
			ext = ".yaml"
		}
	}

	switch ext {
	case ".json":
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse json: %w", err)
		}
	case ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse yaml: %w", err)
		}
	default:
		return Config{}, fmt.Errorf("config: unsupported extension %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field ranges, normalizing nothing.
func (c Config) Validate() error {
	switch strings.ToLower(c.Protocol) {
	case "https", "ssh":
	default:
		return fmt.Errorf("config: protocol must be https or ssh, got %q", c.Protocol)
	}
	if c.Workers < 1 {
		return fmt.Errorf("config: workers must be >= 1, got %d", c.Workers)
	}
	if c.Root == "" {
		return fmt.Errorf("config: root must not be empty")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("config: log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}
