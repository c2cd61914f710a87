// Package config loads the engine configuration from a YAML or JSON file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration.
type Config struct {
	Database DatabaseConfig `json:"database" yaml:"database"`
	Server   ServerConfig   `json:"server" yaml:"server"`
	Eval     EvalConfig     `json:"eval" yaml:"eval"`
}

// DatabaseConfig locates the SQLite file shared by the series store and the
// calculation registry.
type DatabaseConfig struct {
	Path string `json:"path" yaml:"path"`
}

// ServerConfig contains the HTTP API parameters.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`
}

// EvalConfig contains evaluation and listing limits.
type EvalConfig struct {
	MaxDepth  int `json:"max_depth" yaml:"max_depth"`
	ListLimit int `json:"list_limit" yaml:"list_limit"`
}

// LoadFromFile loads configuration from a file (YAML or JSON).
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension).
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if c.Eval.MaxDepth <= 0 {
		return fmt.Errorf("eval.max_depth must be positive")
	}
	if c.Eval.ListLimit <= 0 {
		return fmt.Errorf("eval.list_limit must be positive")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path: "./zdmt.sqlite",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Eval: EvalConfig{
			MaxDepth:  32,
			ListLimit: 100,
		},
	}
}
