package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the engine
type Config struct {
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Remote  RemoteConfig  `yaml:"remote"`
	Push    PushConfig    `yaml:"push"`
	Ping    PingConfig    `yaml:"ping"`
	Log     LogConfig     `yaml:"log"`
}

// APIConfig holds the loopback HTTP API configuration
type APIConfig struct {
	Host  string `yaml:"host"`
	Port  int    `yaml:"port"`
	Token string `yaml:"token"` // shared secret the UI shell presents
}

// StorageConfig holds the device store configuration
type StorageConfig struct {
	Type string `yaml:"type"` // sqlite (default) or memory
	Path string `yaml:"path"`
}

// RemoteConfig holds the directory-service configuration
type RemoteConfig struct {
	BaseURL string `yaml:"base_url"`
	WSURL   string `yaml:"ws_url"`
	Token   string `yaml:"token"`
}

// PushConfig holds the APNs configuration
type PushConfig struct {
	Enabled bool   `yaml:"enabled"`
	KeyPath string `yaml:"key_path"`
	KeyID   string `yaml:"key_id"`
	TeamID  string `yaml:"team_id"`
	Topic   string `yaml:"topic"`
}

// PingConfig holds ping policy configuration
type PingConfig struct {
	// Cooldown is the minimum wait between pings to the same friend.
	// Zero disables the cooldown.
	Cooldown time.Duration `yaml:"cooldown"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if cfg.API.Host == "" {
		cfg.API.Host = "127.0.0.1"
	}
	if cfg.API.Port == 0 {
		cfg.API.Port = 7411
	}
	if cfg.Storage.Path == "" {
		cfg.Storage.Path = "mindping.db"
	}

	return &cfg, nil
}

// Addr returns the loopback API listen address
func (c *APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
