// Package config loads cuitarget settings from defaults, a config file and
// CT_ environment variables.
package config

import (
	"time"
)

// ServerConfig holds settings for the gRPC targeting service.
type ServerConfig struct {
	Host           string
	Port           int
	MaxConnections int
	RequestTimeout time.Duration
	// MaxResults caps the targets returned by a single Select call.
	MaxResults int
}

// DatabaseConfig locates the concept store.
type DatabaseConfig struct {
	URL string
}

// LogConfig selects the zerolog level and output format.
type LogConfig struct {
	Level  string
	Format string
}

// Config is the full application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Log      LogConfig
	// Selector is the default filter set, in the {targets, options} shape.
	// Keys arrive lower-cased from viper.
	Selector map[string]any
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50051,
			MaxConnections: 1000,
			RequestTimeout: 30 * time.Second,
			MaxResults:     10000,
		},
		Database: DatabaseConfig{URL: "sqlite://cuitarget.db"},
		Log:      LogConfig{Level: "info", Format: "json"},
	}
}
