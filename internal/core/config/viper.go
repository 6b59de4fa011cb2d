package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CT_SERVER_PORT.
const EnvPrefix = "CT"

// LoadConfig reads configPath (optional) over the defaults, then applies CT_
// environment overrides. Flag overrides are applied by the caller.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("server.host", def.Server.Host)
	v.SetDefault("server.port", def.Server.Port)
	v.SetDefault("server.max_connections", def.Server.MaxConnections)
	v.SetDefault("server.request_timeout", def.Server.RequestTimeout.String())
	v.SetDefault("server.max_results", def.Server.MaxResults)
	v.SetDefault("database.url", def.Database.URL)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// checked before env binding so only the file's own value is seen
		if err := validateNoCredentialsInFile(v); err != nil {
			return nil, err
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			MaxConnections: v.GetInt("server.max_connections"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			MaxResults:     v.GetInt("server.max_results"),
		},
		Database: DatabaseConfig{URL: v.GetString("database.url")},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
	}
	if v.IsSet("selector") {
		cfg.Selector = v.GetStringMap("selector")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and formats.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive, got %d", c.Server.MaxConnections)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", c.Server.RequestTimeout)
	}
	if c.Server.MaxResults <= 0 {
		return fmt.Errorf("max_results must be positive, got %d", c.Server.MaxResults)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database url must not be empty")
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("log format must be json or text, got %q", c.Log.Format)
	}
	return nil
}

// validateNoCredentialsInFile keeps database passwords out of config files.
func validateNoCredentialsInFile(v *viper.Viper) error {
	if !v.InConfig("database.url") {
		return nil
	}
	u, err := url.Parse(v.GetString("database.url"))
	if err != nil {
		return fmt.Errorf("invalid database url in config file: %w", err)
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		return fmt.Errorf("database passwords not allowed in config files (use %s_DATABASE_URL environment variable)", EnvPrefix)
	}
	return nil
}
