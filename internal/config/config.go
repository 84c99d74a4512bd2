// Package config loads server configuration from file and environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete DocuVault server configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Auth    AuthConfig    `mapstructure:"auth"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig controls the HTTP listener and datastore location.
type ServerConfig struct {
	// ListenAddr is the TCP address the API binds to.
	ListenAddr string `mapstructure:"listen_addr"`
	// DataDir is where the SQLite database lives.
	DataDir string `mapstructure:"data_dir"`
	// AllowedOrigins restricts websocket upgrades. Empty allows any.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// AuthConfig controls session token verification.
type AuthConfig struct {
	// JWTSecret signs and verifies session tokens (HMAC).
	JWTSecret string `mapstructure:"jwt_secret"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level"`
}

// setDefaults registers every configuration default in one place.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8090")
	v.SetDefault("server.data_dir", "./data")
	v.SetDefault("server.allowed_origins", []string{})
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("logging.level", "info")
}

// Load reads configuration from the given file (optional) and from
// DOCUVAULT_* environment variables, with env taking precedence.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("DOCUVAULT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.ListenAddr == "" {
		return fmt.Errorf("server.listen_addr must not be empty")
	}
	if c.Server.DataDir == "" {
		return fmt.Errorf("server.data_dir must not be empty")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must be set")
	}
	return nil
}
