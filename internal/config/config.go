// Package config loads the rawmap command configuration.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the rawmap command configuration.
type Config struct {
	// Driver is the database/sql driver: "sqlite" or "postgres".
	Driver string `mapstructure:"driver"`
	// DSN is handed to sql.Open unchanged.
	DSN string `mapstructure:"dsn"`
	// Output is the instance encoding: "json" or "yaml".
	Output string        `mapstructure:"output"`
	Log    LoggingConfig `mapstructure:"log"`
}

// LoggingConfig controls diagnostic output on stderr.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		Driver: "sqlite",
		Output: "json",
		Log: LoggingConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Load reads configuration from path, or from rawmap.{yaml,toml,json} in the
// working directory when path is empty, then applies RAWMAP_* environment
// variables (RAWMAP_DSN, RAWMAP_LOG_LEVEL, ...). A missing default config
// file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()

	def := DefaultConfig()
	v.SetDefault("driver", def.Driver)
	v.SetDefault("dsn", def.DSN)
	v.SetDefault("output", def.Output)
	v.SetDefault("log.level", def.Log.Level)
	v.SetDefault("log.format", def.Log.Format)

	v.SetEnvPrefix("RAWMAP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("rawmap")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported driver %q (want sqlite or postgres)", c.Driver)
	}
	switch c.Output {
	case "json", "yaml":
	default:
		return fmt.Errorf("unsupported output %q (want json or yaml)", c.Output)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q (want text or json)", c.Log.Format)
	}
	if c.DSN == "" {
		return fmt.Errorf("dsn is required")
	}
	return nil
}
