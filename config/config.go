// Package config loads cmd/dcbdemo's configuration, grounded directly on
// Angelos-Zaimis-go-loadbalancer's config/config.go: viper defaults +
// config.yaml + environment overrides, validated with
// github.com/go-ozzo/ozzo-validation/v4. Library consumers embedding the
// breaker package in their own service do not need this package; it exists
// only to give the demo binary a realistic config story.
package config

import (
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/spf13/viper"
)

const (
	EnvDev  = "dev"
	EnvProd = "prod"
)

// RedisConfig configures the coordination store connection.
type RedisConfig struct {
	Addrs    []string `mapstructure:"addrs"`
	Password string   `mapstructure:"password"`
	DB       int      `mapstructure:"db"`
}

// CircuitConfig configures one circuit's policy knobs.
type CircuitConfig struct {
	ID                   string `mapstructure:"id"`
	Prefix               string `mapstructure:"prefix"`
	WindowSize           int    `mapstructure:"window_size"`
	ConsecutiveThreshold int    `mapstructure:"consecutive_threshold"`
	BackoffMinMs         int    `mapstructure:"backoff_min_ms"`
	BackoffMaxMs         int    `mapstructure:"backoff_max_ms"`
	IdleProbeIntervalMs  int64  `mapstructure:"idle_probe_interval_ms"`
}

// LoggingConfig configures the slog adapter.
type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

// Config is the demo binary's top-level configuration.
type Config struct {
	Environment string        `mapstructure:"environment"`
	Redis       RedisConfig   `mapstructure:"redis"`
	Circuit     CircuitConfig `mapstructure:"circuit"`
	Logging     LoggingConfig `mapstructure:"logging"`
}

// Load reads config.yaml from the given search paths (falling back to
// defaults and environment variables when no file is found), unmarshals,
// and validates the result.
func Load(searchPaths ...string) (*Config, error) {
	viper.SetDefault("environment", EnvDev)
	viper.SetDefault("redis.addrs", []string{"localhost:6379"})
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("circuit.id", "default")
	viper.SetDefault("circuit.prefix", "dcb")
	viper.SetDefault("circuit.window_size", 1000)
	viper.SetDefault("circuit.consecutive_threshold", 3)
	viper.SetDefault("circuit.backoff_min_ms", 100)
	viper.SetDefault("circuit.backoff_max_ms", 10000)
	viper.SetDefault("circuit.idle_probe_interval_ms", 0)
	viper.SetDefault("logging.level", "info")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	for _, p := range searchPaths {
		viper.AddConfigPath(p)
	}
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the recognized configuration options are sane.
func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Circuit, validation.Required),
	)
}
