// Package config loads the service's environment-driven configuration
// using viper, trimmed to the fields the optimizer service actually reads
// — no database, JWT, or third-party API keys, since this service has no
// persistence or auth surface.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	RedisURL string `mapstructure:"REDIS_URL"`

	DefaultTopN   int           `mapstructure:"DEFAULT_TOP_N"`
	MaxTopN       int           `mapstructure:"MAX_TOP_N"`
	SearchTimeout time.Duration `mapstructure:"SEARCH_TIMEOUT"`
	SearchWorkers int           `mapstructure:"SEARCH_WORKERS"`

	CacheTTL time.Duration `mapstructure:"CACHE_TTL"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("REDIS_URL", "redis://localhost:6379/2")
	viper.SetDefault("DEFAULT_TOP_N", 5)
	viper.SetDefault("MAX_TOP_N", 100)
	viper.SetDefault("SEARCH_TIMEOUT", "30s")
	viper.SetDefault("SEARCH_WORKERS", 0) // 0 => runtime.NumCPU()
	viper.SetDefault("CACHE_TTL", "1h")

	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
