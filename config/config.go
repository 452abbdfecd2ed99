package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	GeneralVersion       string        `mapstructure:"GENERAL_VERSION"`
	Environment          string        `mapstructure:"ENVIRONMENT"`
	ServerHost           string        `mapstructure:"SERVER_HOST"`
	ServerPort           int           `mapstructure:"SERVER_PORT"`
	ServerBodyLimitMB    int           `mapstructure:"SERVER_BODY_LIMIT_MB"`
	CorsAllowOrigins     string        `mapstructure:"CORS_ALLOW_ORIGINS"`
	DatabaseDbPath       string        `mapstructure:"DATABASE_DB_PATH"`
	DatabaseCacheAddress string        `mapstructure:"DATABASE_CACHE_ADDRESS"`
	DatabaseCachePort    int           `mapstructure:"DATABASE_CACHE_PORT"`
	TemplateCacheTTL     time.Duration `mapstructure:"TEMPLATE_CACHE_TTL"`
	ExportTempDir        string        `mapstructure:"EXPORT_TEMP_DIR"`
	LogLevel             string        `mapstructure:"LOG_LEVEL"`
	LogFormat            string        `mapstructure:"LOG_FORMAT"`
}

var defaults = map[string]any{
	"GENERAL_VERSION":        "0.1.0",
	"ENVIRONMENT":            "development",
	"SERVER_HOST":            "0.0.0.0",
	"SERVER_PORT":            8280,
	"SERVER_BODY_LIMIT_MB":   10,
	"CORS_ALLOW_ORIGINS":     "http://localhost:3000",
	"DATABASE_DB_PATH":       "data/surveys.db",
	"DATABASE_CACHE_ADDRESS": "",
	"DATABASE_CACHE_PORT":    6379,
	"TEMPLATE_CACHE_TTL":     "1h",
	"EXPORT_TEMP_DIR":        "",
	"LOG_LEVEL":              "info",
	"LOG_FORMAT":             "text",
}

// InitConfig reads an optional .env file, then config.yaml / environment
// variables, falling back to defaults for anything unset.
func InitConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c Config) Validate() error {
	if c.DatabaseDbPath == "" {
		return errors.New("DATABASE_DB_PATH is required")
	}

	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("SERVER_PORT %d is out of range", c.ServerPort)
	}

	return nil
}

func (c Config) CacheEnabled() bool {
	return c.DatabaseCacheAddress != "" && c.DatabaseCachePort != 0
}

func (c Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

func (c Config) TempDir() string {
	if c.ExportTempDir != "" {
		return c.ExportTempDir
	}
	return os.TempDir()
}
