package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// envBindings keeps the variable names the deployment already uses.
var envBindings = map[string]string{
	"server.port":             "SERVER_PORT",
	"server.log_level":        "LOG_LEVEL",
	"server.log_format":       "LOG_FORMAT",
	"database.user":           "DB_USER",
	"database.password":       "DB_PASSWORD",
	"database.host":           "DB_HOST",
	"database.port":           "DB_PORT",
	"database.name":           "DB_NAME",
	"database.sslmode":        "DB_SSLMODE",
	"database.max_open_conns": "DB_MAX_OPEN_CONNS",
	"database.max_idle_conns": "DB_MAX_IDLE_CONNS",
	"database.auto_migrate":   "DB_AUTO_MIGRATE",
	"events.enabled":          "EVENTS_ENABLED",
	"events.amqp_url":         "AMQP_URL",
	"events.topic":            "EVENTS_TOPIC",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.log_format", "json")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.auto_migrate", false)
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.amqp_url", "")
	v.SetDefault("events.topic", "customer_events")
}

// Load reads .env (when present), config.yaml (when present) and the
// environment, in increasing order of precedence, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("bind %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Events.Enabled && cfg.Events.AMQPURL == "" {
		return fmt.Errorf("invalid config: AMQP_URL is required when events are enabled")
	}
	return nil
}
