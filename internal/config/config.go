// Package config loads the service configuration from the environment,
// an optional .env file and an optional config.yaml.
package config

import (
	"fmt"
	"net/url"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Events   EventsConfig   `mapstructure:"events"`
}

type ServerConfig struct {
	Port      int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel  string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	LogFormat string `mapstructure:"log_format" validate:"required,oneof=json console"`
}

type DatabaseConfig struct {
	User         string `mapstructure:"user" validate:"required"`
	Password     string `mapstructure:"password"`
	Host         string `mapstructure:"host" validate:"required"`
	Port         int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	Name         string `mapstructure:"name" validate:"required"`
	SSLMode      string `mapstructure:"sslmode" validate:"required,oneof=disable require verify-ca verify-full"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	AutoMigrate  bool   `mapstructure:"auto_migrate"`
}

// EventsConfig controls customer lifecycle events. With Enabled false the
// server publishes to an in-process queue instead of RabbitMQ.
type EventsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	AMQPURL string `mapstructure:"amqp_url" validate:"omitempty,url"`
	Topic   string `mapstructure:"topic" validate:"required"`
}

// DSN builds the lib/pq connection URL.
func (c DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     c.Name,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}
