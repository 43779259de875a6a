package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. TASKFLOW_SERVER_PORT.
const EnvPrefix = "TASKFLOW"

// envKeys are bound explicitly so that Unmarshal sees them even when no
// default or config file entry exists.
var envKeys = []string{
	"server.port",
	"server.log_level",
	"server.shutdown_timeout_seconds",
	"database.url",
	"database.max_open_conns",
	"database.max_idle_conns",
	"database.conn_max_lifetime_minutes",
	"database.connect_attempts",
	"auth.jwt_secret",
	"auth.token_lifetime_minutes",
	"scheduler.enabled",
	"scheduler.recurrence_cron",
	"scheduler.retention_cron",
	"scheduler.retention_days",
	"scheduler.timezone",
	"mail.enabled",
	"mail.host",
	"mail.port",
	"mail.username",
	"mail.password",
	"mail.from",
	"realtime.send_buffer_size",
	"realtime.write_timeout_seconds",
	"realtime.pong_timeout_seconds",
	"realtime.allowed_origins",
	"jobs.worker_count",
	"jobs.queue_size",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.shutdown_timeout_seconds", 10)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime_minutes", 5)
	v.SetDefault("database.connect_attempts", 5)

	v.SetDefault("auth.token_lifetime_minutes", 60)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.recurrence_cron", "0 0 * * *")
	v.SetDefault("scheduler.retention_cron", "0 0 1 * *")
	v.SetDefault("scheduler.retention_days", 90)
	v.SetDefault("scheduler.timezone", "UTC")

	v.SetDefault("mail.enabled", false)
	v.SetDefault("mail.port", 587)

	v.SetDefault("realtime.send_buffer_size", 16)
	v.SetDefault("realtime.write_timeout_seconds", 10)
	v.SetDefault("realtime.pong_timeout_seconds", 60)

	v.SetDefault("jobs.worker_count", 2)
	v.SetDefault("jobs.queue_size", 100)
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("failed to bind environment variable for %s: %w", key, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
