package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server    ServerConfig    `mapstructure:"server" validate:"required"`
	Database  DatabaseConfig  `mapstructure:"database" validate:"required"`
	Auth      AuthConfig      `mapstructure:"auth" validate:"required"`
	Scheduler SchedulerConfig `mapstructure:"scheduler" validate:"required"`
	Mail      MailConfig      `mapstructure:"mail"`
	Realtime  RealtimeConfig  `mapstructure:"realtime" validate:"required"`
	Jobs      JobsConfig      `mapstructure:"jobs" validate:"required"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gt=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" validate:"gt=0"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gt=0"`
	// ConnectAttempts bounds how often startup retries the initial ping.
	ConnectAttempts int `mapstructure:"connect_attempts" validate:"gt=0"`
}

// AuthConfig contains token verification settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
}

// SchedulerConfig controls the recurring-task and audit-retention jobs.
// Cron expressions use the standard five-field format.
type SchedulerConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	RecurrenceCron string `mapstructure:"recurrence_cron" validate:"required"`
	RetentionCron  string `mapstructure:"retention_cron" validate:"required"`
	RetentionDays  int    `mapstructure:"retention_days" validate:"gt=0"`
	Timezone       string `mapstructure:"timezone" validate:"required"`
}

// MailConfig contains outbound SMTP settings. When Enabled is false,
// assignment emails are only logged.
type MailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host" validate:"required_if=Enabled true"`
	Port     int    `mapstructure:"port" validate:"gte=0,lt=65536"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from" validate:"required_if=Enabled true"`
}

// RealtimeConfig tunes websocket delivery.
type RealtimeConfig struct {
	SendBufferSize      int      `mapstructure:"send_buffer_size" validate:"gt=0"`
	WriteTimeoutSeconds int      `mapstructure:"write_timeout_seconds" validate:"gt=0"`
	PongTimeoutSeconds  int      `mapstructure:"pong_timeout_seconds" validate:"gt=0"`
	AllowedOrigins      []string `mapstructure:"allowed_origins"`
}

// JobsConfig sizes the background worker pool used for outbound email.
type JobsConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"gt=0"`
}
