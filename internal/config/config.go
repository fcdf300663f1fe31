package config

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"   validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth"     validate:"required"`
	LLM      LLMConfig      `mapstructure:"llm"      validate:"required"`
	Task     TaskConfig     `mapstructure:"task"`
	Media    MediaConfig    `mapstructure:"media"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	Mail     MailConfig     `mapstructure:"mail"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Rollbar  RollbarConfig  `mapstructure:"rollbar"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port"                     validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level"                validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=1"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL string `mapstructure:"url" validate:"required,url"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret                   string `mapstructure:"jwt_secret"                     validate:"required,min=32"`
	TokenLifetimeMinutes        int    `mapstructure:"token_lifetime_minutes"         validate:"gt=0,lte=44640"`
	RefreshTokenLifetimeMinutes int    `mapstructure:"refresh_token_lifetime_minutes" validate:"gt=0,lte=129600"`
	BCryptCost                  int    `mapstructure:"bcrypt_cost"                    validate:"gte=4,lte=31"`
}

// LLMConfig contains settings for the assessment model.
type LLMConfig struct {
	GeminiAPIKey      string `mapstructure:"gemini_api_key"      validate:"required"`
	ModelName         string `mapstructure:"model_name"          validate:"required"`
	MaxRetries        int    `mapstructure:"max_retries"         validate:"gte=0,lte=5"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=1,lte=60"`
}

// TaskConfig controls the background task runner.
type TaskConfig struct {
	QueueSize           int `mapstructure:"queue_size"             validate:"gte=1"`
	WorkerCount         int `mapstructure:"worker_count"           validate:"gte=1"`
	StuckTaskAgeMinutes int `mapstructure:"stuck_task_age_minutes" validate:"gte=1"`
}

// MediaConfig points at the directory holding uploaded videos and audio.
type MediaConfig struct {
	Root        string `mapstructure:"root"          validate:"required"`
	MaxUploadMB int64  `mapstructure:"max_upload_mb" validate:"gte=1"`
}

// ReminderConfig schedules the daily vocabulary review reminder.
type ReminderConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	At      string `mapstructure:"at"      validate:"required,datetime=15:04"`
}

// MailConfig configures outgoing e-mail. An empty key disables e-mail delivery.
type MailConfig struct {
	SendGridAPIKey string `mapstructure:"sendgrid_api_key"`
	FromAddress    string `mapstructure:"from_address"     validate:"omitempty,email"`
	FromName       string `mapstructure:"from_name"`
}

// TelegramConfig enables reminders through a Telegram bot when a token is set.
type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token"`
}

// RollbarConfig enables error reporting when a token is set.
type RollbarConfig struct {
	Token       string `mapstructure:"token"`
	Environment string `mapstructure:"environment"`
}
