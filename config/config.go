package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr      string `mapstructure:"REDIS_ADDR"`
	RedisPassword  string `mapstructure:"REDIS_PASSWORD"`
	RedisSessionDB int    `mapstructure:"REDIS_SESSION_DB"`
	RedisLockDB    int    `mapstructure:"REDIS_LOCK_DB"`
	RedisTaskDB    int    `mapstructure:"REDIS_TASK_DB"`

	// Responder (Gemini) configuration.
	GeminiAPIKey         string `mapstructure:"GEMINI_API_KEY"`
	ResponderTimeoutSecs int    `mapstructure:"RESPONDER_TIMEOUT_SECONDS"`
	MaxHistory           int    `mapstructure:"MAX_HISTORY"`
	EntryAgent           string `mapstructure:"ENTRY_AGENT"`

	// Scheduling configuration.
	ReferenceTimezone string `mapstructure:"REFERENCE_TIMEZONE"`
	CalendarID        string `mapstructure:"CALENDAR_ID"`

	// External endpoints.
	TicketServiceURL   string `mapstructure:"TICKET_SERVICE_URL"`
	ReminderWebhookURL string `mapstructure:"REMINDER_WEBHOOK_URL"`
	IntakeServiceURL   string `mapstructure:"INTAKE_SERVICE_URL"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_SESSION_DB", 0)
	viper.SetDefault("REDIS_LOCK_DB", 1)
	viper.SetDefault("REDIS_TASK_DB", 2)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("GEMINI_API_KEY", "")
	viper.SetDefault("RESPONDER_TIMEOUT_SECONDS", 20)
	viper.SetDefault("MAX_HISTORY", 40)
	viper.SetDefault("ENTRY_AGENT", "policy")
	viper.SetDefault("REFERENCE_TIMEZONE", "UTC")
	viper.SetDefault("CALENDAR_ID", "primary")
	viper.SetDefault("TICKET_SERVICE_URL", "http://ticket-service:8000/tickets")
	viper.SetDefault("REMINDER_WEBHOOK_URL", "")
	viper.SetDefault("INTAKE_SERVICE_URL", "")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
