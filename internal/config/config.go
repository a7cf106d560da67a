package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	MarketData    MarketDataConfig    `mapstructure:"market_data"`
	Tracker       TrackerConfig       `mapstructure:"tracker"`
	Notifications NotificationsConfig `mapstructure:"notifications"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MarketDataConfig struct {
	ServiceURL    string `mapstructure:"service_url"`
	Timeout       int    `mapstructure:"timeout"`
	CacheTTLHours int    `mapstructure:"cache_ttl_hours"`
	LookbackDays  int    `mapstructure:"lookback_days"`
	MinWindowDays int    `mapstructure:"min_window_days"`
}

// TrackerConfig carries the permissive defaults applied when a note record
// leaves a threshold blank. Percent values, not fractions.
type TrackerConfig struct {
	DefaultKOPercent      float64 `mapstructure:"default_ko_percent"`
	DefaultKIPercent      float64 `mapstructure:"default_ki_percent"`
	DefaultStrikePercent  float64 `mapstructure:"default_strike_percent"`
	DefaultNonCallMonths  int     `mapstructure:"default_non_call_months"`
	MaxParallelEvaluators int     `mapstructure:"max_parallel_evaluators"`
}

type NotificationsConfig struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Email    EmailConfig    `mapstructure:"email"`
}

type TelegramConfig struct {
	BotToken    string `mapstructure:"bot_token"`
	AdminChatID int64  `mapstructure:"admin_chat_id"`
}

// EmailConfig selects the delivery provider: "mailgun", "smtp" or anything
// else for the logging mock.
type EmailConfig struct {
	Provider      string `mapstructure:"provider"`
	MailgunDomain string `mapstructure:"mailgun_domain"`
	MailgunAPIKey string `mapstructure:"mailgun_api_key"`
	SMTPServer    string `mapstructure:"smtp_server"`
	SMTPPort      int    `mapstructure:"smtp_port"`
	SMTPUser      string `mapstructure:"smtp_user"`
	SMTPPassword  string `mapstructure:"smtp_password"`
	SenderEmail   string `mapstructure:"sender_email"`
	SenderName    string `mapstructure:"sender_name"`
	AdminEmail    string `mapstructure:"admin_email"`
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./configs")
	viper.AddConfigPath(".")

	setDefaults()

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.BindEnv("notifications.email.mailgun_api_key", "MAILGUN_API_KEY"); err != nil {
		return nil, fmt.Errorf("failed to bind MAILGUN_API_KEY environment variable: %w", err)
	}
	if err := viper.BindEnv("notifications.telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)

	if config.MarketData.Timeout <= 0 {
		return nil, fmt.Errorf("market_data.timeout must be positive, got %d", config.MarketData.Timeout)
	}
	if config.Tracker.DefaultNonCallMonths < 0 {
		return nil, fmt.Errorf("tracker.default_non_call_months must not be negative, got %d", config.Tracker.DefaultNonCallMonths)
	}

	return &config, nil
}

// MarketDataTimeout returns the provider timeout as a duration.
func (c *Config) MarketDataTimeout() time.Duration {
	return time.Duration(c.MarketData.Timeout) * time.Second
}

func setDefaults() {
	// Environment
	viper.SetDefault("environment", "development")
	viper.SetDefault("log_level", "info")

	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database
	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "postgres")
	viper.SetDefault("database.password", "postgres")
	viper.SetDefault("database.dbname", "eln_tracker")
	viper.SetDefault("database.sslmode", "disable")

	// Redis
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// Market data provider
	viper.SetDefault("market_data.service_url", "https://query1.finance.yahoo.com")
	viper.SetDefault("market_data.timeout", 30)
	viper.SetDefault("market_data.cache_ttl_hours", 12)
	viper.SetDefault("market_data.lookback_days", 30)
	viper.SetDefault("market_data.min_window_days", 14)

	// Tracker defaults for blank note fields
	viper.SetDefault("tracker.default_ko_percent", 100.0)
	viper.SetDefault("tracker.default_ki_percent", 60.0)
	viper.SetDefault("tracker.default_strike_percent", 100.0)
	viper.SetDefault("tracker.default_non_call_months", 1)
	viper.SetDefault("tracker.max_parallel_evaluators", 4)

	// Notifications
	viper.SetDefault("notifications.telegram.bot_token", "")
	viper.SetDefault("notifications.telegram.admin_chat_id", 0)
	viper.SetDefault("notifications.email.provider", "mock")
	viper.SetDefault("notifications.email.smtp_port", 587)
	viper.SetDefault("notifications.email.sender_name", "ELN Tracker")
}
