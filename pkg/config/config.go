package config

import (
	"fmt"
	"time"
)

// Config holds runtime configuration for the bot.
type Config struct {
	AppEnv    string          `mapstructure:"-"`
	App       AppConfig       `mapstructure:"app"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	Sentry    SentryConfig    `mapstructure:"sentry"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Bot       BotConfig       `mapstructure:"bot"`
	Whapi     WhapiConfig     `mapstructure:"whapi"`
	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Language  LanguageConfig  `mapstructure:"language"`
	Payment   PaymentConfig   `mapstructure:"payment"`
	State     StateConfig     `mapstructure:"state"`
	Catalog   CatalogConfig   `mapstructure:"catalog"`
	Media     MediaConfig     `mapstructure:"media"`
	Events    EventsConfig    `mapstructure:"events"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Jobs      JobsConfig      `mapstructure:"jobs"`
}

type AppConfig struct {
	Name         string `mapstructure:"name" validate:"required"`
	BusinessName string `mapstructure:"business_name"`
}

type LoggerConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format     string `mapstructure:"format" validate:"oneof=json text"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `mapstructure:"max_backups" validate:"gte=0"`
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"gte=0"`
}

type SentryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	DSN         string  `mapstructure:"dsn" validate:"required_if=Enabled true"`
	Environment string  `mapstructure:"environment"`
	SampleRate  float64 `mapstructure:"sample_rate" validate:"gte=0,lte=1"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrateOnStart  bool          `mapstructure:"migrate_on_start"`
}

type RedisConfig struct {
	Addr         string        `mapstructure:"addr" validate:"required"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db" validate:"gte=0"`
	PoolSize     int           `mapstructure:"pool_size" validate:"gte=0"`
	MinIdleConns int           `mapstructure:"min_idle_conns" validate:"gte=0"`
	PoolTimeout  time.Duration `mapstructure:"pool_timeout"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

// BotConfig tunes conversation behavior.
type BotConfig struct {
	Channel               string        `mapstructure:"channel" validate:"oneof=whapi telegram"`
	Greetings             []string      `mapstructure:"greetings" validate:"min=1,dive,required"`
	BaseURL               string        `mapstructure:"base_url" validate:"omitempty,url"`
	ConfirmationWaitHours string        `mapstructure:"confirmation_wait_hours" validate:"required"`
	LockWait              time.Duration `mapstructure:"lock_wait"`
}

type WhapiConfig struct {
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`
	Token       string        `mapstructure:"token"`
	VerifyToken string        `mapstructure:"verify_token"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

type TelegramConfig struct {
	Token       string        `mapstructure:"token"`
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
}

type LanguageConfig struct {
	APIKey       string        `mapstructure:"api_key" validate:"required"`
	BaseURL      string        `mapstructure:"base_url" validate:"omitempty,url"`
	ChatModel    string        `mapstructure:"chat_model"`
	WhisperModel string        `mapstructure:"whisper_model"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

type PaymentConfig struct {
	EasyPaisa EasyPaisaConfig `mapstructure:"easypaisa"`
}

type EasyPaisaConfig struct {
	AccountName   string `mapstructure:"account_name" validate:"required"`
	AccountNumber string `mapstructure:"account_number" validate:"required"`
	QRImageURL    string `mapstructure:"qr_image_url"`
}

type StateConfig struct {
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	KeyTTL     time.Duration `mapstructure:"key_ttl"`
}

type CatalogConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type MediaConfig struct {
	StoragePath string        `mapstructure:"storage_path" validate:"required"`
	MaxAge      time.Duration `mapstructure:"max_age"`
	AudioDir    string        `mapstructure:"audio_dir"`
	MaxBytes    int64         `mapstructure:"max_bytes" validate:"gte=0"`
}

type EventsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	URL      string `mapstructure:"url" validate:"required_if=Enabled true"`
	Exchange string `mapstructure:"exchange" validate:"required_if=Enabled true"`
}

type RateLimitConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Limit     int           `mapstructure:"limit" validate:"gte=0"`
	Window    time.Duration `mapstructure:"window"`
	Whitelist []string      `mapstructure:"whitelist"`
}

type JobsConfig struct {
	Enabled                 bool   `mapstructure:"enabled"`
	Concurrency             int    `mapstructure:"concurrency" validate:"gte=0"`
	MediaCleanupCron        string `mapstructure:"media_cleanup_cron"`
	ConversationCleanupCron string `mapstructure:"conversation_cleanup_cron"`
	KeySweepCron            string `mapstructure:"key_sweep_cron"`
}

// check covers rules that span sections.
func (c *Config) check() error {
	switch c.Bot.Channel {
	case "whapi":
		if c.Whapi.Token == "" {
			return fmt.Errorf("whapi.token is required when bot.channel is whapi")
		}
	case "telegram":
		if c.Telegram.Token == "" {
			return fmt.Errorf("telegram.token is required when bot.channel is telegram")
		}
	}

	return nil
}
