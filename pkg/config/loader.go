// Package config provides configuration loading and validation utilities.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from YAML files and environment variables, validates it, and returns the resulting Config.
func Load() (*Config, *viper.Viper, error) {
	// Missing env files are fine; the process environment may already be set.
	_ = godotenv.Load(".env.local", ".env")

	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "development"
	}

	v := viper.New()
	v.SetConfigFile(fmt.Sprintf("./configs/%s.yaml", env))
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.BindEnv("language.api_key", "LANGUAGE_API_KEY", "GROQ_API_KEY"); err != nil {
		return nil, nil, fmt.Errorf("bind env: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, nil, fmt.Errorf("read config: %w", err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, nil, err
	}
	cfg.AppEnv = env

	return cfg, v, nil
}

// Watch reloads the config file on change and hands the validated result to fn.
// Invalid edits are reported through onError and otherwise ignored.
func Watch(v *viper.Viper, fn func(*Config), onError func(error)) {
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}

		cfg, err := decode(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		fn(cfg)
	})
	v.WatchConfig()
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.check(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "bazaar-bot")
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")
	v.SetDefault("logger.max_size_mb", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age_days", 28)
	v.SetDefault("sentry.sample_rate", 1.0)

	v.SetDefault("server.addr", ":3000")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.migrate_on_start", true)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("bot.channel", "whapi")
	v.SetDefault("bot.greetings", []string{"wwwwaaa"})
	v.SetDefault("bot.base_url", "")
	v.SetDefault("bot.confirmation_wait_hours", "1-3")
	v.SetDefault("bot.lock_wait", 5*time.Second)

	v.SetDefault("whapi.base_url", "https://gate.whapi.cloud")
	v.SetDefault("whapi.token", "")
	v.SetDefault("whapi.verify_token", "")
	v.SetDefault("whapi.timeout", 15*time.Second)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.poll_timeout", 10*time.Second)

	v.SetDefault("language.base_url", "https://api.groq.com/openai/v1")
	v.SetDefault("language.chat_model", "llama-3.3-70b-versatile")
	v.SetDefault("language.whisper_model", "whisper-large-v3-turbo")
	v.SetDefault("language.timeout", 30*time.Second)

	v.SetDefault("payment.easypaisa.account_name", "")
	v.SetDefault("payment.easypaisa.account_number", "")
	v.SetDefault("payment.easypaisa.qr_image_url", "")

	v.SetDefault("state.session_ttl", 24*time.Hour)
	v.SetDefault("state.key_ttl", 0)
	v.SetDefault("catalog.cache_ttl", time.Minute)

	v.SetDefault("media.storage_path", "./uploads")
	v.SetDefault("media.max_age", 7*24*time.Hour)
	v.SetDefault("media.audio_dir", "./public/audio")
	v.SetDefault("media.max_bytes", 16<<20)

	v.SetDefault("events.enabled", false)
	v.SetDefault("events.url", "")
	v.SetDefault("events.exchange", "bazaar.events")

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.limit", 20)
	v.SetDefault("ratelimit.window", time.Minute)

	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.concurrency", 5)
	v.SetDefault("jobs.media_cleanup_cron", "0 3 * * *")
	v.SetDefault("jobs.conversation_cleanup_cron", "0 * * * *")
	v.SetDefault("jobs.key_sweep_cron", "*/15 * * * *")
}
