package config

import (
	"fmt"
	"strings"
	"time"

	"stockwatch/internal/common"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Store    StoreConfig    `mapstructure:"store"`
	Run      RunConfig      `mapstructure:"run"`
	Timeouts TimeoutsConfig `mapstructure:"timeouts"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Redis    RedisConfig    `mapstructure:"redis"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Source   SourceConfig   `mapstructure:"source"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Health   HealthConfig   `mapstructure:"health"`
	Log      LogConfig      `mapstructure:"log"`
}

// StoreConfig identifies the store context being watched.
type StoreConfig struct {
	Pincode string `mapstructure:"pincode"`
	ID      string `mapstructure:"id"`
}

// RunConfig holds per-run behaviour.
type RunConfig struct {
	ForceNotify bool `mapstructure:"force_notify"`
}

// TimeoutsConfig bounds each collaborator call (milliseconds for YAML/env compat).
type TimeoutsConfig struct {
	SourceMS int `mapstructure:"source_ms"`
	StoreMS  int `mapstructure:"store_ms"`
	SinkMS   int `mapstructure:"sink_ms"`
}

// Source returns the snapshot source timeout.
func (t TimeoutsConfig) Source() time.Duration { return time.Duration(t.SourceMS) * time.Millisecond }

// Store returns the state store timeout.
func (t TimeoutsConfig) Store() time.Duration { return time.Duration(t.StoreMS) * time.Millisecond }

// Sink returns the notification sink timeout.
func (t TimeoutsConfig) Sink() time.Duration { return time.Duration(t.SinkMS) * time.Millisecond }

// StorageConfig selects the state backend.
type StorageConfig struct {
	Driver    string `mapstructure:"driver"`
	Namespace string `mapstructure:"namespace"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	DB          int    `mapstructure:"db"`
	Password    string `mapstructure:"password"`
	SSL         bool   `mapstructure:"ssl"`
	StateTTLSec int    `mapstructure:"state_ttl_sec"`
}

// SQLiteConfig holds SQLite settings.
type SQLiteConfig struct {
	Path          string `mapstructure:"path"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"`
}

// SupabaseConfig holds Supabase project settings. The postgrest driver reads
// URL as the PostgREST endpoint and ServiceKey as an optional bearer token.
type SupabaseConfig struct {
	URL        string `mapstructure:"url"`
	ServiceKey string `mapstructure:"service_key"`
}

// TelegramConfig holds Telegram delivery settings.
type TelegramConfig struct {
	BotToken          string  `mapstructure:"bot_token"`
	ChannelID         string  `mapstructure:"channel_id"`
	APIURL            string  `mapstructure:"api_url"`
	DisablePreview    bool    `mapstructure:"disable_preview"`
	MessagesPerSecond float64 `mapstructure:"messages_per_second"`
}

// Configured reports whether delivery credentials are present.
func (t TelegramConfig) Configured() bool {
	return strings.TrimSpace(t.BotToken) != "" && strings.TrimSpace(t.ChannelID) != ""
}

// SourceConfig selects the snapshot source.
type SourceConfig struct {
	Driver   string `mapstructure:"driver"`
	BaseURL  string `mapstructure:"base_url"`
	Category string `mapstructure:"category"`
	Limit    int    `mapstructure:"limit"`
	File     string `mapstructure:"file"`
}

// MetricsConfig holds Pushgateway settings. An empty URL disables pushing.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// HealthConfig holds health check settings.
type HealthConfig struct {
	TimestampFile string `mapstructure:"timestamp_file"`
	MaxAgeSec     int    `mapstructure:"max_age_sec"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from config.yaml and environment variables.
// Environment variables use the STOCKWATCH_ prefix and underscore separators.
// Example: STOCKWATCH_REDIS_HOST overrides redis.host in config.yaml.
// A non-empty path loads that file instead of searching for config.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Config file settings
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Load .env file if it exists
	_ = godotenv.Load()

	// Environment variable settings
	v.SetEnvPrefix("STOCKWATCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional, env vars can provide everything)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.pincode", "110001")
	v.SetDefault("store.id", "delhi")
	v.SetDefault("run.force_notify", false)
	v.SetDefault("timeouts.source_ms", 30000)
	v.SetDefault("timeouts.store_ms", 3000)
	v.SetDefault("timeouts.sink_ms", 10000)
	v.SetDefault("storage.driver", "redis")
	v.SetDefault("storage.namespace", "stockwatch:")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.ssl", false)
	v.SetDefault("redis.state_ttl_sec", 0)
	v.SetDefault("sqlite.path", "data/stockwatch.db")
	v.SetDefault("sqlite.busy_timeout_ms", 5000)
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.service_key", "")
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.channel_id", "")
	v.SetDefault("telegram.api_url", "")
	v.SetDefault("telegram.disable_preview", false)
	v.SetDefault("telegram.messages_per_second", 1)
	v.SetDefault("source.driver", "http")
	v.SetDefault("source.base_url", "https://shop.amul.com")
	v.SetDefault("source.category", "protein")
	v.SetDefault("source.limit", 100)
	v.SetDefault("source.file", "")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "stockwatch")
	v.SetDefault("health.timestamp_file", ".last_fetch_timestamp")
	v.SetDefault("health.max_age_sec", 900) // 15 minutes
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the settings every run needs.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Store.Pincode) == "" {
		return common.NewValidationError("store.pincode is required")
	}
	if c.Timeouts.SourceMS <= 0 || c.Timeouts.StoreMS <= 0 || c.Timeouts.SinkMS <= 0 {
		return common.NewValidationError("timeouts must be positive")
	}

	switch strings.ToLower(c.Storage.Driver) {
	case "redis", "":
		if c.Redis.Host == "" || c.Redis.Port <= 0 {
			return common.NewValidationError("redis.host and redis.port are required for the redis driver")
		}
		if c.Redis.DB < 0 {
			return common.NewValidationError("redis.db must not be negative")
		}
	case "sqlite", "sqlite3":
		if c.SQLite.Path == "" {
			return common.NewValidationError("sqlite.path is required for the sqlite driver")
		}
	case "supabase":
		if c.Supabase.URL == "" || c.Supabase.ServiceKey == "" {
			return common.NewValidationError("supabase.url and supabase.service_key are required for the supabase driver")
		}
	case "postgrest":
		if c.Supabase.URL == "" {
			return common.NewValidationError("supabase.url is required for the postgrest driver")
		}
	case "memory":
	default:
		return common.NewValidationError(fmt.Sprintf("unsupported storage.driver: %s", c.Storage.Driver))
	}

	switch strings.ToLower(c.Source.Driver) {
	case "http", "":
	case "file":
		if c.Source.File == "" {
			return common.NewValidationError("source.file is required for the file source")
		}
	default:
		return common.NewValidationError(fmt.Sprintf("unsupported source.driver: %s", c.Source.Driver))
	}

	return nil
}
