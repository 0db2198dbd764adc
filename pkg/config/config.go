package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env             string
	Port            int
	APIPrefix       string
	ShutdownTimeout time.Duration

	Database     DatabaseConfig
	Redis        RedisConfig
	CORS         CORSConfig
	Log          LogConfig
	Admin        AdminConfig
	Booking      BookingConfig
	Integrations IntegrationsConfig
	Zoom         ZoomConfig
	Resend       ResendConfig
	Notion       NotionConfig
	Discord      DiscordConfig
	Market       MarketConfig
	FollowUps    FollowUpConfig
	Reminders    ReminderConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// AdminConfig holds the shared dashboard password and session signing settings.
type AdminConfig struct {
	Password      string
	PasswordHash  string
	SessionSecret string
	SessionTTL    time.Duration
	Email         string
}

// BookingConfig tunes the public booking surface.
type BookingConfig struct {
	Timezone       string
	SlotsCacheTTL  time.Duration
	RateLimitRPS   float64
	RateLimitBurst int
}

// IntegrationsConfig bounds every call to an external collaborator.
type IntegrationsConfig struct {
	Timeout time.Duration
}

type ZoomConfig struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	APIURL       string
	OAuthURL     string
}

type ResendConfig struct {
	APIKey    string
	FromEmail string
	APIURL    string
}

type NotionConfig struct {
	APIKey     string
	DatabaseID string
	APIURL     string
}

type DiscordConfig struct {
	WebhookURL string
}

// MarketConfig configures the live crypto market feed.
type MarketConfig struct {
	CoinGeckoAPIKey string
	CoinGeckoURL    string
	FearGreedURL    string
	CacheTTL        time.Duration
}

// FollowUpConfig sizes the worker queue that runs post-booking side effects.
type FollowUpConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// ReminderConfig controls the periodic session reminder job.
type ReminderConfig struct {
	Enabled  bool
	Schedule string
	LeadTime time.Duration
	Window   time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")
	cfg.ShutdownTimeout = parseDuration(v.GetString("SHUTDOWN_TIMEOUT"), 15*time.Second)

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Enabled:  v.GetBool("ENABLE_CACHE"),
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Admin = AdminConfig{
		Password:      v.GetString("ADMIN_PASSWORD"),
		PasswordHash:  v.GetString("ADMIN_PASSWORD_HASH"),
		SessionSecret: v.GetString("ADMIN_SESSION_SECRET"),
		SessionTTL:    parseDuration(v.GetString("ADMIN_SESSION_TTL"), 24*time.Hour),
		Email:         v.GetString("ADMIN_EMAIL"),
	}

	cfg.Booking = BookingConfig{
		Timezone:       v.GetString("BOOKING_TIMEZONE"),
		SlotsCacheTTL:  parseDuration(v.GetString("BOOKING_SLOTS_CACHE_TTL"), 30*time.Second),
		RateLimitRPS:   v.GetFloat64("BOOKING_RATE_LIMIT_RPS"),
		RateLimitBurst: v.GetInt("BOOKING_RATE_LIMIT_BURST"),
	}

	cfg.Integrations = IntegrationsConfig{
		Timeout: parseDuration(v.GetString("INTEGRATION_TIMEOUT"), 10*time.Second),
	}

	cfg.Zoom = ZoomConfig{
		AccountID:    v.GetString("ZOOM_ACCOUNT_ID"),
		ClientID:     v.GetString("ZOOM_CLIENT_ID"),
		ClientSecret: v.GetString("ZOOM_CLIENT_SECRET"),
		APIURL:       v.GetString("ZOOM_API_URL"),
		OAuthURL:     v.GetString("ZOOM_OAUTH_URL"),
	}

	cfg.Resend = ResendConfig{
		APIKey:    v.GetString("RESEND_API_KEY"),
		FromEmail: v.GetString("RESEND_FROM_EMAIL"),
		APIURL:    v.GetString("RESEND_API_URL"),
	}

	cfg.Notion = NotionConfig{
		APIKey:     v.GetString("NOTION_API_KEY"),
		DatabaseID: v.GetString("NOTION_DATABASE_ID"),
		APIURL:     v.GetString("NOTION_API_URL"),
	}

	cfg.Discord = DiscordConfig{WebhookURL: v.GetString("DISCORD_WEBHOOK_URL")}

	cfg.Market = MarketConfig{
		CoinGeckoAPIKey: v.GetString("COINGECKO_API_KEY"),
		CoinGeckoURL:    v.GetString("COINGECKO_API_URL"),
		FearGreedURL:    v.GetString("FEAR_GREED_API_URL"),
		CacheTTL:        parseDuration(v.GetString("MARKET_CACHE_TTL"), 2*time.Minute),
	}

	cfg.FollowUps = FollowUpConfig{
		Workers:    v.GetInt("FOLLOWUP_WORKERS"),
		BufferSize: v.GetInt("FOLLOWUP_BUFFER"),
		MaxRetries: v.GetInt("FOLLOWUP_RETRIES"),
		RetryDelay: parseDuration(v.GetString("FOLLOWUP_RETRY_DELAY"), 5*time.Second),
	}

	cfg.Reminders = ReminderConfig{
		Enabled:  v.GetBool("ENABLE_REMINDERS"),
		Schedule: v.GetString("REMINDER_SCHEDULE"),
		LeadTime: parseDuration(v.GetString("REMINDER_LEAD_TIME"), time.Hour),
		Window:   parseDuration(v.GetString("REMINDER_WINDOW"), 5*time.Minute),
	}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "mentix")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("ENABLE_CACHE", false)
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ADMIN_PASSWORD", "")
	v.SetDefault("ADMIN_PASSWORD_HASH", "")
	v.SetDefault("ADMIN_SESSION_SECRET", "dev_admin_secret")
	v.SetDefault("ADMIN_SESSION_TTL", "24h")
	v.SetDefault("ADMIN_EMAIL", "admin@mentix.com")

	v.SetDefault("BOOKING_TIMEZONE", "UTC")
	v.SetDefault("BOOKING_SLOTS_CACHE_TTL", "30s")
	v.SetDefault("BOOKING_RATE_LIMIT_RPS", 1)
	v.SetDefault("BOOKING_RATE_LIMIT_BURST", 5)

	v.SetDefault("INTEGRATION_TIMEOUT", "10s")

	v.SetDefault("ZOOM_API_URL", "https://api.zoom.us/v2")
	v.SetDefault("ZOOM_OAUTH_URL", "https://zoom.us/oauth/token")
	v.SetDefault("RESEND_FROM_EMAIL", "Mentix Trading <onboarding@resend.dev>")
	v.SetDefault("RESEND_API_URL", "https://api.resend.com")
	v.SetDefault("NOTION_API_URL", "https://api.notion.com/v1")
	v.SetDefault("DISCORD_WEBHOOK_URL", "")

	v.SetDefault("COINGECKO_API_URL", "https://api.coingecko.com/api/v3")
	v.SetDefault("FEAR_GREED_API_URL", "https://api.alternative.me/fng/?limit=1")
	v.SetDefault("MARKET_CACHE_TTL", "2m")

	v.SetDefault("FOLLOWUP_WORKERS", 2)
	v.SetDefault("FOLLOWUP_BUFFER", 64)
	v.SetDefault("FOLLOWUP_RETRIES", 2)
	v.SetDefault("FOLLOWUP_RETRY_DELAY", "5s")

	v.SetDefault("ENABLE_REMINDERS", false)
	v.SetDefault("REMINDER_SCHEDULE", "*/5 * * * *")
	v.SetDefault("REMINDER_LEAD_TIME", "1h")
	v.SetDefault("REMINDER_WINDOW", "5m")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
