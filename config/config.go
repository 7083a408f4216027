package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	TransportAsynq = "asynq"
	TransportFCM   = "fcm"
	TransportLog   = "log"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	Env               string `mapstructure:"ENV"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	TracingEnabled    bool   `mapstructure:"TRACING_ENABLED"`

	// Storage.
	StoreBackend string `mapstructure:"STORE_BACKEND"`
	DatabaseURL  string `mapstructure:"DATABASE_URL"`
	DatabaseName string `mapstructure:"DATABASE_NAME"`
	PostgresDSN  string `mapstructure:"POSTGRES_DSN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisLockDB   int    `mapstructure:"REDIS_LOCK_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Attribution engine.
	AttributionTTL       time.Duration `mapstructure:"ATTRIBUTION_TTL"`
	DefaultMaxDistanceKm float64       `mapstructure:"DEFAULT_MAX_DISTANCE_KM"`
	BlacklistThreshold   int           `mapstructure:"BLACKLIST_THRESHOLD"`
	ExpirySweepSchedule  string        `mapstructure:"EXPIRY_SWEEP_SCHEDULE"`

	// Notifications.
	NotifyQueueSize         int    `mapstructure:"NOTIFY_QUEUE_SIZE"`
	NotifyWorkers           int    `mapstructure:"NOTIFY_WORKERS"`
	NotifyTransport         string `mapstructure:"NOTIFY_TRANSPORT"`
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`

	StripeWebhookSecret string `mapstructure:"STRIPE_WEBHOOK_SECRET"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 100)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("TRACING_ENABLED", false)
	v.SetDefault("STORE_BACKEND", StoreMongo)
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	v.SetDefault("DATABASE_NAME", "moveo")
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_LOCK_DB", 0)
	v.SetDefault("REDIS_QUEUE_DB", 1)
	v.SetDefault("ATTRIBUTION_TTL", "15m")
	v.SetDefault("DEFAULT_MAX_DISTANCE_KM", 50.0)
	v.SetDefault("BLACKLIST_THRESHOLD", 2)
	v.SetDefault("EXPIRY_SWEEP_SCHEDULE", "@every 30s")
	v.SetDefault("NOTIFY_QUEUE_SIZE", 1024)
	v.SetDefault("NOTIFY_WORKERS", 4)
	v.SetDefault("NOTIFY_TRANSPORT", TransportLog)
	v.SetDefault("FIREBASE_CREDENTIALS_FILE", "")
	v.SetDefault("STRIPE_WEBHOOK_SECRET", "")
}

// Load reads .env, then config.yaml (current or ./config directory), then
// the environment. Later sources win.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("No .env file found, using environment variables only")
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case StoreMongo:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the mongo store")
		}
	case StorePostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}
	switch c.NotifyTransport {
	case TransportAsynq, TransportLog:
	case TransportFCM:
		if c.FirebaseCredentialsFile == "" {
			return errors.New("FIREBASE_CREDENTIALS_FILE is required for the fcm transport")
		}
	default:
		return fmt.Errorf("unknown NOTIFY_TRANSPORT %q", c.NotifyTransport)
	}
	if c.AttributionTTL <= 0 {
		return errors.New("ATTRIBUTION_TTL must be positive")
	}
	if c.DefaultMaxDistanceKm <= 0 {
		return errors.New("DEFAULT_MAX_DISTANCE_KM must be positive")
	}
	if c.BlacklistThreshold <= 0 {
		return errors.New("BLACKLIST_THRESHOLD must be positive")
	}
	if c.MaxRequestsPerMin <= 0 {
		return errors.New("MAX_REQUESTS_PER_MIN must be positive")
	}
	if c.IsProduction() && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}
