package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yungbote/groupcart-backend/internal/data/db"
	"github.com/yungbote/groupcart-backend/internal/platform/envutil"
	"github.com/yungbote/groupcart-backend/internal/platform/logger"
)

const (
	FulfillmentHTTP  = "http"
	FulfillmentKafka = "kafka"
)

type Config struct {
	ServiceName string   `yaml:"service_name"`
	Environment string   `yaml:"environment"`
	Version     string   `yaml:"version"`
	HTTPAddr    string   `yaml:"http_addr"`
	LogMode     string   `yaml:"log_mode"`
	CORSOrigins []string `yaml:"cors_origins"`

	DB          db.Config         `yaml:"db"`
	Redis       RedisConfig       `yaml:"redis"`
	Auth        AuthConfig        `yaml:"auth"`
	Payments    PaymentsConfig    `yaml:"payments"`
	Billing     BillingConfig     `yaml:"billing"`
	Fulfillment FulfillmentConfig `yaml:"fulfillment"`

	MetricsEnabled bool   `yaml:"metrics_enabled"`
	MetricsAddr    string `yaml:"metrics_addr"`
	OtelEnabled    bool   `yaml:"otel_enabled"`

	PaymentLockTTLSeconds int `yaml:"payment_lock_ttl_seconds"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Channel  string `yaml:"channel"`
}

type AuthConfig struct {
	JWTSecretKey string `yaml:"jwt_secret_key"`
	Issuer       string `yaml:"issuer"`
}

type PaymentsConfig struct {
	BaseURL  string `yaml:"base_url"`
	APIKey   string `yaml:"api_key"`
	Currency string `yaml:"currency"`
}

type BillingConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
}

type FulfillmentConfig struct {
	Mode    string   `yaml:"mode"`
	BaseURL string   `yaml:"base_url"`
	APIKey  string   `yaml:"api_key"`
	Brokers []string `yaml:"kafka_brokers"`
	Topic   string   `yaml:"kafka_topic"`
}

func (c Config) PaymentLockTTL() time.Duration {
	if c.PaymentLockTTLSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(c.PaymentLockTTLSeconds) * time.Second
}

func defaultConfig() Config {
	return Config{
		ServiceName: "groupcart-backend",
		Environment: "development",
		HTTPAddr:    ":8080",
		LogMode:     "development",
		DB: db.Config{
			Driver: db.DriverSQLite,
			Host:   "localhost",
			Port:   "5432",
			User:   "postgres",
			Name:   "groupcart",
		},
		Redis:       RedisConfig{Channel: "groupcart:sse"},
		Payments:    PaymentsConfig{Currency: "usd"},
		Fulfillment: FulfillmentConfig{Mode: FulfillmentHTTP, Topic: "group-orders.submitted"},

		PaymentLockTTLSeconds: 120,
	}
}

// LoadConfig layers defaults, an optional .env, an optional YAML file named by
// CONFIG_FILE, and finally environment variables.
func LoadConfig(log *logger.Logger) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := defaultConfig()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
		if log != nil {
			log.Info("Loaded config file", "path", path)
		}
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.ServiceName = envutil.String("SERVICE_NAME", cfg.ServiceName)
	cfg.Environment = envutil.String("ENVIRONMENT", cfg.Environment)
	cfg.Version = envutil.String("SERVICE_VERSION", cfg.Version)
	cfg.HTTPAddr = envutil.String("HTTP_ADDR", cfg.HTTPAddr)
	cfg.LogMode = envutil.String("LOG_MODE", cfg.LogMode)
	cfg.CORSOrigins = envutil.List("CORS_ORIGINS", cfg.CORSOrigins)

	cfg.DB.Driver = envutil.String("DB_DRIVER", cfg.DB.Driver)
	cfg.DB.DSN = envutil.String("DB_DSN", cfg.DB.DSN)
	cfg.DB.Host = envutil.String("POSTGRES_HOST", cfg.DB.Host)
	cfg.DB.Port = envutil.String("POSTGRES_PORT", cfg.DB.Port)
	cfg.DB.User = envutil.String("POSTGRES_USER", cfg.DB.User)
	cfg.DB.Password = envutil.String("POSTGRES_PASSWORD", cfg.DB.Password)
	cfg.DB.Name = envutil.String("POSTGRES_NAME", cfg.DB.Name)
	cfg.DB.SSLMode = envutil.String("POSTGRES_SSLMODE", cfg.DB.SSLMode)

	cfg.Redis.Addr = envutil.String("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envutil.String("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envutil.Int("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.Channel = envutil.String("REDIS_CHANNEL", cfg.Redis.Channel)

	cfg.Auth.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.Auth.JWTSecretKey)
	cfg.Auth.Issuer = envutil.String("JWT_ISSUER", cfg.Auth.Issuer)

	cfg.Payments.BaseURL = envutil.String("PAYMENTS_BASE_URL", cfg.Payments.BaseURL)
	cfg.Payments.APIKey = envutil.String("PAYMENTS_API_KEY", cfg.Payments.APIKey)
	cfg.Payments.Currency = envutil.String("PAYMENTS_CURRENCY", cfg.Payments.Currency)
	cfg.Billing.BaseURL = envutil.String("BILLING_BASE_URL", cfg.Billing.BaseURL)
	cfg.Billing.APIKey = envutil.String("BILLING_API_KEY", cfg.Billing.APIKey)

	cfg.Fulfillment.Mode = strings.ToLower(envutil.String("FULFILLMENT_MODE", cfg.Fulfillment.Mode))
	cfg.Fulfillment.BaseURL = envutil.String("FULFILLMENT_BASE_URL", cfg.Fulfillment.BaseURL)
	cfg.Fulfillment.APIKey = envutil.String("FULFILLMENT_API_KEY", cfg.Fulfillment.APIKey)
	cfg.Fulfillment.Brokers = envutil.List("KAFKA_BROKERS", cfg.Fulfillment.Brokers)
	cfg.Fulfillment.Topic = envutil.String("KAFKA_ORDERS_TOPIC", cfg.Fulfillment.Topic)

	cfg.MetricsEnabled = envutil.Bool("METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.MetricsAddr = envutil.String("METRICS_ADDR", cfg.MetricsAddr)
	cfg.OtelEnabled = envutil.Bool("OTEL_ENABLED", cfg.OtelEnabled)
	cfg.PaymentLockTTLSeconds = envutil.Int("PAYMENT_LOCK_TTL_SECONDS", cfg.PaymentLockTTLSeconds)
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.JWTSecretKey) == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}
	switch c.Fulfillment.Mode {
	case FulfillmentHTTP, "":
	case FulfillmentKafka:
		if len(c.Fulfillment.Brokers) == 0 {
			return fmt.Errorf("FULFILLMENT_MODE=kafka requires KAFKA_BROKERS")
		}
	default:
		return fmt.Errorf("unsupported FULFILLMENT_MODE %q", c.Fulfillment.Mode)
	}
	return nil
}
