package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Auth      AuthConfig      `mapstructure:"auth"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Payout    PayoutConfig    `mapstructure:"payout"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug, release, test
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type AuthConfig struct {
	JWTSecret      string `mapstructure:"jwt_secret"`
	JWTIssuer      string `mapstructure:"jwt_issuer"`
	InternalSecret string `mapstructure:"internal_secret"` // gates reconcile/payout endpoints
}

type RateLimitConfig struct {
	PaymentLimit  int64         `mapstructure:"payment_limit"`
	PaymentWindow time.Duration `mapstructure:"payment_window"`
}

type ReconcileConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	BatchSize     int           `mapstructure:"batch_size"`
	PendingWindow time.Duration `mapstructure:"pending_window"`
	ExpireAfter   time.Duration `mapstructure:"expire_after"`
	DefaultPeriod time.Duration `mapstructure:"default_period"`
}

type PayoutConfig struct {
	MinimumCents int64         `mapstructure:"minimum_cents"`
	Cooldown     time.Duration `mapstructure:"cooldown"`
}

type ProvidersConfig struct {
	CoinGate    CoinGateConfig    `mapstructure:"coingate"`
	NOWPayments NOWPaymentsConfig `mapstructure:"nowpayments"`
	Stripe      StripeConfig      `mapstructure:"stripe"`
}

type CoinGateConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	CallbackURL string `mapstructure:"callback_url"`
}

type NOWPaymentsConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	BaseURL     string `mapstructure:"base_url"`
	APIKey      string `mapstructure:"api_key"`
	IPNSecret   string `mapstructure:"ipn_secret"`
	CallbackURL string `mapstructure:"callback_url"`
}

type StripeConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	APIKey        string `mapstructure:"api_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: CLE_ (Creator Ledger
// Engine). Nested keys use underscore: CLE_DATABASE_HOST, CLE_AUTH_JWT_SECRET.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "creator_ledger")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.jwt_issuer", "creator-platform")
	v.SetDefault("auth.internal_secret", "")
	v.SetDefault("ratelimit.payment_limit", 10)
	v.SetDefault("ratelimit.payment_window", "1h")
	v.SetDefault("reconcile.interval", "1m")
	v.SetDefault("reconcile.batch_size", 20)
	v.SetDefault("reconcile.pending_window", "24h")
	v.SetDefault("reconcile.expire_after", "24h")
	v.SetDefault("reconcile.default_period", "720h")
	v.SetDefault("payout.minimum_cents", 10000)
	v.SetDefault("payout.cooldown", "24h")
	v.SetDefault("providers.coingate.enabled", false)
	v.SetDefault("providers.coingate.base_url", "https://api.coingate.com")
	v.SetDefault("providers.nowpayments.enabled", false)
	v.SetDefault("providers.nowpayments.base_url", "https://api.nowpayments.io")
	v.SetDefault("providers.stripe.enabled", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	// File config
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables: CLE_DATABASE_HOST -> database.host
	v.SetEnvPrefix("CLE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional, env vars can suffice.
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
