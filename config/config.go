package config

import (
	"errors"
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
	JWT       JWTConfig       `mapstructure:"jwt"`
	Vault     VaultConfig     `mapstructure:"vault"`
	Biometric BiometricConfig `mapstructure:"biometric"`
	Gateway   GatewayConfig   `mapstructure:"gateway"`
	Extractor ExtractorConfig `mapstructure:"extractor"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Mode        string `mapstructure:"mode"` // debug, release, test
	MaxBodySize int64  `mapstructure:"max_body_size"`
}

// Storage drivers accepted in database.driver.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"` // postgres | memory
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	SeedFile        string        `mapstructure:"seed_file"` // memory driver only: identities and terminals to preload
}

// DSN returns the PostgreSQL connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address string.
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expiry time.Duration `mapstructure:"expiry"`
	Issuer string        `mapstructure:"issuer"`
}

type VaultConfig struct {
	Key string `mapstructure:"key"` // 32 bytes, hex (64 chars) or base64
}

type BiometricConfig struct {
	MatchThreshold float64       `mapstructure:"match_threshold"`
	ScanTimeout    time.Duration `mapstructure:"scan_timeout"`
	Dimensions     int           `mapstructure:"dimensions"` // 0 = accept any length
}

type GatewayConfig struct {
	Provider      string        `mapstructure:"provider"`
	WebhookSecret string        `mapstructure:"webhook_secret"`
	DedupeTTL     time.Duration `mapstructure:"dedupe_ttl"`
	KeyID         string        `mapstructure:"key_id"` // empty = top-ups open without a gateway order
	KeySecret     string        `mapstructure:"key_secret"`
	OrdersURL     string        `mapstructure:"orders_url"`
	Timeout       time.Duration `mapstructure:"timeout"`
}

// OrdersEnabled reports whether top-ups should open gateway orders.
func (g GatewayConfig) OrdersEnabled() bool {
	return g.KeyID != ""
}

type ExtractorConfig struct {
	URL     string        `mapstructure:"url"` // empty = artifacts are rejected
	Timeout time.Duration `mapstructure:"timeout"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Pretty bool   `mapstructure:"pretty"` // human-readable output (dev only)
}

// Load reads configuration from file and environment variables.
// Environment variables override file values. Prefix: PALM_.
// Nested keys use underscore: PALM_VAULT_KEY, PALM_GATEWAY_WEBHOOK_SECRET, etc.
func Load(path string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.max_body_size", 1<<20)
	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "palmpay")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 20)
	v.SetDefault("database.min_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.expiry", "24h")
	v.SetDefault("jwt.issuer", "palmpay")
	v.SetDefault("vault.key", "")
	v.SetDefault("biometric.match_threshold", 0.95)
	v.SetDefault("biometric.scan_timeout", "5s")
	v.SetDefault("biometric.dimensions", 0)
	v.SetDefault("gateway.provider", "RAZORPAY")
	v.SetDefault("gateway.webhook_secret", "")
	v.SetDefault("gateway.dedupe_ttl", "72h")
	v.SetDefault("gateway.key_id", "")
	v.SetDefault("gateway.key_secret", "")
	v.SetDefault("gateway.orders_url", "https://api.razorpay.com/v1/orders")
	v.SetDefault("gateway.timeout", "10s")
	v.SetDefault("extractor.url", "")
	v.SetDefault("extractor.timeout", "3s")
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

	// Environment variables: PALM_DATABASE_HOST -> database.host
	v.SetEnvPrefix("PALM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (not required, env vars can suffice)
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

// Validate checks the settings the process cannot start without.
// The vault key size is checked by the vault itself.
func (c *Config) Validate() error {
	var errs []error
	if c.Vault.Key == "" {
		errs = append(errs, errors.New("vault.key is required"))
	}
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	if c.Biometric.MatchThreshold <= 0 || c.Biometric.MatchThreshold > 1 {
		errs = append(errs, fmt.Errorf("biometric.match_threshold must be in (0, 1], got %v", c.Biometric.MatchThreshold))
	}
	if c.Biometric.Dimensions < 0 {
		errs = append(errs, errors.New("biometric.dimensions must not be negative"))
	}
	if c.Gateway.OrdersEnabled() && c.Gateway.KeySecret == "" {
		errs = append(errs, errors.New("gateway.key_secret is required when gateway.key_id is set"))
	}
	switch c.Database.Driver {
	case DriverPostgres, DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverMemory, c.Database.Driver))
	}
	return errors.Join(errs...)
}
