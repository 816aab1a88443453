package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment override, e.g. VET_SERVER_PORT.
const EnvPrefix = "VET"

// Storage backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server" envconfig:"server"`
	Storage    StorageConfig    `mapstructure:"storage" envconfig:"storage"`
	Auth       AuthConfig       `mapstructure:"auth" envconfig:"auth"`
	Clinic     ClinicConfig     `mapstructure:"clinic" envconfig:"clinic"`
	Intake     IntakeConfig     `mapstructure:"intake" envconfig:"intake"`
	Payment    PaymentConfig    `mapstructure:"payment" envconfig:"payment"`
	SMTP       SMTPConfig       `mapstructure:"smtp" envconfig:"smtp"`
	RateLimit  RateLimitConfig  `mapstructure:"ratelimit" envconfig:"ratelimit"`
	Monitoring MonitoringConfig `mapstructure:"monitoring" envconfig:"monitoring"`
	Log        LogConfig        `mapstructure:"log" envconfig:"log"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port" envconfig:"port"`
	Mode            string        `mapstructure:"mode" envconfig:"mode"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" envconfig:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" envconfig:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" envconfig:"shutdown_timeout"`
}

type StorageConfig struct {
	Backend string      `mapstructure:"backend" envconfig:"backend"`
	Prefix  string      `mapstructure:"prefix" envconfig:"prefix"`
	Redis   RedisConfig `mapstructure:"redis" envconfig:"redis"`
	SQL     SQLConfig   `mapstructure:"sql" envconfig:"sql"`
}

type RedisConfig struct {
	URL             string        `mapstructure:"url" envconfig:"url"`
	PoolSize        int           `mapstructure:"pool_size" envconfig:"pool_size"`
	MinIdleConns    int           `mapstructure:"min_idle_conns" envconfig:"min_idle_conns"`
	MaxRetries      int           `mapstructure:"max_retries" envconfig:"max_retries"`
	BreakerFailures uint32        `mapstructure:"breaker_failures" envconfig:"breaker_failures"`
	BreakerTimeout  time.Duration `mapstructure:"breaker_timeout" envconfig:"breaker_timeout"`
}

type SQLConfig struct {
	DSN string `mapstructure:"dsn" envconfig:"dsn"`
}

type AuthConfig struct {
	Secret   string        `mapstructure:"secret" envconfig:"secret"`
	Issuer   string        `mapstructure:"issuer" envconfig:"issuer"`
	TokenTTL time.Duration `mapstructure:"token_ttl" envconfig:"token_ttl"`
}

type ClinicConfig struct {
	Timezone         string `mapstructure:"timezone" envconfig:"timezone"`
	MediumWindowDays int    `mapstructure:"medium_window_days" envconfig:"medium_window_days"`
}

type IntakeConfig struct {
	DefaultPassword string `mapstructure:"default_password" envconfig:"default_password"`
	BcryptCost      int    `mapstructure:"bcrypt_cost" envconfig:"bcrypt_cost"`
}

type PaymentConfig struct {
	RejectionNotes string `mapstructure:"rejection_notes" envconfig:"rejection_notes"`
}

// SMTPConfig configures the newsletter mailer. An empty Host logs messages instead.
type SMTPConfig struct {
	Host     string `mapstructure:"host" envconfig:"host"`
	Port     int    `mapstructure:"port" envconfig:"port"`
	Username string `mapstructure:"username" envconfig:"username"`
	Password string `mapstructure:"password" envconfig:"password"`
	From     string `mapstructure:"from" envconfig:"from"`
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled" envconfig:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second" envconfig:"requests_per_second"`
	Burst             int     `mapstructure:"burst" envconfig:"burst"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool   `mapstructure:"prometheus_enabled" envconfig:"prometheus_enabled"`
	MetricsPath       string `mapstructure:"metrics_path" envconfig:"metrics_path"`
	Namespace         string `mapstructure:"namespace" envconfig:"namespace"`
}

type LogConfig struct {
	Level string `mapstructure:"level" envconfig:"level"`
	JSON  bool   `mapstructure:"json" envconfig:"json"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("storage.backend", BackendMemory)
	v.SetDefault("storage.prefix", "vetclinic")
	v.SetDefault("storage.redis.url", "redis://localhost:6379/0")
	v.SetDefault("storage.redis.pool_size", 10)
	v.SetDefault("storage.redis.max_retries", 3)
	v.SetDefault("storage.redis.breaker_failures", 5)
	v.SetDefault("storage.redis.breaker_timeout", "30s")

	v.SetDefault("auth.issuer", "vet-portal")
	v.SetDefault("auth.token_ttl", "24h")

	v.SetDefault("clinic.timezone", "UTC")
	v.SetDefault("clinic.medium_window_days", 3)

	v.SetDefault("intake.default_password", "Bienvenido2026")
	v.SetDefault("intake.bcrypt_cost", 10)

	v.SetDefault("smtp.port", 587)

	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.requests_per_second", 20)
	v.SetDefault("ratelimit.burst", 40)

	v.SetDefault("monitoring.prometheus_enabled", true)
	v.SetDefault("monitoring.metrics_path", "/metrics")
	v.SetDefault("monitoring.namespace", "vetportal")

	v.SetDefault("log.level", "info")
}

// Load reads config.yaml from path, or from . and ./config when path is empty, and
// then applies VET_* environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	switch c.Storage.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Storage.Redis.URL == "" {
			return errors.New("storage.redis.url is required for the redis backend")
		}
	case BackendPostgres, BackendSQLite:
		if c.Storage.SQL.DSN == "" {
			return fmt.Errorf("storage.sql.dsn is required for the %s backend", c.Storage.Backend)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Auth.Secret == "" {
		return errors.New("auth.secret is required")
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("clinic.timezone: %w", err)
	}
	if c.Clinic.MediumWindowDays < 0 {
		return errors.New("clinic.medium_window_days must not be negative")
	}
	if len(c.Intake.DefaultPassword) < 8 {
		return errors.New("intake.default_password must have at least 8 characters")
	}
	if c.RateLimit.Enabled && c.RateLimit.RequestsPerSecond <= 0 {
		return errors.New("ratelimit.requests_per_second must be positive")
	}
	return nil
}

// Location is the clinic's time zone. Scheduled dates and times are read in it.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Clinic.Timezone)
}

// Addr is the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
