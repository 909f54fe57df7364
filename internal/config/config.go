package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ehr/patientflow/pkg/retry"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	MigrationsDir  string        `mapstructure:"MIGRATIONS_DIR"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	AuthSigningKey string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string        `mapstructure:"AUTH_ISSUER"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	NotifyWorkers  int           `mapstructure:"NOTIFY_WORKERS"`
	NotifyAttempts int           `mapstructure:"NOTIFY_MAX_ATTEMPTS"`
	NotifyInitial  time.Duration `mapstructure:"NOTIFY_RETRY_INITIAL"`
	NotifyMaxDelay time.Duration `mapstructure:"NOTIFY_RETRY_MAX"`
	OTLPEndpoint   string        `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	ServiceName    string        `mapstructure:"SERVICE_NAME"`
	ServiceVersion string        `mapstructure:"SERVICE_VERSION"`
}

var keys = []string{
	"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "MIGRATIONS_DIR",
	"REDIS_URL", "AUTH_SIGNING_KEY", "AUTH_ISSUER", "CORS_ORIGINS",
	"NOTIFY_WORKERS", "NOTIFY_MAX_ATTEMPTS", "NOTIFY_RETRY_INITIAL", "NOTIFY_RETRY_MAX",
	"OTEL_EXPORTER_OTLP_ENDPOINT", "SERVICE_NAME", "SERVICE_VERSION",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("MIGRATIONS_DIR", "migrations")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("AUTH_ISSUER", "patientflow")
	v.SetDefault("NOTIFY_WORKERS", 2)
	v.SetDefault("NOTIFY_MAX_ATTEMPTS", 5)
	v.SetDefault("NOTIFY_RETRY_INITIAL", "500ms")
	v.SetDefault("NOTIFY_RETRY_MAX", "30s")
	v.SetDefault("SERVICE_NAME", "patientflow-server")
	v.SetDefault("SERVICE_VERSION", "0.1.0")

	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate rejects configurations the server must not start with.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("PORT must be a number between 1 and 65535, got %q", c.Port)
	}
	if c.DBMaxConns < 1 {
		return fmt.Errorf("DB_MAX_CONNS must be positive, got %d", c.DBMaxConns)
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS (%d), got %d", c.DBMaxConns, c.DBMinConns)
	}
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.NotifyWorkers < 1 {
		return fmt.Errorf("NOTIFY_WORKERS must be at least 1, got %d", c.NotifyWorkers)
	}
	if c.NotifyAttempts < 1 {
		return fmt.Errorf("NOTIFY_MAX_ATTEMPTS must be at least 1, got %d", c.NotifyAttempts)
	}
	return nil
}

// NotifyRetry is the backoff used by notification delivery workers.
func (c *Config) NotifyRetry() retry.Config {
	return retry.Config{
		MaxAttempts:   c.NotifyAttempts,
		InitialDelay:  c.NotifyInitial,
		MaxDelay:      c.NotifyMaxDelay,
		BackoffFactor: 2.0,
	}
}
