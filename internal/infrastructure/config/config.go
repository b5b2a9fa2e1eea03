package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the server and migrate configuration. Keys are read from
// config.toml and overridden by BLD_ environment variables, so
// database.password becomes BLD_DATABASE_PASSWORD.
type Config struct {
	App        AppConfig        `mapstructure:"app"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Log        LogConfig        `mapstructure:"log"`
	HTTP       HTTPConfig       `mapstructure:"http"`
	Lock       LockConfig       `mapstructure:"lock"`
	Allocation AllocationConfig `mapstructure:"allocation"`
	Reconcile  ReconcileConfig  `mapstructure:"reconcile"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, console
	Output string `mapstructure:"output"` // stdout, stderr, or file path
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Port string `mapstructure:"port"`
}

// DatabaseConfig selects postgres or sqlite and sizes the pool
type DatabaseConfig struct {
	Driver          string `mapstructure:"driver"`
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"dbname"`
	SSLMode         string `mapstructure:"sslmode"`
	Path            string `mapstructure:"path"` // sqlite file or ":memory:"
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns host:port for the Redis client
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type HTTPConfig struct {
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxHeaderBytes int           `mapstructure:"max_header_bytes"`
	MaxBodySize    int64         `mapstructure:"max_body_size"`
	TrustedProxies []string      `mapstructure:"trusted_proxies"`
	IdempotencyTTL time.Duration `mapstructure:"idempotency_ttl"` // replay window of Idempotency-Key responses
	CORSOrigins    []string      `mapstructure:"cors_origins"`
	HSTS           bool          `mapstructure:"hsts"` // only behind TLS
}

// LockConfig picks the building lock. Redis leases are retried RetryCount
// times, RetryBackoff apart.
type LockConfig struct {
	Provider     string        `mapstructure:"provider"` // memory or redis
	TTL          time.Duration `mapstructure:"ttl"`
	RetryCount   int           `mapstructure:"retry_count"`
	RetryBackoff time.Duration `mapstructure:"retry_backoff"`
}

type AllocationConfig struct {
	GroupBoundary string `mapstructure:"group_boundary"` // stop or skip
}

// ReconcileConfig schedules the nightly recompute sweep
type ReconcileConfig struct {
	Enabled       bool          `mapstructure:"enabled"`
	DailyAt       string        `mapstructure:"daily_at"` // local HH:MM
	CheckInterval time.Duration `mapstructure:"check_interval"`
}

// Clock parses DailyAt into hour and minute
func (r *ReconcileConfig) Clock() (hour, minute int, err error) {
	t, err := time.Parse("15:04", r.DailyAt)
	if err != nil {
		return 0, 0, fmt.Errorf("reconcile.daily_at must be HH:MM, got %q", r.DailyAt)
	}
	return t.Hour(), t.Minute(), nil
}

// TelemetryConfig controls the OTLP exporters and database tracing
type TelemetryConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	MetricsEnabled    bool          `mapstructure:"metrics_enabled"`
	LogsEnabled       bool          `mapstructure:"logs_enabled"`
	ServiceName       string        `mapstructure:"service_name"`
	CollectorEndpoint string        `mapstructure:"collector_endpoint"` // OTLP gRPC
	Insecure          bool          `mapstructure:"insecure"`
	SamplingRatio     float64       `mapstructure:"sampling_ratio"`
	MetricsInterval   time.Duration `mapstructure:"metrics_interval"`
	DBTraceEnabled    bool          `mapstructure:"db_trace_enabled"`
	DBLogFullSQL      bool          `mapstructure:"db_log_full_sql"` // dev only
	DBSlowQueryThresh time.Duration `mapstructure:"db_slow_query_threshold"`
}

// defaults lists every key. Environment overrides only apply to keys viper knows.
var defaults = map[string]any{
	"app.name": "building-ledger",
	"app.env":  "development",
	"app.port": "8080",

	"database.driver":             "postgres",
	"database.host":               "localhost",
	"database.port":               5432,
	"database.user":               "postgres",
	"database.password":           "",
	"database.dbname":             "building_ledger",
	"database.sslmode":            "disable",
	"database.path":               "building_ledger.db",
	"database.max_open_conns":     25,
	"database.max_idle_conns":     5,
	"database.conn_max_lifetime":  60,
	"database.conn_max_idle_time": 30,

	"redis.host":     "localhost",
	"redis.port":     6379,
	"redis.password": "",
	"redis.db":       0,

	"log.level":  "info",
	"log.format": "console",
	"log.output": "stdout",

	"http.read_timeout":     15 * time.Second,
	"http.write_timeout":    15 * time.Second,
	"http.idle_timeout":     time.Minute,
	"http.max_header_bytes": 1 << 20,
	"http.max_body_size":    1 << 20,
	"http.trusted_proxies":  []string{},
	"http.idempotency_ttl":  24 * time.Hour,
	"http.cors_origins":     []string{},
	"http.hsts":             false,

	"lock.provider":      "memory",
	"lock.ttl":           30 * time.Second,
	"lock.retry_count":   50,
	"lock.retry_backoff": 100 * time.Millisecond,

	"allocation.group_boundary": "stop",

	"reconcile.enabled":        false,
	"reconcile.daily_at":       "02:00",
	"reconcile.check_interval": time.Minute,

	"telemetry.enabled":                 false,
	"telemetry.metrics_enabled":         false,
	"telemetry.logs_enabled":            false,
	"telemetry.service_name":            "building-ledger",
	"telemetry.collector_endpoint":      "localhost:4317",
	"telemetry.insecure":                false,
	"telemetry.sampling_ratio":          1.0,
	"telemetry.metrics_interval":        time.Minute,
	"telemetry.db_trace_enabled":        false,
	"telemetry.db_log_full_sql":         false,
	"telemetry.db_slow_query_threshold": 200 * time.Millisecond,
}

// Load reads config.toml from ., ./backend or /app when present, applies
// BLD_ environment overrides and validates the result.
func Load() (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("./backend")
	v.AddConfigPath("/app")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix("BLD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("database.driver must be postgres or sqlite, got %q", c.Database.Driver)
	}
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}

	switch c.Lock.Provider {
	case "memory", "redis":
	default:
		return fmt.Errorf("lock.provider must be memory or redis, got %q", c.Lock.Provider)
	}
	if c.Lock.TTL <= 0 {
		return fmt.Errorf("lock.ttl must be positive")
	}
	if c.Lock.RetryCount < 0 {
		return fmt.Errorf("lock.retry_count cannot be negative")
	}

	switch c.Allocation.GroupBoundary {
	case "stop", "skip":
	default:
		return fmt.Errorf("allocation.group_boundary must be stop or skip, got %q", c.Allocation.GroupBoundary)
	}

	if _, _, err := c.Reconcile.Clock(); err != nil {
		return err
	}
	if c.Reconcile.CheckInterval <= 0 {
		return fmt.Errorf("reconcile.check_interval must be positive")
	}

	if c.Telemetry.SamplingRatio < 0 || c.Telemetry.SamplingRatio > 1 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0 and 1, got %v", c.Telemetry.SamplingRatio)
	}

	if c.App.Env == "production" {
		if c.Database.Driver == "postgres" && c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		// Several server replicas must share one lock
		if c.Lock.Provider == "memory" {
			return fmt.Errorf("lock.provider cannot be 'memory' in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	if d.Driver == "sqlite" {
		return d.Path
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
