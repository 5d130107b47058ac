package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App            AppConfig
	HTTP           HTTPConfig
	Database       DatabaseConfig
	Redis          RedisConfig
	Kafka          KafkaConfig
	JWT            JWTConfig
	Log            LogConfig
	Telemetry      TelemetryConfig
	Ledger         LedgerConfig
	Idempotency    IdempotencyConfig
	Planning       PlanningConfig
	Reconciliation ReconciliationConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	// AutoMigrate runs gorm AutoMigrate at startup instead of relying on cmd/migrate
	AutoMigrate bool
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// KafkaConfig holds the event transport settings. No brokers means events
// stay in process.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// Enabled reports whether a Kafka sink should be created
func (k *KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0
}

// JWTConfig holds bearer token settings for the HTTP API.
// An empty secret leaves the API unauthenticated.
type JWTConfig struct {
	Secret string
	Issuer string
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	MaxHeaderBytes   int
	MaxBodySize      int64
	ShutdownTimeout  time.Duration
	CORSAllowOrigins []string
	TrustedProxies   []string
}

// TelemetryConfig holds OpenTelemetry configuration
type TelemetryConfig struct {
	Enabled           bool    // Whether to enable OpenTelemetry
	CollectorEndpoint string  // OTEL Collector endpoint (e.g., "localhost:4317")
	SamplingRatio     float64 // Sampling ratio (0.0-1.0, 1.0 = 100%)
	ServiceName       string  // Service name for traces
	Insecure          bool    // Use insecure (non-TLS) connection (development only)
	MetricsEnabled    bool
	MetricsInterval   time.Duration
	LogsEnabled       bool
	// Database tracing options
	DBTraceEnabled    bool          // Enable database query tracing (otelgorm)
	DBLogFullSQL      bool          // Log full SQL statements (dev only)
	DBSlowQueryThresh time.Duration // Slow query threshold for warnings
}

// LedgerConfig holds the stock ledger's input policies and retry budget
type LedgerConfig struct {
	// NonPositivePolicy is "ignore" or "reject"
	NonPositivePolicy string
	// OverDecrementPolicy is "clamp" or "reject"
	OverDecrementPolicy string
	// ConflictRetries is how often a unit of work is retried after an optimistic lock conflict
	ConflictRetries int
	// Currency of unit costs and valuations
	Currency string
}

// IdempotencyConfig controls deduplication of transaction submissions by reference
type IdempotencyConfig struct {
	Backend string // memory, redis, none
	TTL     time.Duration
}

// PlanningConfig holds replenishment planning parameters
type PlanningConfig struct {
	UsageLookbackDays int
	MinLeadTimeDays   int
	SafetyFactor      float64
	ExpiryWindowDays  int
}

// ReconciliationConfig controls the background maintenance loop
type ReconciliationConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with LARDER_ prefix (e.g., LARDER_DATABASE_PASSWORD)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/larder")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return load(v)
}

// LoadFile loads configuration from the TOML file at path plus the environment
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("LARDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:      v.GetDuration("http.read_timeout"),
			WriteTimeout:     v.GetDuration("http.write_timeout"),
			IdleTimeout:      v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:   v.GetInt("http.max_header_bytes"),
			MaxBodySize:      v.GetInt64("http.max_body_size"),
			ShutdownTimeout:  v.GetDuration("http.shutdown_timeout"),
			CORSAllowOrigins: v.GetStringSlice("http.cors_allow_origins"),
			TrustedProxies:   v.GetStringSlice("http.trusted_proxies"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			AutoMigrate:     v.GetBool("database.auto_migrate"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Kafka: KafkaConfig{
			Brokers:      v.GetStringSlice("kafka.brokers"),
			Topic:        v.GetString("kafka.topic"),
			BatchTimeout: v.GetDuration("kafka.batch_timeout"),
			WriteTimeout: v.GetDuration("kafka.write_timeout"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("jwt.secret"),
			Issuer: v.GetString("jwt.issuer"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			MetricsEnabled:    v.GetBool("telemetry.metrics_enabled"),
			MetricsInterval:   v.GetDuration("telemetry.metrics_interval"),
			LogsEnabled:       v.GetBool("telemetry.logs_enabled"),
			DBTraceEnabled:    v.GetBool("telemetry.db_trace_enabled"),
			DBLogFullSQL:      v.GetBool("telemetry.db_log_full_sql"),
			DBSlowQueryThresh: v.GetDuration("telemetry.db_slow_query_threshold"),
		},
		Ledger: LedgerConfig{
			NonPositivePolicy:   v.GetString("ledger.non_positive_policy"),
			OverDecrementPolicy: v.GetString("ledger.over_decrement_policy"),
			ConflictRetries:     v.GetInt("ledger.conflict_retries"),
			Currency:            v.GetString("ledger.currency"),
		},
		Idempotency: IdempotencyConfig{
			Backend: v.GetString("idempotency.backend"),
			TTL:     v.GetDuration("idempotency.ttl"),
		},
		Planning: PlanningConfig{
			UsageLookbackDays: v.GetInt("planning.usage_lookback_days"),
			MinLeadTimeDays:   v.GetInt("planning.min_lead_time_days"),
			SafetyFactor:      v.GetFloat64("planning.safety_factor"),
			ExpiryWindowDays:  v.GetInt("planning.expiry_window_days"),
		},
		Reconciliation: ReconciliationConfig{
			Enabled:  v.GetBool("reconciliation.enabled"),
			Interval: v.GetDuration("reconciliation.interval"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "larder"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.ShutdownTimeout == 0 {
		cfg.HTTP.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "larder"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.Kafka.Topic == "" {
		cfg.Kafka.Topic = "larder.inventory.events"
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = 50 * time.Millisecond
	}
	if cfg.Kafka.WriteTimeout == 0 {
		cfg.Kafka.WriteTimeout = 10 * time.Second
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "larder"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.SamplingRatio == 0 {
		cfg.Telemetry.SamplingRatio = 1.0
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.MetricsInterval == 0 {
		cfg.Telemetry.MetricsInterval = 60 * time.Second
	}
	if cfg.Telemetry.DBSlowQueryThresh == 0 {
		cfg.Telemetry.DBSlowQueryThresh = 200 * time.Millisecond
	}
	if cfg.Ledger.NonPositivePolicy == "" {
		cfg.Ledger.NonPositivePolicy = "ignore"
	}
	if cfg.Ledger.OverDecrementPolicy == "" {
		cfg.Ledger.OverDecrementPolicy = "clamp"
	}
	if cfg.Ledger.ConflictRetries == 0 {
		cfg.Ledger.ConflictRetries = 3
	}
	if cfg.Ledger.Currency == "" {
		cfg.Ledger.Currency = "USD"
	}
	if cfg.Idempotency.Backend == "" {
		cfg.Idempotency.Backend = "memory"
	}
	if cfg.Idempotency.TTL == 0 {
		cfg.Idempotency.TTL = 24 * time.Hour
	}
	if cfg.Planning.UsageLookbackDays == 0 {
		cfg.Planning.UsageLookbackDays = 30
	}
	if cfg.Planning.MinLeadTimeDays == 0 {
		cfg.Planning.MinLeadTimeDays = 7
	}
	if cfg.Planning.SafetyFactor == 0 {
		cfg.Planning.SafetyFactor = 0.5
	}
	if cfg.Planning.ExpiryWindowDays == 0 {
		cfg.Planning.ExpiryWindowDays = 3
	}
	if cfg.Reconciliation.Interval == 0 {
		cfg.Reconciliation.Interval = 15 * time.Minute
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
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

	switch strings.ToLower(c.Ledger.NonPositivePolicy) {
	case "ignore", "reject":
	default:
		return fmt.Errorf("ledger.non_positive_policy must be ignore or reject, got %q", c.Ledger.NonPositivePolicy)
	}
	switch strings.ToLower(c.Ledger.OverDecrementPolicy) {
	case "clamp", "reject":
	default:
		return fmt.Errorf("ledger.over_decrement_policy must be clamp or reject, got %q", c.Ledger.OverDecrementPolicy)
	}
	if c.Ledger.ConflictRetries < 0 {
		return fmt.Errorf("ledger.conflict_retries cannot be negative")
	}
	if len(c.Ledger.Currency) != 3 {
		return fmt.Errorf("ledger.currency must be a 3-letter code, got %q", c.Ledger.Currency)
	}

	switch c.Idempotency.Backend {
	case "memory", "redis", "none":
	default:
		return fmt.Errorf("idempotency.backend must be memory, redis or none, got %q", c.Idempotency.Backend)
	}

	if c.Planning.UsageLookbackDays < 0 || c.Planning.MinLeadTimeDays < 0 || c.Planning.ExpiryWindowDays < 0 {
		return fmt.Errorf("planning day counts cannot be negative")
	}
	if c.Planning.SafetyFactor < 0 {
		return fmt.Errorf("planning.safety_factor cannot be negative")
	}

	if c.App.Env == "production" {
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Telemetry.DBLogFullSQL {
			return fmt.Errorf("telemetry.db_log_full_sql must be false in production")
		}
	}

	if c.Telemetry.SamplingRatio < 0.0 || c.Telemetry.SamplingRatio > 1.0 {
		return fmt.Errorf("telemetry.sampling_ratio must be between 0.0 and 1.0, got %f", c.Telemetry.SamplingRatio)
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
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
