package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
)

// EnvPrefix is the prefix for environment variable overrides (RISKMONITOR_API_PORT, ...)
const EnvPrefix = "RISKMONITOR"

// Config holds all application configuration
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Monitoring  MonitoringConfig  `mapstructure:"monitoring"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	NATS        NATSConfig        `mapstructure:"nats"`
	API         APIConfig         `mapstructure:"api"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Alerts      AlertsConfig      `mapstructure:"alerts"`
	Persistence PersistenceConfig `mapstructure:"persistence"`
}

// AppConfig contains application-level settings
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"` // development, staging, production
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // json or console
}

// MonitoringConfig contains the risk pipeline settings
type MonitoringConfig struct {
	RiskTolerance string                       `mapstructure:"risk_tolerance"`
	AutoApply     bool                         `mapstructure:"auto_apply"`
	Settings      monitoring.AITradingSettings `mapstructure:"settings"`
}

// Tolerance returns the configured risk tolerance as a typed value
func (c *MonitoringConfig) Tolerance() monitoring.RiskToleranceType {
	return monitoring.RiskToleranceType(strings.ToLower(c.RiskTolerance))
}

// DatabaseConfig contains PostgreSQL settings for the snapshot table
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
	SSLMode  string `mapstructure:"ssl_mode"`
	PoolSize int    `mapstructure:"pool_size"`
}

// RedisConfig contains Redis settings for the snapshot cache
type RedisConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	Key        string `mapstructure:"key"`
	TTLSeconds int    `mapstructure:"ttl_seconds"` // 0 keeps the snapshot forever
}

// NATSConfig contains NATS event publishing settings
type NATSConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
	// HeartbeatSeconds is the heartbeat interval of the serve command; 0 disables heartbeats
	HeartbeatSeconds int `mapstructure:"heartbeat_seconds"`
}

// GetHeartbeatInterval returns the heartbeat interval as a duration
func (c *NATSConfig) GetHeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatSeconds) * time.Second
}

// APIConfig contains REST API settings
type APIConfig struct {
	Host           string   `mapstructure:"host"`
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// MetricsConfig contains Prometheus settings
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// AlertsConfig contains risk alert settings
type AlertsConfig struct {
	Enabled       bool           `mapstructure:"enabled"`
	MinConfidence float64        `mapstructure:"min_confidence"`
	PerMinute     int            `mapstructure:"per_minute"`
	Telegram      TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig contains Telegram alert delivery settings
type TelegramConfig struct {
	Enabled  bool    `mapstructure:"enabled"`
	BotToken string  `mapstructure:"bot_token"`
	ChatIDs  []int64 `mapstructure:"chat_ids"`
	// MinSeverity is the least severe alert forwarded to the chats (INFO, WARNING or CRITICAL)
	MinSeverity string `mapstructure:"min_severity"`
}

// PersistenceConfig selects where the monitoring log is saved between runs
type PersistenceConfig struct {
	Backends []string      `mapstructure:"backends"` // file, redis, postgres
	FilePath string        `mapstructure:"file_path"`
	Retries  int           `mapstructure:"retries"` // retries of transient remote failures
	Breaker  BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig contains circuit breaker settings for remote persisters
type BreakerConfig struct {
	MaxFailures    uint32 `mapstructure:"max_failures"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// Persistence backend names
const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Set config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("riskmonitor")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; using defaults and environment variables
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	defaults := monitoring.DefaultSettings()

	// App defaults
	v.SetDefault("app.name", "RiskMonitor")
	v.SetDefault("app.version", Version)
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.log_format", "json")

	// Monitoring defaults
	v.SetDefault("monitoring.risk_tolerance", string(monitoring.ToleranceModerate))
	v.SetDefault("monitoring.auto_apply", false)
	v.SetDefault("monitoring.settings.consider_economic_data", defaults.ConsiderEconomicData)
	v.SetDefault("monitoring.settings.consider_earnings_events", defaults.ConsiderEarningsEvents)
	v.SetDefault("monitoring.settings.consider_fed_meetings", defaults.ConsiderFedMeetings)
	v.SetDefault("monitoring.settings.consider_geopolitical_events", defaults.ConsiderGeopoliticalEvents)
	v.SetDefault("monitoring.settings.use_market_sentiment", defaults.UseMarketSentiment)
	v.SetDefault("monitoring.settings.auto_adjust_volatility", defaults.AutoAdjustVolatility)
	v.SetDefault("monitoring.settings.default_stop_loss_pct", defaults.DefaultStopLossPct)
	v.SetDefault("monitoring.settings.default_take_profit_pct", defaults.DefaultTakeProfitPct)
	v.SetDefault("monitoring.settings.learning_override_confidence", defaults.LearningOverrideConfidence)

	// Database defaults
	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", PostgresPort)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "")
	v.SetDefault("database.database", "riskmonitor")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.pool_size", 5)

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", RedisPort)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key", "riskmonitor:log")
	v.SetDefault("redis.ttl_seconds", 0)

	// NATS defaults
	v.SetDefault("nats.enabled", false)
	v.SetDefault("nats.url", fmt.Sprintf("nats://localhost:%d", NATSPort))
	v.SetDefault("nats.subject_prefix", "riskmonitor")
	v.SetDefault("nats.heartbeat_seconds", 30)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", APIServerPort)
	v.SetDefault("api.allowed_origins", []string{"http://localhost:3000"})

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", MetricsPort)

	// Alert defaults
	v.SetDefault("alerts.enabled", true)
	v.SetDefault("alerts.min_confidence", 0.7)
	v.SetDefault("alerts.per_minute", 10)
	v.SetDefault("alerts.telegram.enabled", false)
	v.SetDefault("alerts.telegram.bot_token", "")
	v.SetDefault("alerts.telegram.min_severity", "WARNING")

	// Persistence defaults
	v.SetDefault("persistence.backends", []string{BackendFile})
	v.SetDefault("persistence.file_path", "./data/monitoring-log.json")
	v.SetDefault("persistence.retries", 2)
	v.SetDefault("persistence.breaker.max_failures", 3)
	v.SetDefault("persistence.breaker.timeout_seconds", 30)
}

// GetDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s pool_max_conns=%d",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode, c.PoolSize,
	)
}

// GetRedisAddr returns the Redis address
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetTTL returns the snapshot expiry; zero means no expiry
func (c *RedisConfig) GetTTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// GetAPIAddr returns the API server address
func (c *APIConfig) GetAPIAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// GetTimeout returns the breaker open-state timeout
func (c *BreakerConfig) GetTimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// HasBackend reports whether the named persistence backend is configured
func (c *PersistenceConfig) HasBackend(name string) bool {
	for _, b := range c.Backends {
		if strings.EqualFold(b, name) {
			return true
		}
	}
	return false
}
