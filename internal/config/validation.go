package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

// Error implements the error interface
func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Configuration validation failed with %d error(s):\n\n", len(ve)))
	for i, err := range ve {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	sb.WriteString("\nPlease fix the above errors and try again.\n")
	return sb.String()
}

// Fields returns the names of the invalid fields
func (ve ValidationErrors) Fields() []string {
	fields := make([]string, len(ve))
	for i, err := range ve {
		fields[i] = err.Field
	}
	return fields
}

// Validate performs comprehensive configuration validation
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateApp()...)
	errors = append(errors, c.validateMonitoring()...)
	errors = append(errors, c.validateDatabase()...)
	errors = append(errors, c.validateRedis()...)
	errors = append(errors, c.validateNATS()...)
	errors = append(errors, c.validateAPI()...)
	errors = append(errors, c.validateAlerts()...)
	errors = append(errors, c.validatePersistence()...)
	errors = append(errors, c.validateEnvironmentRequirements()...)

	if len(errors) > 0 {
		return errors
	}

	return nil
}

func (c *Config) validateApp() ValidationErrors {
	var errors ValidationErrors

	if c.App.Name == "" {
		errors = append(errors, ValidationError{
			Field:   "app.name",
			Message: "Application name is required",
		})
	}

	validEnvs := []string{"development", "staging", "production"}
	if !contains(validEnvs, c.App.Environment) {
		errors = append(errors, ValidationError{
			Field:   "app.environment",
			Message: fmt.Sprintf("Invalid environment '%s'. Must be one of: %v", c.App.Environment, validEnvs),
		})
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(c.App.LogLevel)); err != nil || c.App.LogLevel == "" {
		errors = append(errors, ValidationError{
			Field:   "app.log_level",
			Message: fmt.Sprintf("Invalid log level '%s' (debug, info, warn, error)", c.App.LogLevel),
		})
	}

	if c.App.LogFormat != "json" && c.App.LogFormat != "console" {
		errors = append(errors, ValidationError{
			Field:   "app.log_format",
			Message: fmt.Sprintf("Invalid log format '%s'. Must be 'json' or 'console'", c.App.LogFormat),
		})
	}

	return errors
}

func (c *Config) validateMonitoring() ValidationErrors {
	var errors ValidationErrors

	if !c.Monitoring.Tolerance().Valid() {
		errors = append(errors, ValidationError{
			Field:   "monitoring.risk_tolerance",
			Message: fmt.Sprintf("Invalid risk tolerance '%s'. Must be conservative, moderate or aggressive", c.Monitoring.RiskTolerance),
		})
	}

	s := c.Monitoring.Settings
	if s.DefaultStopLossPct <= 0 || s.DefaultStopLossPct >= 1 {
		errors = append(errors, ValidationError{
			Field:   "monitoring.settings.default_stop_loss_pct",
			Message: fmt.Sprintf("Invalid default_stop_loss_pct %.2f. Must be between 0-1 (exclusive)", s.DefaultStopLossPct),
		})
	}

	if s.DefaultTakeProfitPct <= 0 {
		errors = append(errors, ValidationError{
			Field:   "monitoring.settings.default_take_profit_pct",
			Message: "default_take_profit_pct must be greater than 0",
		})
	}

	if s.LearningOverrideConfidence < 0 || s.LearningOverrideConfidence > 1 {
		errors = append(errors, ValidationError{
			Field:   "monitoring.settings.learning_override_confidence",
			Message: fmt.Sprintf("Invalid learning_override_confidence %.2f. Must be between 0-1", s.LearningOverrideConfidence),
		})
	}

	return errors
}

func (c *Config) validateDatabase() ValidationErrors {
	var errors ValidationErrors

	if !c.Database.Enabled {
		return errors
	}

	if c.Database.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "database.host",
			Message: "Database host is required",
		})
	}

	errors = append(errors, validatePort("database.port", c.Database.Port)...)

	if c.Database.User == "" {
		errors = append(errors, ValidationError{
			Field:   "database.user",
			Message: "Database user is required",
		})
	}

	if c.Database.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "database.database",
			Message: "Database name is required",
		})
	}

	if c.Database.PoolSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.pool_size",
			Message: "Pool size must be at least 1",
		})
	}

	return errors
}

func (c *Config) validateRedis() ValidationErrors {
	var errors ValidationErrors

	if !c.Redis.Enabled {
		return errors
	}

	if c.Redis.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "redis.host",
			Message: "Redis host is required",
		})
	}

	errors = append(errors, validatePort("redis.port", c.Redis.Port)...)

	if c.Redis.DB < 0 || c.Redis.DB > 15 {
		errors = append(errors, ValidationError{
			Field:   "redis.db",
			Message: fmt.Sprintf("Invalid Redis DB %d. Must be between 0-15", c.Redis.DB),
		})
	}

	if c.Redis.Key == "" {
		errors = append(errors, ValidationError{
			Field:   "redis.key",
			Message: "Redis key for the monitoring log is required",
		})
	}

	if c.Redis.TTLSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "redis.ttl_seconds",
			Message: "TTL cannot be negative",
		})
	}

	return errors
}

func (c *Config) validateNATS() ValidationErrors {
	var errors ValidationErrors

	if !c.NATS.Enabled {
		return errors
	}

	if u, err := url.Parse(c.NATS.URL); err != nil || u.Scheme != "nats" {
		errors = append(errors, ValidationError{
			Field:   "nats.url",
			Message: fmt.Sprintf("Invalid NATS URL '%s'. Must use the nats:// scheme", c.NATS.URL),
		})
	}

	if c.NATS.SubjectPrefix == "" || strings.ContainsAny(c.NATS.SubjectPrefix, " *>") {
		errors = append(errors, ValidationError{
			Field:   "nats.subject_prefix",
			Message: "Subject prefix is required and cannot contain spaces or wildcards",
		})
	}

	if c.NATS.HeartbeatSeconds < 0 {
		errors = append(errors, ValidationError{
			Field:   "nats.heartbeat_seconds",
			Message: "Heartbeat interval must be non-negative (0 disables heartbeats)",
		})
	}

	return errors
}

func (c *Config) validateAPI() ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, validatePort("api.port", c.API.Port)...)

	if c.Metrics.Enabled {
		errors = append(errors, validatePort("metrics.port", c.Metrics.Port)...)
		if c.Metrics.Port == c.API.Port {
			errors = append(errors, ValidationError{
				Field:   "metrics.port",
				Message: fmt.Sprintf("Metrics port %d collides with the API port", c.Metrics.Port),
			})
		}
	}

	return errors
}

func (c *Config) validateAlerts() ValidationErrors {
	var errors ValidationErrors

	if !c.Alerts.Enabled {
		return errors
	}

	if c.Alerts.MinConfidence < 0 || c.Alerts.MinConfidence > 1 {
		errors = append(errors, ValidationError{
			Field:   "alerts.min_confidence",
			Message: fmt.Sprintf("Invalid min_confidence %.2f. Must be between 0-1", c.Alerts.MinConfidence),
		})
	}

	if c.Alerts.PerMinute < 1 {
		errors = append(errors, ValidationError{
			Field:   "alerts.per_minute",
			Message: "Alert rate must be at least 1 per minute",
		})
	}

	if c.Alerts.Telegram.Enabled {
		if c.Alerts.Telegram.BotToken == "" {
			errors = append(errors, ValidationError{
				Field:   "alerts.telegram.bot_token",
				Message: "Telegram bot token is required when Telegram alerts are enabled",
			})
		}
		if len(c.Alerts.Telegram.ChatIDs) == 0 {
			errors = append(errors, ValidationError{
				Field:   "alerts.telegram.chat_ids",
				Message: "At least one Telegram chat id is required when Telegram alerts are enabled",
			})
		}
		switch strings.ToUpper(c.Alerts.Telegram.MinSeverity) {
		case "", "INFO", "WARNING", "CRITICAL":
		default:
			errors = append(errors, ValidationError{
				Field:   "alerts.telegram.min_severity",
				Message: fmt.Sprintf("Invalid min_severity '%s'. Must be INFO, WARNING or CRITICAL", c.Alerts.Telegram.MinSeverity),
			})
		}
	}

	return errors
}

func (c *Config) validatePersistence() ValidationErrors {
	var errors ValidationErrors

	valid := []string{BackendFile, BackendRedis, BackendPostgres}
	for _, b := range c.Persistence.Backends {
		if !contains(valid, strings.ToLower(b)) {
			errors = append(errors, ValidationError{
				Field:   "persistence.backends",
				Message: fmt.Sprintf("Unknown backend '%s'. Must be one of: %v", b, valid),
			})
		}
	}

	if c.Persistence.HasBackend(BackendFile) && c.Persistence.FilePath == "" {
		errors = append(errors, ValidationError{
			Field:   "persistence.file_path",
			Message: "File path is required for the file backend",
		})
	}

	if c.Persistence.HasBackend(BackendRedis) && !c.Redis.Enabled {
		errors = append(errors, ValidationError{
			Field:   "persistence.backends",
			Message: "The redis backend requires redis.enabled",
		})
	}

	if c.Persistence.HasBackend(BackendPostgres) && !c.Database.Enabled {
		errors = append(errors, ValidationError{
			Field:   "persistence.backends",
			Message: "The postgres backend requires database.enabled",
		})
	}

	if c.Persistence.Retries < 0 {
		errors = append(errors, ValidationError{
			Field:   "persistence.retries",
			Message: "Retries must be non-negative",
		})
	}

	if c.Persistence.Breaker.MaxFailures == 0 {
		errors = append(errors, ValidationError{
			Field:   "persistence.breaker.max_failures",
			Message: "Breaker max_failures must be at least 1",
		})
	}

	if c.Persistence.Breaker.TimeoutSeconds < 1 {
		errors = append(errors, ValidationError{
			Field:   "persistence.breaker.timeout_seconds",
			Message: "Breaker timeout_seconds must be at least 1",
		})
	}

	return errors
}

// validateEnvironmentRequirements enforces production-only rules
func (c *Config) validateEnvironmentRequirements() ValidationErrors {
	var errors ValidationErrors

	if c.App.Environment != "production" {
		return errors
	}

	if c.Database.Enabled && c.Database.Password == "" {
		errors = append(errors, ValidationError{
			Field:   "database.password",
			Message: fmt.Sprintf("Database password is required in production (set %s_DATABASE_PASSWORD)", EnvPrefix),
		})
	}

	if c.Database.Enabled && c.Database.SSLMode == "disable" {
		errors = append(errors, ValidationError{
			Field:   "database.ssl_mode",
			Message: "SSL must be enabled for database connections in production",
		})
	}

	if strings.EqualFold(c.App.LogLevel, "debug") || strings.EqualFold(c.App.LogLevel, "trace") {
		errors = append(errors, ValidationError{
			Field:   "app.log_level",
			Message: "Debug logging is not allowed in production",
		})
	}

	for _, origin := range c.API.AllowedOrigins {
		if origin == "*" {
			errors = append(errors, ValidationError{
				Field:   "api.allowed_origins",
				Message: "Wildcard CORS origin is not allowed in production",
			})
		}
	}

	return errors
}

func validatePort(field string, port int) ValidationErrors {
	if port == 0 {
		return ValidationErrors{{Field: field, Message: "Port is required"}}
	}
	if port < 1 || port > 65535 {
		return ValidationErrors{{Field: field, Message: fmt.Sprintf("Invalid port %d. Must be between 1-65535", port)}}
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
