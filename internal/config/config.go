// Package config provides centralized configuration management for the CRM
// server. It loads configuration from environment variables with sensible
// defaults and validates all settings on startup to fail fast on
// misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Import   ImportConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
	Report   ReportConfig
	SMTP     SMTPConfig
	Redis    RedisConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" envAlt:"PORT" default:"8080"`

	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"60s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds persistence settings.
type DatabaseConfig struct {
	// Driver selects the store: postgres or memory (default: postgres)
	Driver string `env:"DB_DRIVER" default:"postgres"`

	// URL is the PostgreSQL connection string, required for the postgres driver.
	// Supports both DATABASE_URL and DB_URL env vars for compatibility.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// Migrate applies the embedded schema on startup (default: true)
	Migrate bool `env:"DB_MIGRATE" default:"true"`

	MaxConns        int           `env:"DB_MAX_CONNS" default:"20"`
	MinConns        int           `env:"DB_MIN_CONNS" default:"4"`
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// ImportConfig holds CSV import settings.
type ImportConfig struct {
	// MaxFileSize is the maximum accepted upload size in bytes (default: 10MB)
	MaxFileSize int64 `env:"IMPORT_MAX_FILE_SIZE" default:"10485760"`

	// MaxRows caps the data rows read from one file (default: 10000)
	MaxRows int `env:"IMPORT_MAX_ROWS" default:"10000"`

	// MaxConcurrent is the number of imports allowed to run at once (default: 1)
	MaxConcurrent int `env:"IMPORT_MAX_CONCURRENT" default:"1"`

	// MaxWaitTime is how long to wait for an import slot (default: 30s)
	MaxWaitTime time.Duration `env:"IMPORT_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single import (default: 5m)
	Timeout time.Duration `env:"IMPORT_TIMEOUT" default:"5m"`

	// PreviewRows is the default number of rows returned by a preview (default: 10)
	PreviewRows int `env:"IMPORT_PREVIEW_ROWS" default:"10"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// ImportLimit is requests per minute for import endpoints (default: 10)
	ImportLimit int `env:"RATE_LIMIT_IMPORT" default:"10"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// AllowedOrigins is a comma-separated list of CORS origins.
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey rejects /api requests without a valid X-API-Key (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys.
	APIKeys []string `env:"API_KEYS"`

	// TrustedProxies lists CIDRs whose X-Real-IP / X-Forwarded-For headers
	// are believed. Empty means client headers are ignored.
	TrustedProxies []string `env:"TRUSTED_PROXIES"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// ReportConfig holds scheduled report settings. Hours are in the
// configured timezone.
type ReportConfig struct {
	Enabled bool `env:"REPORT_ENABLED" default:"true"`

	// Recipients receive every scheduled report.
	Recipients []string `env:"REPORT_RECIPIENTS" envAlt:"CRM_REPORT_RECIPIENTS"`

	Timezone string `env:"REPORT_TIMEZONE" default:"UTC"`

	WeeklyDay   string `env:"REPORT_WEEKLY_DAY" default:"monday"`
	WeeklyHour  int    `env:"REPORT_WEEKLY_HOUR" default:"8"`
	MonthlyDay  int    `env:"REPORT_MONTHLY_DAY" default:"1"`
	MonthlyHour int    `env:"REPORT_MONTHLY_HOUR" default:"7"`
	StaleHour   int    `env:"REPORT_STALE_HOUR" default:"9"`

	// StaleDays is the no-contact threshold for the stale leads alert (default: 30)
	StaleDays int `env:"REPORT_STALE_DAYS" default:"30"`
}

// SMTPConfig holds outgoing mail settings. An empty Host logs emails
// instead of sending them.
type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" default:"587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM" default:"crm@localhost"`
}

// RedisConfig holds key-value store settings for email templates. An empty
// URL keeps templates in memory.
type RedisConfig struct {
	URL       string `env:"REDIS_URL"`
	Namespace string `env:"REDIS_NAMESPACE" default:"crm"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}

// Location resolves the report timezone, falling back to UTC.
func (c *ReportConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Weekday parses WeeklyDay. The second result is false for an unknown name.
func (c *ReportConfig) Weekday() (time.Weekday, bool) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if equalFold(d.String(), c.WeeklyDay) {
			return d, true
		}
	}
	return time.Monday, false
}
