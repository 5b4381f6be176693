// Package config loads pifcsv settings from environment variables with
// defaults, and validates them up front so that misconfiguration fails at
// startup instead of halfway through a conversion.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Store    StoreConfig
	Convert  ConvertConfig
	Upload   UploadConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Watch    WatchConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	ReadTimeout  time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"5m"`
	IdleTimeout  time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout bounds graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
}

// DatabaseConfig holds PostgreSQL settings for the postgres store.
type DatabaseConfig struct {
	// URL is the connection string. Supports DATABASE_URL and DB_URL.
	URL string `env:"DATABASE_URL" envAlt:"DB_URL"`

	// MaxConns is the pool size (default: 10)
	MaxConns int `env:"DB_MAX_CONNS" default:"10"`
}

// StoreConfig selects where converted records are persisted.
type StoreConfig struct {
	// Driver is none, postgres or sqlite (default: none)
	Driver string `env:"PIFCSV_STORE" default:"none"`

	// SQLitePath is the database file for the sqlite driver.
	SQLitePath string `env:"PIFCSV_SQLITE_PATH" default:"pifcsv.db"`

	// BatchSize is records per insert batch (default: 500)
	BatchSize int `env:"PIFCSV_STORE_BATCH_SIZE" default:"500"`
}

// ConvertConfig holds conversion defaults shared by the CLI, the watcher and
// the HTTP service.
type ConvertConfig struct {
	// CellLimit caps rows x columns per template; 0 disables (default: 10000001)
	CellLimit int `env:"PIFCSV_CELL_LIMIT" default:"10000001"`

	// Charset is auto, utf-8, latin-1, mac-roman or windows-1252 (default: auto)
	Charset string `env:"PIFCSV_CHARSET" default:"auto"`

	// Format is json, ndjson or yaml (default: json)
	Format string `env:"PIFCSV_FORMAT" default:"json"`

	// MergeProperties merges repeated property columns (default: false)
	MergeProperties bool `env:"PIFCSV_MERGE_PROPERTIES" default:"false"`
}

// UploadConfig holds HTTP upload settings.
type UploadConfig struct {
	// MaxFileSize is the maximum allowed file size in bytes (default: 100MB)
	MaxFileSize int64 `env:"UPLOAD_MAX_FILE_SIZE" default:"104857600"`

	// MaxConcurrent is the maximum number of parallel conversions (default: 4)
	MaxConcurrent int `env:"UPLOAD_MAX_CONCURRENT" default:"4"`

	// MaxWaitTime is how long to wait for a conversion slot (default: 30s)
	MaxWaitTime time.Duration `env:"UPLOAD_MAX_WAIT_TIME" default:"30s"`

	// Timeout bounds a single conversion request (default: 5m)
	Timeout time.Duration `env:"UPLOAD_TIMEOUT" default:"5m"`
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute applies to conversion endpoints (default: 30)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"30"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// WatchConfig holds inbox watcher settings.
type WatchConfig struct {
	// Dir is the inbox directory (default: inbox)
	Dir string `env:"PIFCSV_WATCH_DIR" default:"inbox"`

	// OutputDir receives converted files; empty writes next to the source.
	OutputDir string `env:"PIFCSV_WATCH_OUTPUT_DIR"`

	// Debounce waits for writes to settle before converting (default: 500ms)
	Debounce time.Duration `env:"PIFCSV_WATCH_DEBOUNCE" default:"500ms"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is auto, text or json (default: auto)
	Format string `env:"LOG_FORMAT" default:"auto"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
