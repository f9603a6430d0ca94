// Package config provides configuration management for the player-state sync
// service. It handles environment variable loading, validation, and provides
// secure defaults for production deployment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// envLookup reads an environment variable. Factored out so tests can stub
// configuration without mutating the process environment via t.Setenv races.
var envLookup = os.Getenv

// Config represents the service configuration with environment variable
// support. All configuration values can be set via environment variables or
// will use secure defaults. Config is thread-safe; all field access should
// be done through getter methods when used concurrently, or by holding the
// mutex directly.
type Config struct {
	// mu provides thread-safe access to configuration fields when the Config
	// instance is shared across goroutines. Use RLock for reads and Lock for
	// writes.
	mu sync.RWMutex `json:"-"`

	// Database connection settings

	DBHost            string        `json:"db_host"`
	DBPort            int           `json:"db_port"`
	DBUser            string        `json:"db_user"`
	DBPassword        string        `json:"db_password"`
	DBName            string        `json:"db_name"`
	DBSSLMode         string        `json:"db_sslmode"`
	DBMaxOpenConns    int           `json:"db_max_open_conns"`
	DBMaxIdleConns    int           `json:"db_max_idle_conns"`
	DBConnMaxLifetime time.Duration `json:"db_conn_max_lifetime"`

	// HTTPPort is the port the offline-tooling HTTP surface listens on.
	HTTPPort int `json:"http_port"`

	// MetricsPort is the port the Prometheus metrics endpoint listens on.
	MetricsPort int `json:"metrics_port"`

	// SyncAPIKey is the shared secret required in the X-API-Key header for
	// the HTTP surface (§6.3).
	SyncAPIKey string `json:"-"`

	// GameServers is the parsed "url|token" list from GAME_SERVERS.
	GameServers []GameServerDialTarget `json:"game_servers"`

	// Connector reconnect/backoff shape.
	ReconnectMaxAttempts int           `json:"reconnect_max_attempts"` // 0 = unlimited
	ReconnectDelay       time.Duration `json:"reconnect_delay"`
	ReconnectDelayMax    time.Duration `json:"reconnect_delay_max"`
	ReconnectTimeout     time.Duration `json:"reconnect_timeout"`

	// Session-lock and sequence-tolerance constants (§4.2, §6.4). Exposed as
	// configuration so tests can shrink the windows, but production always
	// uses the spec defaults.
	ActiveServerTimeout time.Duration `json:"active_server_timeout"`
	SeqTolerance        int64         `json:"seq_tolerance"`
	SeqToleranceRecover int64         `json:"seq_tolerance_recovery"`

	// LogLevel controls the logging verbosity (debug, info, warn, error).
	LogLevel string `json:"log_level"`

	// LogFormat selects "json" (default, production) or "text" (dev).
	LogFormat string `json:"log_format"`

	// EnableDevMode relaxes WebSocket origin checks on the reverse listener.
	EnableDevMode bool `json:"enable_dev_mode"`

	// RateLimitRequestsPerSecond/Burst bound the offline HTTP surface per
	// API key.
	RateLimitRequestsPerSecond float64 `json:"rate_limit_requests_per_second"`
	RateLimitBurst             int     `json:"rate_limit_burst"`

	// ShutdownTimeout bounds graceful shutdown of the HTTP and connector
	// subsystems.
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`

	// SweepInterval is how often the sweeper checks for disconnected
	// servers whose players should be released.
	SweepInterval time.Duration `json:"sweep_interval"`

	// AuditRetention is how long non-flagged audit entries are kept by the
	// retention task; 0 disables compaction.
	AuditRetention time.Duration `json:"audit_retention"`
}

// GameServerDialTarget is one entry of the GAME_SERVERS configuration list.
type GameServerDialTarget struct {
	URL   string
	Token string
}

// Load creates a new Config instance by reading from environment variables
// and applying secure defaults. It validates all configuration values and
// returns an error if any required values are missing or invalid.
func Load() (*Config, error) {
	logrus.WithFields(logrus.Fields{
		"function": "Load",
		"package":  "config",
	}).Debug("entering Load")

	cfg := &Config{
		DBHost:            getEnvAsString("DB_HOST", "localhost"),
		DBPort:            getEnvAsInt("DB_PORT", 5432),
		DBUser:            getEnvAsString("DB_USER", "syncservice"),
		DBPassword:        getEnvAsString("DB_PASSWORD", ""),
		DBName:            getEnvAsString("DB_NAME", "playersync"),
		DBSSLMode:         getEnvAsString("DB_SSLMODE", "disable"),
		DBMaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),

		HTTPPort:    getEnvAsInt("HTTP_PORT", 8090),
		MetricsPort: getEnvAsInt("METRICS_PORT", 9090),

		SyncAPIKey:  getEnvAsString("SYNC_API_KEY", ""),
		GameServers: parseGameServers(getEnvAsString("GAME_SERVERS", "")),

		ReconnectMaxAttempts: getEnvAsInt("GAME_SERVER_RECONNECT_ATTEMPTS", 0),
		ReconnectDelay:       getEnvAsDuration("GAME_SERVER_RECONNECT_DELAY", time.Second),
		ReconnectDelayMax:    getEnvAsDuration("GAME_SERVER_RECONNECT_DELAY_MAX", 30*time.Second),
		ReconnectTimeout:     getEnvAsDuration("GAME_SERVER_RECONNECT_TIMEOUT", 10*time.Second),

		ActiveServerTimeout: getEnvAsDuration("ACTIVE_SERVER_TIMEOUT", 30*time.Second),
		SeqTolerance:        int64(getEnvAsInt("SEQ_TOLERANCE", 10)),
		SeqToleranceRecover: int64(getEnvAsInt("SEQ_TOLERANCE_RECOVERY", 100)),

		LogLevel:      getEnvAsString("LOG_LEVEL", "info"),
		LogFormat:     getEnvAsString("LOG_FORMAT", "json"),
		EnableDevMode: getEnvAsBool("ENABLE_DEV_MODE", false),

		RateLimitRequestsPerSecond: getEnvAsFloat64("RATE_LIMIT_REQUESTS_PER_SECOND", 10),
		RateLimitBurst:             getEnvAsInt("RATE_LIMIT_BURST", 20),

		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
		SweepInterval:   getEnvAsDuration("SWEEP_INTERVAL", 15*time.Second),
		AuditRetention:  getEnvAsDuration("AUDIT_RETENTION", 0),
	}

	if err := cfg.validate(); err != nil {
		logrus.WithFields(logrus.Fields{
			"function": "Load",
			"package":  "config",
			"error":    err,
		}).Error("configuration validation failed")
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":  "Load",
		"package":   "config",
		"db_host":   cfg.DBHost,
		"http_port": cfg.HTTPPort,
	}).Debug("exiting Load - configuration successfully loaded and validated")

	return cfg, nil
}

// DSN returns the Postgres connection string built from the DB_* fields.
func (c *Config) DSN() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

func (c *Config) validate() error {
	if err := c.validateServerSettings(); err != nil {
		return err
	}
	if err := c.validateTimeouts(); err != nil {
		return err
	}
	if err := c.validateRateLimitConfig(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateServerSettings() error {
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("http port must be between 1 and 65535, got %d", c.HTTPPort)
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	found := false
	for _, level := range validLogLevels {
		if strings.ToLower(c.LogLevel) == level {
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("log level must be one of %v, got %s", validLogLevels, c.LogLevel)
	}

	return nil
}

func (c *Config) validateTimeouts() error {
	if c.ActiveServerTimeout <= 0 {
		return fmt.Errorf("active server timeout must be positive, got %v", c.ActiveServerTimeout)
	}
	if c.SeqTolerance < 0 || c.SeqToleranceRecover < c.SeqTolerance {
		return fmt.Errorf("seq tolerance for recovery must be >= normal tolerance")
	}
	return nil
}

func (c *Config) validateRateLimitConfig() error {
	if c.RateLimitRequestsPerSecond <= 0 {
		return fmt.Errorf("rate limit requests per second must be greater than 0")
	}
	if c.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be greater than 0")
	}
	return nil
}

// parseGameServers parses the GAME_SERVERS "url|token,url|token" list.
func parseGameServers(raw string) []GameServerDialTarget {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	targets := make([]GameServerDialTarget, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		fields := strings.SplitN(p, "|", 2)
		if len(fields) != 2 {
			logrus.WithField("entry", p).Warn("ignoring malformed GAME_SERVERS entry, expected url|token")
			continue
		}
		targets = append(targets, GameServerDialTarget{URL: fields[0], Token: fields[1]})
	}
	return targets
}

// Helper functions for environment variable parsing with type safety and
// defaults.

func getEnvAsString(key, defaultValue string) string {
	if value := envLookup(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := envLookup(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := envLookup(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := envLookup(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := envLookup(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
