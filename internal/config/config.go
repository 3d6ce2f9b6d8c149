package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"storefront-api/internal/logging"
)

// Config holds all configuration for the storefront API server
type Config struct {
	Port                            string
	DataPath                        string
	LogLevel                        string
	Environment                     string
	AdminAPIKeys                    string
	IdempotencyCacheTTL             string
	IdempotencyCacheCleanupInterval string
	MaxEventsInQueue                string
	MetricsExporter                 string
	MetricsPort                     string
	ShutdownTimeout                 string
	RateLimitEnabled                string
	RateLimitType                   string
	RateLimitRequestsPerMinute      string
}

// ClientConfig holds configuration for the shopper-side storefront client
type ClientConfig struct {
	APIURL           string
	DataDir          string
	LogLevel         string
	PollInterval     string
	NotificationTTL  string
	MaxNotifications string
	HTTPTimeout      string
	EventWaitSeconds string
}

// loadDotEnv loads .env if present. It never overrides variables already set.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("Could not load .env file, continuing with system environment variables only", "error", err)
	} else {
		slog.Info("Successfully loaded .env file")
	}
}

// LoadConfig loads server configuration from .env file and environment variables
func LoadConfig() *Config {
	loadDotEnv()

	config := &Config{
		Port:                            getEnvWithDefault("PORT", "5000"),
		DataPath:                        getEnvWithDefault("DATA_PATH", ""),
		LogLevel:                        getEnvWithDefault("LOG_LEVEL", "info"),
		Environment:                     getEnvWithDefault("ENVIRONMENT", "development"),
		AdminAPIKeys:                    getEnvWithDefault("ADMIN_API_KEYS", ""),
		IdempotencyCacheTTL:             getEnvWithDefault("IDEMPOTENCY_CACHE_TTL", "2m"),
		IdempotencyCacheCleanupInterval: getEnvWithDefault("IDEMPOTENCY_CACHE_CLEANUP_INTERVAL", "30s"),
		MaxEventsInQueue:                getEnvWithDefault("MAX_EVENTS_IN_QUEUE", "10000"),
		MetricsExporter:                 getEnvWithDefault("METRICS_EXPORTER", "scraper"),
		MetricsPort:                     getEnvWithDefault("METRICS_PORT", "9080"),
		ShutdownTimeout:                 getEnvWithDefault("SHUTDOWN_TIMEOUT", "30s"),
		RateLimitEnabled:                getEnvWithDefault("RATE_LIMIT_ENABLED", "false"),
		RateLimitType:                   getEnvWithDefault("RATE_LIMIT_TYPE", "ip"),
		RateLimitRequestsPerMinute:      getEnvWithDefault("RATE_LIMIT_REQUESTS_PER_MINUTE", "100"),
	}

	logging.SetupLogging(config.LogLevel)

	slog.Info("Configuration loaded",
		"port", config.Port,
		"environment", config.Environment,
		"logLevel", config.LogLevel,
		"dataPath", config.DataPath,
		"adminAuth", config.AdminAPIKeys != "",
		"idempotencyCacheTTL", config.IdempotencyCacheTTL,
		"idempotencyCacheCleanupInterval", config.IdempotencyCacheCleanupInterval,
		"maxEventsInQueue", config.MaxEventsInQueue,
		"metricsExporter", config.MetricsExporter,
		"metricsPort", config.MetricsPort,
		"rateLimitEnabled", config.RateLimitEnabled)

	return config
}

// LoadClientConfig loads client configuration from .env file and environment variables
func LoadClientConfig() *ClientConfig {
	loadDotEnv()

	config := &ClientConfig{
		APIURL:           getEnvWithDefault("STOREFRONT_API_URL", "http://localhost:5000"),
		DataDir:          getEnvWithDefault("STOREFRONT_DATA_DIR", "./.storefront"),
		LogLevel:         getEnvWithDefault("LOG_LEVEL", "info"),
		PollInterval:     getEnvWithDefault("POLL_INTERVAL", "5s"),
		NotificationTTL:  getEnvWithDefault("NOTIFICATION_TTL", "5s"),
		MaxNotifications: getEnvWithDefault("MAX_NOTIFICATIONS", "20"),
		HTTPTimeout:      getEnvWithDefault("HTTP_TIMEOUT", "10s"),
		EventWaitSeconds: getEnvWithDefault("EVENT_WAIT_SECONDS", "20"),
	}

	logging.SetupLogging(config.LogLevel)

	slog.Debug("Client configuration loaded",
		"apiURL", config.APIURL,
		"dataDir", config.DataDir,
		"pollInterval", config.PollInterval,
		"notificationTTL", config.NotificationTTL,
		"maxNotifications", config.MaxNotifications)

	return config
}

// getEnvWithDefault gets an environment variable with a default fallback
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// ParseDuration parses value, logging and returning fallback when it is not a positive duration.
func ParseDuration(name, value string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		slog.Warn("Invalid duration, using default", "setting", name, "value", value, "default", fallback.String())
		return fallback
	}
	return d
}

// ParseInt parses value, logging and returning fallback when it is not a positive integer.
func ParseInt(name, value string, fallback int) int {
	n, err := strconv.Atoi(value)
	if err != nil || n <= 0 {
		slog.Warn("Invalid integer, using default", "setting", name, "value", value, "default", fallback)
		return fallback
	}
	return n
}

// ParseBool accepts the usual spellings of true and false, falling back on anything else
func ParseBool(name, value string, fallback bool) bool {
	switch strings.ToLower(value) {
	case "true", "1", "yes", "on", "enabled":
		return true
	case "false", "0", "no", "off", "disabled":
		return false
	}
	slog.Warn("Invalid boolean, using default", "setting", name, "value", value, "default", fallback)
	return fallback
}

// AdminKeys returns the configured admin API keys. Empty means admin routes are open.
func (c *Config) AdminKeys() []string {
	var keys []string
	for _, k := range strings.Split(c.AdminAPIKeys, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
