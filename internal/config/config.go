package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Backends a blob store can be built on.
var ValidBackends = []string{"memory", "file", "sqlite", "sheets"}

var blobKeyPattern = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

type Config struct {
	// HTTP Server
	Port string

	// Record store
	DataBackend         string
	DataDir             string
	SQLiteDBPath        string
	StoreKey            string
	StrictPersistence   bool
	AllowEmptyOnCorrupt bool

	// AMQP, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets
	GoogleSpreadsheetID string
	GoogleSheetName     string

	// Replica worker
	ReplicaBackend      string
	ReplicaDataDir      string
	ReplicaSQLiteDBPath string
	SyncInterval        time.Duration

	// HTTP extras
	RateLimitPerMinute int
	CacheTTL           time.Duration
	CacheSize          int

	// Logging
	LogLevel  string
	LogFormat string
	LogFile   string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		DataBackend:         getEnv("DATA_BACKEND", "memory"),
		DataDir:             getEnv("DATA_DIR", "./data"),
		SQLiteDBPath:        getEnv("SQLITE_DB_PATH", "./data/laplog.db"),
		StoreKey:            getEnv("STORE_KEY", "exerciseRecords"),
		StrictPersistence:   getEnvBool("STRICT_PERSISTENCE", false),
		AllowEmptyOnCorrupt: getEnvBool("ALLOW_EMPTY_ON_CORRUPT", false),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "laplog"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "record_changes"),

		GoogleSpreadsheetID: getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:     getEnv("GOOGLE_SHEET_NAME", "Blobs"),

		ReplicaBackend:      getEnv("REPLICA_BACKEND", ""),
		ReplicaDataDir:      getEnv("REPLICA_DATA_DIR", "./data/replica"),
		ReplicaSQLiteDBPath: getEnv("REPLICA_SQLITE_DB_PATH", "./data/replica.db"),
		SyncInterval:        getEnvDuration("SYNC_INTERVAL", 5*time.Minute),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		CacheTTL:           getEnvDuration("CACHE_TTL", time.Minute),
		CacheSize:          getEnvInt("CACHE_SIZE", 256),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogFile:   getEnv("LOG_FILE", ""),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(ValidBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, ValidBackends))
	}
	errors = append(errors, c.validateBackend("data", c.DataBackend, c.DataDir, c.SQLiteDBPath)...)

	if !blobKeyPattern.MatchString(c.StoreKey) {
		errors = append(errors, fmt.Sprintf("invalid store key '%s': use letters, digits, '.', '_' or '-'", c.StoreKey))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.ReplicaBackend != "" {
		if !slices.Contains(ValidBackends, c.ReplicaBackend) {
			errors = append(errors, fmt.Sprintf("invalid replica backend '%s': must be one of %v", c.ReplicaBackend, ValidBackends))
		}
		errors = append(errors, c.validateBackend("replica", c.ReplicaBackend, c.ReplicaDataDir, c.ReplicaSQLiteDBPath)...)
		if c.ReplicaBackend == c.DataBackend && c.sameLocation() {
			errors = append(errors, "replica backend must not point at the primary store")
		}
	}

	if c.SyncInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.CacheTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be positive", c.CacheTTL))
	}

	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func (c *Config) validateBackend(role, backend, dir, dbPath string) []string {
	var errors []string
	switch backend {
	case "file":
		if dir == "" {
			errors = append(errors, fmt.Sprintf("%s directory cannot be empty when using file backend", role))
		}
	case "sqlite":
		if dbPath == "" {
			errors = append(errors, fmt.Sprintf("SQLite database path for %s cannot be empty when using sqlite backend", role))
		}
	case "sheets":
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
	}
	return errors
}

func (c *Config) sameLocation() bool {
	switch c.DataBackend {
	case "file":
		return c.DataDir == c.ReplicaDataDir
	case "sqlite":
		return c.SQLiteDBPath == c.ReplicaSQLiteDBPath
	}
	return true
}

// AMQPEnabled reports whether change notifications should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
