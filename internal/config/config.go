package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	applog "carteira/internal/log"
	"carteira/internal/services"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

type Config struct {
	// Backend selection
	DataBackend string

	// Database
	SQLiteDBPath string

	// Seed ledger for the memory backend
	SeedFile string

	// Ledger behaviour
	Timezone       string
	DedupStrategy  string
	StatsCacheSize int
	StatsCacheTTL  time.Duration

	// Worker
	ProjectionInterval time.Duration

	// AMQP (disabled when AMQPURL is empty)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets report export
	GoogleSpreadsheetID   string
	GoogleReportSheetName string

	// Logging
	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/carteira.db"),
		SeedFile:     getEnv("SEED_FILE", "./data/seed.toml"),

		Timezone:       getEnv("LEDGER_TIMEZONE", "Local"),
		DedupStrategy:  getEnv("DEDUP_STRATEGY", "series"),
		StatsCacheSize: getEnvInt("STATS_CACHE_SIZE", 24),
		StatsCacheTTL:  getEnvDuration("STATS_CACHE_TTL", 5*time.Minute),

		ProjectionInterval: getEnvDuration("PROJECTION_INTERVAL", time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "carteira"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleReportSheetName: getEnv("GOOGLE_REPORT_SHEET_NAME", "Reports"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Location resolves Timezone. "Local" and "" mean the host zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate data backend
	validBackends := []string{BackendMemory, BackendSQLite}
	if !oneOf(validBackends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	// Validate SQLite configuration if backend is sqlite
	if c.DataBackend == BackendSQLite {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if _, err := services.GetDuplicateMatcher(c.DedupStrategy); err != nil {
		errors = append(errors, fmt.Sprintf("invalid dedup strategy '%s': must be one of %v", c.DedupStrategy, services.DuplicateMatcherNames()))
	}

	if c.StatsCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid stats cache size %d: must be at least 1", c.StatsCacheSize))
	} else if c.StatsCacheSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid stats cache size %d: must be at most 1000", c.StatsCacheSize))
	}

	if c.StatsCacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid stats cache TTL %v: must be at least 1 second", c.StatsCacheTTL))
	}

	// Validate worker configuration
	if c.ProjectionInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid projection interval %v: must be at least 1 minute", c.ProjectionInterval))
	} else if c.ProjectionInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid projection interval %v: must be at most 24 hours", c.ProjectionInterval))
	}

	// Validate AMQP URL if provided
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

	if c.GoogleSpreadsheetID != "" && strings.TrimSpace(c.GoogleReportSheetName) == "" {
		errors = append(errors, "Google report sheet name is required when a spreadsheet ID is set")
	}

	if _, err := applog.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn warning error]", c.LogLevel))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// AMQPEnabled reports whether ledger events should be published.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

func oneOf(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
