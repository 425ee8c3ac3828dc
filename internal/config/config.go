package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/joho/godotenv"
)

type Config struct {
	// Storage
	DataBackend   string
	DataFile      string
	SQLiteDBPath  string
	DatabaseURL   string
	StoreKey      string
	EncryptionKey string
	SigningKey    string

	// Persistence
	PersistMaxRetries int
	ShutdownTimeout   time.Duration

	// Logging
	LogLevel        string
	LogAMQPURL      string
	LogAMQPExchange string
	LogAMQPQueue    string

	// Display
	Currency string
}

var validBackends = []string{"memory", "file", "sqlite", "postgres"}

// LoadEnvFile loads a .env file for local use. A missing file is not an
// error.
func LoadEnvFile(filenames ...string) {
	_ = godotenv.Load(filenames...)
}

func Load() *Config {
	return &Config{
		DataBackend:   getEnv("DATA_BACKEND", "sqlite"),
		DataFile:      getEnv("DATA_FILE", "./data/agrocost.json"),
		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/agrocost.db"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		StoreKey:      getEnv("STORE_KEY", "@expenses"),
		EncryptionKey: getEnv("STORE_ENCRYPTION_KEY", ""),
		SigningKey:    getEnv("STORE_SIGNING_KEY", ""),

		PersistMaxRetries: getEnvInt("PERSIST_MAX_RETRIES", 0),
		ShutdownTimeout:   getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		LogLevel:        getEnv("LOG_LEVEL", "warn"),
		LogAMQPURL:      getEnv("LOG_AMQP_URL", ""),
		LogAMQPExchange: getEnv("LOG_AMQP_EXCHANGE", "agrocost"),
		LogAMQPQueue:    getEnv("LOG_AMQP_QUEUE", "agrocost_errors"),

		Currency: getEnv("CURRENCY", money.EUR),
	}
}

// Encrypted reports whether stored values are sealed.
func (c *Config) Encrypted() bool {
	return c.EncryptionKey != "" || c.SigningKey != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "file":
		if c.DataFile == "" {
			errors = append(errors, "data file path cannot be empty when using file backend")
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL: %v", err))
		} else if u.Scheme != "postgres" && u.Scheme != "postgresql" {
			errors = append(errors, fmt.Sprintf("invalid DATABASE_URL scheme '%s': must be 'postgres' or 'postgresql'", u.Scheme))
		}
	}

	if strings.TrimSpace(c.StoreKey) == "" {
		errors = append(errors, "store key cannot be empty")
	}

	// Encryption needs both secrets
	if c.Encrypted() {
		if len(c.EncryptionKey) < 32 {
			errors = append(errors, "STORE_ENCRYPTION_KEY must be at least 32 characters")
		}
		if len(c.SigningKey) < 32 {
			errors = append(errors, "STORE_SIGNING_KEY must be at least 32 characters")
		}
	}

	if c.PersistMaxRetries < 0 {
		errors = append(errors, fmt.Sprintf("invalid persist max retries %d: must not be negative", c.PersistMaxRetries))
	} else if c.PersistMaxRetries > 10 {
		errors = append(errors, fmt.Sprintf("invalid persist max retries %d: must be at most 10", c.PersistMaxRetries))
	}

	if c.ShutdownTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 100ms", c.ShutdownTimeout))
	}

	// Validate AMQP log sink if provided
	if c.LogAMQPURL != "" {
		if parsedURL, err := url.Parse(c.LogAMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.LogAMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.LogAMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.LogAMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if money.GetCurrency(c.Currency) == nil {
		errors = append(errors, fmt.Sprintf("unknown currency '%s'", c.Currency))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
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
