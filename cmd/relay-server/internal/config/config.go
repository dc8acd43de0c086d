// Package config provides configuration management for the relay server.
// It loads settings from an optional .env file and environment variables,
// with sensible defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	relay "github.com/RCK777-BALL/WorkPro3-sub006"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the relay server.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Broker   BrokerConfig
	Relay    relay.Config
	LogLevel string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string
	Port int
}

// DatabaseConfig holds the dead-letter database configuration.
// An empty Driver disables the durable dead-letter sink.
type DatabaseConfig struct {
	Driver   string // mysql, postgres, sqlite3
	DSN      string // Full DSN; overrides the fields below
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Prefix   string // Table prefix (default: "relay_")
}

// BrokerConfig holds MQTT broker configuration.
type BrokerConfig struct {
	URLs            []string // Empty disables the relay
	ClientID        string
	TopicPrefix     string
	SubscribeTopics []string
	StateFile       string // Retry queue snapshot
}

// Load reads .env (if present) and then the environment.
// Follows 12-factor app principles - configuration via environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds the configuration from environment variables only.
func FromEnv() (*Config, error) {
	defaults := relay.DefaultConfig()

	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", ""),
			DSN:      getEnv("DB_DSN", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 3306),
			User:     getEnv("DB_USER", "relay"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "workpro"),
			Prefix:   getEnv("DB_PREFIX", "relay_"),
		},
		Broker: BrokerConfig{
			URLs:            getEnvList("RELAY_BROKERS", []string{"tcp://localhost:1883"}),
			ClientID:        getEnv("RELAY_CLIENT_ID", "workpro-relay"),
			TopicPrefix:     getEnv("RELAY_TOPIC_PREFIX", "workpro/"),
			SubscribeTopics: getEnvList("RELAY_SUBSCRIBE_TOPICS", []string{"workorders", "inventory"}),
			StateFile:       getEnv("RELAY_STATE_FILE", "./data/relay-queue.json"),
		},
		Relay: relay.Config{
			QueueLimit:     getEnvInt("RELAY_QUEUE_LIMIT", defaults.QueueLimit),
			MaxAttempts:    getEnvInt("RELAY_MAX_ATTEMPTS", defaults.MaxAttempts),
			BaseBackoff:    getEnvMillis("RELAY_BASE_BACKOFF_MS", defaults.BaseBackoff),
			MaxBackoff:     getEnvMillis("RELAY_MAX_BACKOFF_MS", defaults.MaxBackoff),
			JitterRatio:    getEnvFloat("RELAY_JITTER_RATIO", defaults.JitterRatio),
			ChunkSize:      getEnvInt("RELAY_CHUNK_SIZE", defaults.ChunkSize),
			MaxMessageSize: int64(getEnvInt("RELAY_MAX_MESSAGE_BYTES", int(defaults.MaxMessageSize))),
			RetryInterval:  getEnvMillis("RELAY_RETRY_INTERVAL_MS", defaults.RetryInterval),
			ChunkTTL:       getEnvMillis("RELAY_CHUNK_TTL_MS", defaults.ChunkTTL),
			SweepInterval:  getEnvMillis("RELAY_CHUNK_SWEEP_INTERVAL_MS", defaults.SweepInterval),
			ChunkDir:       getEnv("RELAY_CHUNK_DIR", defaults.ChunkDir),
		},
		LogLevel: strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}
	cfg.Relay.Enabled = len(cfg.Broker.URLs) > 0

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(&c.Server,
		validation.Field(&c.Server.Host, validation.Required),
		validation.Field(&c.Server.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	); err != nil {
		return fmt.Errorf("server: %w", err)
	}

	if err := validation.ValidateStruct(&c.Database,
		validation.Field(&c.Database.Driver, validation.In("", "mysql", "postgres", "sqlite3")),
		validation.Field(&c.Database.Prefix, validation.Required),
	); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if c.Relay.Enabled {
		if err := validation.ValidateStruct(&c.Broker,
			validation.Field(&c.Broker.ClientID, validation.Required),
			validation.Field(&c.Broker.StateFile, validation.Required),
		); err != nil {
			return fmt.Errorf("broker: %w", err)
		}
	}

	if err := validation.Validate(c.LogLevel, validation.In("debug", "info", "warn", "error")); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if err := c.Relay.Validate(); err != nil {
		return fmt.Errorf("relay: %w", err)
	}
	return nil
}

// DeadLetterSinkEnabled reports whether a database is configured.
func (c *DatabaseConfig) DeadLetterSinkEnabled() bool {
	return c.Driver != ""
}

// GetDSN returns the database connection string based on driver.
func (c *DatabaseConfig) GetDSN() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch strings.ToLower(c.Driver) {
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
			c.User, c.Password, c.Host, c.Port, c.Database)
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			c.Host, c.Port, c.User, c.Password, c.Database)
	case "sqlite3":
		return c.Database // SQLite uses file path as DSN
	default:
		return ""
	}
}

// getEnv retrieves environment variable or returns default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves environment variable as float or returns default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// getEnvMillis retrieves a millisecond count as a duration or returns default value.
func getEnvMillis(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return defaultValue
}

// getEnvList retrieves a comma-separated list. A variable that is set but
// empty yields an empty list, which is how RELAY_BROKERS disables the relay.
func getEnvList(key string, defaultValue []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
