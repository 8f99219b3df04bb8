// Package config provides application configuration loaded from environment variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
)

// Realtime change sources.
const (
	RealtimeLocal    = "local"
	RealtimePostgres = "postgres"
	RealtimeSupabase = "supabase"
)

// ErrInvalidConfig marks configuration that cannot start the server.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig
	Store    StoreConfig
	Database DatabaseConfig
	Supabase SupabaseConfig
	Realtime RealtimeConfig
	Redis    RedisConfig
	App      AppConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string
	ReadTimeout  int // seconds
	WriteTimeout int // seconds
	IdleTimeout  int // seconds
}

// StoreConfig selects the data-access backend.
type StoreConfig struct {
	Backend string
	// SQLitePath is used when Backend is sqlite.
	SQLitePath string
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// URL, when set, takes precedence over the discrete fields.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// SupabaseConfig holds the hosted project endpoint and its anonymous key.
type SupabaseConfig struct {
	URL     string
	AnonKey string
}

// RealtimeConfig selects where change signals come from.
type RealtimeConfig struct {
	Source string
	// HeartbeatSeconds is the websocket heartbeat period for the supabase source.
	HeartbeatSeconds int
}

// RedisConfig enables the shared invoice-number counter when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Dev        bool
	Migrations bool
	LogLevel   string
}

// DSN returns the PostgreSQL connection string in key=value format.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// ConnURL returns the PostgreSQL connection string in URL format, as pgx expects for LISTEN.
func (d DatabaseConfig) ConnURL() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode,
	)
}

// Load reads configuration from environment variables.
// It uses sensible defaults for local development.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getEnvInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvInt("SERVER_WRITE_TIMEOUT", 0),
			IdleTimeout:  getEnvInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Store: StoreConfig{
			Backend:    strings.ToLower(getEnv("STORE_BACKEND", BackendSupabase)),
			SQLitePath: getEnv("SQLITE_PATH", "facturas.db"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "facturas"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "facturas"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Supabase: SupabaseConfig{
			URL:     strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
			AnonKey: getEnv("SUPABASE_ANON_KEY", ""),
		},
		Realtime: RealtimeConfig{
			Source:           strings.ToLower(getEnv("REALTIME_SOURCE", "")),
			HeartbeatSeconds: getEnvInt("REALTIME_HEARTBEAT", 30),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		App: AppConfig{
			Dev:        getEnvBool("DEV", false),
			Migrations: getEnvBool("MIGRATIONS", false),
			LogLevel:   getEnv("LOG_LEVEL", "info"),
		},
	}
}

// RealtimeSource returns the configured change source, defaulting to the one
// matching the store backend.
func (c *Config) RealtimeSource() string {
	if c.Realtime.Source != "" {
		return c.Realtime.Source
	}
	switch c.Store.Backend {
	case BackendSupabase:
		return RealtimeSupabase
	case BackendPostgres:
		return RealtimePostgres
	default:
		return RealtimeLocal
	}
}

// Validate reports missing or inconsistent settings. The server refuses to
// start on any error.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendSupabase:
		if c.Supabase.URL == "" || c.Supabase.AnonKey == "" {
			return errors.Mark(errors.New("SUPABASE_URL and SUPABASE_ANON_KEY are required"), ErrInvalidConfig)
		}
	case BackendPostgres:
		if c.Database.URL == "" && (c.Database.Host == "" || c.Database.DBName == "") {
			return errors.Mark(errors.New("DATABASE_URL or DB_HOST/DB_NAME are required"), ErrInvalidConfig)
		}
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return errors.Mark(errors.New("SQLITE_PATH is required"), ErrInvalidConfig)
		}
	default:
		return errors.Mark(errors.Newf("unknown STORE_BACKEND %q", c.Store.Backend), ErrInvalidConfig)
	}

	switch c.RealtimeSource() {
	case RealtimeLocal:
	case RealtimePostgres:
		if c.Store.Backend != BackendPostgres {
			return errors.Mark(errors.New("REALTIME_SOURCE=postgres needs STORE_BACKEND=postgres"), ErrInvalidConfig)
		}
	case RealtimeSupabase:
		if c.Supabase.URL == "" || c.Supabase.AnonKey == "" {
			return errors.Mark(errors.New("REALTIME_SOURCE=supabase needs SUPABASE_URL and SUPABASE_ANON_KEY"), ErrInvalidConfig)
		}
	default:
		return errors.Mark(errors.Newf("unknown REALTIME_SOURCE %q", c.Realtime.Source), ErrInvalidConfig)
	}
	return nil
}

// getEnv returns the value of an environment variable or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

// getEnvBool returns the boolean value of an environment variable or a default.
// Accepts "1", "true", "yes" as true; everything else is false.
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "1" || value == "true" || value == "yes"
}
