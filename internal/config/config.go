package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	MongoDB   MongoDBConfig
	Redis     RedisConfig
	Catalog   CatalogConfig
	Directory DirectoryConfig
	Audit     AuditConfig
	Rebuild   RebuildConfig
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port string
}

// MongoDBConfig holds settings for the backing store. Driver selects the
// store implementation: "mongo" (default) or "memory" for local runs.
type MongoDBConfig struct {
	Driver string
	URI    string
	DBName string
}

// RedisConfig holds settings for the real-time broadcast channel. An empty
// address disables broadcasting.
type RedisConfig struct {
	Addr     string
	Password string
}

// CatalogConfig points at the product catalog service.
type CatalogConfig struct {
	BaseURL string
	APIKey  string
}

// DirectoryConfig points at the tenant/business directory service.
type DirectoryConfig struct {
	BaseURL string
	APIKey  string
}

// AuditConfig holds audit-session tuning knobs.
type AuditConfig struct {
	// DedupeWindow is the trailing window within which a repeat scan of the
	// same barcode by the same worker is collapsed.
	DedupeWindow time.Duration
}

// RebuildConfig holds the balance cache rebuild schedule.
type RebuildConfig struct {
	CronSchedule string
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Ignore the returned error here; missing .env files are acceptable when
		// configuration comes from the environment directly.
		_ = godotenv.Load()
	}

	dedupeWindow, err := time.ParseDuration(getenvWithDefault("AUDIT_DEDUPE_WINDOW", "800ms"))
	if err != nil {
		return nil, fmt.Errorf("invalid AUDIT_DEDUPE_WINDOW: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getenvWithDefault("APP_PORT", "8080"),
		},
		MongoDB: MongoDBConfig{
			Driver: getenvWithDefault("STORE_DRIVER", "mongo"),
			URI:    getenvWithDefault("MONGODB_URI", "mongodb://localhost:27017"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "inventory"),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		Catalog: CatalogConfig{
			BaseURL: os.Getenv("CATALOG_BASE_URL"),
			APIKey:  os.Getenv("CATALOG_API_KEY"),
		},
		Directory: DirectoryConfig{
			BaseURL: os.Getenv("DIRECTORY_BASE_URL"),
			APIKey:  os.Getenv("DIRECTORY_API_KEY"),
		},
		Audit: AuditConfig{
			DedupeWindow: dedupeWindow,
		},
		Rebuild: RebuildConfig{
			CronSchedule: getenvWithDefault("BALANCE_REBUILD_SCHEDULE", "*/10 * * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	switch c.MongoDB.Driver {
	case "mongo":
		if c.MongoDB.URI == "" {
			return errors.New("MONGODB_URI must be provided")
		}
		if c.MongoDB.DBName == "" {
			return errors.New("MONGODB_DB_NAME must be provided")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.MongoDB.Driver)
	}

	if c.Catalog.BaseURL == "" {
		return errors.New("CATALOG_BASE_URL must be provided")
	}

	if c.Directory.BaseURL == "" {
		return errors.New("DIRECTORY_BASE_URL must be provided")
	}

	if c.Audit.DedupeWindow <= 0 {
		return errors.New("AUDIT_DEDUPE_WINDOW must be positive")
	}

	if c.Rebuild.CronSchedule == "" {
		return errors.New("BALANCE_REBUILD_SCHEDULE must be provided")
	}

	return nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
