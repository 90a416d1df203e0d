package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage drivers understood by the application.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds the process configuration read from the environment.
type Config struct {
	Port     string `envconfig:"APP_PORT" default:"8080"`
	Env      string `envconfig:"APP_ENV" default:"production"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	StorageDriver string `envconfig:"STORAGE_DRIVER" default:"memory"`
	DatabaseURL   string `envconfig:"DATABASE_URL"`
	SQLitePath    string `envconfig:"SQLITE_PATH" default:"traceability.db"`

	JWTSecret     string        `envconfig:"JWT_SECRET"`
	JWTTTL        time.Duration `envconfig:"JWT_TTL" default:"24h"`
	JWTRefreshTTL time.Duration `envconfig:"JWT_REFRESH_TTL" default:"168h"`

	FrontendURL     string        `envconfig:"FRONTEND_URL" default:"http://localhost:3000"`
	RateLimitWindow time.Duration `envconfig:"RATE_LIMIT_WINDOW" default:"15m"`
	RateLimitMax    int           `envconfig:"RATE_LIMIT_MAX" default:"100"`

	SeedDemo  bool   `envconfig:"SEED_DEMO" default:"false"`
	SeedOwner string `envconfig:"SEED_OWNER"`

	Export ExportConfig
}

// ExportConfig selects where registry snapshots are written. Keys are read
// under the EXPORT_ prefix (EXPORT_DRIVER, EXPORT_S3_BUCKET, ...).
type ExportConfig struct {
	Driver      string `envconfig:"DRIVER" default:"fs"`
	Dir         string `envconfig:"DIR" default:"exports"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3PathStyle bool   `envconfig:"S3_PATH_STYLE" default:"false"`
}

// devSecret signs tokens in development when JWT_SECRET is unset.
const devSecret = "development-only-secret"

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv fills a Config from the process environment only.
func FromEnv() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints and fills development defaults.
func (c *Config) Validate() error {
	switch c.StorageDriver {
	case DriverMemory, DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}
	if c.JWTSecret == "" {
		if !c.Development() {
			return errors.New("JWT_SECRET is required outside development")
		}
		c.JWTSecret = devSecret
	}
	if c.JWTTTL <= 0 || c.JWTRefreshTTL <= 0 {
		return errors.New("JWT_TTL and JWT_REFRESH_TTL must be positive")
	}
	if c.RateLimitMax <= 0 {
		return errors.New("RATE_LIMIT_MAX must be positive")
	}
	if c.RateLimitWindow <= 0 {
		return errors.New("RATE_LIMIT_WINDOW must be positive")
	}
	if c.SeedDemo && c.SeedOwner == "" {
		return errors.New("SEED_OWNER is required when SEED_DEMO is set")
	}
	return nil
}

// Development reports whether the process runs in development mode.
func (c Config) Development() bool { return c.Env == "development" }
