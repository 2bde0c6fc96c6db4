package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Addr is the listen address for the HTTP server, e.g. ":8080"
	Addr string

	// DatabaseURL is the Postgres connection string for the catalog
	DatabaseURL string

	// S3Bucket is the bucket holding promoted course materials
	S3Bucket string

	// S3Region overrides the region resolved from the AWS config chain (optional)
	S3Region string

	// AdminPassword is the shared admin secret checked at login
	AdminPassword string

	// AuthSecret signs the admin session cookie
	AuthSecret string

	// SessionDBPath is the bbolt database file backing upload sessions
	SessionDBPath string

	// SessionTTL is how long an abandoned upload session is kept before the sweeper removes it
	SessionTTL time.Duration

	// StorageWriteTimeout bounds a single promotion write to object storage
	StorageWriteTimeout time.Duration
}

// Load reads configuration from the environment. Required values that are
// missing produce an error so the server fails fast at startup.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:                getEnv("ADDR", ":8080"),
		DatabaseURL:         firstEnv("DATABASE_URL", "POSTGRES_URL"),
		S3Bucket:            os.Getenv("S3_BUCKET"),
		S3Region:            os.Getenv("AWS_REGION"),
		AdminPassword:       os.Getenv("ADMIN_PASSWORD"),
		AuthSecret:          firstEnv("AUTH_SECRET", "SECRET"),
		SessionDBPath:       getEnv("SESSION_DB_PATH", "uploads.db"),
		SessionTTL:          24 * time.Hour,
		StorageWriteTimeout: 30 * time.Second,
	}

	if v := os.Getenv("SESSION_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL %q: %w", v, err)
		}
		cfg.SessionTTL = d
	}
	if v := os.Getenv("STORAGE_WRITE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid STORAGE_WRITE_TIMEOUT %q: %w", v, err)
		}
		cfg.StorageWriteTimeout = d
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable not set")
	}
	if cfg.AdminPassword == "" {
		return nil, fmt.Errorf("ADMIN_PASSWORD environment variable not set")
	}
	if cfg.AuthSecret == "" {
		return nil, fmt.Errorf("AUTH_SECRET environment variable not set")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// firstEnv returns the first non-empty value among the given variables.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
