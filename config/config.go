// Package config loads the process's runtime configuration once at
// startup, the same shape as the teacher's config.LoadConfig: a
// package-level .env load via godotenv followed by os.Getenv reads,
// generalized here into an immutable struct instead of package
// globals so cmd/server can construct it once and pass it down.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config is every environment-derived setting bracketengine's server
// needs. Zero-value-safe fields fall back to sensible defaults;
// DatabaseURL and JWTSecret have no safe default and must be set.
type Config struct {
	DatabaseURL string
	JWTSecret   string
	ListenAddr  string
	DBTimeout   time.Duration

	// S3 snapshot export (SPEC_FULL §6.4 domain stack).
	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string

	// WebSocket hub (SPEC_FULL §6.5).
	WSPingInterval time.Duration

	// OrganizerPasswordHash gates mutating HTTP calls (api package);
	// there is no user model, so a single bcrypt hash stands in for an
	// organizer account.
	OrganizerPasswordHash string
}

// Load reads a .env file (if present) then the process environment,
// mirroring the teacher's config.LoadConfig -- unlike the teacher,
// a missing .env file is tolerated (production deployments set real
// environment variables directly, as the teacher's own comment notes
// should be possible but isn't honored by its log.Fatal).
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config: load .env: %w", err)
	}

	cfg := Config{
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		JWTSecret:             os.Getenv("JWT_SECRET"),
		ListenAddr:            getenvDefault("LISTEN_ADDR", ":8080"),
		DBTimeout:             5 * time.Second,
		S3Bucket:              os.Getenv("SNAPSHOT_S3_BUCKET"),
		S3Region:              getenvDefault("SNAPSHOT_S3_REGION", "auto"),
		S3Endpoint:            os.Getenv("SNAPSHOT_S3_ENDPOINT"),
		S3AccessKeyID:         os.Getenv("SNAPSHOT_S3_ACCESS_KEY_ID"),
		S3SecretAccessKey:     os.Getenv("SNAPSHOT_S3_SECRET_ACCESS_KEY"),
		WSPingInterval:        30 * time.Second,
		OrganizerPasswordHash: os.Getenv("ORGANIZER_PASSWORD_HASH"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("config: DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("config: JWT_SECRET is required")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
