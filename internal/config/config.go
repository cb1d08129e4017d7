package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL   string
	RunMigrations bool

	// Auth0
	Auth0Domain   string
	Auth0Audience string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Rate limiting of mutating requests, per tenant
	RateLimitPerMinute int
	RateLimitBurst     int

	// Allocation engine
	Redis                RedisConfig
	MutationLockTTL      time.Duration
	LegacyMethodFallback bool

	// Background utilization refresh; zero disables the worker
	UtilizationRefreshInterval time.Duration

	// Report exports; disabled when S3_BUCKET is empty
	S3 S3Config
}

// RedisConfig configures the shared mutation guard. Empty Address means in-process guard.
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Region          string
	Bucket          string
	Prefix          string
	AccessKeyID     string
	SecretAccessKey string
	Endpoint        string // Optional: for MinIO/LocalStack local dev
	PresignExpiry   time.Duration
}

// Enabled reports whether exports should be uploaded
func (c S3Config) Enabled() bool {
	return c.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:          getEnv("DATABASE_URL", ""),
		RunMigrations:        getEnvBool("RUN_MIGRATIONS", true),
		Auth0Domain:          getEnv("AUTH0_DOMAIN", ""),
		Auth0Audience:        getEnv("AUTH0_AUDIENCE", ""),
		Port:                 getEnv("PORT", "8080"),
		CORSOrigins:          splitList(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		Env:                  getEnv("ENV", "development"),
		RateLimitPerMinute:   getEnvInt("RATE_LIMIT_PER_MINUTE", 100),
		RateLimitBurst:       getEnvInt("RATE_LIMIT_BURST", 10),
		MutationLockTTL:      getEnvDuration("MUTATION_LOCK_TTL", 30*time.Second),
		LegacyMethodFallback: getEnvBool("ALLOCATION_LEGACY_METHOD_FALLBACK", false),

		UtilizationRefreshInterval: getEnvDuration("UTILIZATION_REFRESH_INTERVAL", 0),

		Redis: RedisConfig{
			Address:  getEnv("REDIS_ADDRESS", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		S3: S3Config{
			Region:          getEnv("S3_REGION", "us-east-1"),
			Bucket:          getEnv("S3_BUCKET", ""),
			Prefix:          getEnv("S3_PREFIX", "reports"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			Endpoint:        getEnv("S3_ENDPOINT", ""), // Empty = use AWS
			PresignExpiry:   getEnvDuration("S3_PRESIGN_EXPIRY", 15*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether ENV is production
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.Auth0Domain == "" {
		return fmt.Errorf("AUTH0_DOMAIN is required")
	}
	if c.Auth0Audience == "" {
		return fmt.Errorf("AUTH0_AUDIENCE is required")
	}
	if c.UtilizationRefreshInterval < 0 {
		return fmt.Errorf("UTILIZATION_REFRESH_INTERVAL must not be negative")
	}
	if c.MutationLockTTL <= 0 {
		return fmt.Errorf("MUTATION_LOCK_TTL must be positive")
	}
	if c.RateLimitPerMinute <= 0 || c.RateLimitBurst <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE and RATE_LIMIT_BURST must be positive")
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
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
