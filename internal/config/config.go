package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Config holds all configuration for the WardScope server.
type Config struct {
	Server   ServerConfig
	Upload   UploadConfig
	Queue    QueueConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Admin    AdminConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port            int
	Env             string
	ShutdownTimeout time.Duration
}

type UploadConfig struct {
	Dir      string
	MaxBytes int64
	MaxAge   time.Duration
}

type QueueConfig struct {
	Retention       time.Duration
	CleanupInterval time.Duration
	PhaseScale      float64
}

// DatabaseConfig configures the optional analysis archive. An empty URL disables it.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	MigrationsDir   string
}

// RedisConfig configures the optional status mirror and upload rate limiter.
// An empty URL disables both.
type RedisConfig struct {
	URL                string
	RateLimitPerMinute int
}

type AdminConfig struct {
	TokenHash string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load reads configuration from environment variables and returns a validated Config.
// Returns an error with a descriptive message if any value is invalid.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:            envInt("WARDSCOPE_PORT", 8080),
			Env:             envString("WARDSCOPE_ENV", "development"),
			ShutdownTimeout: envDuration("WARDSCOPE_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Upload: UploadConfig{
			Dir:      envString("UPLOAD_DIR", "./uploads"),
			MaxBytes: envInt64("UPLOAD_MAX_BYTES", 50*1024*1024),
			MaxAge:   envDuration("UPLOAD_MAX_AGE", 24*time.Hour),
		},
		Queue: QueueConfig{
			Retention:       envDuration("QUEUE_RETENTION", time.Hour),
			CleanupInterval: envDuration("QUEUE_CLEANUP_INTERVAL", 30*time.Minute),
			PhaseScale:      envFloat("QUEUE_PHASE_SCALE", 1.0),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
			MigrationsDir:   envString("MIGRATIONS_DIR", "./migrations"),
		},
		Redis: RedisConfig{
			URL:                os.Getenv("REDIS_URL"),
			RateLimitPerMinute: envInt("RATE_LIMIT_PER_MINUTE", 20),
		},
		Admin: AdminConfig{
			TokenHash: os.Getenv("ADMIN_TOKEN_HASH"),
		},
		CORS: CORSConfig{
			AllowedOrigins: envList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("WARDSCOPE_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if strings.TrimSpace(c.Upload.Dir) == "" {
		return fmt.Errorf("UPLOAD_DIR must not be empty")
	}
	if c.Upload.MaxBytes <= 0 {
		return fmt.Errorf("UPLOAD_MAX_BYTES must be positive, got %d", c.Upload.MaxBytes)
	}
	if c.Upload.MaxAge <= 0 {
		return fmt.Errorf("UPLOAD_MAX_AGE must be positive, got %s", c.Upload.MaxAge)
	}

	if c.Queue.Retention <= 0 {
		return fmt.Errorf("QUEUE_RETENTION must be positive, got %s", c.Queue.Retention)
	}
	if c.Queue.CleanupInterval <= 0 {
		return fmt.Errorf("QUEUE_CLEANUP_INTERVAL must be positive, got %s", c.Queue.CleanupInterval)
	}
	if c.Queue.PhaseScale < 0 {
		return fmt.Errorf("QUEUE_PHASE_SCALE must not be negative, got %g", c.Queue.PhaseScale)
	}

	if c.Database.URL != "" &&
		!strings.HasPrefix(c.Database.URL, "postgres://") && !strings.HasPrefix(c.Database.URL, "postgresql://") {
		return fmt.Errorf("DATABASE_URL must start with postgres:// or postgresql://")
	}

	if c.Redis.URL != "" &&
		!strings.HasPrefix(c.Redis.URL, "redis://") && !strings.HasPrefix(c.Redis.URL, "rediss://") {
		return fmt.Errorf("REDIS_URL must start with redis:// or rediss://, got %q", c.Redis.URL)
	}
	if c.Redis.RateLimitPerMinute <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be positive, got %d", c.Redis.RateLimitPerMinute)
	}

	if c.Admin.TokenHash != "" {
		if _, err := bcrypt.Cost([]byte(c.Admin.TokenHash)); err != nil {
			return fmt.Errorf("ADMIN_TOKEN_HASH is not a bcrypt hash: %w", err)
		}
	}

	return nil
}

// IsProduction reports whether the server runs with WARDSCOPE_ENV=production.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

// envList splits a comma separated value, dropping empty items.
func envList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
