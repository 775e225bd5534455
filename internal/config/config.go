package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server    ServerConfig
	Storage   StorageConfig
	Cache     CacheConfig
	Query     QueryConfig
	Keys      KeysConfig
	Audit     AuditConfig
	RateLimit RateLimitConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
}

// StorageConfig holds remote artifact store settings.
type StorageConfig struct {
	Bucket    string
	Region    string
	Endpoint  string // non-empty for S3-compatible stores (MinIO, GCS interop)
	AccessKey string
	SecretKey string //nolint:gosec // G117: object store credential config
}

// CacheConfig holds the local artifact cache settings.
type CacheConfig struct {
	Dir             string
	DownloadRetries int
}

// QueryConfig holds query-level limits.
type QueryConfig struct {
	DefaultLimit   int
	MaxLimit       int
	RequestTimeout time.Duration
}

// KeysConfig holds the API key policy source settings.
type KeysConfig struct {
	Path string
}

// AuditConfig holds the audit sink settings. PostgresDSN and RedisAddr are
// both optional; with neither set, events go to the structured log.
type AuditConfig struct {
	PostgresDSN   string
	RedisAddr     string
	RedisPassword string //nolint:gosec // G117: Redis connection config
	RedisDB       int
	RedisChannel  string
	BufferSize    int
}

// RateLimitConfig holds per-key request rate limits.
type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

// Load reads configuration from environment variables. Defaults are safe for
// local development only; the bucket name must always be set explicitly.
func Load() (*Config, error) {
	readTimeout, err := getEnvDuration("GATEWAY_SERVER_READ_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	writeTimeout, err := getEnvDuration("GATEWAY_SERVER_WRITE_TIMEOUT", 5*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	requestTimeout, err := getEnvDuration("GATEWAY_QUERY_TIMEOUT", 2*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	defaultLimit, err := getEnvInt("GATEWAY_QUERY_DEFAULT_LIMIT", 100_000)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	maxLimit, err := getEnvInt("GATEWAY_QUERY_MAX_LIMIT", 1_000_000)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	retries, err := getEnvInt("GATEWAY_CACHE_DOWNLOAD_RETRIES", 2)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	redisDB, err := getEnvInt("GATEWAY_AUDIT_REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	auditBuffer, err := getEnvInt("GATEWAY_AUDIT_BUFFER", 1024)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	ratePerSecond, err := getEnvFloat("GATEWAY_RATE_LIMIT_PER_SECOND", 25)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	rateBurst, err := getEnvInt("GATEWAY_RATE_LIMIT_BURST", 50)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:         getEnv("GATEWAY_SERVER_ADDR", ":8080"),
			ReadTimeout:  readTimeout,
			WriteTimeout: writeTimeout,
			CORSOrigins:  getEnvList("GATEWAY_CORS_ORIGINS", []string{"*"}),
		},
		Storage: StorageConfig{
			Bucket:    getEnv("GATEWAY_STORAGE_BUCKET", ""),
			Region:    getEnv("GATEWAY_STORAGE_REGION", "us-east-1"),
			Endpoint:  getEnv("GATEWAY_STORAGE_ENDPOINT", ""),
			AccessKey: getEnv("GATEWAY_STORAGE_ACCESS_KEY", ""),
			SecretKey: getEnv("GATEWAY_STORAGE_SECRET_KEY", ""),
		},
		Cache: CacheConfig{
			Dir:             getEnv("GATEWAY_CACHE_DIR", "/tmp/peskas_cache"),
			DownloadRetries: retries,
		},
		Query: QueryConfig{
			DefaultLimit:   defaultLimit,
			MaxLimit:       maxLimit,
			RequestTimeout: requestTimeout,
		},
		Keys: KeysConfig{
			Path: getEnv("GATEWAY_API_KEYS_PATH", "api_keys.yaml"),
		},
		Audit: AuditConfig{
			PostgresDSN:   getEnv("GATEWAY_AUDIT_POSTGRES_DSN", ""),
			RedisAddr:     getEnv("GATEWAY_AUDIT_REDIS_ADDR", ""),
			RedisPassword: getEnv("GATEWAY_AUDIT_REDIS_PASSWORD", ""),
			RedisDB:       redisDB,
			RedisChannel:  getEnv("GATEWAY_AUDIT_REDIS_CHANNEL", "audit:events"),
			BufferSize:    auditBuffer,
		},
		RateLimit: RateLimitConfig{
			PerSecond: ratePerSecond,
			Burst:     rateBurst,
		},
	}

	err = cfg.validate()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return cfg, nil
}

// validate checks required fields and value bounds.
func (c *Config) validate() error {
	if c.Storage.Bucket == "" {
		return errors.New("GATEWAY_STORAGE_BUCKET is required")
	}
	if c.Keys.Path == "" {
		return errors.New("GATEWAY_API_KEYS_PATH is required")
	}
	if c.Query.DefaultLimit < 1 {
		return fmt.Errorf("GATEWAY_QUERY_DEFAULT_LIMIT must be >= 1, got %d", c.Query.DefaultLimit)
	}
	if c.Query.MaxLimit < c.Query.DefaultLimit {
		return fmt.Errorf("GATEWAY_QUERY_MAX_LIMIT %d must be >= default limit %d",
			c.Query.MaxLimit, c.Query.DefaultLimit)
	}
	if c.Query.RequestTimeout <= 0 {
		return fmt.Errorf("GATEWAY_QUERY_TIMEOUT must be positive, got %s", c.Query.RequestTimeout)
	}
	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("GATEWAY_SERVER_READ_TIMEOUT must be positive, got %s", c.Server.ReadTimeout)
	}
	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("GATEWAY_SERVER_WRITE_TIMEOUT must be positive, got %s", c.Server.WriteTimeout)
	}
	if c.Cache.DownloadRetries < 0 {
		return fmt.Errorf("GATEWAY_CACHE_DOWNLOAD_RETRIES must be >= 0, got %d", c.Cache.DownloadRetries)
	}
	if c.Audit.BufferSize < 1 {
		return fmt.Errorf("GATEWAY_AUDIT_BUFFER must be >= 1, got %d", c.Audit.BufferSize)
	}
	if c.RateLimit.PerSecond <= 0 {
		return fmt.Errorf("GATEWAY_RATE_LIMIT_PER_SECOND must be positive, got %g", c.RateLimit.PerSecond)
	}
	if c.RateLimit.Burst < 1 {
		return fmt.Errorf("GATEWAY_RATE_LIMIT_BURST must be >= 1, got %d", c.RateLimit.Burst)
	}

	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as int: %w", key, v, err)
	}
	return n, nil
}

func getEnvFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as float: %w", key, v, err)
	}
	return f, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parsing %s=%q as duration: %w", key, v, err)
	}
	return d, nil
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}
