package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	ListenAddr string
	LogLevel   string
	LogJSON    bool

	CacheTTL           time.Duration
	CacheSweepInterval time.Duration

	HealthCheckInterval time.Duration
	HealthBatchSize     int
	DegradedThreshold   time.Duration

	AdminSecret     string
	RateLimit       int
	RateLimitWindow time.Duration

	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     string
	PostgresDatabase string
	PostgresSSLMode  string

	AuditS3Bucket    string
	AuditS3Region    string
	AuditS3Endpoint  string
	AuditS3AccessKey string
	AuditS3SecretKey string
}

func Load() *Config {
	cfg := &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		LogJSON:    getEnvBool("LOG_JSON", false),

		CacheTTL:           getEnvDuration("PRICE_CACHE_TTL", 15*time.Minute),
		CacheSweepInterval: getEnvDuration("PRICE_CACHE_SWEEP_INTERVAL", 5*time.Minute),

		HealthCheckInterval: getEnvDuration("HEALTH_CHECK_INTERVAL", 5*time.Minute),
		HealthBatchSize:     getEnvInt("HEALTH_BATCH_SIZE", 5),
		DegradedThreshold:   getEnvDuration("HEALTH_DEGRADED_THRESHOLD", time.Second),

		AdminSecret:     getEnv("ADMIN_SHARED_SECRET", ""),
		RateLimit:       getEnvInt("RATE_LIMIT", 100),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		PostgresUser:     getEnv("POSTGRES_USER", "erpbridge"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresDatabase: getEnv("POSTGRES_DATABASE", "erp_bridge"),
		PostgresSSLMode:  getEnv("POSTGRES_SSL_MODE", "disable"),

		AuditS3Bucket:    getEnv("AUDIT_S3_BUCKET", ""),
		AuditS3Region:    getEnv("AWS_REGION", "us-east-1"),
		AuditS3Endpoint:  getEnv("AUDIT_S3_ENDPOINT", ""),
		AuditS3AccessKey: getEnv("AWS_ACCESS_KEY_ID", ""),
		AuditS3SecretKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	if cfg.HealthBatchSize < 1 {
		panic("HEALTH_BATCH_SIZE must be at least 1")
	}

	if cfg.AuditS3Bucket != "" && (cfg.AuditS3AccessKey == "" || cfg.AuditS3SecretKey == "") {
		panic("AWS credentials must be provided when AUDIT_S3_BUCKET is set")
	}

	return cfg
}

// AuditExportEnabled reports whether cache-clear and health-run records are
// exported to S3 in addition to the database.
func (c *Config) AuditExportEnabled() bool {
	return c.AuditS3Bucket != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
