package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures everything main needs to wire the process.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration

	PostgresDSN string
	Redis       Redis
	Kafka       Kafka

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// FixTimeout bounds how long a location request waits for the device.
	FixTimeout time.Duration
}

// Redis holds client settings. An empty URL disables Redis and the service
// falls back to in-memory implementations, which keeps local development to
// a single binary.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka holds the audit sink settings. Empty brokers disable the sink.
type Kafka struct {
	Brokers    []string
	AuditTopic string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	cfg := Server{
		Addr:            envOr("WATCHPOST_ADDR", ":8080"),
		ShutdownTimeout: envDuration("WATCHPOST_SHUTDOWN_TIMEOUT", 10*time.Second),
		PostgresDSN:     os.Getenv("WATCHPOST_POSTGRES_DSN"),
		JWTSigningKey:   envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:       envOr("JWT_ISSUER", "watchpost"),
		JWTAudience:     envOr("JWT_AUDIENCE", "watchpost-guards"),
		FixTimeout:      envDuration("WATCHPOST_FIX_TIMEOUT", 15*time.Second),
		Redis: Redis{
			URL:          os.Getenv("WATCHPOST_REDIS_URL"),
			PoolSize:     envInt("WATCHPOST_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("WATCHPOST_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDuration("WATCHPOST_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("WATCHPOST_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("WATCHPOST_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			AuditTopic: envOr("WATCHPOST_AUDIT_TOPIC", "watchpost.audit"),
		},
	}
	if brokers := os.Getenv("WATCHPOST_KAFKA_BROKERS"); brokers != "" {
		cfg.Kafka.Brokers = strings.Split(brokers, ",")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
