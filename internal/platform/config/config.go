// Package config reads process configuration from the environment so main
// stays lean. Defaults target local development; production overrides every
// secret-bearing value.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the full process configuration.
type Config struct {
	Addr          string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// PostgresURL selects the Postgres store when set; empty runs on the
	// in-memory store.
	PostgresURL string

	Redis RedisConfig

	// KafkaBrokers enables fact publishing when non-empty.
	KafkaBrokers []string
	FactsTopic   string

	// BadgeTTL bounds how long an approved-hook entry may serve from cache.
	BadgeTTL time.Duration
}

// RedisConfig holds the badge cache connection settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Config from HOOKWARDEN_* environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:          getEnv("HOOKWARDEN_ADDR", ":8080"),
		JWTSigningKey: getEnv("HOOKWARDEN_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     getEnv("HOOKWARDEN_JWT_ISSUER", "hookwarden"),
		JWTAudience:   getEnv("HOOKWARDEN_JWT_AUDIENCE", "hookwarden-api"),
		PostgresURL:   os.Getenv("HOOKWARDEN_POSTGRES_URL"),
		FactsTopic:    getEnv("HOOKWARDEN_FACTS_TOPIC", "hookwarden.facts"),
		BadgeTTL:      getDuration("HOOKWARDEN_BADGE_TTL", 5*time.Minute),
		Redis: RedisConfig{
			URL:          os.Getenv("HOOKWARDEN_REDIS_URL"),
			PoolSize:     getInt("HOOKWARDEN_REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("HOOKWARDEN_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("HOOKWARDEN_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("HOOKWARDEN_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("HOOKWARDEN_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}
	if brokers := os.Getenv("HOOKWARDEN_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}
	return cfg
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
