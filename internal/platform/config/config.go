package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "enrolld/pkg/platform/strings"
)

// Config captures process-level configuration. Values come from the
// environment so main stays lean; every knob has a development default.
type Config struct {
	Addr string

	// Offline record store backend. DatabaseURL wins over RedisURL; with
	// neither set the in-memory store is used (tests, local development).
	DatabaseURL string
	RedisURL    string

	// Remote registry authority.
	AuthorityURL     string
	AuthorityAPIKey  string
	AuthorityTimeout time.Duration

	// Surveyor token signing.
	JWTSigningKey string
	TokenTTL      time.Duration

	// Initial surveyor account, provisioned at startup when both username
	// and password are set. The in-memory surveyor store starts empty, so
	// without this no login can ever succeed.
	BootstrapUsername string
	BootstrapPassword string
	BootstrapFullName string

	// Sync retry policy.
	SyncMaxAttempts int
	SyncMinInterval time.Duration

	// Audit event publishing. Empty brokers keep audit in-process.
	KafkaBrokers []string
	KafkaTopic   string
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	cfg := Config{
		Addr:              envOr("ENROLLD_ADDR", ":8080"),
		DatabaseURL:       os.Getenv("ENROLLD_DATABASE_URL"),
		RedisURL:          os.Getenv("ENROLLD_REDIS_URL"),
		AuthorityURL:      envOr("ENROLLD_AUTHORITY_URL", "http://localhost:9090"),
		AuthorityAPIKey:   os.Getenv("ENROLLD_AUTHORITY_API_KEY"),
		AuthorityTimeout:  envDurationOr("ENROLLD_AUTHORITY_TIMEOUT", 15*time.Second),
		JWTSigningKey:     envOr("ENROLLD_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		TokenTTL:          envDurationOr("ENROLLD_TOKEN_TTL", 8*time.Hour),
		BootstrapUsername: os.Getenv("ENROLLD_BOOTSTRAP_USERNAME"),
		BootstrapPassword: os.Getenv("ENROLLD_BOOTSTRAP_PASSWORD"),
		BootstrapFullName: envOr("ENROLLD_BOOTSTRAP_FULL_NAME", "Field Supervisor"),
		SyncMaxAttempts:   envIntOr("ENROLLD_SYNC_MAX_ATTEMPTS", 10),
		SyncMinInterval:   envDurationOr("ENROLLD_SYNC_MIN_INTERVAL", 0),
		KafkaTopic:        envOr("ENROLLD_KAFKA_TOPIC", "enrolld.audit"),
	}
	if brokers := os.Getenv("ENROLLD_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = platformstrings.DedupeAndTrim(strings.Split(brokers, ","))
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
