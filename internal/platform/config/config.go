package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration for the check-in engine.
type Server struct {
	Addr        string
	Environment string

	// SigningKeyPEM holds the Ed25519 private key (PKCS#8 PEM) used by the
	// issuer. VerifyKeyPEM holds the public half distributed to validators.
	// When both are empty a throwaway development keypair is generated at
	// startup; production must provision them out of band.
	SigningKeyPEM string
	VerifyKeyPEM  string
	KeyVersion    string

	Database DatabaseConfig
	Redis    RedisConfig
	Kafka    KafkaConfig

	// GateScanLimit caps validations per gate per second before the
	// throttle rejects with a retryable error.
	GateScanLimit int

	// TracingEnabled attaches the OpenTelemetry tracer to the validation
	// pipeline. Span export is configured through the standard OTEL_*
	// environment variables.
	TracingEnabled bool
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis connection configuration for the scan throttle.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig holds audit pipeline configuration.
type KafkaConfig struct {
	Brokers         string
	AuditTopic      string
	Acks            string
	Retries         int
	DeliveryTimeout time.Duration
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("GATEKEEPER_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	env := os.Getenv("GATEKEEPER_ENV")
	if env == "" {
		env = "development"
	}

	keyVersion := os.Getenv("GATEKEEPER_KEY_VERSION")
	if keyVersion == "" {
		keyVersion = "v1"
	}

	auditTopic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if auditTopic == "" {
		auditTopic = "gatekeeper.audit"
	}

	return Server{
		Addr:          addr,
		Environment:   env,
		SigningKeyPEM: os.Getenv("GATEKEEPER_SIGNING_KEY"),
		VerifyKeyPEM:  os.Getenv("GATEKEEPER_VERIFY_KEY"),
		KeyVersion:    keyVersion,
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:         os.Getenv("KAFKA_BROKERS"),
			AuditTopic:      auditTopic,
			Acks:            os.Getenv("KAFKA_ACKS"),
			Retries:         envInt("KAFKA_RETRIES", 3),
			DeliveryTimeout: envDuration("KAFKA_DELIVERY_TIMEOUT", 10*time.Second),
		},
		GateScanLimit:  envInt("GATE_SCAN_LIMIT", 10),
		TracingEnabled: envBool("TRACING_ENABLED", false),
	}
}

func envBool(key string, fallback bool) bool {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if raw := os.Getenv(key); raw != "" {
		if v, err := time.ParseDuration(raw); err == nil {
			return v
		}
	}
	return fallback
}
