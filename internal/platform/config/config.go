package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
}

// PostgresConfig captures connection settings for both SQL pools.
type PostgresConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// RedisConfig captures go-redis client settings.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig captures the audit topic wiring.
type KafkaConfig struct {
	Brokers       []string
	AuditTopic    string
	ConsumerGroup string
}

// ChecksConfig carries the tunable thresholds of the validation checks.
type ChecksConfig struct {
	// DiscrepancyPct is the relative tolerance against quarterly statements.
	DiscrepancyPct float64
	// DiscrepancyAbsMinor is the absolute tolerance floor in minor units.
	DiscrepancyAbsMinor int64
	// DuplicateRetention bounds how far back fingerprints are compared.
	DuplicateRetention time.Duration
	// ConfidenceThreshold marks extracted fields as low-confidence below it.
	ConfidenceThreshold float64
	// RiskCeilingMinor is the paid-loss amount (minor units) above which the
	// high-amount risk rule triggers.
	RiskCeilingMinor int64
	// RiskCurrency is the currency the risk ceiling is denominated in.
	RiskCurrency string
	// RiskThreshold is the score at which a claim is routed to review.
	RiskThreshold float64
	// StraightThrough auto-approves clean claims without supervisor sign-off.
	StraightThrough bool
	// Workers sizes the claim-processing pool.
	Workers int
}

// RefDataConfig points at the reference data file drops.
type RefDataConfig struct {
	TreatyFile    string
	StatementFile string
}

// SICSConfig configures the downstream posting client.
type SICSConfig struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
}

// Config is everything main needs to wire the engine.
type Config struct {
	Server   Server
	Postgres PostgresConfig
	Redis    RedisConfig
	Kafka    KafkaConfig
	Checks   ChecksConfig
	RefData  RefDataConfig
	SICS     SICSConfig
}

// FromEnv builds the full config from environment variables so main stays
// lean. Every knob has a development default; production overrides via env.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          getEnv("BORDERO_ADDR", ":8080"),
			JWTSigningKey: getEnv("BORDERO_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		},
		Postgres: PostgresConfig{
			URL:          getEnv("BORDERO_POSTGRES_URL", ""),
			MaxOpenConns: getEnvInt("BORDERO_POSTGRES_MAX_OPEN", 25),
			MaxIdleConns: getEnvInt("BORDERO_POSTGRES_MAX_IDLE", 5),
		},
		Redis: RedisConfig{
			URL:          getEnv("BORDERO_REDIS_URL", ""),
			PoolSize:     getEnvInt("BORDERO_REDIS_POOL_SIZE", 10),
			MinIdleConns: getEnvInt("BORDERO_REDIS_MIN_IDLE", 2),
			DialTimeout:  getEnvDuration("BORDERO_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getEnvDuration("BORDERO_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getEnvDuration("BORDERO_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: KafkaConfig{
			Brokers:       splitList(getEnv("BORDERO_KAFKA_BROKERS", "")),
			AuditTopic:    getEnv("BORDERO_KAFKA_AUDIT_TOPIC", "bordero.audit"),
			ConsumerGroup: getEnv("BORDERO_KAFKA_CONSUMER_GROUP", "bordero-audit-view"),
		},
		Checks: ChecksConfig{
			DiscrepancyPct:      getEnvFloat("BORDERO_DISCREPANCY_PCT", 0.01),
			DiscrepancyAbsMinor: getEnvInt64("BORDERO_DISCREPANCY_ABS_MINOR", 200_000),
			DuplicateRetention:  getEnvDuration("BORDERO_DUPLICATE_RETENTION", 3*365*24*time.Hour),
			ConfidenceThreshold: getEnvFloat("BORDERO_CONFIDENCE_THRESHOLD", 0.75),
			RiskCeilingMinor:    getEnvInt64("BORDERO_RISK_CEILING_MINOR", 100_000_000),
			RiskCurrency:        getEnv("BORDERO_RISK_CURRENCY", "USD"),
			RiskThreshold:       getEnvFloat("BORDERO_RISK_THRESHOLD", 0.5),
			StraightThrough:     getEnv("BORDERO_STRAIGHT_THROUGH", "false") == "true",
			Workers:             getEnvInt("BORDERO_WORKERS", 8),
		},
		RefData: RefDataConfig{
			TreatyFile:    getEnv("BORDERO_TREATY_FILE", ""),
			StatementFile: getEnv("BORDERO_STATEMENT_FILE", ""),
		},
		SICS: SICSConfig{
			BaseURL:    getEnv("BORDERO_SICS_URL", ""),
			Timeout:    getEnvDuration("BORDERO_SICS_TIMEOUT", 10*time.Second),
			MaxRetries: getEnvInt("BORDERO_SICS_MAX_RETRIES", 3),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
