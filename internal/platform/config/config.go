package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Server captures process level configuration.
type Server struct {
	Addr        string
	Environment string
	LogLevel    string

	// DatabaseURL selects the postgres-backed stores; empty means the
	// in-memory stores (development, tests).
	DatabaseURL string
	// RedisAddr selects the redis rate-limit store; empty means the
	// store chosen by DatabaseURL.
	RedisAddr     string
	RedisPassword string

	// KafkaBrokers enables the kafka audit publisher; empty means
	// audit events are only logged.
	KafkaBrokers []string
	AuditTopic   string

	AdminJWTKey    string
	TrustedProxies []string

	CleanupInterval time.Duration

	Guard Guard
}

// Guard holds the rate-limit knobs shared by the per-flow policies.
// Flow-specific values (max attempts, lockout-vs-reset) live in the
// guard package defaults.
type Guard struct {
	LockoutWindow     time.Duration
	ResendCooldown    time.Duration
	ResendBurstLimit  int
	ResendBurstWindow time.Duration
	WrongEmailLimit   int
	WrongEmailWindow  time.Duration
	AttemptTTL        time.Duration
	MaxAttempts       int
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	return Server{
		Addr:            envString("OTPGATE_ADDR", ":8080"),
		Environment:     envString("OTPGATE_ENV", "development"),
		LogLevel:        envString("OTPGATE_LOG_LEVEL", "info"),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		KafkaBrokers:    envList("KAFKA_BROKERS"),
		AuditTopic:      envString("AUDIT_TOPIC", "otpgate.security.audit"),
		AdminJWTKey:     envString("ADMIN_JWT_KEY", "dev-secret-key-change-in-production"),
		TrustedProxies:  envList("TRUSTED_PROXIES"),
		CleanupInterval: envDuration("CLEANUP_INTERVAL", 15*time.Minute),
		Guard: Guard{
			LockoutWindow:     envSeconds("AUTH_OTP_LOCKOUT_SECONDS", 10*time.Minute),
			ResendCooldown:    envSeconds("AUTH_OTP_RESEND_COOLDOWN_SECONDS", 90*time.Second),
			ResendBurstLimit:  envInt("AUTH_OTP_RESEND_BURST_LIMIT", 5),
			ResendBurstWindow: envSeconds("AUTH_OTP_RESEND_BURST_WINDOW_SECONDS", 10*time.Minute),
			WrongEmailLimit:   envInt("AUTH_OTP_WRONG_EMAIL_LIMIT", 10),
			WrongEmailWindow:  envSeconds("AUTH_OTP_WRONG_EMAIL_WINDOW_SECONDS", 15*time.Minute),
			AttemptTTL:        envSeconds("AUTH_OTP_ATTEMPT_TTL_SECONDS", 10*time.Minute),
			MaxAttempts:       envInt("AUTH_OTP_MAX_ATTEMPTS", 5),
		},
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return fallback
}

func envSeconds(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return time.Duration(n) * time.Second
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}

func envList(key string) []string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
