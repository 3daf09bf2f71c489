package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	HTTPAddr    string
	PostgresDSN string
	LogLevel    string
	LogFormat   string

	AdminAPIKey string
	JWTSecret   string

	SessionTTL           time.Duration
	SessionExtensionTTL  time.Duration
	SessionSweepInterval time.Duration

	RiskAutoApproveThreshold float64
	ApprovalAutoFallback     bool

	NomineeMonitorInterval time.Duration
	EmergencyAccessTTL     time.Duration

	PassCodeAttempts      int
	PassCodeAttemptWindow time.Duration

	PolicyBundlePath string
	PolicyBundleID   string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	EventChannel  string
}

func FromEnv() Config {
	addr := os.Getenv("HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	return Config{
		HTTPAddr:    addr,
		PostgresDSN: os.Getenv("POSTGRES_DSN"),
		LogLevel:    envDefault("LOG_LEVEL", "info"),
		LogFormat:   envDefault("LOG_FORMAT", "json"),

		AdminAPIKey: os.Getenv("ADMIN_API_KEY"),
		JWTSecret:   os.Getenv("JWT_SECRET"),

		SessionTTL:           envDurationDefault("SESSION_TTL", 30*time.Minute),
		SessionExtensionTTL:  envDurationDefault("SESSION_EXTENSION_TTL", 15*time.Minute),
		SessionSweepInterval: envDurationDefault("SESSION_SWEEP_INTERVAL", 30*time.Second),

		RiskAutoApproveThreshold: envFloatDefault("RISK_AUTO_APPROVE_THRESHOLD", 0.3),
		ApprovalAutoFallback:     envBoolDefault("APPROVAL_AUTO_FALLBACK", false),

		NomineeMonitorInterval: envDurationDefault("NOMINEE_MONITOR_INTERVAL", time.Minute),
		EmergencyAccessTTL:     envDurationDefault("EMERGENCY_ACCESS_TTL", 24*time.Hour),

		PassCodeAttempts:      envIntDefault("PASSCODE_ATTEMPTS", 10),
		PassCodeAttemptWindow: envDurationDefault("PASSCODE_ATTEMPT_WINDOW", time.Minute),

		PolicyBundlePath: os.Getenv("POLICY_BUNDLE_PATH"),
		PolicyBundleID:   os.Getenv("POLICY_BUNDLE_ID"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envIntDefault("REDIS_DB", 0),
		EventChannel:  envDefault("EVENT_CHANNEL", "keepsafe.events"),
	}
}

func envDefault(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func envIntDefault(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func envFloatDefault(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(v, 64)
	if err != nil || parsed < 0 || parsed > 1 {
		return def
	}
	return parsed
}

func envBoolDefault(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "Yes":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "No":
		return false
	default:
		return def
	}
}

func envDurationDefault(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	parsed, err := time.ParseDuration(v)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}
