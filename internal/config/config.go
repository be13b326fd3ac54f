// internal/config/config.go
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"verdant-service/internal/pkg/jwt"
)

type AppConfig struct {
	// Server
	HTTPAddr    string
	DatabaseURL string
	RedisAddr   string
	RedisPass   string

	// Session store backend: "memory" or "redis"
	SessionBackend string

	// JWT
	JWT jwt.Config

	// Session policy
	SessionTTL            time.Duration
	SessionMaxPerUser     int
	SessionEviction       string
	SessionSlideThreshold time.Duration
	SessionBindIP         bool
	SessionSweepInterval  time.Duration

	// Lockout policy
	LockoutThreshold int
	LockoutDuration  time.Duration

	// Rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration
}

// Load loads environment variables into AppConfig.
func Load() AppConfig {
	return AppConfig{
		HTTPAddr:    getEnv("HTTP_ADDR", ":8000"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisAddr:   getEnv("REDIS_ADDR", ""),
		RedisPass:   getEnv("REDIS_PASS", ""),

		SessionBackend: getEnv("SESSION_BACKEND", "memory"),

		JWT: jwt.Config{
			PrivPath:   getEnv("JWT_PRIVATE_KEY_PATH", "/app/secrets/jwt_private.pem"),
			PubPath:    getEnv("JWT_PUBLIC_KEY_PATH", "/app/secrets/jwt_public.pem"),
			Issuer:     getEnv("JWT_ISSUER", "verdant-service"),
			Audience:   getEnv("JWT_AUDIENCE", "verdant-api"),
			AccessTTL:  getEnvDuration("JWT_ACCESS_TTL", 8*time.Hour),
			RefreshTTL: getEnvDuration("JWT_REFRESH_TTL", 168*time.Hour),
			KID:        getEnv("JWT_KID", "verdant-key"),
			PrevKeys:   getEnvKeyMap("JWT_PREV_KEYS"),
		},

		SessionTTL:            getEnvDuration("SESSION_TTL", 24*time.Hour),
		SessionMaxPerUser:     getEnvInt("SESSION_MAX_PER_USER", 5),
		SessionEviction:       getEnv("SESSION_EVICTION", "oldest"),
		SessionSlideThreshold: getEnvDuration("SESSION_SLIDE_THRESHOLD", time.Hour),
		SessionBindIP:         getEnvBool("SESSION_BIND_IP", false),
		SessionSweepInterval:  getEnvDuration("SESSION_SWEEP_INTERVAL", 10*time.Minute),

		LockoutThreshold: getEnvInt("LOCKOUT_THRESHOLD", 5),
		LockoutDuration:  getEnvDuration("LOCKOUT_DURATION", 30*time.Minute),

		RateLimitRequests: getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),
	}
}

// --- Helper functions ---

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

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return strings.ToLower(v) == "true"
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

// getEnvKeyMap parses "kid1=/path/one.pem,kid2=/path/two.pem" into a map for
// rotation grace keys.
func getEnvKeyMap(key string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	out := make(map[string]string)
	for _, pair := range strings.Split(v, ",") {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 {
			out[strings.TrimSpace(parts[0])] = strings.TrimSpace(parts[1])
		}
	}
	return out
}
