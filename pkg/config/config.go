package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// StoreBackend selects where session state lives.
type StoreBackend string

const (
	BackendMemory StoreBackend = "memory" // Single-node, in-process (default)
	BackendRedis  StoreBackend = "redis"  // Shared store for multi-node deployments
)

// Config holds global settings for the engagement gateway.
// All settings can be configured via environment variables or programmatically.
type Config struct {
	// === Core Settings ===
	Port   string // HTTP listen port (default: "8080")
	APIKey string // Bearer key for the ingest endpoints (REQUIRED in production)

	// === Session Store ===
	StoreBackend    StoreBackend  // "memory" or "redis"
	SessionTTL      time.Duration // Idle window before a session is evicted (default: 30 min)
	CleanupInterval time.Duration // Memory-store sweep interval (default: 5 min)
	RedisAddr       string        // host:port of the Redis server
	RedisPassword   string
	RedisDB         int

	// === Archival ===
	// When a DSN is set, terminated sessions are written to Postgres before
	// eviction.
	PostgresDSN string

	// === Result Callback ===
	// When set, the final session report is POSTed here on termination.
	CallbackURL   string
	CallbackToken string // Bearer token attached to callback requests

	// === Turn Processing ===
	MaxConcurrentTurns int // Cap on turns processed simultaneously (default: 64)

	// === Response Selection ===
	TemplatePackPath  string  // Optional YAML pool overlay
	HinglishDensity   float64 // Romanized-Hindi token density to switch pools (default: 0.25)
	HinglishMinTokens int     // Minimum tokens before density applies (default: 3)
	ReplyMemory       int     // Anti-repetition window (default: 20)
}

// NewDefaultConfig creates a Config with sensible defaults.
// All settings can be overridden via environment variables.
func NewDefaultConfig() *Config {
	cfg := &Config{
		// Core
		Port:   GetEnv("JAAL_PORT", "8080"),
		APIKey: GetEnv("JAAL_API_KEY", ""),

		// Session store
		StoreBackend:    detectStoreBackend(),
		SessionTTL:      GetEnvDuration("JAAL_SESSION_TTL", 30*time.Minute),
		CleanupInterval: GetEnvDuration("JAAL_CLEANUP_INTERVAL", 5*time.Minute),
		RedisAddr:       GetEnv("JAAL_REDIS_ADDR", ""),
		RedisPassword:   GetEnv("JAAL_REDIS_PASSWORD", ""),
		RedisDB:         GetEnvInt("JAAL_REDIS_DB", 0),

		// Archival
		PostgresDSN: GetEnv("JAAL_POSTGRES_DSN", ""),

		// Result callback
		CallbackURL:   GetEnv("JAAL_CALLBACK_URL", ""),
		CallbackToken: GetEnv("JAAL_CALLBACK_TOKEN", ""),

		// Turn processing
		MaxConcurrentTurns: clampInt(GetEnvInt("JAAL_MAX_CONCURRENT_TURNS", 64), 1, 4096),

		// Response selection
		TemplatePackPath:  GetEnv("JAAL_TEMPLATE_PACK", ""),
		HinglishDensity:   GetEnvFloat("JAAL_HINGLISH_DENSITY", 0.25),
		HinglishMinTokens: clampInt(GetEnvInt("JAAL_HINGLISH_MIN_TOKENS", 3), 1, 100),
		ReplyMemory:       clampInt(GetEnvInt("JAAL_REPLY_MEMORY", 20), 1, 200),
	}

	return cfg
}

// NewLocalConfig creates a Config for local-only operation: in-memory store,
// no archival, no callback. Use this for development and testing.
func NewLocalConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.StoreBackend = BackendMemory
	cfg.RedisAddr = ""
	cfg.PostgresDSN = ""
	cfg.CallbackURL = ""
	return cfg
}

// NewLongHaulConfig creates a Config tuned for maximum engagement time:
// sessions are kept around longer and the anti-repetition window is wider so
// drawn-out conversations stay varied.
func NewLongHaulConfig() *Config {
	cfg := NewDefaultConfig()
	cfg.SessionTTL = 2 * time.Hour
	cfg.CleanupInterval = 15 * time.Minute
	cfg.ReplyMemory = 50
	return cfg
}

func detectStoreBackend() StoreBackend {
	// Explicit setting wins.
	if b := os.Getenv("JAAL_STORE_BACKEND"); b != "" {
		return StoreBackend(b)
	}
	// A configured Redis address implies the shared backend.
	if os.Getenv("JAAL_REDIS_ADDR") != "" {
		return BackendRedis
	}
	return BackendMemory
}

// clampInt ensures a value is within bounds
func clampInt(val, min, max int) int {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}

// Helper functions for environment variable parsing
// These are exported for use by other packages

// GetEnv returns the value of an environment variable or a default value.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// GetEnvBool returns the boolean value of an environment variable or a default value.
func GetEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

// GetEnvFloat returns the float64 value of an environment variable or a default value.
func GetEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err == nil {
			return f
		}
	}
	return defaultValue
}

// GetEnvInt returns the integer value of an environment variable or a default value.
func GetEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return defaultValue
}

// GetEnvDuration returns the duration value of an environment variable
// ("30m", "2h") or a default value. Bare integers are read as seconds.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// RequiredSecret defines a required environment variable for startup validation
type RequiredSecret struct {
	Name        string // Environment variable name
	Description string // Human-readable description
	Production  bool   // Required in production only (false = required always)
}

// CriticalSecrets returns the list of secrets required for the gateway to operate
func CriticalSecrets() []RequiredSecret {
	return []RequiredSecret{
		{Name: "JAAL_API_KEY", Description: "Bearer key for the ingest endpoints", Production: true},
	}
}

// Validate checks that all required configuration is present.
// In production mode, this will return an error if critical secrets are missing.
// In development mode, it logs warnings but allows startup for local testing.
func (c *Config) Validate() error {
	isProduction := strings.ToLower(os.Getenv("JAAL_ENV")) == "production" ||
		strings.ToLower(os.Getenv("JAAL_ENV")) == "prod"

	var missing []string
	var warnings []string

	for _, secret := range CriticalSecrets() {
		value := os.Getenv(secret.Name)
		if value == "" {
			switch {
			case secret.Production && !isProduction:
				warnings = append(warnings, secret.Name+" ("+secret.Description+")")
			default:
				missing = append(missing, secret.Name+" ("+secret.Description+")")
			}
		}
	}

	switch c.StoreBackend {
	case BackendMemory, BackendRedis:
	default:
		missing = append(missing, fmt.Sprintf("JAAL_STORE_BACKEND (unknown backend %q)", c.StoreBackend))
	}

	if c.StoreBackend == BackendRedis && c.RedisAddr == "" {
		missing = append(missing, "JAAL_REDIS_ADDR (required for the redis backend)")
	}

	if c.CallbackURL != "" && c.CallbackToken == "" {
		warnings = append(warnings, "JAAL_CALLBACK_TOKEN (callback requests will be unauthenticated)")
	}

	if c.HinglishDensity <= 0 || c.HinglishDensity > 1 {
		missing = append(missing, fmt.Sprintf("JAAL_HINGLISH_DENSITY (must be in (0, 1], got %.2f)", c.HinglishDensity))
	}

	if c.SessionTTL <= 0 {
		missing = append(missing, "JAAL_SESSION_TTL (must be positive)")
	}

	for _, w := range warnings {
		log.Printf("[STARTUP] Warning: %s", w)
	}

	if len(missing) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(missing, ", "))
	}

	return nil
}

// MustValidate calls Validate and fatally exits if validation fails.
// Call this at startup before starting the server.
func (c *Config) MustValidate() {
	if err := c.Validate(); err != nil {
		log.Fatalf("[STARTUP] FATAL: Configuration validation failed: %v", err)
	}
	log.Println("[STARTUP] Configuration validated successfully")
}
