package config

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	if cfg.Port != "8080" {
		t.Errorf("default port: want 8080, got %s", cfg.Port)
	}
	if cfg.StoreBackend != BackendMemory {
		t.Errorf("default backend: want memory, got %s", cfg.StoreBackend)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Errorf("default session TTL: want 30m, got %s", cfg.SessionTTL)
	}
	if cfg.ReplyMemory != 20 {
		t.Errorf("default reply memory: want 20, got %d", cfg.ReplyMemory)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("JAAL_PORT", "9090")
	t.Setenv("JAAL_SESSION_TTL", "2h")
	t.Setenv("JAAL_HINGLISH_DENSITY", "0.4")
	t.Setenv("JAAL_MAX_CONCURRENT_TURNS", "10")

	cfg := NewDefaultConfig()

	if cfg.Port != "9090" {
		t.Errorf("port override: got %s", cfg.Port)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("ttl override: got %s", cfg.SessionTTL)
	}
	if cfg.HinglishDensity != 0.4 {
		t.Errorf("density override: got %.2f", cfg.HinglishDensity)
	}
	if cfg.MaxConcurrentTurns != 10 {
		t.Errorf("concurrency override: got %d", cfg.MaxConcurrentTurns)
	}
}

func TestRedisBackendAutoDetect(t *testing.T) {
	t.Setenv("JAAL_REDIS_ADDR", "localhost:6379")

	cfg := NewDefaultConfig()
	if cfg.StoreBackend != BackendRedis {
		t.Errorf("redis addr should imply redis backend, got %s", cfg.StoreBackend)
	}
}

func TestExplicitBackendWins(t *testing.T) {
	t.Setenv("JAAL_REDIS_ADDR", "localhost:6379")
	t.Setenv("JAAL_STORE_BACKEND", "memory")

	cfg := NewDefaultConfig()
	if cfg.StoreBackend != BackendMemory {
		t.Errorf("explicit backend should win, got %s", cfg.StoreBackend)
	}
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("JAAL_TEST_DUR", "90s")
	if d := GetEnvDuration("JAAL_TEST_DUR", time.Minute); d != 90*time.Second {
		t.Errorf("want 90s, got %s", d)
	}

	// Bare integers are seconds.
	t.Setenv("JAAL_TEST_DUR", "45")
	if d := GetEnvDuration("JAAL_TEST_DUR", time.Minute); d != 45*time.Second {
		t.Errorf("want 45s, got %s", d)
	}

	t.Setenv("JAAL_TEST_DUR", "garbage")
	if d := GetEnvDuration("JAAL_TEST_DUR", time.Minute); d != time.Minute {
		t.Errorf("garbage should fall back to default, got %s", d)
	}
}

func TestValidateRejectsBadConfig(t *testing.T) {
	cfg := NewLocalConfig()
	cfg.StoreBackend = BackendRedis
	cfg.RedisAddr = ""
	if err := cfg.Validate(); err == nil {
		t.Error("redis backend without an address must fail validation")
	}

	cfg = NewLocalConfig()
	cfg.HinglishDensity = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("out-of-range density must fail validation")
	}

	cfg = NewLocalConfig()
	cfg.SessionTTL = 0
	if err := cfg.Validate(); err == nil {
		t.Error("zero session TTL must fail validation")
	}
}

func TestValidateAcceptsLocalConfig(t *testing.T) {
	cfg := NewLocalConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("local config should validate in development: %v", err)
	}
}

func TestLongHaulProfile(t *testing.T) {
	cfg := NewLongHaulConfig()
	if cfg.SessionTTL <= NewDefaultConfig().SessionTTL {
		t.Error("long-haul profile should extend the session TTL")
	}
	if cfg.ReplyMemory <= 20 {
		t.Error("long-haul profile should widen the reply memory")
	}
}
