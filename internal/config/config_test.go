package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/db?sslmode=disable")
	t.Setenv("SESSION_SECRET", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != "5000" {
		t.Errorf("Expected default port 5000, got %s", cfg.Server.Port)
	}
	if cfg.Session.TTL != 168*time.Hour {
		t.Errorf("Expected session ttl 168h, got %s", cfg.Session.TTL)
	}
	if cfg.Events.Broker != "none" {
		t.Errorf("Expected events broker none, got %s", cfg.Events.Broker)
	}
	if len(cfg.Events.KafkaBrokers) != 1 || cfg.Events.KafkaBrokers[0] != "localhost:9092" {
		t.Errorf("Unexpected kafka brokers %v", cfg.Events.KafkaBrokers)
	}
	if cfg.IsDevelopment() {
		t.Error("Expected production by default")
	}
}

func TestLoadOverridesAndNormalizes(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost:5432/db")
	t.Setenv("SESSION_SECRET", "secret")
	t.Setenv("APP_ENV", "development")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")
	t.Setenv("BCRYPT_COST", "99")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if !cfg.IsDevelopment() {
		t.Error("Expected development env")
	}
	if len(cfg.Events.KafkaBrokers) != 2 {
		t.Errorf("Expected 2 kafka brokers, got %v", cfg.Events.KafkaBrokers)
	}
	if cfg.RateLimit.Capacity != 1 {
		t.Errorf("Expected capacity clamped to 1, got %d", cfg.RateLimit.Capacity)
	}
	if cfg.RateLimit.TTL != 10*time.Second {
		t.Errorf("Expected ttl raised to 10s, got %s", cfg.RateLimit.TTL)
	}
	if cfg.Session.BcryptCost != 12 {
		t.Errorf("Expected bcrypt cost reset to 12, got %d", cfg.Session.BcryptCost)
	}
}

func TestLoadRequiresSecrets(t *testing.T) {
	for _, key := range []string{"DATABASE_URL", "SESSION_SECRET"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	if _, err := Load(); err == nil {
		t.Error("Expected error when required settings are missing")
	}
}
