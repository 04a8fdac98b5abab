package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":3100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil config")
	}
	if cfg.HTTPAddr != ":3100" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":3100")
	}
	if cfg.CacheDriver != "memory" {
		t.Errorf("CacheDriver = %q, want %q", cfg.CacheDriver, "memory")
	}
	if cfg.BcryptCost != 12 {
		t.Errorf("BcryptCost = %d, want 12", cfg.BcryptCost)
	}
	if !cfg.RateLimitFailOpen {
		t.Error("RateLimitFailOpen should default to true")
	}
	if cfg.KafkaTopic != "gateway-events" {
		t.Errorf("KafkaTopic = %q, want %q", cfg.KafkaTopic, "gateway-events")
	}
	if got := cfg.TenantTTL(); got != time.Hour {
		t.Errorf("TenantTTL() = %v, want 1h", got)
	}
	if got := cfg.SessionLifetime(); got != 720*time.Hour {
		t.Errorf("SessionLifetime() = %v, want 720h", got)
	}
	if got := cfg.SweepInterval(); got != 15*time.Minute {
		t.Errorf("SweepInterval() = %v, want 15m", got)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	os.Clearenv()
	os.Setenv("HTTP_ADDR", ":9090")
	os.Setenv("TENANT_CACHE_TTL", "30m")
	os.Setenv("BCRYPT_COST", "14")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9090")
	}
	if got := cfg.TenantTTL(); got != 30*time.Minute {
		t.Errorf("TenantTTL() = %v, want 30m", got)
	}
	if cfg.BcryptCost != 14 {
		t.Errorf("BcryptCost = %d, want 14", cfg.BcryptCost)
	}
}

func TestLoad_RedisDriverRequiresURL(t *testing.T) {
	os.Clearenv()
	os.Setenv("CACHE_DRIVER", "redis")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail when CACHE_DRIVER=redis without REDIS_URL")
	}

	os.Setenv("REDIS_URL", "redis://localhost:6379/0")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheDriver != "redis" {
		t.Errorf("CacheDriver = %q, want %q", cfg.CacheDriver, "redis")
	}
}

func TestLoad_InvalidDriver(t *testing.T) {
	os.Clearenv()
	os.Setenv("CACHE_DRIVER", "memcached")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail for unknown CACHE_DRIVER")
	}
}

func TestLoad_InvalidBcryptCost(t *testing.T) {
	os.Clearenv()
	os.Setenv("BCRYPT_COST", "99")

	if _, err := Load(); err == nil {
		t.Fatal("Load should fail for out-of-range BCRYPT_COST")
	}
}

func TestKafkaBrokersList(t *testing.T) {
	cfg := &Config{KafkaBrokers: " localhost:9092 ,, broker2:9092"}
	got := cfg.KafkaBrokersList()
	if len(got) != 2 || got[0] != "localhost:9092" || got[1] != "broker2:9092" {
		t.Errorf("KafkaBrokersList() = %v", got)
	}
	var nilCfg *Config
	if nilCfg.KafkaBrokersList() != nil {
		t.Error("nil config should return nil brokers")
	}
}
