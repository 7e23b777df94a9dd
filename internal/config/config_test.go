package config

import (
	"testing"
	"time"
)

func TestLoadConfig(t *testing.T) {
	t.Setenv("MONGODB_URI", "mongodb://localhost:27017/qgem_test")
	t.Setenv("MONGODB_DATABASE", "qgem_test")
	t.Setenv("REDIS_HOST", "localhost")
	t.Setenv("REDIS_PORT", "6379")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.MongoDB.URI == "" || cfg.Redis.Host == "" {
		t.Fatalf("unexpected empty config values: %+v", cfg)
	}
	if cfg.MongoDB.Collection != "datos_diarios" {
		t.Fatalf("default collection = %q", cfg.MongoDB.Collection)
	}
	if cfg.Redis.Addr() != "localhost:6379" {
		t.Fatalf("redis addr = %q", cfg.Redis.Addr())
	}
	if cfg.Server.MaxBodyBytes != 10<<20 {
		t.Fatalf("max body bytes = %d", cfg.Server.MaxBodyBytes)
	}
	if cfg.Server.HealthTimeout != 2*time.Second {
		t.Fatalf("health timeout = %v", cfg.Server.HealthTimeout)
	}
	if cfg.MongoDB.Timeout != 10*time.Second {
		t.Fatalf("mongodb timeout = %v", cfg.MongoDB.Timeout)
	}
	if cfg.Cache.TTL != 5*time.Minute {
		t.Fatalf("cache ttl = %v", cfg.Cache.TTL)
	}
}

func TestLoadConfig_PortOverride(t *testing.T) {
	t.Setenv("PORT", "8081")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Server.Port != "8081" {
		t.Fatalf("port = %q, want 8081", cfg.Server.Port)
	}
}

func TestRedisAddr_Unconfigured(t *testing.T) {
	if got := (RedisConfig{Port: "6379"}).Addr(); got != "" {
		t.Fatalf("Addr() = %q, want empty", got)
	}
}
