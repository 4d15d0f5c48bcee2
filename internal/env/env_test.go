package env

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv(UserSecretKey, "secret")
	t.Setenv(StoreBackend, "")
	t.Setenv(S3Bucket, "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.StoreBackend != BackendMemory {
		t.Fatalf("expected memory backend, got %s", cfg.StoreBackend)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected listen addr %s", cfg.ListenAddr)
	}
	if cfg.DynamoTable != "ChatNodes" {
		t.Fatalf("unexpected table %s", cfg.DynamoTable)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Fatalf("unexpected session ttl %s", cfg.SessionTTL)
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv(UserSecretKey, "")
	t.Setenv(StoreBackend, BackendMemory)
	if _, err := Load(); err == nil {
		t.Fatal("expected error without session secret")
	}
}

func TestLoadBackendRequirements(t *testing.T) {
	t.Setenv(UserSecretKey, "secret")
	t.Setenv(StoreBackend, BackendMongo)
	t.Setenv(MongoURI, "")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for mongo backend without uri")
	}

	t.Setenv(StoreBackend, "cassandra")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestLoadParsesNumbers(t *testing.T) {
	t.Setenv(UserSecretKey, "secret")
	t.Setenv(StoreBackend, BackendMemory)
	t.Setenv(RateLimitRPS, "2.5")
	t.Setenv(RateLimitBurst, "7")
	t.Setenv(WebUrl, "http://a.test, http://b.test")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.RateLimitRPS != 2.5 || cfg.RateLimitBurst != 7 {
		t.Fatalf("unexpected rate limit %v/%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected origins %v", cfg.AllowedOrigins)
	}

	t.Setenv(RateLimitBurst, "many")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed burst")
	}
}

func TestLoadStoreSkipsSecret(t *testing.T) {
	t.Setenv(UserSecretKey, "")
	t.Setenv(StoreBackend, BackendMemory)
	t.Setenv(S3Bucket, "")
	t.Setenv(ListenAddr, ":9000")
	t.Setenv(PublicURL, "")

	cfg, err := LoadStore()
	if err != nil {
		t.Fatalf("LoadStore error: %v", err)
	}
	if cfg.PublicURL != "http://localhost:9000" {
		t.Fatalf("unexpected public url %s", cfg.PublicURL)
	}
}
