package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("API_ADDR", "")
	t.Setenv("HYPDA_ACCESS_TTL_SECONDS", "")
	t.Setenv("REDIS_URL", "")

	cfg := Load()
	if cfg.Addr != ":5000" {
		t.Fatalf("expected default addr :5000, got %q", cfg.Addr)
	}
	if cfg.AccessTTL != time.Hour {
		t.Fatalf("expected default access ttl 1h, got %s", cfg.AccessTTL)
	}
	if cfg.RedisURL != "" {
		t.Fatalf("expected empty redis url, got %q", cfg.RedisURL)
	}
}

func TestLoadIgnoresMalformedNumbersAndBools(t *testing.T) {
	t.Setenv("HYPDA_ACCESS_TTL_SECONDS", "soon")
	t.Setenv("HYPDA_SECURE_COOKIES", "maybe")

	cfg := Load()
	if cfg.AccessTTL != time.Hour {
		t.Fatalf("expected fallback ttl, got %s", cfg.AccessTTL)
	}
	if cfg.SecureCookies {
		t.Fatal("expected fallback secure cookies false")
	}
}

func TestLoadClientOverrides(t *testing.T) {
	t.Setenv("HYPDA_API_URL", "http://metadata.test:5000")
	t.Setenv("HYPDA_STORAGE_DRIVER", "sqlite")
	t.Setenv("HYPDA_REQUEST_TIMEOUT_SECONDS", "7")
	t.Setenv("HYPDA_STORAGE_OBJECT_TLS", "true")

	cfg := LoadClient()
	if cfg.APIBaseURL != "http://metadata.test:5000" {
		t.Fatalf("unexpected base url %q", cfg.APIBaseURL)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Fatalf("unexpected driver %q", cfg.Storage.Driver)
	}
	if cfg.RequestTimeout != 7*time.Second {
		t.Fatalf("unexpected timeout %s", cfg.RequestTimeout)
	}
	if !cfg.Storage.ObjectUseTLS {
		t.Fatal("expected object tls enabled")
	}
}
