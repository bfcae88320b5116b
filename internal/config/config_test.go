package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadFallsBackOnInvalidNumbers(t *testing.T) {
	t.Setenv("REPORT_CACHE_TTL_SECONDS", "-5")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "0")

	cfg := Load()
	if cfg.ReportCacheTTLSeconds != 300 {
		t.Fatalf("expected default cache ttl, got %d", cfg.ReportCacheTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected default token ttl, got %d", cfg.AccessTokenTTLMinutes)
	}
}

func TestLoadNormalizesLocale(t *testing.T) {
	t.Setenv("DEFAULT_LOCALE", " EN ")
	if got := Load().DefaultLocale; got != "en" {
		t.Fatalf("expected en, got %q", got)
	}

	t.Setenv("DEFAULT_LOCALE", "de")
	if got := Load().DefaultLocale; got != "tr" {
		t.Fatalf("expected unsupported locale to fall back to tr, got %q", got)
	}
}

func TestAddress(t *testing.T) {
	if got := (Config{Port: "9090"}).Address(); got != ":9090" {
		t.Fatalf("unexpected address %q", got)
	}
}
