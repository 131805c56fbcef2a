package config

import (
	"testing"
	"time"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv()
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.Issuer != "labtrust-auth" {
		t.Fatalf("Issuer = %q", cfg.Issuer)
	}
	if cfg.TokenLifetime() != 30*time.Minute {
		t.Fatalf("TokenLifetime = %v", cfg.TokenLifetime())
	}
	if cfg.ClockSkew() != time.Minute {
		t.Fatalf("ClockSkew = %v", cfg.ClockSkew())
	}
	if cfg.JWKSSoftTTL() != 10*time.Minute || cfg.JWKSTTL() != 15*time.Minute {
		t.Fatalf("jwks ttls = %v / %v", cfg.JWKSSoftTTL(), cfg.JWKSTTL())
	}
	if cfg.AuthzEngine != "static" {
		t.Fatalf("AuthzEngine = %q", cfg.AuthzEngine)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("AUTH_JWT_EXPIRATION_MINUTES", "5")
	t.Setenv("AUTHZ_ENGINE", "rego")

	cfg := FromEnv()
	if cfg.ListenAddr != ":9999" {
		t.Fatalf("ListenAddr = %q", cfg.ListenAddr)
	}
	if cfg.TokenLifetime() != 5*time.Minute {
		t.Fatalf("TokenLifetime = %v", cfg.TokenLifetime())
	}
	if cfg.AuthzEngine != "rego" {
		t.Fatalf("AuthzEngine = %q", cfg.AuthzEngine)
	}
}

func TestEnvIntIgnoresGarbage(t *testing.T) {
	t.Setenv("AUTH_JWT_SKEW_SECONDS", "not-a-number")
	cfg := FromEnv()
	if cfg.ClockSkew() != time.Minute {
		t.Fatalf("ClockSkew = %v, want default", cfg.ClockSkew())
	}
}
