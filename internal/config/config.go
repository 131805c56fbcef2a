package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries the settings for both services. Each binary reads the
// subset it needs; everything comes from the environment.
type Config struct {
	ListenAddr string
	LogLevel   string

	// Issuer (authd).
	PublicKeyPEM         string
	PrivateKeyPEM        string
	Issuer               string
	TokenLifetimeMinutes int

	// Remote verification (labd).
	JWKSURL          string
	ClockSkewSecs    int
	JWKSSoftTTLSecs  int
	JWKSTTLSecs      int

	// Persistence.
	DatabaseDSN string

	// Login throttling.
	RedisAddr            string
	RedisPassword        string
	RedisDB              int
	LoginRateLimit       int
	LoginRateWindowSecs  int

	// Authorization engine: "static" or "rego".
	AuthzEngine string
}

func FromEnv() Config {
	return Config{
		ListenAddr:           envDefault("LISTEN_ADDR", ":8080"),
		LogLevel:             envDefault("LOG_LEVEL", "info"),
		PublicKeyPEM:         os.Getenv("AUTH_JWT_RSA_PUBLIC"),
		PrivateKeyPEM:        os.Getenv("AUTH_JWT_RSA_PRIVATE"),
		Issuer:               envDefault("AUTH_JWT_ISSUER", "labtrust-auth"),
		TokenLifetimeMinutes: envInt("AUTH_JWT_EXPIRATION_MINUTES", 30),
		JWKSURL:              os.Getenv("AUTH_JWKS_URL"),
		ClockSkewSecs:        envInt("AUTH_JWT_SKEW_SECONDS", 60),
		JWKSSoftTTLSecs:      envInt("AUTH_JWKS_SOFT_TTL_SECONDS", 600),
		JWKSTTLSecs:          envInt("AUTH_JWKS_TTL_SECONDS", 900),
		DatabaseDSN:          os.Getenv("DATABASE_DSN"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              envInt("REDIS_DB", 0),
		LoginRateLimit:       envInt("LOGIN_RATE_LIMIT", 10),
		LoginRateWindowSecs:  envInt("LOGIN_RATE_WINDOW_SECONDS", 60),
		AuthzEngine:          envDefault("AUTHZ_ENGINE", "static"),
	}
}

func (c Config) TokenLifetime() time.Duration {
	return time.Duration(c.TokenLifetimeMinutes) * time.Minute
}

func (c Config) ClockSkew() time.Duration {
	return time.Duration(c.ClockSkewSecs) * time.Second
}

func (c Config) JWKSSoftTTL() time.Duration {
	return time.Duration(c.JWKSSoftTTLSecs) * time.Second
}

func (c Config) JWKSTTL() time.Duration {
	return time.Duration(c.JWKSTTLSecs) * time.Second
}

func (c Config) LoginRateWindow() time.Duration {
	return time.Duration(c.LoginRateWindowSecs) * time.Second
}

func envDefault(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	return value
}

func envInt(key string, def int) int {
	value := os.Getenv(key)
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}
