package main

import (
	"context"
	"time"

	"labtrust/internal/config"
	"labtrust/internal/domain"
	"labtrust/internal/infra/auth/policyrego"
	"labtrust/internal/infra/auth/rbac"
	"labtrust/internal/infra/auth/token"
	"labtrust/internal/infra/db"
	httpinfra "labtrust/internal/infra/http"
	"labtrust/internal/infra/keys"
	"labtrust/internal/infra/password"
	"labtrust/internal/infra/ratelimit"
	"labtrust/internal/logging"
	"labtrust/internal/usecase"
)

func main() {
	cfg := config.FromEnv()
	log := logging.New("authd", cfg.LogLevel)

	pair, err := keys.LoadKeyPair(cfg.PublicKeyPEM, cfg.PrivateKeyPEM)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load signing key pair")
	}

	gormDB, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	issuer, err := token.NewIssuer(pair, cfg.Issuer, cfg.TokenLifetime())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build token issuer")
	}

	var limiter domain.RateLimiter
	if cfg.RedisAddr != "" {
		limiter, err = ratelimit.NewRedisLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, time.Now)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
	} else {
		limiter = ratelimit.NewMemoryLimiter(ratelimit.MemoryLimiterConfig{})
	}

	authz, err := buildAuthorizer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build authorizer")
	}

	users := db.NewUserRepository(gormDB)
	roles := db.NewRoleRepository(gormDB)
	hasher := password.NewBcryptHasher()

	authService := usecase.NewAuthService(users, hasher, issuer, limiter, cfg.LoginRateLimit, cfg.LoginRateWindow(), log)
	userService := usecase.NewUserService(users, roles, hasher, log)

	server := httpinfra.NewAuthServer(
		authService,
		userService,
		keys.NewPublisher(pair),
		authz,
		limiter,
		cfg.LoginRateLimit,
		cfg.LoginRateWindow(),
		log,
	)
	verifier := token.NewVerifier(pair.PublicKey(), cfg.Issuer, log)

	log.Info().Str("addr", cfg.ListenAddr).Msg("authd listening")
	if err := server.Router(verifier).Run(cfg.ListenAddr); err != nil {
		log.Fatal().Err(err).Msg("server exited")
	}
}

func buildAuthorizer(cfg config.Config) (domain.Authorizer, error) {
	if cfg.AuthzEngine == "rego" {
		return policyrego.NewEngine(context.Background())
	}
	return rbac.NewAuthorizer(), nil
}
