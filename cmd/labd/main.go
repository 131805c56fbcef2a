package main

import (
	"context"

	"labtrust/internal/config"
	"labtrust/internal/domain"
	"labtrust/internal/infra/auth/policyrego"
	"labtrust/internal/infra/auth/rbac"
	"labtrust/internal/infra/auth/remote"
	"labtrust/internal/infra/db"
	httpinfra "labtrust/internal/infra/http"
	"labtrust/internal/logging"
	"labtrust/internal/usecase"
)

func main() {
	cfg := config.FromEnv()
	log := logging.New("labd", cfg.LogLevel)

	gormDB, err := db.Open(cfg.DatabaseDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}

	cache, err := remote.NewKeySetCache(cfg.JWKSURL, log, remote.WithTTL(cfg.JWKSSoftTTL(), cfg.JWKSTTL()))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build key set cache")
	}
	verifier := remote.NewVerifier(cache, cfg.Issuer, cfg.ClockSkew(), log)

	authz, err := buildAuthorizer(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build authorizer")
	}

	labs := db.NewLaboratoryRepository(gormDB)
	orders := db.NewOrderRepository(gormDB)

	labService := usecase.NewLabService(labs, log)
	orderService := usecase.NewOrderService(orders, labs, authz, log)

	server := httpinfra.NewLabServer(labService, orderService, authz, log)

	log.Info().Str("addr", cfg.ListenAddr).Msg("labd listening")
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
