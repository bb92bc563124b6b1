package main

import (
	"log/slog"
	"net/http"

	"github.com/EcosystemNetwork/Conductor/internal/auth"
	"github.com/EcosystemNetwork/Conductor/internal/config"
	"github.com/EcosystemNetwork/Conductor/internal/handlers"
	"github.com/EcosystemNetwork/Conductor/internal/middleware"
	"github.com/EcosystemNetwork/Conductor/internal/router"
	"github.com/EcosystemNetwork/Conductor/internal/services"
)

// buildRouter wires handlers and guards onto the mux.
// Write endpoints: [APIKeyAuth when required] -> handler.
// Key management: RequireOperator -> handler, mounted only with a JWT secret.
func buildRouter(cfg *config.Config, engine *services.Engine, keys *services.APIKeyService, logger *slog.Logger) (http.Handler, error) {
	validator, err := services.NewValidator()
	if err != nil {
		return nil, err
	}

	deps := router.Deps{
		Agents:        &handlers.AgentHandler{Engine: engine, Validator: validator, Logger: logger},
		Tasks:         &handlers.TaskHandler{Engine: engine, Validator: validator, Logger: logger},
		Ledger:        &handlers.LedgerHandler{Engine: engine},
		Keys:          &handlers.KeyHandler{Keys: keys, Validator: validator, Logger: logger},
		APIKey:        middleware.APIKeyAuth(keys),
		RequireAPIKey: cfg.Auth.RequireAPIKey,
	}

	if cfg.Auth.JWTSecret != "" {
		authSvc, err := auth.NewService(cfg.Auth.AdminPasswordHash, cfg.Auth.JWTSecret)
		if err != nil {
			return nil, err
		}
		deps.Auth = auth.NewHandler(authSvc, logger)
		deps.Operator = middleware.RequireOperator(authSvc, auth.RoleOperator)
	} else {
		logger.Warn("JWT_SECRET not set: operator login and API-key management disabled")
	}

	return router.New(deps), nil
}
