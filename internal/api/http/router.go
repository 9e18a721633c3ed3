package http

import (
	"github.com/gin-gonic/gin"

	"github.com/lanetsoft/agent-hub/internal/agents"
	"github.com/lanetsoft/agent-hub/internal/api/http/handler"
	"github.com/lanetsoft/agent-hub/internal/api/http/middleware"
	"github.com/lanetsoft/agent-hub/internal/assets"
	"github.com/lanetsoft/agent-hub/internal/auth"
	"github.com/lanetsoft/agent-hub/internal/ledger"
	"github.com/lanetsoft/agent-hub/internal/tokens"
)

type Services struct {
	Auth      *auth.Service
	Tokens    *tokens.Service
	Agents    *agents.Service
	Assets    *assets.Resolver
	Ledger    *ledger.Service
	DB        handler.Pinger
	JWTSecret string
}

func SetupRoute(engine *gin.Engine, srvs *Services) {
	engine.Use(middleware.RequestLogger())

	healthHandler := handler.NewHealthHandler(srvs.DB)
	engine.GET("/health", healthHandler.Check)

	api := engine.Group("/api/v1")

	authHandler := handler.NewAuthHandler(srvs.Auth)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)

	// Agent-facing endpoints: authenticated by the installation token
	// itself, not by an operator session.
	agentsHandler := handler.NewAgentsHandler(srvs.Agents, srvs.Tokens)
	api.POST("/agents/validate-token", agentsHandler.ValidateToken)
	api.POST("/agents/register", agentsHandler.Register)

	protected := api.Group("")
	protected.Use(middleware.JWTAuth(srvs.JWTSecret))

	tokensHandler := handler.NewTokensHandler(srvs.Tokens, srvs.Ledger)
	protected.POST("/installation-tokens", tokensHandler.Create)
	protected.GET("/installation-tokens", tokensHandler.List)
	protected.PATCH("/installation-tokens/:id/status", tokensHandler.UpdateStatus)
	protected.GET("/installation-tokens/:id/usage", tokensHandler.Usage)

	assetsHandler := handler.NewAssetsHandler(srvs.Assets)
	protected.GET("/assets", assetsHandler.List)
}
