package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lanetsoft/agent-hub/internal/agents"
	"github.com/lanetsoft/agent-hub/internal/api/http/dto"
	"github.com/lanetsoft/agent-hub/internal/tokens"
)

type AgentsHandler struct {
	agentService *agents.Service
	tokenService *tokens.Service
}

func NewAgentsHandler(agentService *agents.Service, tokenService *tokens.Service) *AgentsHandler {
	return &AgentsHandler{
		agentService: agentService,
		tokenService: tokenService,
	}
}

// ValidateToken is the installer pre-flight: it reports the token state
// without counting usage or touching any asset.
// POST /api/v1/agents/validate-token
func (h *AgentsHandler) ValidateToken(c *gin.Context) {
	var req dto.ValidateTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.tokenService.Validate(c.Request.Context(), req.TokenValue)
	if err != nil {
		slog.Error("Token validation failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token validation failed"})
		return
	}

	c.JSON(http.StatusOK, dto.ValidateTokenResponse{
		IsValid:      result.IsValid,
		ClientID:     result.ClientID,
		SiteID:       result.SiteID,
		ErrorMessage: result.ErrorMessage,
	})
}

// Register runs the full one-time registration handshake.
// POST /api/v1/agents/register
func (h *AgentsHandler) Register(c *gin.Context) {
	var req dto.RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.agentService.RegisterAgent(
		c.Request.Context(),
		req.TokenValue,
		req.Hardware,
		c.ClientIP(),
		c.Request.UserAgent(),
	)
	if err != nil {
		var tokenErr *agents.TokenInvalidError
		if errors.As(err, &tokenErr) {
			c.JSON(http.StatusUnauthorized, dto.RegistrationFailureResponse{Error: tokenErr.Message})
			return
		}

		var regErr *agents.RegistrationError
		if errors.As(err, &regErr) {
			c.JSON(http.StatusInternalServerError, dto.RegistrationFailureResponse{
				Error:         regErr.Error(),
				CorrelationID: regErr.CorrelationID,
			})
			return
		}

		slog.Error("Unexpected registration error", "error", err)
		c.JSON(http.StatusInternalServerError, dto.RegistrationFailureResponse{Error: "agent registration failed"})
		return
	}

	c.JSON(http.StatusOK, dto.RegisterAgentResponse{
		AssetID:    result.AssetID,
		ClientID:   result.ClientID,
		SiteID:     result.SiteID,
		Credential: result.Credential,
		Config: dto.AgentConfigResponse{
			HeartbeatInterval: result.Config.HeartbeatInterval,
			InventoryInterval: result.Config.InventoryInterval,
			MetricsInterval:   result.Config.MetricsInterval,
			ServerURL:         result.Config.ServerURL,
		},
		ExistingAsset: result.ExistingAsset,
	})
}
