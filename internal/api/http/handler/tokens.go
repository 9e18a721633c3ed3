package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lanetsoft/agent-hub/internal/api/http/dto"
	"github.com/lanetsoft/agent-hub/internal/ledger"
	"github.com/lanetsoft/agent-hub/internal/tokens"
)

type TokensHandler struct {
	tokenService  *tokens.Service
	ledgerService *ledger.Service
}

func NewTokensHandler(tokenService *tokens.Service, ledgerService *ledger.Service) *TokensHandler {
	return &TokensHandler{
		tokenService:  tokenService,
		ledgerService: ledgerService,
	}
}

// Create issues a new installation token
// POST /api/v1/installation-tokens
func (h *TokensHandler) Create(c *gin.Context) {
	username := c.GetString("username")

	var req dto.CreateInstallationTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	token, err := h.tokenService.Create(c.Request.Context(), req.ClientID, req.SiteID, username, req.ExpiresDays, req.Notes)
	if err != nil {
		if errors.Is(err, tokens.ErrInvalidScope) {
			c.JSON(http.StatusBadRequest, gin.H{"error": tokens.ErrInvalidScope.Error()})
			return
		}
		slog.Error("Failed to create installation token", "error", err, "client_id", req.ClientID, "site_id", req.SiteID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create installation token"})
		return
	}

	c.JSON(http.StatusCreated, tokenResponse(*token))
}

// List returns installation tokens, optionally filtered by scope
// GET /api/v1/installation-tokens?client_id=&site_id=
func (h *TokensHandler) List(c *gin.Context) {
	list, err := h.tokenService.List(c.Request.Context(), c.Query("client_id"), c.Query("site_id"))
	if err != nil {
		slog.Error("Failed to list installation tokens", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list installation tokens"})
		return
	}

	responses := make([]dto.InstallationTokenResponse, len(list))
	for i, t := range list {
		responses[i] = tokenResponse(t)
	}

	c.JSON(http.StatusOK, dto.ListInstallationTokensResponse{Tokens: responses})
}

// UpdateStatus enables or disables a token
// PATCH /api/v1/installation-tokens/:id/status
func (h *TokensHandler) UpdateStatus(c *gin.Context) {
	tokenID := c.Param("id")

	var req dto.UpdateTokenStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.tokenService.UpdateStatus(c.Request.Context(), tokenID, *req.IsActive); err != nil {
		if errors.Is(err, tokens.ErrTokenNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "installation token not found"})
			return
		}
		slog.Error("Failed to update token status", "error", err, "token_id", tokenID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update token status"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "token status updated"})
}

// Usage returns the audit trail of registration attempts for a token
// GET /api/v1/installation-tokens/:id/usage?limit=
func (h *TokensHandler) Usage(c *gin.Context) {
	tokenID := c.Param("id")
	if _, err := uuid.Parse(tokenID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "installation token not found"})
		return
	}
	limit, _ := strconv.Atoi(c.Query("limit"))

	records, err := h.ledgerService.History(c.Request.Context(), tokenID, limit)
	if err != nil {
		slog.Error("Failed to list token usage", "error", err, "token_id", tokenID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list token usage"})
		return
	}

	responses := make([]dto.UsageRecordResponse, len(records))
	for i, r := range records {
		responses[i] = dto.UsageRecordResponse{
			ID:           r.ID,
			TokenID:      r.TokenID,
			IPAddress:    r.IPAddress,
			UserAgent:    r.UserAgent,
			ComputerName: r.ComputerName,
			Snapshot:     r.Snapshot,
			Success:      r.Success,
			AssetID:      r.AssetID,
			ErrorMessage: r.ErrorMessage,
			CreatedAt:    r.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, dto.ListUsageRecordsResponse{Records: responses})
}

func tokenResponse(t tokens.Token) dto.InstallationTokenResponse {
	return dto.InstallationTokenResponse{
		ID:         t.ID,
		ClientID:   t.ClientID,
		SiteID:     t.SiteID,
		ClientName: t.ClientName,
		SiteName:   t.SiteName,
		TokenValue: t.Value,
		CreatedBy:  t.CreatedBy,
		CreatedAt:  t.CreatedAt,
		ExpiresAt:  t.ExpiresAt,
		IsActive:   t.IsActive,
		UsageCount: t.UsageCount,
		LastUsedAt: t.LastUsedAt,
		Notes:      t.Notes,
	}
}
