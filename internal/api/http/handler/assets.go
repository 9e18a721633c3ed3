package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lanetsoft/agent-hub/internal/api/http/dto"
	"github.com/lanetsoft/agent-hub/internal/assets"
)

type AssetsHandler struct {
	resolver *assets.Resolver
}

func NewAssetsHandler(resolver *assets.Resolver) *AssetsHandler {
	return &AssetsHandler{resolver: resolver}
}

// List returns registered assets, optionally filtered by scope
// GET /api/v1/assets?client_id=&site_id=
func (h *AssetsHandler) List(c *gin.Context) {
	list, err := h.resolver.List(c.Request.Context(), c.Query("client_id"), c.Query("site_id"))
	if err != nil {
		slog.Error("Failed to list assets", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list assets"})
		return
	}

	responses := make([]dto.AssetResponse, len(list))
	for i, a := range list {
		responses[i] = dto.AssetResponse{
			ID:                    a.ID,
			ClientID:              a.ClientID,
			SiteID:                a.SiteID,
			Name:                  a.Name,
			Type:                  a.Type,
			Status:                a.Status,
			AgentStatus:           a.AgentStatus,
			Fingerprint:           a.Fingerprint,
			FingerprintConfidence: a.FingerprintConfidence,
			LastSeen:              a.LastSeen,
			Specifications:        a.Specifications,
			CreatedAt:             a.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, dto.ListAssetsResponse{Assets: responses, Count: len(responses)})
}
