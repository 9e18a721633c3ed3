package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/lanetsoft/agent-hub/internal/api/http/dto"
)

// Pinger reports database reachability. *pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db Pinger
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// Check reports liveness, and readiness of the database when one is
// wired.
// GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	if h.db != nil {
		if err := h.db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, dto.HealthResponse{
				Status:   "degraded",
				Database: "unreachable",
			})
			return
		}
	}
	c.JSON(http.StatusOK, dto.HealthResponse{Status: "ok"})
}
