package handlers

import (
	"context"
	"net/http"

	"moveo/middleware"
	"moveo/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// BlacklistReader is the part of the blacklist guard the API exposes.
type BlacklistReader interface {
	Entry(ctx context.Context, providerID string) (*models.BlacklistEntry, error)
	Lift(ctx context.Context, providerID string) error
}

type BlacklistHandler struct {
	Guard BlacklistReader
}

// GetBlacklistEntryHandler handles GET /api/blacklist/:providerId.
func (h *BlacklistHandler) GetBlacklistEntryHandler(c *gin.Context) {
	entry, err := h.Guard.Entry(c.Request.Context(), c.Param("providerId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

// LiftBlacklistHandler handles POST /api/blacklist/:providerId/lift.
func (h *BlacklistHandler) LiftBlacklistHandler(c *gin.Context) {
	providerID := c.Param("providerId")
	if err := h.Guard.Lift(c.Request.Context(), providerID); err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("Blacklist lifted by admin",
		zap.String("provider_id", providerID),
		zap.String("admin_id", c.GetString(middleware.ContextAdminID)))
	c.JSON(http.StatusOK, gin.H{"message": "Blacklist lifted"})
}
