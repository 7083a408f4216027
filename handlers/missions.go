package handlers

import (
	"net/http"

	"moveo/middleware"
	"moveo/services/attribution"
	"moveo/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// MissionHandler serves the provider-facing mission endpoints. The acting
// provider is always the token subject.
type MissionHandler struct {
	Service attribution.AttributionService
}

func actingProvider(c *gin.Context) (string, bool) {
	providerID := c.GetString(middleware.ContextProviderID)
	if providerID == "" {
		utils.JSONError(c, http.StatusUnauthorized, "Provider authentication required", "")
		return "", false
	}
	return providerID, true
}

// AcceptMissionHandler handles POST /api/missions/:id/accept.
func (h *MissionHandler) AcceptMissionHandler(c *gin.Context) {
	providerID, ok := actingProvider(c)
	if !ok {
		return
	}
	res, err := h.Service.HandleAcceptance(c.Request.Context(), c.Param("id"), providerID)
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("Mission acceptance",
		zap.String("attribution_id", c.Param("id")),
		zap.String("provider_id", providerID),
		zap.String("outcome", string(res.Outcome)))
	c.JSON(outcomeStatus(res.Success), res)
}

// RefuseMissionHandler handles POST /api/missions/:id/refuse.
func (h *MissionHandler) RefuseMissionHandler(c *gin.Context) {
	providerID, ok := actingProvider(c)
	if !ok {
		return
	}
	var input reasonInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
	}
	res, err := h.Service.HandleRefusal(c.Request.Context(), c.Param("id"), providerID, input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(outcomeStatus(res.Success), res)
}

// CancelMissionHandler handles POST /api/missions/:id/cancel.
func (h *MissionHandler) CancelMissionHandler(c *gin.Context) {
	providerID, ok := actingProvider(c)
	if !ok {
		return
	}
	var input reasonInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
	}
	res, err := h.Service.HandleCancellation(c.Request.Context(), c.Param("id"), providerID, input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("Mission cancelled by provider",
		zap.String("attribution_id", c.Param("id")),
		zap.String("provider_id", providerID),
		zap.String("outcome", string(res.Outcome)))
	c.JSON(outcomeStatus(res.Success), res)
}
