package handlers

import (
	"net/http"

	"moveo/services/provider"

	"github.com/gin-gonic/gin"
)

// ProviderHandler serves provider onboarding and self-service endpoints.
type ProviderHandler struct {
	Service provider.ProviderService
}

// RegisterProviderHandler handles POST /api/admin/providers.
func (h *ProviderHandler) RegisterProviderHandler(c *gin.Context) {
	var input provider.RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.Service.RegisterProvider(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GetProviderByIDHandler handles GET /api/admin/providers/:id.
func (h *ProviderHandler) GetProviderByIDHandler(c *gin.Context) {
	p, err := h.Service.GetProviderByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SetProviderStatusHandler handles PATCH /api/admin/providers/:id/status.
func (h *ProviderHandler) SetProviderStatusHandler(c *gin.Context) {
	var input struct {
		Status string `json:"status" binding:"required,oneof=active suspended"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.Service.SetStatus(c.Request.Context(), c.Param("id"), input.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// GetOwnProfileHandler handles GET /api/providers/me.
func (h *ProviderHandler) GetOwnProfileHandler(c *gin.Context) {
	providerID, ok := actingProvider(c)
	if !ok {
		return
	}
	p, err := h.Service.GetProviderByID(c.Request.Context(), providerID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// UpdateFCMTokenHandler handles PUT /api/providers/me/fcm-token.
func (h *ProviderHandler) UpdateFCMTokenHandler(c *gin.Context) {
	providerID, ok := actingProvider(c)
	if !ok {
		return
	}
	var input struct {
		FCMToken string `json:"fcmToken" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	if _, err := h.Service.UpdatePushToken(c.Request.Context(), providerID, input.FCMToken); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "FCM token updated"})
}

// UpdateLocationHandler handles PUT /api/providers/me/location.
func (h *ProviderHandler) UpdateLocationHandler(c *gin.Context) {
	providerID, ok := actingProvider(c)
	if !ok {
		return
	}
	var input struct {
		Lat *float64 `json:"lat" binding:"required,latitude"`
		Lng *float64 `json:"lng" binding:"required,longitude"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	p, err := h.Service.UpdateLocation(c.Request.Context(), providerID, *input.Lat, *input.Lng)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
