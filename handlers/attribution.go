package handlers

import (
	"net/http"

	"moveo/models"
	"moveo/services/attribution"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AttributionHandler serves the administrative attribution endpoints.
type AttributionHandler struct {
	Service attribution.AttributionService
}

type reasonInput struct {
	Reason string `json:"reason" binding:"max=500"`
}

func startRequestFrom(in models.PaymentSucceeded) attribution.StartRequest {
	return attribution.StartRequest{
		ServiceRequestID: in.ServiceRequestID,
		ServiceType:      in.ServiceType,
		Lat:              *in.Lat,
		Lng:              *in.Lng,
		MaxDistanceKm:    in.MaxDistanceKm,
	}
}

// StartAttributionHandler handles POST /api/attributions.
func (h *AttributionHandler) StartAttributionHandler(c *gin.Context) {
	var input models.PaymentSucceeded
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	res, err := h.Service.Start(c.Request.Context(), startRequestFrom(input))
	if err != nil {
		respondError(c, err)
		return
	}
	getLogger(c).Info("Attribution started",
		zap.String("attribution_id", res.Attribution.ID),
		zap.String("outcome", string(res.Outcome)))
	c.JSON(http.StatusCreated, res)
}

// GetAttributionHandler handles GET /api/attributions/:id.
func (h *AttributionHandler) GetAttributionHandler(c *gin.Context) {
	a, err := h.Service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, a)
}

// ListResponsesHandler handles GET /api/attributions/:id/responses.
func (h *AttributionHandler) ListResponsesHandler(c *gin.Context) {
	responses, err := h.Service.ListResponses(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"responses": responses})
}

// CompleteAttributionHandler handles POST /api/attributions/:id/complete.
func (h *AttributionHandler) CompleteAttributionHandler(c *gin.Context) {
	res, err := h.Service.Complete(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(outcomeStatus(res.Success), res)
}

// CancelAttributionHandler handles POST /api/attributions/:id/cancel.
func (h *AttributionHandler) CancelAttributionHandler(c *gin.Context) {
	var input reasonInput
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&input); err != nil {
			bindError(c, err)
			return
		}
	}
	res, err := h.Service.Cancel(c.Request.Context(), c.Param("id"), input.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(outcomeStatus(res.Success), res)
}

// ExpireAttributionHandler handles POST /api/attributions/:id/expire.
func (h *AttributionHandler) ExpireAttributionHandler(c *gin.Context) {
	res, err := h.Service.Expire(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(outcomeStatus(res.Expired), res)
}
