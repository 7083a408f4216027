package handlers

import (
	"net/http"

	"moveo/services/booking"

	"github.com/gin-gonic/gin"
)

// ServiceRequestHandler records paid bookings.
type ServiceRequestHandler struct {
	Service booking.ServiceRequestService
}

// CreateServiceRequestHandler handles POST /api/service-requests.
func (h *ServiceRequestHandler) CreateServiceRequestHandler(c *gin.Context) {
	var input booking.CreateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	sr, err := h.Service.CreateServiceRequest(c.Request.Context(), input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sr)
}

// GetServiceRequestHandler handles GET /api/service-requests/:id.
func (h *ServiceRequestHandler) GetServiceRequestHandler(c *gin.Context) {
	sr, err := h.Service.GetServiceRequest(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sr)
}
