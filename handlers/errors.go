package handlers

import (
	"errors"
	"net/http"

	"moveo/services/attribution"
	"moveo/services/booking"
	"moveo/services/geo"
	"moveo/services/provider"
	"moveo/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondError maps service errors onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var verr *attribution.ValidationError
	var gerr *geo.ValidationError
	switch {
	case errors.As(err, &verr):
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", verr.Error())
	case errors.As(err, &gerr):
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", gerr.Error())
	case errors.Is(err, provider.ErrInvalidInput), errors.Is(err, booking.ErrInvalidInput):
		utils.JSONError(c, http.StatusBadRequest, "Invalid request", err.Error())
	case errors.Is(err, provider.ErrProviderNotFound):
		utils.JSONError(c, http.StatusNotFound, "Provider not found", err.Error())
	case errors.Is(err, booking.ErrServiceRequestNotFound):
		utils.JSONError(c, http.StatusNotFound, "Service request not found", err.Error())
	case errors.Is(err, attribution.ErrAttributionNotFound):
		utils.JSONError(c, http.StatusNotFound, "Attribution not found", err.Error())
	case errors.Is(err, attribution.ErrServiceRequestNotFound):
		utils.JSONError(c, http.StatusNotFound, "Service request not found", err.Error())
	case errors.Is(err, attribution.ErrAttributionAlreadyActive):
		utils.JSONError(c, http.StatusConflict, "Attribution already active", err.Error())
	default:
		getLogger(c).Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
		utils.JSONError(c, http.StatusServiceUnavailable, "Service temporarily unavailable", "")
	}
}

func bindError(c *gin.Context, err error) {
	utils.JSONError(c, http.StatusBadRequest, "Invalid input", err.Error())
}

// outcomeStatus is 200 for a successful command and 409 for a lost one.
func outcomeStatus(success bool) int {
	if success {
		return http.StatusOK
	}
	return http.StatusConflict
}
