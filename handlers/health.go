package handlers

import (
	"net/http"

	"moveo/utils"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles GET /health with the latest monitor snapshot.
func HealthHandler(monitor *utils.HealthMonitor) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := monitor.Status()
		if status.CheckedAt.IsZero() {
			status = monitor.Check(c.Request.Context())
		}
		code := http.StatusOK
		if !status.Healthy {
			code = http.StatusServiceUnavailable
		}
		c.JSON(code, status)
	}
}
