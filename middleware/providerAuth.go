package middleware

import (
	"errors"
	"net/http"

	providerRepo "moveo/database/repository/provider"
	"moveo/models"
	"moveo/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// JWTAuthProviderMiddleware accepts provider tokens whose subject is a
// known, active provider and stores the id under ContextProviderID.
func JWTAuthProviderMiddleware(tokens TokenParser, providers providerRepo.ProviderRepository) gin.HandlerFunc {
	return func(c *gin.Context) {
		logger := zap.L()

		claims, ok := bearerClaims(c, tokens)
		if !ok {
			return
		}
		if claims.Role != utils.RoleProvider {
			c.AbortWithStatusJSON(http.StatusForbidden, utils.ErrorResponse{Message: "Provider token required"})
			return
		}

		prov, err := providers.GetByID(c.Request.Context(), claims.Subject)
		if errors.Is(err, providerRepo.ErrNotFound) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Provider not found"})
			return
		}
		if err != nil {
			logger.Error("Failed to load provider for token", zap.String("provider_id", claims.Subject), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, utils.ErrorResponse{Message: "Provider lookup failed"})
			return
		}
		if prov.Status == models.ProviderStatusSuspended {
			c.AbortWithStatusJSON(http.StatusForbidden, utils.ErrorResponse{Message: "Provider account suspended"})
			return
		}

		c.Set(ContextProviderID, prov.ID)
		c.Next()
	}
}
