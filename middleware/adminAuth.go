package middleware

import (
	"net/http"

	"moveo/utils"

	"github.com/gin-gonic/gin"
)

func JWTAuthAdminMiddleware(tokens TokenParser) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := bearerClaims(c, tokens)
		if !ok {
			return
		}
		if claims.Role != utils.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, utils.ErrorResponse{Message: "Unauthorized admin access"})
			return
		}

		c.Set(ContextAdminID, claims.Subject)
		c.Set("isAdmin", true)
		c.Next()
	}
}
