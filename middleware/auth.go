package middleware

import (
	"net/http"
	"strings"

	"moveo/utils"

	"github.com/gin-gonic/gin"
)

const (
	ContextProviderID = "providerID"
	ContextAdminID    = "adminID"
)

// TokenParser validates bearer tokens.
type TokenParser interface {
	ParseToken(tokenString string) (*utils.Claims, error)
}

// bearerClaims parses the Authorization header and aborts the request on
// failure. ok is false when the request was aborted.
func bearerClaims(c *gin.Context, tokens TokenParser) (*utils.Claims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
		c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Missing or invalid Authorization header"})
		return nil, false
	}
	tokenString := strings.TrimPrefix(authHeader, "Bearer ")

	claims, err := tokens.ParseToken(tokenString)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, utils.ErrorResponse{Message: "Invalid token"})
		return nil, false
	}
	return claims, true
}
