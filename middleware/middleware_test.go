package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	providerRepo "moveo/database/repository/provider"
	"moveo/models"
	"moveo/utils"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.GET("/", mw, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"provider": c.GetString(ContextProviderID), "admin": c.GetString(ContextAdminID)})
	})
	return r
}

func do(r http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestProviderAuth(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret")
	suspended := models.Provider{ID: "p2", Status: models.ProviderStatusSuspended}
	repo := providerRepo.NewMemoryProviderRepo(models.Provider{ID: "p1", Status: models.ProviderStatusActive}, suspended)
	r := newRouter(JWTAuthProviderMiddleware(issuer, repo))

	ok, err := issuer.GenerateToken("p1", utils.RoleProvider, time.Hour)
	require.NoError(t, err)
	w := do(r, ok)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"provider":"p1"`)

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "garbage").Code)

	ghost, _ := issuer.GenerateToken("ghost", utils.RoleProvider, time.Hour)
	assert.Equal(t, http.StatusUnauthorized, do(r, ghost).Code)

	admin, _ := issuer.GenerateToken("p1", utils.RoleAdmin, time.Hour)
	assert.Equal(t, http.StatusForbidden, do(r, admin).Code)

	sus, _ := issuer.GenerateToken("p2", utils.RoleProvider, time.Hour)
	assert.Equal(t, http.StatusForbidden, do(r, sus).Code)

	other, _ := utils.NewTokenIssuer("other").GenerateToken("p1", utils.RoleProvider, time.Hour)
	assert.Equal(t, http.StatusUnauthorized, do(r, other).Code)
}

func TestAdminAuth(t *testing.T) {
	issuer := utils.NewTokenIssuer("secret")
	r := newRouter(JWTAuthAdminMiddleware(issuer))

	admin, _ := issuer.GenerateToken("ops", utils.RoleAdmin, time.Hour)
	w := do(r, admin)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"admin":"ops"`)

	prov, _ := issuer.GenerateToken("p1", utils.RoleProvider, time.Hour)
	assert.Equal(t, http.StatusForbidden, do(r, prov).Code)

	expired, _ := issuer.GenerateToken("ops", utils.RoleAdmin, -time.Minute)
	assert.Equal(t, http.StatusUnauthorized, do(r, expired).Code)
}

func TestRateLimit(t *testing.T) {
	r := newRouter(RateLimitMiddleware(2))
	assert.Equal(t, http.StatusOK, do(r, "").Code)
	assert.Equal(t, http.StatusOK, do(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "").Code)
}

func TestGetClientIP(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", getClientIP(c))

	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Forwarded-For", "unknown, 2001:db8::1")
	assert.Equal(t, "2001:db8::1", getClientIP(c))

	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.Header.Set("X-Forwarded-For", "garbage")
	c.Request.Header.Set("X-Real-IP", " 198.51.100.4 ")
	assert.Equal(t, "198.51.100.4", getClientIP(c))

	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "192.0.2.1:5555"
	assert.Equal(t, "192.0.2.1", getClientIP(c))
}
