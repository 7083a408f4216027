package routes

import (
	"time"

	"moveo/handlers"
	"moveo/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterEventRoutes registers the payment entry points that open attributions.
func RegisterEventRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.POST("/api/webhooks/stripe", hb.Payments.StripeWebhookHandler)

	events := r.Group("/api/events")
	{
		events.Use(middleware.JWTAuthAdminMiddleware(hb.Tokens))
		events.POST("/payment-succeeded", hb.Payments.PaymentSucceededHandler)
	}
}

// RegisterAttributionRoutes registers the administrative attribution endpoints.
func RegisterAttributionRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/attributions")
	{
		api.Use(middleware.JWTAuthAdminMiddleware(hb.Tokens))
		api.POST("", hb.Attributions.StartAttributionHandler)
		api.GET("/:id", hb.Attributions.GetAttributionHandler)
		api.GET("/:id/responses", hb.Attributions.ListResponsesHandler)
		api.POST("/:id/complete", hb.Attributions.CompleteAttributionHandler)
		api.POST("/:id/cancel", hb.Attributions.CancelAttributionHandler)
		api.POST("/:id/expire", hb.Attributions.ExpireAttributionHandler)
	}
}

// RegisterMissionRoutes registers the provider-facing endpoints.
func RegisterMissionRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/missions")
	{
		api.Use(middleware.JWTAuthProviderMiddleware(hb.Tokens, hb.ProviderRepo))
		api.POST("/:id/accept", hb.Missions.AcceptMissionHandler)
		api.POST("/:id/refuse", hb.Missions.RefuseMissionHandler)
		api.POST("/:id/cancel", hb.Missions.CancelMissionHandler)
	}
}

// RegisterProviderRoutes registers provider self-service endpoints.
func RegisterProviderRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/providers/me")
	{
		api.Use(middleware.JWTAuthProviderMiddleware(hb.Tokens, hb.ProviderRepo))
		api.GET("", hb.Providers.GetOwnProfileHandler)
		api.PUT("/fcm-token", hb.Providers.UpdateFCMTokenHandler)
		api.PUT("/location", hb.Providers.UpdateLocationHandler)
	}
}

// RegisterAdminRoutes registers onboarding and support tooling endpoints.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	providers := r.Group("/api/admin/providers")
	{
		providers.Use(middleware.JWTAuthAdminMiddleware(hb.Tokens))
		providers.POST("", hb.Providers.RegisterProviderHandler)
		providers.GET("/:id", hb.Providers.GetProviderByIDHandler)
		providers.PATCH("/:id/status", hb.Providers.SetProviderStatusHandler)
	}

	requests := r.Group("/api/service-requests")
	{
		requests.Use(middleware.JWTAuthAdminMiddleware(hb.Tokens))
		requests.POST("", hb.ServiceRequests.CreateServiceRequestHandler)
		requests.GET("/:id", hb.ServiceRequests.GetServiceRequestHandler)
	}

	eligibility := r.Group("/api/eligibility")
	{
		eligibility.Use(middleware.JWTAuthAdminMiddleware(hb.Tokens))
		eligibility.GET("", hb.Eligibility.FindEligibleHandler)
		eligibility.GET("/count", hb.Eligibility.CountEligibleHandler)
	}

	blacklist := r.Group("/api/blacklist")
	{
		blacklist.Use(middleware.JWTAuthAdminMiddleware(hb.Tokens))
		blacklist.GET("/:providerId", hb.Blacklist.GetBlacklistEntryHandler)
		blacklist.POST("/:providerId/lift", hb.Blacklist.LiftBlacklistHandler)
	}
}

// RegisterHealthRoutes registers health and metrics endpoints.
func RegisterHealthRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "Stripe-Signature"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoutes(r, hb)
	RegisterEventRoutes(r, hb)
	RegisterAttributionRoutes(r, hb)
	RegisterMissionRoutes(r, hb)
	RegisterProviderRoutes(r, hb)
	RegisterAdminRoutes(r, hb)
}
