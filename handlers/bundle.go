package handlers

import (
	providerRepo "moveo/database/repository/provider"
	"moveo/services/attribution"
	"moveo/services/booking"
	"moveo/services/geo"
	"moveo/services/provider"
	"moveo/utils"

	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all endpoint handlers into one struct.
type HandlerBundle struct {
	ProviderRepo providerRepo.ProviderRepository
	Tokens       *utils.TokenIssuer

	Attributions *AttributionHandler
	Missions     *MissionHandler
	Eligibility  *EligibilityHandler
	Payments     *PaymentHandler
	Blacklist    *BlacklistHandler

	Providers       *ProviderHandler
	ServiceRequests *ServiceRequestHandler

	Health gin.HandlerFunc
}

// BundleDeps is what NewHandlerBundle wires the handlers from.
type BundleDeps struct {
	Service             attribution.AttributionService
	Matcher             geo.EligibilityFinder
	Blacklist           BlacklistReader
	Providers           providerRepo.ProviderRepository
	ProviderService     provider.ProviderService
	RequestService      booking.ServiceRequestService
	Tokens              *utils.TokenIssuer
	Health              *utils.HealthMonitor
	StripeWebhookSecret string
}

func NewHandlerBundle(deps BundleDeps) *HandlerBundle {
	RegisterValidators()
	return &HandlerBundle{
		ProviderRepo:    deps.Providers,
		Tokens:          deps.Tokens,
		Attributions:    &AttributionHandler{Service: deps.Service},
		Missions:        &MissionHandler{Service: deps.Service},
		Eligibility:     &EligibilityHandler{Matcher: deps.Matcher},
		Payments:        &PaymentHandler{Service: deps.Service, WebhookSecret: deps.StripeWebhookSecret},
		Blacklist:       &BlacklistHandler{Guard: deps.Blacklist},
		Providers:       &ProviderHandler{Service: deps.ProviderService},
		ServiceRequests: &ServiceRequestHandler{Service: deps.RequestService},
		Health:          HealthHandler(deps.Health),
	}
}
