package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"moveo/models"
	"moveo/services/attribution"
	"moveo/utils"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"
	"go.uber.org/zap"
)

const maxWebhookBodyBytes = 65536

// Metadata keys the checkout flow writes on the PaymentIntent.
const (
	metaServiceRequestID = "service_request_id"
	metaServiceType      = "service_type"
	metaLat              = "lat"
	metaLng              = "lng"
	metaMaxDistanceKm    = "max_distance_km"
)

// PaymentHandler turns successful payments into attributions.
type PaymentHandler struct {
	Service       attribution.AttributionService
	WebhookSecret string
}

// PaymentSucceededHandler handles POST /api/events/payment-succeeded.
func (h *PaymentHandler) PaymentSucceededHandler(c *gin.Context) {
	var input models.PaymentSucceeded
	if err := c.ShouldBindJSON(&input); err != nil {
		bindError(c, err)
		return
	}
	h.start(c, startRequestFrom(input), input.PaymentIntentID)
}

// StripeWebhookHandler handles POST /api/webhooks/stripe. Only
// payment_intent.succeeded events open an attribution; other events are
// acknowledged and ignored.
func (h *PaymentHandler) StripeWebhookHandler(c *gin.Context) {
	logger := getLogger(c)
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes)
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		utils.JSONError(c, http.StatusRequestEntityTooLarge, "Webhook payload too large", err.Error())
		return
	}

	event, err := webhook.ConstructEventWithOptions(payload, c.GetHeader("Stripe-Signature"), h.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid webhook signature", err.Error())
		return
	}

	if string(event.Type) != "payment_intent.succeeded" {
		logger.Debug("Ignoring stripe event", zap.String("type", string(event.Type)), zap.String("event_id", event.ID))
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid payment intent", err.Error())
		return
	}
	req, err := startRequestFromMetadata(intent.Metadata)
	if err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid payment intent metadata", err.Error())
		return
	}
	h.start(c, req, intent.ID)
}

func (h *PaymentHandler) start(c *gin.Context, req attribution.StartRequest, paymentIntentID string) {
	logger := getLogger(c)
	res, err := h.Service.Start(c.Request.Context(), req)
	if errors.Is(err, attribution.ErrAttributionAlreadyActive) {
		// redelivered event
		logger.Info("Payment event already handled",
			zap.String("service_request_id", req.ServiceRequestID),
			zap.String("payment_intent_id", paymentIntentID))
		c.JSON(http.StatusOK, gin.H{"received": true, "duplicate": true})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	logger.Info("Attribution started from payment",
		zap.String("attribution_id", res.Attribution.ID),
		zap.String("service_request_id", req.ServiceRequestID),
		zap.String("payment_intent_id", paymentIntentID),
		zap.String("outcome", string(res.Outcome)))
	c.JSON(http.StatusCreated, res)
}

func startRequestFromMetadata(meta map[string]string) (attribution.StartRequest, error) {
	req := attribution.StartRequest{
		ServiceRequestID: meta[metaServiceRequestID],
		ServiceType:      meta[metaServiceType],
	}
	if req.ServiceRequestID == "" {
		return req, fmt.Errorf("missing metadata %s", metaServiceRequestID)
	}
	var err error
	if req.Lat, err = parseMetaFloat(meta, metaLat, true); err != nil {
		return req, err
	}
	if req.Lng, err = parseMetaFloat(meta, metaLng, true); err != nil {
		return req, err
	}
	if req.MaxDistanceKm, err = parseMetaFloat(meta, metaMaxDistanceKm, false); err != nil {
		return req, err
	}
	return req, nil
}

func parseMetaFloat(meta map[string]string, key string, required bool) (float64, error) {
	raw, ok := meta[key]
	if !ok || raw == "" {
		if required {
			return 0, fmt.Errorf("missing metadata %s", key)
		}
		return 0, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("metadata %s: %w", key, err)
	}
	return v, nil
}
