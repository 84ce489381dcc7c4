package handler

import (
	"errors"
	"io"
	"net/http"

	"pawnbook-service/internal/billing"
	"pawnbook-service/internal/middleware"
	"pawnbook-service/internal/model"
	"pawnbook-service/pkg/database"
	"pawnbook-service/pkg/logger"
	"pawnbook-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Checkout settings, set by main from configuration
var (
	CheckoutPriceID    string
	CheckoutSuccessURL string
	CheckoutCancelURL  string
	PortalReturnURL    string
)

// maxWebhookBytes bounds the webhook payload read into memory
const maxWebhookBytes = 1 << 20

// SubscriptionStatusResponse is the body of GET /api/subscription/status
type SubscriptionStatusResponse struct {
	Status       string              `json:"status"`
	Active       bool                `json:"active"`
	Subscription *model.Subscription `json:"subscription,omitempty"`
}

// GetSubscriptionStatus returns the latest subscription of the current user
func GetSubscriptionStatus(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	sub, err := billing.Latest(database.GetDB(), userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.JSON(http.StatusOK, SubscriptionStatusResponse{Status: model.SubscriptionNone})
	}
	if err != nil {
		log.Error("Failed to load subscription", zap.Uint("user_id", userID), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to load subscription")
	}
	return c.JSON(http.StatusOK, SubscriptionStatusResponse{
		Status:       sub.Status,
		Active:       sub.IsActive(),
		Subscription: sub,
	})
}

// CreateCheckoutSession starts a provider checkout and returns its URL
func CreateCheckoutSession(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	provider, err := billing.Default()
	if err != nil {
		return jsonError(c, http.StatusServiceUnavailable, "billing is not configured")
	}

	var user model.User
	if err := database.GetDB().First(&user, userID).Error; err != nil {
		return lookupFailed(c, err, "User", false)
	}

	req := billing.CheckoutRequest{
		UserID:     userID,
		Email:      user.Email,
		PriceID:    CheckoutPriceID,
		SuccessURL: CheckoutSuccessURL,
		CancelURL:  CheckoutCancelURL,
	}
	if sub, err := billing.Latest(database.GetDB(), userID); err == nil {
		req.CustomerID = sub.StripeCustomerID
	}

	url, err := provider.CreateCheckoutSession(c.Request().Context(), req)
	if err != nil {
		log.Error("Failed to create checkout session", zap.Uint("user_id", userID), zap.Error(err))
		return jsonError(c, http.StatusBadGateway, "Failed to create checkout session")
	}

	log.Info("Checkout session created", zap.Uint("user_id", userID))
	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

// CreatePortalSession returns a billing portal URL for the stored customer
func CreatePortalSession(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	provider, err := billing.Default()
	if err != nil {
		return jsonError(c, http.StatusServiceUnavailable, "billing is not configured")
	}

	sub, err := billing.Latest(database.GetDB(), userID)
	if err != nil || sub.StripeCustomerID == "" {
		return jsonError(c, http.StatusNotFound, "No billing customer found")
	}

	url, err := provider.CreatePortalSession(c.Request().Context(), sub.StripeCustomerID, PortalReturnURL)
	if err != nil {
		log.Error("Failed to create portal session", zap.Uint("user_id", userID), zap.Error(err))
		return jsonError(c, http.StatusBadGateway, "Failed to create portal session")
	}
	return c.JSON(http.StatusOK, echo.Map{"url": url})
}

// StripeWebhook verifies and applies a provider event.
// Processing errors answer 500 so the provider retries delivery.
func StripeWebhook(c echo.Context) error {
	log := logger.FromContext(c)

	provider, err := billing.Default()
	if err != nil {
		return jsonError(c, http.StatusServiceUnavailable, "billing is not configured")
	}

	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBytes))
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "failed to read body")
	}

	ev, err := provider.ParseWebhook(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		log.Warn("Rejected webhook", zap.Error(err))
		prometheus.RecordWebhookEvent("unknown", "rejected")
		return jsonError(c, http.StatusBadRequest, "invalid webhook signature")
	}

	outcome, err := billing.NewSyncer(database.GetDB(), provider).Handle(c.Request().Context(), ev)
	if err != nil {
		log.Error("Failed to process webhook",
			zap.String("event_id", ev.ID),
			zap.String("event_type", ev.Type),
			zap.Error(err))
		prometheus.RecordWebhookEvent(ev.Type, "failed")
		return jsonError(c, http.StatusInternalServerError, "Failed to process webhook")
	}
	prometheus.RecordWebhookEvent(ev.Type, outcome)

	log.Info("Webhook processed",
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.Type),
		zap.String("outcome", outcome))
	return c.JSON(http.StatusOK, echo.Map{"received": true, "outcome": outcome})
}
