package handler_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pawnbook-service/internal/billing"
	"pawnbook-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postWebhook(t *testing.T, en *env, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", bytes.NewReader([]byte(`{"id":"evt"}`)))
	req.Header.Set("Stripe-Signature", signature)
	rec := httptest.NewRecorder()
	en.e.ServeHTTP(rec, req)
	return rec
}

func TestSubscriptionStatusWithoutRows(t *testing.T) {
	en := newEnv(t)

	code, body := en.do(t, http.MethodGet, "/api/subscription/status", nil)
	requireStatus(t, http.StatusOK, code, body)

	var resp struct {
		Status string `json:"status"`
		Active bool   `json:"active"`
	}
	decodeBytes(t, body, &resp)
	assert.Equal(t, model.SubscriptionNone, resp.Status)
	assert.False(t, resp.Active)
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	en := newEnv(t)
	installProvider(t, &fakeProvider{})

	rec := postWebhook(t, en, "forged")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutWebhookActivatesSubscription(t *testing.T) {
	en := newEnv(t)
	periodEnd := time.Now().Add(30 * 24 * time.Hour).UTC().Truncate(time.Second)
	provider := &fakeProvider{
		event: &billing.Event{
			ID:                "evt_1",
			Type:              billing.EventCheckoutCompleted,
			SubscriptionID:    "sub_1",
			CustomerID:        "cus_1",
			ClientReferenceID: uintStr(en.user.ID),
		},
		subscriptions: map[string]*billing.SubscriptionSnapshot{
			"sub_1": {ID: "sub_1", CustomerID: "cus_1", Status: "active", PriceID: "price_1", CurrentPeriodEnd: &periodEnd},
		},
	}
	installProvider(t, provider)

	rec := postWebhook(t, en, "valid")
	requireStatus(t, http.StatusOK, rec.Code, rec.Body.Bytes())

	// redelivery is idempotent
	rec = postWebhook(t, en, "valid")
	requireStatus(t, http.StatusOK, rec.Code, rec.Body.Bytes())
	var rows int64
	en.db.Model(&model.Subscription{}).Count(&rows)
	assert.Equal(t, int64(1), rows)

	code, body := en.do(t, http.MethodGet, "/api/subscription/status", nil)
	requireStatus(t, http.StatusOK, code, body)
	var resp struct {
		Status       string              `json:"status"`
		Active       bool                `json:"active"`
		Subscription *model.Subscription `json:"subscription"`
	}
	decodeBytes(t, body, &resp)
	assert.Equal(t, "active", resp.Status)
	assert.True(t, resp.Active)
	require.NotNil(t, resp.Subscription)
	assert.Equal(t, "cus_1", resp.Subscription.StripeCustomerID)

	code, body = en.do(t, http.MethodPost, "/api/subscription/portal", nil)
	requireStatus(t, http.StatusOK, code, body)
	assert.Equal(t, "cus_1", provider.portalFor)
}

func TestWebhookProcessingFailureAsksForRetry(t *testing.T) {
	en := newEnv(t)
	installProvider(t, &fakeProvider{
		fail: true,
		event: &billing.Event{
			ID:             "evt_2",
			Type:           billing.EventInvoicePaymentFailed,
			SubscriptionID: "sub_9",
		},
	})

	rec := postWebhook(t, en, "valid")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPaymentFailedWebhookNotifiesUser(t *testing.T) {
	en := newEnv(t)
	require.NoError(t, en.db.Create(&model.Subscription{
		UserID:               en.user.ID,
		StripeCustomerID:     "cus_2",
		StripeSubscriptionID: "sub_2",
		Status:               "active",
	}).Error)
	installProvider(t, &fakeProvider{
		event: &billing.Event{ID: "evt_3", Type: billing.EventInvoicePaymentFailed, SubscriptionID: "sub_2", CustomerID: "cus_2"},
		subscriptions: map[string]*billing.SubscriptionSnapshot{
			"sub_2": {ID: "sub_2", CustomerID: "cus_2", Status: "past_due"},
		},
	})

	rec := postWebhook(t, en, "valid")
	requireStatus(t, http.StatusOK, rec.Code, rec.Body.Bytes())

	code, body := en.do(t, http.MethodGet, "/api/notifications?unread=true", nil)
	requireStatus(t, http.StatusOK, code, body)
	var notifications []model.Notification
	decodeBytes(t, body, &notifications)
	require.Len(t, notifications, 1)
	assert.Equal(t, model.NotificationPaymentFailed, notifications[0].Kind)

	code, body = en.do(t, http.MethodGet, "/api/subscription/status", nil)
	requireStatus(t, http.StatusOK, code, body)
	var resp struct {
		Status string `json:"status"`
		Active bool   `json:"active"`
	}
	decodeBytes(t, body, &resp)
	assert.Equal(t, "past_due", resp.Status)
	assert.False(t, resp.Active)
}

func TestCheckoutAndPortal(t *testing.T) {
	en := newEnv(t)

	code, _ := en.do(t, http.MethodPost, "/api/subscription/checkout", nil)
	assert.Equal(t, http.StatusServiceUnavailable, code)

	provider := &fakeProvider{}
	installProvider(t, provider)

	code, body := en.do(t, http.MethodPost, "/api/subscription/checkout", nil)
	requireStatus(t, http.StatusOK, code, body)
	var resp struct {
		URL string `json:"url"`
	}
	decodeBytes(t, body, &resp)
	assert.Equal(t, "https://checkout.test/session", resp.URL)
	require.Len(t, provider.checkouts, 1)
	assert.Equal(t, en.user.ID, provider.checkouts[0].UserID)
	assert.Equal(t, en.user.Email, provider.checkouts[0].Email)

	code, _ = en.do(t, http.MethodPost, "/api/subscription/portal", nil)
	assert.Equal(t, http.StatusNotFound, code)
}
