package billing

import (
	"context"
	"errors"
	"time"
)

// Webhook event types the service reacts to
const (
	EventCheckoutCompleted       = "checkout.session.completed"
	EventSubscriptionCreated     = "customer.subscription.created"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
)

var (
	ErrNotConfigured    = errors.New("billing is not configured")
	ErrInvalidSignature = errors.New("invalid webhook signature")
)

// SubscriptionSnapshot is the provider's current view of one subscription
type SubscriptionSnapshot struct {
	ID                string
	CustomerID        string
	Status            string
	PriceID           string
	CurrentPeriodEnd  *time.Time
	CancelAtPeriodEnd bool
	// UserID comes from subscription metadata when checkout set it; 0 when unknown
	UserID uint
}

// Event is a verified webhook event reduced to the fields the sync needs
type Event struct {
	ID   string
	Type string
	// Subscription is set for customer.subscription.* events
	Subscription *SubscriptionSnapshot
	// SubscriptionID is set for checkout and invoice events, which only reference the subscription
	SubscriptionID    string
	CustomerID        string
	ClientReferenceID string
}

// CheckoutRequest starts a subscription checkout for a user
type CheckoutRequest struct {
	UserID     uint
	Email      string
	CustomerID string
	PriceID    string
	SuccessURL string
	CancelURL  string
}

// Provider is the payment gateway surface the service calls
type Provider interface {
	ParseWebhook(payload []byte, signature string) (*Event, error)
	GetSubscription(ctx context.Context, subscriptionID string) (*SubscriptionSnapshot, error)
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (string, error)
	CreatePortalSession(ctx context.Context, customerID, returnURL string) (string, error)
}

var defaultProvider Provider

// SetDefault installs the provider used by the subscription handlers
func SetDefault(p Provider) {
	defaultProvider = p
}

// Default returns the configured provider or ErrNotConfigured
func Default() (Provider, error) {
	if defaultProvider == nil {
		return nil, ErrNotConfigured
	}
	return defaultProvider, nil
}
