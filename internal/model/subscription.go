package model

import "time"

// Subscription statuses mirrored from the payment provider. Other provider values pass through.
const (
	SubscriptionActive   = "active"
	SubscriptionTrialing = "trialing"
	SubscriptionPastDue  = "past_due"
	SubscriptionCanceled = "canceled"
	SubscriptionNone     = "none"
)

// Subscription mirrors one payment-provider subscription
type Subscription struct {
	ID                   uint       `json:"id" gorm:"primaryKey"`
	UserID               uint       `json:"user_id" gorm:"index;not null"`
	StripeCustomerID     string     `json:"stripe_customer_id" gorm:"type:varchar(255);index"`
	StripeSubscriptionID string     `json:"stripe_subscription_id" gorm:"type:varchar(255);uniqueIndex;not null"`
	Status               string     `json:"status" gorm:"type:varchar(50);not null"`
	PriceID              string     `json:"price_id" gorm:"type:varchar(255)"`
	CurrentPeriodEnd     *time.Time `json:"current_period_end,omitempty"`
	CancelAtPeriodEnd    bool       `json:"cancel_at_period_end" gorm:"default:false"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

// IsActive reports whether the subscription grants access
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionActive || s.Status == SubscriptionTrialing
}
