package model

import "time"

// Notification kinds
const (
	NotificationPaymentFailed      = "payment_failed"
	NotificationSubscriptionEnded  = "subscription_canceled"
	NotificationSubscriptionActive = "subscription_active"
)

// Notification is an in-app message for a user
type Notification struct {
	ID        uint       `json:"id" gorm:"primaryKey"`
	UserID    uint       `json:"user_id" gorm:"index;not null"`
	Kind      string     `json:"kind" gorm:"type:varchar(50);not null"`
	Title     string     `json:"title" gorm:"type:varchar(255);not null"`
	Message   string     `json:"message" gorm:"type:text"`
	Read      bool       `json:"read" gorm:"default:false;index"`
	ReadAt    *time.Time `json:"read_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}
