package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"pawnbook-service/internal/model"
	"pawnbook-service/pkg/logger"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Outcomes reported for each handled webhook event
const (
	OutcomeProcessed = "processed"
	OutcomeIgnored   = "ignored"
	OutcomeSkipped   = "skipped"
)

// Syncer mirrors provider subscription state into the local database
type Syncer struct {
	db       *gorm.DB
	provider Provider
}

// NewSyncer creates a Syncer
func NewSyncer(db *gorm.DB, provider Provider) *Syncer {
	return &Syncer{db: db, provider: provider}
}

// Handle applies one verified event. Replaying the same event leaves the same subscription row.
func (s *Syncer) Handle(ctx context.Context, ev *Event) (string, error) {
	log := logger.FromStdContext(ctx).With(
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.Type),
	)

	var (
		snap     *SubscriptionSnapshot
		userHint uint
		notify   *model.Notification
		err      error
	)

	switch ev.Type {
	case EventCheckoutCompleted:
		if ev.SubscriptionID == "" {
			log.Warn("Checkout session without subscription")
			return OutcomeSkipped, nil
		}
		if snap, err = s.provider.GetSubscription(ctx, ev.SubscriptionID); err != nil {
			return "", err
		}
		if id, perr := strconv.ParseUint(ev.ClientReferenceID, 10, 64); perr == nil {
			userHint = uint(id)
		}

	case EventSubscriptionCreated, EventSubscriptionUpdated:
		if ev.Subscription == nil {
			return OutcomeSkipped, nil
		}
		snap = ev.Subscription

	case EventSubscriptionDeleted:
		if ev.Subscription == nil {
			return OutcomeSkipped, nil
		}
		canceled := *ev.Subscription
		canceled.Status = model.SubscriptionCanceled
		snap = &canceled
		notify = &model.Notification{
			Kind:    model.NotificationSubscriptionEnded,
			Title:   "Subscription canceled",
			Message: "Your subscription has ended. Renew it from the billing settings to keep full access.",
		}

	case EventInvoicePaymentFailed, EventInvoicePaymentSucceeded:
		if ev.SubscriptionID == "" {
			log.Info("Invoice event not tied to a subscription")
			return OutcomeIgnored, nil
		}
		if snap, err = s.provider.GetSubscription(ctx, ev.SubscriptionID); err != nil {
			return "", err
		}
		if ev.Type == EventInvoicePaymentFailed {
			notify = &model.Notification{
				Kind:    model.NotificationPaymentFailed,
				Title:   "Payment failed",
				Message: "We could not charge your payment method. Update it from the billing portal to avoid interruption.",
			}
		}

	default:
		log.Debug("Ignoring webhook event")
		return OutcomeIgnored, nil
	}

	if snap.CustomerID == "" {
		snap.CustomerID = ev.CustomerID
	}
	if userHint == 0 {
		userHint = snap.UserID
	}

	userID, err := s.resolveUser(userHint, snap)
	if err != nil {
		return "", err
	}
	if userID == 0 {
		log.Warn("No user for subscription, skipping",
			zap.String("subscription_id", snap.ID),
			zap.String("customer_id", snap.CustomerID))
		return OutcomeSkipped, nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		previous, err := storedStatus(tx, snap.ID)
		if err != nil {
			return err
		}
		if _, err := Upsert(tx, userID, snap); err != nil {
			return err
		}
		// a redelivered event finds the status already applied
		if notify != nil && previous == snap.Status {
			log.Info("Subscription status unchanged, not notifying", zap.String("status", snap.Status))
			notify = nil
		}
		if notify != nil {
			notify.UserID = userID
			if err := tx.Create(notify).Error; err != nil {
				return fmt.Errorf("failed to create notification: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to sync subscription", zap.Error(err))
		return "", err
	}

	log.Info("Subscription synced",
		zap.Uint("user_id", userID),
		zap.String("subscription_id", snap.ID),
		zap.String("status", snap.Status))
	return OutcomeProcessed, nil
}

// resolveUser picks the owner from the hint, then an existing row for the subscription, then the customer
func (s *Syncer) resolveUser(hint uint, snap *SubscriptionSnapshot) (uint, error) {
	if hint != 0 {
		var count int64
		if err := s.db.Model(&model.User{}).Where("id = ?", hint).Count(&count).Error; err != nil {
			return 0, err
		}
		if count > 0 {
			return hint, nil
		}
	}

	var existing model.Subscription
	err := s.db.Where("stripe_subscription_id = ?", snap.ID).First(&existing).Error
	if err == nil {
		return existing.UserID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}

	if snap.CustomerID == "" {
		return 0, nil
	}
	err = s.db.Where("stripe_customer_id = ?", snap.CustomerID).Order("updated_at DESC").First(&existing).Error
	if err == nil {
		return existing.UserID, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	return 0, err
}

func storedStatus(tx *gorm.DB, subscriptionID string) (string, error) {
	var existing model.Subscription
	err := tx.Select("status").Where("stripe_subscription_id = ?", subscriptionID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return existing.Status, nil
}

// Upsert writes the snapshot keyed by stripe_subscription_id and returns the stored row
func Upsert(tx *gorm.DB, userID uint, snap *SubscriptionSnapshot) (*model.Subscription, error) {
	row := model.Subscription{
		UserID:               userID,
		StripeCustomerID:     snap.CustomerID,
		StripeSubscriptionID: snap.ID,
		Status:               snap.Status,
		PriceID:              snap.PriceID,
		CurrentPeriodEnd:     snap.CurrentPeriodEnd,
		CancelAtPeriodEnd:    snap.CancelAtPeriodEnd,
	}
	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "stripe_subscription_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"user_id", "stripe_customer_id", "status", "price_id",
			"current_period_end", "cancel_at_period_end", "updated_at",
		}),
	}).Create(&row).Error
	if err != nil {
		return nil, fmt.Errorf("failed to upsert subscription %s: %w", snap.ID, err)
	}

	var stored model.Subscription
	if err := tx.Where("stripe_subscription_id = ?", snap.ID).First(&stored).Error; err != nil {
		return nil, err
	}
	return &stored, nil
}

// Latest returns the most recently updated subscription for a user
func Latest(db *gorm.DB, userID uint) (*model.Subscription, error) {
	var sub model.Subscription
	err := db.Where("user_id = ?", userID).Order("updated_at DESC").Order("id DESC").First(&sub).Error
	if err != nil {
		return nil, err
	}
	return &sub, nil
}
