// Package attachment holds the rules shared by polymorphic images and documents.
package attachment

import (
	"errors"
	"fmt"

	"pawnbook-service/internal/model"

	"gorm.io/gorm"
)

var (
	ErrInvalidEntityType = errors.New("invalid entity type")
	ErrEntityNotFound    = errors.New("entity not found")
	ErrForbidden         = errors.New("you don't have access to this entity")
)

// VerifyOwnership walks from (entityType, entityID) up to the owning user.
// item -> book -> user, incident -> item -> book -> user, person -> user, user -> itself.
func VerifyOwnership(db *gorm.DB, userID uint, entityType string, entityID uint) error {
	if !model.ValidEntityType(entityType) {
		return fmt.Errorf("%w: %q", ErrInvalidEntityType, entityType)
	}
	if entityID == 0 {
		return ErrEntityNotFound
	}

	var owners []uint
	var query *gorm.DB
	switch entityType {
	case model.EntityUser:
		if entityID != userID {
			return ErrForbidden
		}
		return nil
	case model.EntityPerson:
		query = db.Model(&model.Person{}).Where("id = ?", entityID)
		return checkOwner(query, "user_id", &owners, userID)
	case model.EntityItem:
		query = db.Model(&model.Item{}).
			Joins("JOIN books ON books.id = items.book_id").
			Where("items.id = ?", entityID)
	case model.EntityIncident:
		query = db.Model(&model.Incident{}).
			Joins("JOIN items ON items.id = incidents.item_id").
			Joins("JOIN books ON books.id = items.book_id").
			Where("incidents.id = ?", entityID)
	}
	return checkOwner(query, "books.user_id", &owners, userID)
}

func checkOwner(query *gorm.DB, column string, owners *[]uint, userID uint) error {
	if err := query.Pluck(column, owners).Error; err != nil {
		return fmt.Errorf("failed to resolve owner: %w", err)
	}
	if len(*owners) == 0 {
		return ErrEntityNotFound
	}
	if (*owners)[0] != userID {
		return ErrForbidden
	}
	return nil
}
