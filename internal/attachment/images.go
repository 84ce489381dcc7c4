package attachment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pawnbook-service/internal/model"

	"gorm.io/gorm"
)

var (
	ErrImageNotFound    = errors.New("image not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrAlreadyDeleted   = errors.New("attachment is deleted")
	ErrReorderMismatch  = errors.New("image_ids must list every image of the entity exactly once")
)

// ListImages returns the live images of an entity in display order
func ListImages(db *gorm.DB, entityType string, entityID uint) ([]model.Image, error) {
	var images []model.Image
	err := db.Where("entity_type = ? AND entity_id = ? AND is_deleted = ?", entityType, entityID, false).
		Order("position ASC").Order("id ASC").
		Find(&images).Error
	return images, err
}

// PrimaryImages maps entity id to its primary image for a batch of entities of one type
func PrimaryImages(db *gorm.DB, entityType string, entityIDs []uint) (map[uint]*model.Image, error) {
	out := make(map[uint]*model.Image, len(entityIDs))
	if len(entityIDs) == 0 {
		return out, nil
	}
	var images []model.Image
	err := db.Where("entity_type = ? AND entity_id IN ? AND is_primary = ? AND is_deleted = ?",
		entityType, entityIDs, true, false).Find(&images).Error
	if err != nil {
		return nil, err
	}
	for i := range images {
		out[images[i].EntityID] = &images[i]
	}
	return out, nil
}

// AddImage appends img after the entity's existing images; the first live image becomes primary
func AddImage(ctx context.Context, db *gorm.DB, img *model.Image) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var live int64
		if err := tx.Model(&model.Image{}).
			Where("entity_type = ? AND entity_id = ? AND is_deleted = ?", img.EntityType, img.EntityID, false).
			Count(&live).Error; err != nil {
			return fmt.Errorf("failed to count images: %w", err)
		}
		img.Position = int(live)
		img.IsPrimary = live == 0
		img.IsDeleted = false
		img.DeletedAt = nil
		if err := tx.Create(img).Error; err != nil {
			return fmt.Errorf("failed to create image: %w", err)
		}
		return nil
	})
}

// SetPrimary makes imageID the only primary image of its entity
func SetPrimary(ctx context.Context, db *gorm.DB, imageID uint) (*model.Image, error) {
	var img model.Image
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadImage(tx, imageID, &img); err != nil {
			return err
		}
		if img.IsDeleted {
			return ErrAlreadyDeleted
		}
		if err := tx.Model(&model.Image{}).
			Where("entity_type = ? AND entity_id = ? AND id <> ?", img.EntityType, img.EntityID, img.ID).
			Update("is_primary", false).Error; err != nil {
			return fmt.Errorf("failed to clear primary image: %w", err)
		}
		if err := tx.Model(&img).Update("is_primary", true).Error; err != nil {
			return fmt.Errorf("failed to set primary image: %w", err)
		}
		img.IsPrimary = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// Reorder sets positions from the order of imageIDs, which must cover every live image of the entity
func Reorder(ctx context.Context, db *gorm.DB, entityType string, entityID uint, imageIDs []uint) ([]model.Image, error) {
	var images []model.Image
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		live, err := ListImages(tx, entityType, entityID)
		if err != nil {
			return fmt.Errorf("failed to load images: %w", err)
		}
		if len(live) != len(imageIDs) {
			return ErrReorderMismatch
		}
		known := make(map[uint]bool, len(live))
		for _, img := range live {
			known[img.ID] = true
		}
		for pos, id := range imageIDs {
			if !known[id] {
				return ErrReorderMismatch
			}
			delete(known, id)
			if err := tx.Model(&model.Image{}).Where("id = ?", id).Update("position", pos).Error; err != nil {
				return fmt.Errorf("failed to update position: %w", err)
			}
		}
		images, err = ListImages(tx, entityType, entityID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}

// DeleteImage soft deletes an image. When it was primary the next image by position is promoted,
// and the remaining positions are compacted.
func DeleteImage(ctx context.Context, db *gorm.DB, imageID uint) (*model.Image, error) {
	var img model.Image
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := loadImage(tx, imageID, &img); err != nil {
			return err
		}
		if img.IsDeleted {
			return ErrAlreadyDeleted
		}

		now := time.Now().UTC()
		wasPrimary := img.IsPrimary
		if err := tx.Model(&img).Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": now,
			"is_primary": false,
		}).Error; err != nil {
			return fmt.Errorf("failed to delete image: %w", err)
		}
		img.IsDeleted = true
		img.DeletedAt = &now
		img.IsPrimary = false

		rest, err := ListImages(tx, img.EntityType, img.EntityID)
		if err != nil {
			return fmt.Errorf("failed to load remaining images: %w", err)
		}
		for pos, other := range rest {
			updates := map[string]any{}
			if other.Position != pos {
				updates["position"] = pos
			}
			if wasPrimary && pos == 0 {
				updates["is_primary"] = true
			}
			if len(updates) == 0 {
				continue
			}
			if err := tx.Model(&model.Image{}).Where("id = ?", other.ID).Updates(updates).Error; err != nil {
				return fmt.Errorf("failed to compact images: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// DeleteDocument soft deletes a document and returns it
func DeleteDocument(ctx context.Context, db *gorm.DB, documentID uint) (*model.Document, error) {
	var doc model.Document
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&doc, documentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrDocumentNotFound
			}
			return err
		}
		if doc.IsDeleted {
			return ErrAlreadyDeleted
		}
		now := time.Now().UTC()
		if err := tx.Model(&doc).Updates(map[string]any{"is_deleted": true, "deleted_at": now}).Error; err != nil {
			return fmt.Errorf("failed to delete document: %w", err)
		}
		doc.IsDeleted = true
		doc.DeletedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func loadImage(tx *gorm.DB, imageID uint, img *model.Image) error {
	if err := tx.First(img, imageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrImageNotFound
		}
		return fmt.Errorf("failed to load image: %w", err)
	}
	return nil
}
