package handler

import (
	"errors"
	"net/http"
	"strings"

	"pawnbook-service/internal/attachment"
	"pawnbook-service/internal/middleware"
	"pawnbook-service/internal/model"
	"pawnbook-service/pkg/database"
	"pawnbook-service/pkg/logger"
	"pawnbook-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ReorderImagesRequest lists every live image of an entity in the wanted order
type ReorderImagesRequest struct {
	EntityType string `json:"entity_type"`
	EntityID   uint   `json:"entity_id"`
	ImageIDs   []uint `json:"image_ids"`
}

// findOwnedImage loads an image, deleted or not, and checks its entity belongs to userID
func findOwnedImage(c echo.Context, userID uint) (*model.Image, error) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid image id")
	}
	var row model.Image
	if err := database.GetDB().First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, attachment.ErrImageNotFound
		}
		return nil, err
	}
	if err := attachment.VerifyOwnership(database.GetDB(), userID, row.EntityType, row.EntityID); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListImages returns the live images of an entity ordered by position
func ListImages(c echo.Context) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	entityType, entityID, err := entityFromQuery(c, userID)
	if err != nil {
		return attachmentFailed(c, err)
	}

	images, err := attachment.ListImages(database.GetDB(), entityType, entityID)
	if err != nil {
		return attachmentFailed(c, err)
	}
	return c.JSON(http.StatusOK, images)
}

// UploadImage stores an image and attaches it to an entity
func UploadImage(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	up, err := readUpload(c, userID)
	if err != nil {
		return attachmentFailed(c, err)
	}
	if !strings.HasPrefix(up.contentType, "image/") {
		log.Warn("Rejected non-image upload", zap.String("content_type", up.contentType))
		return jsonError(c, http.StatusBadRequest, "file must be an image")
	}

	key, url, err := up.store(c.Request().Context(), "images")
	if err != nil {
		return attachmentFailed(c, err)
	}

	img := model.Image{
		EntityType:  up.entityType,
		EntityID:    up.entityID,
		URL:         url,
		StorageKey:  key,
		FileName:    up.fileName,
		ContentType: up.contentType,
		Size:        int64(len(up.data)),
		Title:       c.FormValue("title"),
	}
	if err := attachment.AddImage(c.Request().Context(), database.GetDB(), &img); err != nil {
		removeObject(c, key)
		return attachmentFailed(c, err)
	}
	prometheus.RecordAttachmentOperation("image", "upload")

	log.Info("Image uploaded",
		zap.String("entity_type", img.EntityType),
		zap.Uint("entity_id", img.EntityID),
		zap.Uint("image_id", img.ID),
		zap.Bool("is_primary", img.IsPrimary))
	return c.JSON(http.StatusCreated, img)
}

// GetImage returns an image by id, including soft deleted ones
func GetImage(c echo.Context) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	img, err := findOwnedImage(c, userID)
	if err != nil {
		return attachmentFailed(c, err)
	}
	return c.JSON(http.StatusOK, img)
}

// UpdateImage changes the title of an image
func UpdateImage(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req struct {
		Title string `json:"title"`
	}
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}

	img, err := findOwnedImage(c, userID)
	if err != nil {
		return attachmentFailed(c, err)
	}
	if img.IsDeleted {
		return attachmentFailed(c, attachment.ErrAlreadyDeleted)
	}
	if err := database.GetDB().Model(img).Update("title", req.Title).Error; err != nil {
		log.Error("Failed to update image", zap.Uint("image_id", img.ID), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to update image")
	}
	img.Title = req.Title
	return c.JSON(http.StatusOK, img)
}

// SetPrimaryImage makes an image the primary one of its entity
func SetPrimaryImage(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	img, err := findOwnedImage(c, userID)
	if err != nil {
		return attachmentFailed(c, err)
	}

	updated, err := attachment.SetPrimary(c.Request().Context(), database.GetDB(), img.ID)
	if err != nil {
		return attachmentFailed(c, err)
	}
	prometheus.RecordAttachmentOperation("image", "set_primary")

	log.Info("Primary image set",
		zap.String("entity_type", updated.EntityType),
		zap.Uint("entity_id", updated.EntityID),
		zap.Uint("image_id", updated.ID))
	return c.JSON(http.StatusOK, updated)
}

// ReorderImages rewrites image positions of an entity
func ReorderImages(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req ReorderImagesRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	req.EntityType = strings.ToLower(req.EntityType)
	if err := attachment.VerifyOwnership(database.GetDB(), userID, req.EntityType, req.EntityID); err != nil {
		return attachmentFailed(c, err)
	}

	images, err := attachment.Reorder(c.Request().Context(), database.GetDB(), req.EntityType, req.EntityID, req.ImageIDs)
	if err != nil {
		return attachmentFailed(c, err)
	}
	prometheus.RecordAttachmentOperation("image", "reorder")

	log.Info("Images reordered",
		zap.String("entity_type", req.EntityType),
		zap.Uint("entity_id", req.EntityID),
		zap.Int("count", len(images)))
	return c.JSON(http.StatusOK, images)
}

// DeleteImage soft deletes an image and drops the stored file
func DeleteImage(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	img, err := findOwnedImage(c, userID)
	if err != nil {
		return attachmentFailed(c, err)
	}

	deleted, err := attachment.DeleteImage(c.Request().Context(), database.GetDB(), img.ID)
	if err != nil {
		return attachmentFailed(c, err)
	}
	removeObject(c, deleted.StorageKey)
	prometheus.RecordAttachmentOperation("image", "delete")

	log.Info("Image deleted",
		zap.String("entity_type", deleted.EntityType),
		zap.Uint("entity_id", deleted.EntityID),
		zap.Uint("image_id", deleted.ID))
	return c.JSON(http.StatusOK, deleted)
}
