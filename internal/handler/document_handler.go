package handler

import (
	"errors"
	"net/http"

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

func findOwnedDocument(c echo.Context, userID uint) (*model.Document, error) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}
	var row model.Document
	if err := database.GetDB().First(&row, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, attachment.ErrDocumentNotFound
		}
		return nil, err
	}
	if err := attachment.VerifyOwnership(database.GetDB(), userID, row.EntityType, row.EntityID); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListDocuments returns the live documents of an entity
func ListDocuments(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	entityType, entityID, err := entityFromQuery(c, userID)
	if err != nil {
		return attachmentFailed(c, err)
	}

	var docs []model.Document
	if err := database.GetDB().
		Where("entity_type = ? AND entity_id = ? AND is_deleted = ?", entityType, entityID, false).
		Order("created_at DESC").Order("id DESC").
		Find(&docs).Error; err != nil {
		log.Error("Failed to retrieve documents", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to retrieve documents")
	}
	return c.JSON(http.StatusOK, docs)
}

// UploadDocument stores a file and attaches it to an entity
func UploadDocument(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	up, err := readUpload(c, userID)
	if err != nil {
		return attachmentFailed(c, err)
	}

	key, url, err := up.store(c.Request().Context(), "documents")
	if err != nil {
		return attachmentFailed(c, err)
	}

	doc := model.Document{
		EntityType:   up.entityType,
		EntityID:     up.entityID,
		URL:          url,
		StorageKey:   key,
		FileName:     up.fileName,
		ContentType:  up.contentType,
		Size:         int64(len(up.data)),
		Title:        c.FormValue("title"),
		DocumentType: c.FormValue("document_type"),
	}
	if err := database.GetDB().Create(&doc).Error; err != nil {
		removeObject(c, key)
		log.Error("Failed to save document", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to save document")
	}
	prometheus.RecordAttachmentOperation("document", "upload")

	log.Info("Document uploaded",
		zap.String("entity_type", doc.EntityType),
		zap.Uint("entity_id", doc.EntityID),
		zap.Uint("document_id", doc.ID))
	return c.JSON(http.StatusCreated, doc)
}

// GetDocument returns a document by id, including soft deleted ones
func GetDocument(c echo.Context) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	doc, err := findOwnedDocument(c, userID)
	if err != nil {
		return attachmentFailed(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

// UpdateDocument changes title and type of a document
func UpdateDocument(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req struct {
		Title        *string `json:"title"`
		DocumentType *string `json:"document_type"`
	}
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}

	doc, err := findOwnedDocument(c, userID)
	if err != nil {
		return attachmentFailed(c, err)
	}
	if doc.IsDeleted {
		return attachmentFailed(c, attachment.ErrAlreadyDeleted)
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
		doc.Title = *req.Title
	}
	if req.DocumentType != nil {
		updates["document_type"] = *req.DocumentType
		doc.DocumentType = *req.DocumentType
	}
	if len(updates) > 0 {
		if err := database.GetDB().Model(&model.Document{}).Where("id = ?", doc.ID).Updates(updates).Error; err != nil {
			log.Error("Failed to update document", zap.Uint("document_id", doc.ID), zap.Error(err))
			return jsonError(c, http.StatusInternalServerError, "Failed to update document")
		}
	}
	return c.JSON(http.StatusOK, doc)
}

// DeleteDocument soft deletes a document and drops the stored file
func DeleteDocument(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	doc, err := findOwnedDocument(c, userID)
	if err != nil {
		return attachmentFailed(c, err)
	}

	deleted, err := attachment.DeleteDocument(c.Request().Context(), database.GetDB(), doc.ID)
	if err != nil {
		return attachmentFailed(c, err)
	}
	removeObject(c, deleted.StorageKey)
	prometheus.RecordAttachmentOperation("document", "delete")

	log.Info("Document deleted", zap.Uint("document_id", deleted.ID))
	return c.JSON(http.StatusOK, deleted)
}
