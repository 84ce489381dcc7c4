package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pawnbook-service/internal/attachment"
	"pawnbook-service/internal/middleware"
	"pawnbook-service/internal/model"
	"pawnbook-service/internal/sales"
	"pawnbook-service/pkg/database"
	"pawnbook-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ItemRequest defines the structure for item creation/update requests
type ItemRequest struct {
	ItemNumber     string            `json:"item_number"`
	CategoryID     *uint             `json:"category_id"`
	Description    string            `json:"description"`
	Color          string            `json:"color"`
	Grade          string            `json:"grade"`
	Notes          string            `json:"notes"`
	Status         string            `json:"status"`
	EstimatedValue *decimal.Decimal  `json:"estimated_value"`
	Attributes     map[string]string `json:"attributes"`
}

var errInvalidAttributes = errors.New("invalid attributes")

// ListItems returns the items of a book, filtered by status, category_id or a text query
func ListItems(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	bookID, ok := parseID(c, "book_id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid book id")
	}
	if _, err := findBook(database.GetDB(), bookID, userID); err != nil {
		return lookupFailed(c, err, "Book", false)
	}

	query := database.GetDB().Preload("Category").Preload("Purchase").Preload("Sale").
		Where("book_id = ?", bookID)
	if status := c.QueryParam("status"); status != "" {
		if !model.ValidItemStatus(status) {
			return jsonError(c, http.StatusBadRequest, "invalid status")
		}
		query = query.Where("status = ?", status)
	}
	if raw := c.QueryParam("category_id"); raw != "" {
		categoryID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid category_id")
		}
		query = query.Where("category_id = ?", categoryID)
	}
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(item_number) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var items []model.Item
	if err := query.Order("item_number ASC").Find(&items).Error; err != nil {
		log.Error("Failed to retrieve items", zap.Uint("book_id", bookID), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to retrieve items")
	}
	if err := attachPrimaryImages(database.GetDB(), items); err != nil {
		log.Warn("Failed to load primary images", zap.Error(err))
	}

	log.Info("Items retrieved", zap.Uint("book_id", bookID), zap.Int("count", len(items)))
	return c.JSON(http.StatusOK, items)
}

// GetItem returns one item with its purchase, sale, incidents and attributes
func GetItem(c echo.Context) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid item id")
	}
	if _, err := findItem(database.GetDB(), id, userID); err != nil {
		return lookupFailed(c, err, "Item", false)
	}

	item, err := loadItemDetail(database.GetDB(), id)
	if err != nil {
		logger.FromContext(c).Error("Failed to load item", zap.Uint("item_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to load item")
	}
	return c.JSON(http.StatusOK, item)
}

// CreateItem registers a new item in a book
func CreateItem(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	bookID, ok := parseID(c, "book_id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid book id")
	}

	var req ItemRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}

	book, err := findBook(database.GetDB(), bookID, userID)
	if err != nil {
		return lookupFailed(c, err, "Book", true)
	}

	if req.Status == "" {
		req.Status = model.ItemStatusAvailable
	}
	if !model.ValidItemStatus(req.Status) || req.Status == model.ItemStatusSold {
		log.Warn("Invalid item status", zap.String("status", req.Status))
		return jsonError(c, http.StatusBadRequest, "invalid status")
	}
	if msg := checkCategory(database.GetDB(), req.CategoryID, userID); msg != "" {
		return jsonError(c, http.StatusBadRequest, msg)
	}

	item := model.Item{
		BookID:      bookID,
		CategoryID:  req.CategoryID,
		ItemNumber:  strings.TrimSpace(req.ItemNumber),
		Description: req.Description,
		Color:       req.Color,
		Grade:       req.Grade,
		Notes:       req.Notes,
		Status:      req.Status,
	}
	if req.EstimatedValue != nil {
		if req.EstimatedValue.IsNegative() {
			return jsonError(c, http.StatusBadRequest, "estimated_value must not be negative")
		}
		item.EstimatedValue = *req.EstimatedValue
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if item.ItemNumber == "" {
			number, err := sales.NextItemNumber(tx, bookID)
			if err != nil {
				return err
			}
			item.ItemNumber = number
		}
		if err := tx.Create(&item).Error; err != nil {
			return err
		}
		if len(req.Attributes) > 0 || book.BookTypeID != nil {
			return saveAttributes(tx, book, item.ID, req.Attributes, true)
		}
		return nil
	})
	if err != nil {
		return itemWriteFailed(c, err, "create")
	}

	log.Info("Item created",
		zap.Uint("book_id", bookID),
		zap.Uint("item_id", item.ID),
		zap.String("item_number", item.ItemNumber))

	created, err := loadItemDetail(database.GetDB(), item.ID)
	if err != nil {
		return c.JSON(http.StatusCreated, item)
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdateItem changes the descriptive fields and status of an item
func UpdateItem(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid item id")
	}

	var req ItemRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}

	item, err := findItem(database.GetDB(), id, userID)
	if err != nil {
		return lookupFailed(c, err, "Item", true)
	}

	updates := map[string]any{
		"description": req.Description,
		"color":       req.Color,
		"grade":       req.Grade,
		"notes":       req.Notes,
		"category_id": req.CategoryID,
	}
	if msg := checkCategory(database.GetDB(), req.CategoryID, userID); msg != "" {
		return jsonError(c, http.StatusBadRequest, msg)
	}
	if number := strings.TrimSpace(req.ItemNumber); number != "" {
		updates["item_number"] = number
	}
	if req.EstimatedValue != nil {
		if req.EstimatedValue.IsNegative() {
			return jsonError(c, http.StatusBadRequest, "estimated_value must not be negative")
		}
		updates["estimated_value"] = *req.EstimatedValue
	}
	if req.Status != "" && req.Status != item.Status {
		if !model.ValidItemStatus(req.Status) {
			return jsonError(c, http.StatusBadRequest, "invalid status")
		}
		// sold is owned by the sale workflow in both directions
		if req.Status == model.ItemStatusSold || item.Status == model.ItemStatusSold {
			log.Warn("Refusing manual sold transition",
				zap.Uint("item_id", id),
				zap.String("from", item.Status),
				zap.String("to", req.Status))
			return jsonError(c, http.StatusConflict, "Sold status is managed through sales")
		}
		updates["status"] = req.Status
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Item{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		if len(req.Attributes) > 0 {
			return saveAttributes(tx, item.Book, id, req.Attributes, false)
		}
		return nil
	})
	if err != nil {
		return itemWriteFailed(c, err, "update")
	}

	log.Info("Item updated", zap.Uint("item_id", id))
	updated, err := loadItemDetail(database.GetDB(), id)
	if err != nil {
		log.Error("Failed to reload item", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to load item")
	}
	return c.JSON(http.StatusOK, updated)
}

// PutItemAttributes upserts dynamic field values of an item
func PutItemAttributes(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid item id")
	}

	var req struct {
		Attributes map[string]string `json:"attributes"`
	}
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}

	item, err := findItem(database.GetDB(), id, userID)
	if err != nil {
		return lookupFailed(c, err, "Item", true)
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		return saveAttributes(tx, item.Book, id, req.Attributes, true)
	})
	if err != nil {
		return itemWriteFailed(c, err, "update attributes of")
	}

	var attrs []model.ItemAttribute
	if err := database.GetDB().Preload("Field").Where("item_id = ?", id).Find(&attrs).Error; err != nil {
		log.Error("Failed to reload attributes", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to load attributes")
	}
	log.Info("Item attributes saved", zap.Uint("item_id", id), zap.Int("count", len(req.Attributes)))
	return c.JSON(http.StatusOK, attrs)
}

// DeleteItem removes an unsold item and everything hanging off it
func DeleteItem(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid item id")
	}

	item, err := findItem(database.GetDB(), id, userID)
	if err != nil {
		return lookupFailed(c, err, "Item", true)
	}

	var sold int64
	database.GetDB().Model(&model.Sale{}).Where("item_id = ?", id).Count(&sold)
	if sold > 0 {
		log.Warn("Cannot delete sold item", zap.Uint("item_id", id))
		return jsonError(c, http.StatusConflict, "Cannot delete an item that has been sold")
	}

	now := time.Now().UTC()
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		var incidentIDs []uint
		if err := tx.Model(&model.Incident{}).Where("item_id = ?", id).Pluck("id", &incidentIDs).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", id).Delete(&model.Purchase{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", id).Delete(&model.ItemAttribute{}).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", id).Delete(&model.Incident{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&model.Cost{}).Where("item_id = ?", id).Update("item_id", nil).Error; err != nil {
			return err
		}
		if err := softDeleteAttachments(tx, model.EntityItem, []uint{id}, now); err != nil {
			return err
		}
		if err := softDeleteAttachments(tx, model.EntityIncident, incidentIDs, now); err != nil {
			return err
		}
		return tx.Delete(&model.Item{}, id).Error
	})
	if err != nil {
		log.Error("Failed to delete item", zap.Uint("item_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to delete item")
	}

	log.Info("Item deleted", zap.Uint("item_id", id), zap.String("item_number", item.ItemNumber))
	return c.JSON(http.StatusOK, echo.Map{"message": "Item deleted successfully"})
}

func softDeleteAttachments(tx *gorm.DB, entityType string, ids []uint, now time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	updates := map[string]any{"is_deleted": true, "deleted_at": now}
	if err := tx.Model(&model.Image{}).
		Where("entity_type = ? AND entity_id IN ? AND is_deleted = ?", entityType, ids, false).
		Updates(map[string]any{"is_deleted": true, "deleted_at": now, "is_primary": false}).Error; err != nil {
		return err
	}
	return tx.Model(&model.Document{}).
		Where("entity_type = ? AND entity_id IN ? AND is_deleted = ?", entityType, ids, false).
		Updates(updates).Error
}

func loadItemDetail(db *gorm.DB, id uint) (*model.Item, error) {
	var item model.Item
	err := db.Preload("Category").
		Preload("Purchase").Preload("Purchase.Seller").
		Preload("Sale").Preload("Sale.Client").
		Preload("Incidents", func(db *gorm.DB) *gorm.DB { return db.Order("date DESC, id DESC") }).
		Preload("Attributes").Preload("Attributes.Field").
		First(&item, id).Error
	if err != nil {
		return nil, err
	}
	items := []model.Item{item}
	if err := attachPrimaryImages(db, items); err != nil {
		return nil, err
	}
	return &items[0], nil
}

func attachPrimaryImages(db *gorm.DB, items []model.Item) error {
	ids := make([]uint, len(items))
	for i := range items {
		ids[i] = items[i].ID
	}
	primaries, err := attachment.PrimaryImages(db, model.EntityItem, ids)
	if err != nil {
		return err
	}
	for i := range items {
		items[i].PrimaryImage = primaries[items[i].ID]
	}
	return nil
}

// checkCategory returns a validation message when categoryID is not one of the user's categories
func checkCategory(db *gorm.DB, categoryID *uint, userID uint) string {
	if categoryID == nil {
		return ""
	}
	var count int64
	db.Model(&model.Category{}).Where("id = ? AND user_id = ?", *categoryID, userID).Count(&count)
	if count == 0 {
		return "category not found"
	}
	return ""
}

// saveAttributes validates values against the book type fields and upserts them.
// With checkRequired, required fields must end up with a value.
func saveAttributes(tx *gorm.DB, book *model.Book, itemID uint, values map[string]string, checkRequired bool) error {
	if book == nil || book.BookTypeID == nil {
		if len(values) > 0 {
			return fmt.Errorf("%w: book has no type, attributes are not accepted", errInvalidAttributes)
		}
		return nil
	}

	var fields []model.BookTypeField
	if err := tx.Where("book_type_id = ?", *book.BookTypeID).Find(&fields).Error; err != nil {
		return err
	}
	byKey := make(map[string]model.BookTypeField, len(fields))
	for _, f := range fields {
		byKey[f.Key] = f
	}

	for key, value := range values {
		field, ok := byKey[key]
		if !ok {
			return fmt.Errorf("%w: unknown field %q", errInvalidAttributes, key)
		}
		if err := validateFieldValue(field, value); err != nil {
			return err
		}
	}

	var existing []model.ItemAttribute
	if err := tx.Where("item_id = ?", itemID).Find(&existing).Error; err != nil {
		return err
	}
	current := make(map[uint]*model.ItemAttribute, len(existing))
	for i := range existing {
		current[existing[i].FieldID] = &existing[i]
	}

	for key, value := range values {
		field := byKey[key]
		if attr, ok := current[field.ID]; ok {
			if err := tx.Model(attr).Update("value", value).Error; err != nil {
				return err
			}
			attr.Value = value
			continue
		}
		attr := model.ItemAttribute{ItemID: itemID, FieldID: field.ID, Value: value}
		if err := tx.Create(&attr).Error; err != nil {
			return err
		}
		current[field.ID] = &attr
	}

	if checkRequired {
		for _, f := range fields {
			if !f.Required {
				continue
			}
			if attr, ok := current[f.ID]; !ok || strings.TrimSpace(attr.Value) == "" {
				return fmt.Errorf("%w: field %q is required", errInvalidAttributes, f.Key)
			}
		}
	}
	return nil
}

func validateFieldValue(field model.BookTypeField, value string) error {
	if value == "" {
		return nil
	}
	switch field.FieldType {
	case model.FieldTypeNumber:
		if _, err := decimal.NewFromString(value); err != nil {
			return fmt.Errorf("%w: field %q must be a number", errInvalidAttributes, field.Key)
		}
	case model.FieldTypeDate:
		if _, err := time.Parse(dateLayout, value); err != nil {
			return fmt.Errorf("%w: field %q must be a date (YYYY-MM-DD)", errInvalidAttributes, field.Key)
		}
	case model.FieldTypeBoolean:
		if _, err := strconv.ParseBool(value); err != nil {
			return fmt.Errorf("%w: field %q must be true or false", errInvalidAttributes, field.Key)
		}
	case model.FieldTypeSelect:
		var options []string
		if len(field.Options) > 0 {
			if err := json.Unmarshal(field.Options, &options); err != nil {
				return fmt.Errorf("field %q has unreadable options: %w", field.Key, err)
			}
		}
		for _, opt := range options {
			if opt == value {
				return nil
			}
		}
		return fmt.Errorf("%w: field %q must be one of %s", errInvalidAttributes, field.Key, strings.Join(options, ", "))
	}
	return nil
}

func itemWriteFailed(c echo.Context, err error, action string) error {
	log := logger.FromContext(c)
	switch {
	case errors.Is(err, errInvalidAttributes):
		log.Warn("Invalid item attributes", zap.Error(err))
		return jsonError(c, http.StatusBadRequest, err.Error())
	case isUniqueViolation(err):
		log.Warn("Duplicate item number", zap.Error(err))
		return jsonError(c, http.StatusConflict, "Item number already exists in this book")
	default:
		log.Error("Failed to "+action+" item", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to "+action+" item")
	}
}
