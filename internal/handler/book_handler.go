package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"pawnbook-service/internal/middleware"
	"pawnbook-service/internal/model"
	"pawnbook-service/internal/sales"
	"pawnbook-service/pkg/database"
	"pawnbook-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BookTypeRequest defines the structure for book type creation
type BookTypeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// BookTypeFieldRequest defines a dynamic item field of a book type
type BookTypeFieldRequest struct {
	Key       string   `json:"key"`
	Label     string   `json:"label"`
	FieldType string   `json:"field_type"`
	Options   []string `json:"options"`
	Required  bool     `json:"required"`
	Position  int      `json:"position"`
}

// BookRequest defines the structure for book creation/update requests
type BookRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	BookTypeID  *uint  `json:"book_type_id"`
}

func validFieldType(t string) bool {
	switch t {
	case model.FieldTypeText, model.FieldTypeNumber, model.FieldTypeDate, model.FieldTypeSelect, model.FieldTypeBoolean:
		return true
	}
	return false
}

// ListBookTypes returns every book type with its fields
func ListBookTypes(c echo.Context) error {
	log := logger.FromContext(c)

	var types []model.BookType
	if err := database.GetDB().Preload("Fields", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC, id ASC")
	}).Order("name ASC").Find(&types).Error; err != nil {
		log.Error("Failed to retrieve book types", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to retrieve book types")
	}
	return c.JSON(http.StatusOK, types)
}

// GetBookType returns one book type with its fields
func GetBookType(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid book type id")
	}

	var bookType model.BookType
	if err := database.GetDB().Preload("Fields", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC, id ASC")
	}).First(&bookType, id).Error; err != nil {
		return lookupFailed(c, err, "Book type", false)
	}
	return c.JSON(http.StatusOK, bookType)
}

// CreateBookType adds a new book type
func CreateBookType(c echo.Context) error {
	log := logger.FromContext(c)

	var req BookTypeRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return jsonError(c, http.StatusBadRequest, "name is required")
	}

	var count int64
	database.GetDB().Model(&model.BookType{}).Where("name = ?", req.Name).Count(&count)
	if count > 0 {
		log.Warn("Book type already exists", zap.String("name", req.Name))
		return jsonError(c, http.StatusConflict, "Book type with this name already exists")
	}

	bookType := model.BookType{Name: req.Name, Description: req.Description}
	if err := database.GetDB().Create(&bookType).Error; err != nil {
		log.Error("Failed to create book type", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to create book type")
	}

	log.Info("Book type created", zap.Uint("book_type_id", bookType.ID), zap.String("name", bookType.Name))
	return c.JSON(http.StatusCreated, bookType)
}

// AddBookTypeField declares a new dynamic field on a book type
func AddBookTypeField(c echo.Context) error {
	log := logger.FromContext(c)
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid book type id")
	}

	var req BookTypeFieldRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	req.Key = strings.TrimSpace(req.Key)
	if req.FieldType == "" {
		req.FieldType = model.FieldTypeText
	}
	if req.Key == "" || strings.TrimSpace(req.Label) == "" {
		return jsonError(c, http.StatusBadRequest, "key and label are required")
	}
	if !validFieldType(req.FieldType) {
		log.Warn("Invalid field type", zap.String("field_type", req.FieldType))
		return jsonError(c, http.StatusBadRequest, "invalid field_type")
	}
	if req.FieldType == model.FieldTypeSelect && len(req.Options) == 0 {
		return jsonError(c, http.StatusBadRequest, "select fields need options")
	}

	var bookType model.BookType
	if err := database.GetDB().First(&bookType, id).Error; err != nil {
		return lookupFailed(c, err, "Book type", true)
	}

	var count int64
	database.GetDB().Model(&model.BookTypeField{}).Where("book_type_id = ? AND key = ?", id, req.Key).Count(&count)
	if count > 0 {
		return jsonError(c, http.StatusConflict, "Field with this key already exists")
	}

	field := model.BookTypeField{
		BookTypeID: id,
		Key:        req.Key,
		Label:      strings.TrimSpace(req.Label),
		FieldType:  req.FieldType,
		Required:   req.Required,
		Position:   req.Position,
	}
	if len(req.Options) > 0 {
		raw, err := json.Marshal(req.Options)
		if err != nil {
			return jsonError(c, http.StatusBadRequest, "invalid options")
		}
		field.Options = datatypes.JSON(raw)
	}
	if err := database.GetDB().Create(&field).Error; err != nil {
		log.Error("Failed to create field", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to create field")
	}

	log.Info("Book type field created",
		zap.Uint("book_type_id", id),
		zap.String("key", field.Key),
		zap.String("field_type", field.FieldType))
	return c.JSON(http.StatusCreated, field)
}

// ListBooks returns the books of the authenticated user
func ListBooks(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var books []model.Book
	if err := database.GetDB().Preload("BookType").Where("user_id = ?", userID).
		Order("created_at ASC").Find(&books).Error; err != nil {
		log.Error("Failed to retrieve books", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to retrieve books")
	}

	log.Info("Books retrieved", zap.Int("count", len(books)))
	return c.JSON(http.StatusOK, books)
}

// GetBook returns one book with its type fields
func GetBook(c echo.Context) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid book id")
	}

	book, err := findBook(database.GetDB(), id, userID)
	if err != nil {
		return lookupFailed(c, err, "Book", false)
	}
	if book.BookTypeID != nil {
		var bookType model.BookType
		if err := database.GetDB().Preload("Fields").First(&bookType, *book.BookTypeID).Error; err == nil {
			book.BookType = &bookType
		}
	}
	return c.JSON(http.StatusOK, book)
}

// CreateBook adds a new book for the authenticated user
func CreateBook(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req BookRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return jsonError(c, http.StatusBadRequest, "name is required")
	}
	if req.BookTypeID != nil {
		var count int64
		database.GetDB().Model(&model.BookType{}).Where("id = ?", *req.BookTypeID).Count(&count)
		if count == 0 {
			log.Warn("Unknown book type", zap.Uint("book_type_id", *req.BookTypeID))
			return jsonError(c, http.StatusBadRequest, "book type not found")
		}
	}

	book := model.Book{
		UserID:      userID,
		BookTypeID:  req.BookTypeID,
		Name:        req.Name,
		Description: req.Description,
	}
	if err := database.GetDB().Create(&book).Error; err != nil {
		log.Error("Failed to create book", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to create book")
	}

	log.Info("Book created", zap.Uint("book_id", book.ID), zap.String("name", book.Name))
	return c.JSON(http.StatusCreated, book)
}

// UpdateBook changes name, description or type of a book
func UpdateBook(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid book id")
	}

	var req BookRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return jsonError(c, http.StatusBadRequest, "name is required")
	}

	book, err := findBook(database.GetDB(), id, userID)
	if err != nil {
		return lookupFailed(c, err, "Book", true)
	}
	if req.BookTypeID != nil {
		var count int64
		database.GetDB().Model(&model.BookType{}).Where("id = ?", *req.BookTypeID).Count(&count)
		if count == 0 {
			return jsonError(c, http.StatusBadRequest, "book type not found")
		}
	}

	book.Name = req.Name
	book.Description = req.Description
	book.BookTypeID = req.BookTypeID
	if err := database.GetDB().Model(book).Updates(map[string]any{
		"name":         book.Name,
		"description":  book.Description,
		"book_type_id": book.BookTypeID,
	}).Error; err != nil {
		log.Error("Failed to update book", zap.Uint("book_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to update book")
	}

	log.Info("Book updated", zap.Uint("book_id", id))
	return c.JSON(http.StatusOK, book)
}

// DeleteBook removes an empty book
func DeleteBook(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid book id")
	}

	book, err := findBook(database.GetDB(), id, userID)
	if err != nil {
		return lookupFailed(c, err, "Book", true)
	}

	var items int64
	if err := database.GetDB().Model(&model.Item{}).Where("book_id = ?", id).Count(&items).Error; err != nil {
		log.Error("Failed to count book items", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to delete book")
	}
	if items > 0 {
		log.Warn("Book still has items", zap.Uint("book_id", id), zap.Int64("items", items))
		return jsonError(c, http.StatusConflict, "Book still has items and cannot be deleted")
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("book_id = ?", id).Delete(&model.Cost{}).Error; err != nil {
			return err
		}
		return tx.Delete(book).Error
	})
	if err != nil {
		log.Error("Failed to delete book", zap.Uint("book_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to delete book")
	}

	log.Info("Book deleted", zap.Uint("book_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Book deleted successfully"})
}

// GetBookSummary returns counts and money totals of a book
func GetBookSummary(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "book_id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid book id")
	}
	if _, err := findBook(database.GetDB(), id, userID); err != nil {
		return lookupFailed(c, err, "Book", false)
	}

	summary, err := sales.Summarize(c.Request().Context(), database.GetDB(), id)
	if err != nil {
		log.Error("Failed to summarize book", zap.Uint("book_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to summarize book")
	}
	return c.JSON(http.StatusOK, summary)
}

// isUniqueViolation reports a duplicate key error across the supported drivers
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}
