package handler

import (
	"net/http"
	"strings"

	"pawnbook-service/internal/middleware"
	"pawnbook-service/internal/model"
	"pawnbook-service/pkg/database"
	"pawnbook-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// CategoryRequest defines the structure for category creation/update requests
type CategoryRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ListCategories retrieves all item categories of the authenticated user
func ListCategories(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var categories []model.Category
	if err := database.GetDB().Where("user_id = ?", userID).Order("name ASC").Find(&categories).Error; err != nil {
		log.Error("Failed to retrieve categories", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to retrieve categories")
	}

	log.Info("Categories retrieved successfully", zap.Int("count", len(categories)))
	return c.JSON(http.StatusOK, categories)
}

// GetCategory retrieves a specific category by ID
func GetCategory(c echo.Context) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid category id")
	}

	var category model.Category
	if err := database.GetDB().Where("id = ? AND user_id = ?", id, userID).First(&category).Error; err != nil {
		return lookupFailed(c, err, "Category", false)
	}
	return c.JSON(http.StatusOK, category)
}

// CreateCategory adds a new item category
func CreateCategory(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return jsonError(c, http.StatusBadRequest, "name is required")
	}

	var count int64
	database.GetDB().Model(&model.Category{}).Where("name = ? AND user_id = ?", req.Name, userID).Count(&count)
	if count > 0 {
		log.Warn("Category with this name already exists", zap.String("name", req.Name))
		return jsonError(c, http.StatusConflict, "Category with this name already exists")
	}

	category := model.Category{UserID: userID, Name: req.Name, Description: req.Description}
	if err := database.GetDB().Create(&category).Error; err != nil {
		if isUniqueViolation(err) {
			return jsonError(c, http.StatusConflict, "Category with this name already exists")
		}
		log.Error("Failed to create category", zap.String("name", req.Name), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to create category")
	}

	log.Info("Category created successfully",
		zap.Uint("category_id", category.ID),
		zap.String("name", category.Name))
	return c.JSON(http.StatusCreated, category)
}

// UpdateCategory updates an existing item category
func UpdateCategory(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid category id")
	}

	var req CategoryRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Uint("category_id", id), zap.Error(err))
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return jsonError(c, http.StatusBadRequest, "name is required")
	}

	var category model.Category
	if err := database.GetDB().First(&category, id).Error; err != nil {
		return lookupFailed(c, err, "Category", true)
	}
	if category.UserID != userID {
		log.Warn("Unauthorized attempt to update category of another user",
			zap.Uint("category_id", id),
			zap.Uint("category_user", category.UserID))
		return jsonError(c, http.StatusForbidden, "You don't have permission to update this category")
	}

	oldName := category.Name
	if req.Name != category.Name {
		var count int64
		database.GetDB().Model(&model.Category{}).
			Where("name = ? AND id <> ? AND user_id = ?", req.Name, id, userID).
			Count(&count)
		if count > 0 {
			log.Warn("Category with this name already exists", zap.String("name", req.Name))
			return jsonError(c, http.StatusConflict, "Category with this name already exists")
		}
	}

	category.Name = req.Name
	category.Description = req.Description
	if err := database.GetDB().Save(&category).Error; err != nil {
		log.Error("Failed to update category", zap.Uint("category_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to update category")
	}

	log.Info("Category updated successfully",
		zap.Uint("category_id", id),
		zap.String("old_name", oldName),
		zap.String("new_name", category.Name))
	return c.JSON(http.StatusOK, category)
}

// DeleteCategory removes a category that no item references
func DeleteCategory(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid category id")
	}

	var category model.Category
	if err := database.GetDB().First(&category, id).Error; err != nil {
		return lookupFailed(c, err, "Category", true)
	}
	if category.UserID != userID {
		log.Warn("Unauthorized attempt to delete category of another user", zap.Uint("category_id", id))
		return jsonError(c, http.StatusForbidden, "You don't have permission to delete this category")
	}

	var count int64
	if err := database.GetDB().Model(&model.Item{}).Where("category_id = ?", id).Count(&count).Error; err != nil {
		log.Error("Failed to check category usage", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to delete category")
	}
	if count > 0 {
		log.Warn("Cannot delete category in use",
			zap.Uint("category_id", id),
			zap.Int64("item_count", count))
		return jsonError(c, http.StatusConflict, "Cannot delete category that is used by items")
	}

	if err := database.GetDB().Delete(&category).Error; err != nil {
		log.Error("Failed to delete category", zap.Uint("category_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to delete category")
	}

	log.Info("Category deleted successfully", zap.Uint("category_id", id), zap.String("name", category.Name))
	return c.JSON(http.StatusOK, echo.Map{"message": "Category deleted successfully"})
}
