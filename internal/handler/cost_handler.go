package handler

import (
	"net/http"
	"strings"

	"pawnbook-service/internal/middleware"
	"pawnbook-service/internal/model"
	"pawnbook-service/pkg/database"
	"pawnbook-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CostRequest defines the structure for cost creation/update requests
type CostRequest struct {
	ItemID      *uint           `json:"item_id"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
}

func (r *CostRequest) validate() string {
	r.Description = strings.TrimSpace(r.Description)
	if r.Description == "" {
		return "description is required"
	}
	if r.Amount.IsNegative() {
		return "amount must not be negative"
	}
	return ""
}

// checkCostItem reports whether itemID (when set) belongs to the book
func checkCostItem(itemID *uint, bookID uint) bool {
	if itemID == nil {
		return true
	}
	var count int64
	database.GetDB().Model(&model.Item{}).Where("id = ? AND book_id = ?", *itemID, bookID).Count(&count)
	return count > 0
}

func findCost(costID, userID uint) (*model.Cost, error) {
	var cost model.Cost
	if err := database.GetDB().First(&cost, costID).Error; err != nil {
		return nil, err
	}
	if _, err := findBook(database.GetDB(), cost.BookID, userID); err != nil {
		return nil, err
	}
	return &cost, nil
}

// ListCosts returns the costs of a book, newest first
func ListCosts(c echo.Context) error {
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

	query := database.GetDB().Where("book_id = ?", bookID)
	if category := c.QueryParam("category"); category != "" {
		query = query.Where("category = ?", category)
	}
	var costs []model.Cost
	if err := query.Order("date DESC").Order("id DESC").Find(&costs).Error; err != nil {
		log.Error("Failed to retrieve costs", zap.Uint("book_id", bookID), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to retrieve costs")
	}
	return c.JSON(http.StatusOK, costs)
}

// CreateCost records an expense of a book
func CreateCost(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	bookID, ok := parseID(c, "book_id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid book id")
	}

	var req CostRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	if msg := req.validate(); msg != "" {
		return jsonError(c, http.StatusBadRequest, msg)
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid date")
	}

	if _, err := findBook(database.GetDB(), bookID, userID); err != nil {
		return lookupFailed(c, err, "Book", true)
	}
	if !checkCostItem(req.ItemID, bookID) {
		log.Warn("Cost item not in book", zap.Uint("book_id", bookID))
		return jsonError(c, http.StatusBadRequest, "item does not belong to this book")
	}

	cost := model.Cost{
		BookID:      bookID,
		ItemID:      req.ItemID,
		Description: req.Description,
		Category:    req.Category,
		Amount:      req.Amount,
		Date:        dateOrNow(date),
	}
	if err := database.GetDB().Create(&cost).Error; err != nil {
		log.Error("Failed to create cost", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to create cost")
	}

	log.Info("Cost created",
		zap.Uint("book_id", bookID),
		zap.Uint("cost_id", cost.ID),
		zap.String("amount", cost.Amount.String()))
	return c.JSON(http.StatusCreated, cost)
}

// UpdateCost edits an expense
func UpdateCost(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid cost id")
	}

	var req CostRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	if msg := req.validate(); msg != "" {
		return jsonError(c, http.StatusBadRequest, msg)
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid date")
	}

	cost, err := findCost(id, userID)
	if err != nil {
		return lookupFailed(c, err, "Cost", true)
	}
	if !checkCostItem(req.ItemID, cost.BookID) {
		return jsonError(c, http.StatusBadRequest, "item does not belong to this book")
	}

	cost.ItemID = req.ItemID
	cost.Description = req.Description
	cost.Category = req.Category
	cost.Amount = req.Amount
	if !date.IsZero() {
		cost.Date = date
	}
	if err := database.GetDB().Save(cost).Error; err != nil {
		log.Error("Failed to update cost", zap.Uint("cost_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to update cost")
	}

	log.Info("Cost updated", zap.Uint("cost_id", id))
	return c.JSON(http.StatusOK, cost)
}

// DeleteCost removes an expense
func DeleteCost(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid cost id")
	}

	cost, err := findCost(id, userID)
	if err != nil {
		return lookupFailed(c, err, "Cost", true)
	}
	if err := database.GetDB().Delete(cost).Error; err != nil {
		log.Error("Failed to delete cost", zap.Uint("cost_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to delete cost")
	}

	log.Info("Cost deleted", zap.Uint("cost_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Cost deleted successfully"})
}
