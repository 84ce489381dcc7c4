package handler

import (
	"errors"
	"net/http"

	"pawnbook-service/internal/middleware"
	"pawnbook-service/internal/model"
	"pawnbook-service/pkg/database"
	"pawnbook-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PurchaseRequest records how an item was acquired
type PurchaseRequest struct {
	SellerID      *uint           `json:"seller_id"`
	Price         decimal.Decimal `json:"price"`
	Date          string          `json:"date"`
	Location      string          `json:"location"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes"`
}

// GetPurchase returns the purchase of an item
func GetPurchase(c echo.Context) error {
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

	var purchase model.Purchase
	if err := database.GetDB().Preload("Seller").Where("item_id = ?", id).First(&purchase).Error; err != nil {
		return lookupFailed(c, err, "Purchase", false)
	}
	return c.JSON(http.StatusOK, purchase)
}

// PutPurchase creates or replaces the purchase record of an item
func PutPurchase(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid item id")
	}

	var req PurchaseRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	if req.Price.IsNegative() {
		return jsonError(c, http.StatusBadRequest, "price must not be negative")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid date")
	}

	if _, err := findItem(database.GetDB(), id, userID); err != nil {
		return lookupFailed(c, err, "Item", true)
	}
	if req.SellerID != nil {
		if _, err := findPerson(database.GetDB(), *req.SellerID, userID); err != nil {
			if errors.Is(err, errNotOwned) {
				log.Warn("Seller belongs to another user", zap.Uint("seller_id", *req.SellerID))
				return jsonError(c, http.StatusForbidden, "seller does not belong to you")
			}
			return lookupFailed(c, err, "Seller", false)
		}
	}

	var purchase model.Purchase
	created := false
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		err := tx.Where("item_id = ?", id).First(&purchase).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		created = errors.Is(err, gorm.ErrRecordNotFound)

		purchase.ItemID = id
		purchase.SellerID = req.SellerID
		purchase.Price = req.Price
		purchase.Date = dateOrNow(date)
		purchase.Location = req.Location
		purchase.PaymentMethod = req.PaymentMethod
		purchase.Notes = req.Notes
		return tx.Omit("Seller").Save(&purchase).Error
	})
	if err != nil {
		log.Error("Failed to save purchase", zap.Uint("item_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to save purchase")
	}

	log.Info("Purchase saved",
		zap.Uint("item_id", id),
		zap.String("price", purchase.Price.String()),
		zap.Bool("created", created))
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return c.JSON(status, purchase)
}

// DeletePurchase removes the purchase record of an item
func DeletePurchase(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid item id")
	}
	if _, err := findItem(database.GetDB(), id, userID); err != nil {
		return lookupFailed(c, err, "Item", true)
	}

	result := database.GetDB().Where("item_id = ?", id).Delete(&model.Purchase{})
	if result.Error != nil {
		log.Error("Failed to delete purchase", zap.Uint("item_id", id), zap.Error(result.Error))
		return jsonError(c, http.StatusInternalServerError, "Failed to delete purchase")
	}
	if result.RowsAffected == 0 {
		return jsonError(c, http.StatusNotFound, "Purchase not found")
	}

	log.Info("Purchase deleted", zap.Uint("item_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Purchase deleted successfully"})
}
