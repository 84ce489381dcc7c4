package handler

import (
	"bytes"
	"fmt"
	"net/http"
	"regexp"
	"strings"

	"pawnbook-service/internal/export"
	"pawnbook-service/internal/middleware"
	"pawnbook-service/internal/model"
	"pawnbook-service/pkg/database"
	"pawnbook-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ExportBookItems streams the items of a book as CSV
func ExportBookItems(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	bookID, ok := parseID(c, "book_id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid book id")
	}
	book, err := findBook(database.GetDB(), bookID, userID)
	if err != nil {
		return lookupFailed(c, err, "Book", false)
	}

	var items []model.Item
	if err := database.GetDB().
		Preload("Category").
		Preload("Purchase").Preload("Purchase.Seller").
		Preload("Sale").Preload("Sale.Client").
		Preload("Incidents").
		Where("book_id = ?", bookID).
		Order("item_number ASC").
		Find(&items).Error; err != nil {
		log.Error("Failed to load items for export", zap.Uint("book_id", bookID), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to export items")
	}

	var buf bytes.Buffer
	if err := export.WriteItems(&buf, items); err != nil {
		log.Error("Failed to write CSV", zap.Uint("book_id", bookID), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to export items")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="%s-items.csv"`, exportFileBase(book.Name)))
	log.Info("Items exported", zap.Uint("book_id", bookID), zap.Int("count", len(items)))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

func exportFileBase(name string) string {
	base := strings.Trim(unsafeFileChars.ReplaceAllString(name, "-"), "-")
	if base == "" {
		return "book"
	}
	return base
}
