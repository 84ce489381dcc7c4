package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pawnbook-service/internal/model"
	"pawnbook-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

// errNotOwned marks a row that exists but belongs to someone else
var errNotOwned = errors.New("not owned by user")

func jsonError(c echo.Context, status int, msg string) error {
	return c.JSON(status, echo.Map{"error": msg})
}

// unauthorized answers requests that reached a handler without an authenticated user
func unauthorized(c echo.Context) error {
	logger.FromContext(c).Warn("Missing user_id in context")
	return jsonError(c, http.StatusUnauthorized, "authentication required")
}

// parseID reads a positive numeric path parameter
func parseID(c echo.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// parseDate accepts YYYY-MM-DD or RFC3339; empty input yields the zero time
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t.UTC(), nil
	}
	return time.Parse(time.RFC3339, value)
}

func dateOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now().UTC()
	}
	return t
}

// findBook loads a book and checks it belongs to userID
func findBook(db *gorm.DB, bookID, userID uint) (*model.Book, error) {
	var book model.Book
	if err := db.First(&book, bookID).Error; err != nil {
		return nil, err
	}
	if book.UserID != userID {
		return nil, errNotOwned
	}
	return &book, nil
}

// findItem loads an item with its book and checks the book belongs to userID
func findItem(db *gorm.DB, itemID, userID uint) (*model.Item, error) {
	var item model.Item
	if err := db.Preload("Book").First(&item, itemID).Error; err != nil {
		return nil, err
	}
	if item.Book == nil || item.Book.UserID != userID {
		return nil, errNotOwned
	}
	return &item, nil
}

// findPerson loads a person owned by userID
func findPerson(db *gorm.DB, personID, userID uint) (*model.Person, error) {
	var person model.Person
	if err := db.Preload("PersonType").First(&person, personID).Error; err != nil {
		return nil, err
	}
	if person.UserID != userID {
		return nil, errNotOwned
	}
	return &person, nil
}

// lookupFailed answers a failed owned-row lookup. Reads of foreign rows look like misses;
// mutations of foreign rows are refused.
func lookupFailed(c echo.Context, err error, what string, mutate bool) error {
	log := logger.FromContext(c)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		log.Warn(what+" not found", zap.Error(err))
		return jsonError(c, http.StatusNotFound, what+" not found")
	case errors.Is(err, errNotOwned) && mutate:
		log.Warn("Access to " + what + " denied")
		return jsonError(c, http.StatusForbidden, "You don't have permission to modify this "+strings.ToLower(what))
	case errors.Is(err, errNotOwned):
		log.Warn(what + " belongs to another user")
		return jsonError(c, http.StatusNotFound, what+" not found")
	default:
		log.Error("Failed to load "+strings.ToLower(what), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to load "+strings.ToLower(what))
	}
}
