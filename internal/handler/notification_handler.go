package handler

import (
	"net/http"
	"time"

	"pawnbook-service/internal/middleware"
	"pawnbook-service/internal/model"
	"pawnbook-service/pkg/database"
	"pawnbook-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListNotifications returns the user's notifications, newest first
func ListNotifications(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	query := database.GetDB().Where("user_id = ?", userID)
	if c.QueryParam("unread") == "true" {
		query = query.Where("read = ?", false)
	}

	var notifications []model.Notification
	if err := query.Order("created_at DESC").Order("id DESC").Find(&notifications).Error; err != nil {
		log.Error("Failed to retrieve notifications", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to retrieve notifications")
	}
	return c.JSON(http.StatusOK, notifications)
}

// MarkNotificationRead marks one notification as read
func MarkNotificationRead(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid notification id")
	}

	var n model.Notification
	if err := database.GetDB().Where("id = ? AND user_id = ?", id, userID).First(&n).Error; err != nil {
		return lookupFailed(c, err, "Notification", true)
	}
	if !n.Read {
		now := time.Now()
		if err := database.GetDB().Model(&n).Updates(map[string]any{"read": true, "read_at": now}).Error; err != nil {
			log.Error("Failed to mark notification read", zap.Uint("notification_id", id), zap.Error(err))
			return jsonError(c, http.StatusInternalServerError, "Failed to update notification")
		}
		n.Read = true
		n.ReadAt = &now
	}
	return c.JSON(http.StatusOK, n)
}

// MarkAllNotificationsRead marks every unread notification of the user as read
func MarkAllNotificationsRead(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	res := database.GetDB().Model(&model.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Updates(map[string]any{"read": true, "read_at": time.Now()})
	if res.Error != nil {
		log.Error("Failed to mark notifications read", zap.Error(res.Error))
		return jsonError(c, http.StatusInternalServerError, "Failed to update notifications")
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": res.RowsAffected})
}
