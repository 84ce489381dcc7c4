package handler

import (
	"net/http"
	"strings"
	"time"

	"pawnbook-service/internal/middleware"
	"pawnbook-service/internal/model"
	"pawnbook-service/pkg/database"
	"pawnbook-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// IncidentRequest defines the structure for incident creation/update requests
type IncidentRequest struct {
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	IncidentType string           `json:"incident_type"`
	Date         string           `json:"date"`
	Cost         *decimal.Decimal `json:"cost"`
}

func findIncident(db *gorm.DB, incidentID, userID uint) (*model.Incident, *model.Item, error) {
	var incident model.Incident
	if err := db.First(&incident, incidentID).Error; err != nil {
		return nil, nil, err
	}
	item, err := findItem(db, incident.ItemID, userID)
	if err != nil {
		return nil, nil, err
	}
	return &incident, item, nil
}

// releaseRepair puts an in-repair item back to available once no open repair incident remains
func releaseRepair(tx *gorm.DB, itemID uint) error {
	var open int64
	if err := tx.Model(&model.Incident{}).
		Where("item_id = ? AND incident_type = ? AND resolved = ?", itemID, model.IncidentTypeRepair, false).
		Count(&open).Error; err != nil {
		return err
	}
	if open > 0 {
		return nil
	}
	return tx.Model(&model.Item{}).
		Where("id = ? AND status = ?", itemID, model.ItemStatusInRepair).
		Update("status", model.ItemStatusAvailable).Error
}

// ListIncidents returns the incidents of an item, newest first
func ListIncidents(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	itemID, ok := parseID(c, "item_id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid item id")
	}
	if _, err := findItem(database.GetDB(), itemID, userID); err != nil {
		return lookupFailed(c, err, "Item", false)
	}

	var incidents []model.Incident
	if err := database.GetDB().Where("item_id = ?", itemID).
		Order("date DESC").Order("id DESC").Find(&incidents).Error; err != nil {
		log.Error("Failed to retrieve incidents", zap.Uint("item_id", itemID), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to retrieve incidents")
	}
	return c.JSON(http.StatusOK, incidents)
}

// GetIncident returns one incident
func GetIncident(c echo.Context) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid incident id")
	}
	incident, _, err := findIncident(database.GetDB(), id, userID)
	if err != nil {
		return lookupFailed(c, err, "Incident", false)
	}
	return c.JSON(http.StatusOK, incident)
}

// CreateIncident records an incident; repairs put the item in repair
func CreateIncident(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	itemID, ok := parseID(c, "item_id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid item id")
	}

	var req IncidentRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return jsonError(c, http.StatusBadRequest, "title is required")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid date")
	}
	if req.Cost != nil && req.Cost.IsNegative() {
		return jsonError(c, http.StatusBadRequest, "cost must not be negative")
	}

	item, err := findItem(database.GetDB(), itemID, userID)
	if err != nil {
		return lookupFailed(c, err, "Item", true)
	}

	incident := model.Incident{
		ItemID:       itemID,
		Title:        req.Title,
		Description:  req.Description,
		IncidentType: strings.ToLower(strings.TrimSpace(req.IncidentType)),
		Date:         dateOrNow(date),
		Cost:         decimal.Zero,
	}
	if req.Cost != nil {
		incident.Cost = *req.Cost
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&incident).Error; err != nil {
			return err
		}
		if incident.IncidentType == model.IncidentTypeRepair && item.Status != model.ItemStatusSold {
			return tx.Model(&model.Item{}).Where("id = ?", itemID).Update("status", model.ItemStatusInRepair).Error
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to create incident", zap.Uint("item_id", itemID), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to create incident")
	}

	log.Info("Incident created",
		zap.Uint("item_id", itemID),
		zap.Uint("incident_id", incident.ID),
		zap.String("incident_type", incident.IncidentType))
	return c.JSON(http.StatusCreated, incident)
}

// UpdateIncident edits an incident
func UpdateIncident(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid incident id")
	}

	var req IncidentRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		return jsonError(c, http.StatusBadRequest, "title is required")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid date")
	}
	if req.Cost != nil && req.Cost.IsNegative() {
		return jsonError(c, http.StatusBadRequest, "cost must not be negative")
	}

	incident, _, err := findIncident(database.GetDB(), id, userID)
	if err != nil {
		return lookupFailed(c, err, "Incident", true)
	}

	wasRepair := incident.IncidentType == model.IncidentTypeRepair && !incident.Resolved
	incident.Title = req.Title
	incident.Description = req.Description
	incident.IncidentType = strings.ToLower(strings.TrimSpace(req.IncidentType))
	if !date.IsZero() {
		incident.Date = date
	}
	if req.Cost != nil {
		incident.Cost = *req.Cost
	}
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(incident).Error; err != nil {
			return err
		}
		if wasRepair {
			return releaseRepair(tx, incident.ItemID)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to update incident", zap.Uint("incident_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to update incident")
	}

	log.Info("Incident updated", zap.Uint("incident_id", id))
	return c.JSON(http.StatusOK, incident)
}

// ResolveIncident closes an incident; the item leaves repair when nothing else keeps it there
func ResolveIncident(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid incident id")
	}

	incident, _, err := findIncident(database.GetDB(), id, userID)
	if err != nil {
		return lookupFailed(c, err, "Incident", true)
	}
	if incident.Resolved {
		return c.JSON(http.StatusOK, incident)
	}

	now := time.Now().UTC()
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(incident).Updates(map[string]any{"resolved": true, "resolved_at": now}).Error; err != nil {
			return err
		}
		if incident.IncidentType == model.IncidentTypeRepair {
			return releaseRepair(tx, incident.ItemID)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to resolve incident", zap.Uint("incident_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to resolve incident")
	}
	incident.Resolved = true
	incident.ResolvedAt = &now

	log.Info("Incident resolved", zap.Uint("incident_id", id), zap.Uint("item_id", incident.ItemID))
	return c.JSON(http.StatusOK, incident)
}

// DeleteIncident removes an incident and soft deletes its attachments
func DeleteIncident(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid incident id")
	}

	incident, _, err := findIncident(database.GetDB(), id, userID)
	if err != nil {
		return lookupFailed(c, err, "Incident", true)
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(incident).Error; err != nil {
			return err
		}
		if err := softDeleteAttachments(tx, model.EntityIncident, []uint{id}, time.Now().UTC()); err != nil {
			return err
		}
		if incident.IncidentType == model.IncidentTypeRepair && !incident.Resolved {
			return releaseRepair(tx, incident.ItemID)
		}
		return nil
	})
	if err != nil {
		log.Error("Failed to delete incident", zap.Uint("incident_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to delete incident")
	}

	log.Info("Incident deleted", zap.Uint("incident_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Incident deleted successfully"})
}
