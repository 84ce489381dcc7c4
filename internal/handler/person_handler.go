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
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PersonRequest defines the structure for person creation/update requests
type PersonRequest struct {
	PersonTypeID   uint   `json:"person_type_id"`
	PersonType     string `json:"person_type"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	DocumentNumber string `json:"document_number"`
	Notes          string `json:"notes"`
}

// resolvePersonType accepts either a type id or a type name
func resolvePersonType(db *gorm.DB, req *PersonRequest) (uint, bool) {
	var pt model.PersonType
	query := db
	switch {
	case req.PersonTypeID != 0:
		query = query.Where("id = ?", req.PersonTypeID)
	case req.PersonType != "":
		query = query.Where("name = ?", strings.ToLower(req.PersonType))
	default:
		return 0, false
	}
	if err := query.First(&pt).Error; err != nil {
		return 0, false
	}
	return pt.ID, true
}

// ListPersonTypes returns the seeded person types
func ListPersonTypes(c echo.Context) error {
	var types []model.PersonType
	if err := database.GetDB().Order("id ASC").Find(&types).Error; err != nil {
		logger.FromContext(c).Error("Failed to retrieve person types", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to retrieve person types")
	}
	return c.JSON(http.StatusOK, types)
}

// ListPeople returns the people of the authenticated user, optionally filtered by ?type=
func ListPeople(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	query := database.GetDB().Preload("PersonType").Where("people.user_id = ?", userID)
	if t := c.QueryParam("type"); t != "" {
		query = query.Joins("JOIN person_types ON person_types.id = people.person_type_id").
			Where("person_types.name = ?", strings.ToLower(t))
	}
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		query = query.Where("LOWER(people.first_name) LIKE ? OR LOWER(people.last_name) LIKE ? OR LOWER(people.email) LIKE ?",
			like, like, like)
	}

	var people []model.Person
	if err := query.Order("people.last_name ASC, people.first_name ASC").Find(&people).Error; err != nil {
		log.Error("Failed to retrieve people", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to retrieve people")
	}

	log.Info("People retrieved", zap.Int("count", len(people)))
	return c.JSON(http.StatusOK, people)
}

// GetPerson returns one person
func GetPerson(c echo.Context) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid person id")
	}
	person, err := findPerson(database.GetDB(), id, userID)
	if err != nil {
		return lookupFailed(c, err, "Person", false)
	}
	return c.JSON(http.StatusOK, person)
}

// CreatePerson adds a client, seller or expert
func CreatePerson(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req PersonRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	if req.FirstName == "" {
		return jsonError(c, http.StatusBadRequest, "first_name is required")
	}
	typeID, ok := resolvePersonType(database.GetDB(), &req)
	if !ok {
		log.Warn("Unknown person type",
			zap.Uint("person_type_id", req.PersonTypeID),
			zap.String("person_type", req.PersonType))
		return jsonError(c, http.StatusBadRequest, "valid person_type_id or person_type is required")
	}

	person := model.Person{
		UserID:         userID,
		PersonTypeID:   typeID,
		FirstName:      req.FirstName,
		LastName:       strings.TrimSpace(req.LastName),
		Email:          strings.TrimSpace(req.Email),
		Phone:          req.Phone,
		Address:        req.Address,
		DocumentNumber: req.DocumentNumber,
		Notes:          req.Notes,
	}
	if err := database.GetDB().Create(&person).Error; err != nil {
		log.Error("Failed to create person", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to create person")
	}

	log.Info("Person created", zap.Uint("person_id", person.ID), zap.Uint("person_type_id", typeID))
	created, err := findPerson(database.GetDB(), person.ID, userID)
	if err != nil {
		return c.JSON(http.StatusCreated, person)
	}
	return c.JSON(http.StatusCreated, created)
}

// UpdatePerson edits a person
func UpdatePerson(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid person id")
	}

	var req PersonRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	if req.FirstName == "" {
		return jsonError(c, http.StatusBadRequest, "first_name is required")
	}

	person, err := findPerson(database.GetDB(), id, userID)
	if err != nil {
		return lookupFailed(c, err, "Person", true)
	}

	updates := map[string]any{
		"first_name":      req.FirstName,
		"last_name":       strings.TrimSpace(req.LastName),
		"email":           strings.TrimSpace(req.Email),
		"phone":           req.Phone,
		"address":         req.Address,
		"document_number": req.DocumentNumber,
		"notes":           req.Notes,
	}
	if req.PersonTypeID != 0 || req.PersonType != "" {
		typeID, ok := resolvePersonType(database.GetDB(), &req)
		if !ok {
			return jsonError(c, http.StatusBadRequest, "invalid person type")
		}
		updates["person_type_id"] = typeID
	}
	if err := database.GetDB().Model(&model.Person{}).Where("id = ?", person.ID).Updates(updates).Error; err != nil {
		log.Error("Failed to update person", zap.Uint("person_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to update person")
	}

	log.Info("Person updated", zap.Uint("person_id", id))
	updated, err := findPerson(database.GetDB(), id, userID)
	if err != nil {
		return lookupFailed(c, err, "Person", false)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeletePerson removes a person nobody references
func DeletePerson(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid person id")
	}

	person, err := findPerson(database.GetDB(), id, userID)
	if err != nil {
		return lookupFailed(c, err, "Person", true)
	}

	refs := []struct {
		model  any
		column string
		label  string
	}{
		{&model.Purchase{}, "seller_id", "purchases"},
		{&model.Sale{}, "client_id", "sales"},
		{&model.Invoice{}, "client_id", "invoices"},
	}
	for _, ref := range refs {
		var count int64
		if err := database.GetDB().Model(ref.model).Where(ref.column+" = ?", id).Count(&count).Error; err != nil {
			log.Error("Failed to check person references", zap.Error(err))
			return jsonError(c, http.StatusInternalServerError, "Failed to delete person")
		}
		if count > 0 {
			log.Warn("Cannot delete referenced person",
				zap.Uint("person_id", id),
				zap.String("referenced_by", ref.label),
				zap.Int64("count", count))
			return jsonError(c, http.StatusConflict, "Cannot delete person referenced by "+ref.label)
		}
	}

	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := softDeleteAttachments(tx, model.EntityPerson, []uint{id}, time.Now().UTC()); err != nil {
			return err
		}
		return tx.Delete(person).Error
	})
	if err != nil {
		log.Error("Failed to delete person", zap.Uint("person_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to delete person")
	}

	log.Info("Person deleted", zap.Uint("person_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Person deleted successfully"})
}

// GetPersonTransactions lists purchases, sales and invoices involving a person
func GetPersonTransactions(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid person id")
	}
	if _, err := findPerson(database.GetDB(), id, userID); err != nil {
		return lookupFailed(c, err, "Person", false)
	}

	var purchases []model.Purchase
	var saleRows []model.Sale
	var invoices []model.Invoice
	db := database.GetDB()
	if err := db.Where("seller_id = ?", id).Order("date DESC").Find(&purchases).Error; err != nil {
		log.Error("Failed to load purchases", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to load transactions")
	}
	if err := db.Preload("Item").Where("client_id = ?", id).Order("date DESC").Find(&saleRows).Error; err != nil {
		log.Error("Failed to load sales", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to load transactions")
	}
	if err := db.Where("client_id = ?", id).Order("invoice_date DESC").Find(&invoices).Error; err != nil {
		log.Error("Failed to load invoices", zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to load transactions")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"purchases": purchases,
		"sales":     saleRows,
		"invoices":  invoices,
	})
}
