package handler

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"

	"pawnbook-service/internal/invoicepdf"
	"pawnbook-service/internal/middleware"
	"pawnbook-service/internal/model"
	"pawnbook-service/internal/sales"
	"pawnbook-service/pkg/database"
	"pawnbook-service/pkg/logger"
	"pawnbook-service/prometheus"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// SaleRequest sells one or more items of a book on a single invoice
type SaleRequest struct {
	ClientID      *uint            `json:"client_id"`
	Date          string           `json:"date"`
	Location      string           `json:"location"`
	PaymentMethod string           `json:"payment_method"`
	Notes         string           `json:"notes"`
	Items         []sales.LineItem `json:"items"`
}

// ItemSaleRequest sells a single item
type ItemSaleRequest struct {
	ClientID      *uint           `json:"client_id"`
	Price         decimal.Decimal `json:"price"`
	Date          string          `json:"date"`
	Location      string          `json:"location"`
	PaymentMethod string          `json:"payment_method"`
	Notes         string          `json:"notes"`
}

// InvoiceRequest edits invoice header fields
type InvoiceRequest struct {
	ClientID *uint  `json:"client_id"`
	Date     string `json:"date"`
	Notes    string `json:"notes"`
}

// CreateSale sells items of a book in one transaction and returns the invoice
func CreateSale(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	bookID, ok := parseID(c, "book_id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid book id")
	}

	var req SaleRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid date")
	}

	log.Info("Creating sale",
		zap.Uint("book_id", bookID),
		zap.Int("item_count", len(req.Items)))

	return createSale(c, sales.CreateInput{
		BookID:        bookID,
		UserID:        userID,
		ClientID:      req.ClientID,
		Date:          date,
		Location:      req.Location,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Items:         req.Items,
	})
}

// CreateItemSale sells a single item on its own invoice
func CreateItemSale(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	itemID, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid item id")
	}

	var req ItemSaleRequest
	if err := c.Bind(&req); err != nil {
		log.Error("Invalid request data", zap.Error(err))
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid date")
	}

	item, err := findItem(database.GetDB(), itemID, userID)
	if err != nil {
		return lookupFailed(c, err, "Item", true)
	}

	log.Info("Creating single item sale", zap.Uint("item_id", itemID), zap.Uint("book_id", item.BookID))
	return createSale(c, sales.CreateInput{
		BookID:        item.BookID,
		UserID:        userID,
		ClientID:      req.ClientID,
		Date:          date,
		Location:      req.Location,
		PaymentMethod: req.PaymentMethod,
		Notes:         req.Notes,
		Items:         []sales.LineItem{{ItemID: itemID, Price: req.Price}},
	})
}

func createSale(c echo.Context, in sales.CreateInput) error {
	log := logger.FromContext(c)

	invoice, err := sales.CreateSale(c.Request().Context(), database.GetDB(), in)
	if err != nil {
		prometheus.RecordSaleOperation("create", false)
		return saleFailed(c, err)
	}
	prometheus.RecordSaleOperation("create", true)

	log.Info("Sale created",
		zap.Uint("book_id", in.BookID),
		zap.Uint("invoice_id", invoice.ID),
		zap.String("invoice_number", invoice.InvoiceNumber),
		zap.String("total", invoice.TotalAmount.String()))
	return c.JSON(http.StatusCreated, invoice)
}

// saleFailed maps sale workflow errors onto HTTP statuses
func saleFailed(c echo.Context, err error) error {
	log := logger.FromContext(c)
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, sales.ErrNoItems),
		errors.Is(err, sales.ErrDuplicateItem),
		errors.Is(err, sales.ErrNegativePrice),
		errors.Is(err, sales.ErrItemNotInBook):
		status = http.StatusBadRequest
	case errors.Is(err, sales.ErrBookNotFound),
		errors.Is(err, sales.ErrItemNotFound),
		errors.Is(err, sales.ErrClientNotFound),
		errors.Is(err, sales.ErrInvoiceNotFound),
		errors.Is(err, sales.ErrSaleNotFound):
		status = http.StatusNotFound
	case errors.Is(err, sales.ErrNotOwner), errors.Is(err, sales.ErrClientNotAllowed):
		status = http.StatusForbidden
	case errors.Is(err, sales.ErrItemAlreadySold):
		status = http.StatusConflict
	case isUniqueViolation(err):
		log.Warn("Concurrent sale collided", zap.Error(err))
		return jsonError(c, http.StatusConflict, "Sale conflicted with another sale, retry")
	}

	if status == http.StatusInternalServerError {
		log.Error("Sale operation failed", zap.Error(err))
		return jsonError(c, status, "Failed to process sale")
	}
	log.Warn("Sale rejected", zap.Int("status", status), zap.Error(err))
	return jsonError(c, status, err.Error())
}

func findInvoice(db *gorm.DB, invoiceID, userID uint) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := db.Preload("Book").First(&invoice, invoiceID).Error; err != nil {
		return nil, err
	}
	if invoice.Book == nil || invoice.Book.UserID != userID {
		return nil, errNotOwned
	}
	return &invoice, nil
}

func loadInvoiceDetail(db *gorm.DB, invoiceID uint) (*model.Invoice, error) {
	var invoice model.Invoice
	err := db.Preload("Book").Preload("Client").
		Preload("Sales", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Sales.Item").
		First(&invoice, invoiceID).Error
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

// ListInvoices returns the invoices of a book, newest first
func ListInvoices(c echo.Context) error {
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

	var invoices []model.Invoice
	if err := database.GetDB().Preload("Client").Preload("Sales").
		Where("book_id = ?", bookID).
		Order("invoice_date DESC").Order("id DESC").
		Find(&invoices).Error; err != nil {
		log.Error("Failed to retrieve invoices", zap.Uint("book_id", bookID), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to retrieve invoices")
	}
	return c.JSON(http.StatusOK, invoices)
}

// GetInvoice returns an invoice with its sales, items and client
func GetInvoice(c echo.Context) error {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid invoice id")
	}
	if _, err := findInvoice(database.GetDB(), id, userID); err != nil {
		return lookupFailed(c, err, "Invoice", false)
	}

	invoice, err := loadInvoiceDetail(database.GetDB(), id)
	if err != nil {
		return lookupFailed(c, err, "Invoice", false)
	}
	return c.JSON(http.StatusOK, invoice)
}

// UpdateInvoice edits client, date and notes of an invoice and its sales
func UpdateInvoice(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid invoice id")
	}

	var req InvoiceRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "Invalid request data")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid date")
	}

	invoice, err := findInvoice(database.GetDB(), id, userID)
	if err != nil {
		return lookupFailed(c, err, "Invoice", true)
	}
	if req.ClientID != nil {
		if _, err := findPerson(database.GetDB(), *req.ClientID, userID); err != nil {
			if errors.Is(err, errNotOwned) {
				return jsonError(c, http.StatusForbidden, sales.ErrClientNotAllowed.Error())
			}
			return lookupFailed(c, err, "Client", false)
		}
	}

	invoiceUpdates := map[string]any{"client_id": req.ClientID, "notes": req.Notes}
	saleUpdates := map[string]any{"client_id": req.ClientID}
	if !date.IsZero() {
		invoiceUpdates["invoice_date"] = date
		saleUpdates["date"] = date
	}
	err = database.GetDB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&model.Invoice{}).Where("id = ?", invoice.ID).Updates(invoiceUpdates).Error; err != nil {
			return err
		}
		return tx.Model(&model.Sale{}).Where("invoice_id = ?", invoice.ID).Updates(saleUpdates).Error
	})
	if err != nil {
		log.Error("Failed to update invoice", zap.Uint("invoice_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to update invoice")
	}

	log.Info("Invoice updated", zap.Uint("invoice_id", id))
	updated, err := loadInvoiceDetail(database.GetDB(), id)
	if err != nil {
		return lookupFailed(c, err, "Invoice", false)
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteInvoice removes an invoice with its sales and returns the items to stock
func DeleteInvoice(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid invoice id")
	}
	if _, err := findInvoice(database.GetDB(), id, userID); err != nil {
		return lookupFailed(c, err, "Invoice", true)
	}

	if err := sales.DeleteInvoice(c.Request().Context(), database.GetDB(), id); err != nil {
		prometheus.RecordSaleOperation("delete_invoice", false)
		return saleFailed(c, err)
	}
	prometheus.RecordSaleOperation("delete_invoice", true)

	log.Info("Invoice deleted", zap.Uint("invoice_id", id))
	return c.JSON(http.StatusOK, echo.Map{"message": "Invoice deleted successfully"})
}

// DeleteSale removes one sale; the invoice goes away with its last sale
func DeleteSale(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid sale id")
	}

	var sale model.Sale
	if err := database.GetDB().First(&sale, id).Error; err != nil {
		return lookupFailed(c, err, "Sale", true)
	}
	if _, err := findItem(database.GetDB(), sale.ItemID, userID); err != nil {
		return lookupFailed(c, err, "Sale", true)
	}

	invoiceDeleted, err := sales.DeleteSale(c.Request().Context(), database.GetDB(), id)
	if err != nil {
		prometheus.RecordSaleOperation("delete_sale", false)
		return saleFailed(c, err)
	}
	prometheus.RecordSaleOperation("delete_sale", true)

	log.Info("Sale deleted",
		zap.Uint("sale_id", id),
		zap.Uint("invoice_id", sale.InvoiceID),
		zap.Bool("invoice_deleted", invoiceDeleted))
	return c.JSON(http.StatusOK, echo.Map{
		"message":         "Sale deleted successfully",
		"invoice_id":      sale.InvoiceID,
		"invoice_deleted": invoiceDeleted,
	})
}

// GetInvoicePDF renders the invoice as a PDF download
func GetInvoicePDF(c echo.Context) error {
	log := logger.FromContext(c)
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := parseID(c, "id")
	if !ok {
		return jsonError(c, http.StatusBadRequest, "invalid invoice id")
	}
	if _, err := findInvoice(database.GetDB(), id, userID); err != nil {
		return lookupFailed(c, err, "Invoice", false)
	}

	invoice, err := loadInvoiceDetail(database.GetDB(), id)
	if err != nil {
		return lookupFailed(c, err, "Invoice", false)
	}

	var buf bytes.Buffer
	if err := invoicepdf.Render(&buf, invoice); err != nil {
		log.Error("Failed to render invoice", zap.Uint("invoice_id", id), zap.Error(err))
		return jsonError(c, http.StatusInternalServerError, "Failed to render invoice")
	}

	log.Info("Invoice PDF rendered", zap.Uint("invoice_id", id), zap.Int("bytes", buf.Len()))
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", invoicepdf.FileName(invoice)))
	return c.Blob(http.StatusOK, "application/pdf", buf.Bytes())
}
