package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pawnbook-service/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrNoItems          = errors.New("at least one item is required")
	ErrDuplicateItem    = errors.New("item is listed more than once")
	ErrNegativePrice    = errors.New("price must not be negative")
	ErrBookNotFound     = errors.New("book not found")
	ErrItemNotFound     = errors.New("item not found")
	ErrItemNotInBook    = errors.New("item does not belong to this book")
	ErrItemAlreadySold  = errors.New("Item is already sold")
	ErrClientNotFound   = errors.New("client not found")
	ErrInvoiceNotFound  = errors.New("invoice not found")
	ErrSaleNotFound     = errors.New("sale not found")
	ErrNotOwner         = errors.New("you don't have access to this book")
	ErrClientNotAllowed = errors.New("client does not belong to you")
)

// LineItem is one item sold at a price
type LineItem struct {
	ItemID uint            `json:"item_id"`
	Price  decimal.Decimal `json:"price"`
}

// CreateInput describes a sale of one or more items of a book to an optional client
type CreateInput struct {
	BookID        uint
	UserID        uint
	ClientID      *uint
	Date          time.Time
	Location      string
	PaymentMethod string
	Notes         string
	Items         []LineItem
}

func (in *CreateInput) validate() error {
	if len(in.Items) == 0 {
		return ErrNoItems
	}
	seen := make(map[uint]struct{}, len(in.Items))
	for _, line := range in.Items {
		if _, dup := seen[line.ItemID]; dup {
			return fmt.Errorf("%w: %d", ErrDuplicateItem, line.ItemID)
		}
		seen[line.ItemID] = struct{}{}
		if line.Price.IsNegative() {
			return ErrNegativePrice
		}
	}
	return nil
}

// CreateSale writes one invoice and one sale per line item in a single transaction.
// Any rejected line (unknown, foreign, already sold) rolls the whole sale back.
func CreateSale(ctx context.Context, db *gorm.DB, in CreateInput) (*model.Invoice, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.Date.IsZero() {
		in.Date = time.Now().UTC()
	}

	var invoice model.Invoice
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		book, err := lockBook(tx, in.BookID)
		if err != nil {
			return err
		}
		if book.UserID != in.UserID {
			return ErrNotOwner
		}

		if in.ClientID != nil {
			if err := checkClient(tx, *in.ClientID, in.UserID); err != nil {
				return err
			}
		}

		items := make([]model.Item, len(in.Items))
		total := decimal.Zero
		for i, line := range in.Items {
			item, err := loadSellableItem(tx, line.ItemID, in.BookID)
			if err != nil {
				return err
			}
			items[i] = *item
			total = total.Add(line.Price)
		}

		number, err := NextInvoiceNumber(tx, in.BookID)
		if err != nil {
			return err
		}

		invoice = model.Invoice{
			BookID:        in.BookID,
			ClientID:      in.ClientID,
			InvoiceNumber: number,
			InvoiceDate:   in.Date,
			TotalAmount:   total,
			Notes:         in.Notes,
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return fmt.Errorf("failed to create invoice: %w", err)
		}

		for i, line := range in.Items {
			sale := model.Sale{
				ItemID:        line.ItemID,
				InvoiceID:     invoice.ID,
				ClientID:      in.ClientID,
				Price:         line.Price,
				Date:          in.Date,
				Location:      in.Location,
				PaymentMethod: in.PaymentMethod,
				Notes:         in.Notes,
			}
			if err := tx.Create(&sale).Error; err != nil {
				return fmt.Errorf("failed to create sale for item %s: %w", items[i].ItemNumber, err)
			}
			if err := tx.Model(&model.Item{}).Where("id = ?", line.ItemID).
				Update("status", model.ItemStatusSold).Error; err != nil {
				return fmt.Errorf("failed to mark item %s sold: %w", items[i].ItemNumber, err)
			}
			sale.Item = &items[i]
			sale.Item.Status = model.ItemStatusSold
			invoice.Sales = append(invoice.Sales, sale)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func checkClient(tx *gorm.DB, clientID, userID uint) error {
	var client model.Person
	if err := tx.Select("id", "user_id").First(&client, clientID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrClientNotFound
		}
		return fmt.Errorf("failed to load client: %w", err)
	}
	if client.UserID != userID {
		return ErrClientNotAllowed
	}
	return nil
}

func loadSellableItem(tx *gorm.DB, itemID, bookID uint) (*model.Item, error) {
	var item model.Item
	if err := tx.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
		}
		return nil, fmt.Errorf("failed to load item: %w", err)
	}
	if item.BookID != bookID {
		return nil, fmt.Errorf("%w: %s", ErrItemNotInBook, item.ItemNumber)
	}

	var sold int64
	if err := tx.Model(&model.Sale{}).Where("item_id = ?", itemID).Count(&sold).Error; err != nil {
		return nil, fmt.Errorf("failed to check item sale: %w", err)
	}
	if sold > 0 || item.Status == model.ItemStatusSold {
		return nil, fmt.Errorf("%w: %s", ErrItemAlreadySold, item.ItemNumber)
	}
	return &item, nil
}

// RecalculateTotal stores the sum of the invoice's sales as its total
func RecalculateTotal(tx *gorm.DB, invoiceID uint) (decimal.Decimal, error) {
	var prices []decimal.Decimal
	if err := tx.Model(&model.Sale{}).Where("invoice_id = ?", invoiceID).Pluck("price", &prices).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to load sale prices: %w", err)
	}
	total := decimal.Sum(decimal.Zero, prices...)
	if err := tx.Model(&model.Invoice{}).Where("id = ?", invoiceID).Update("total_amount", total).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to update invoice total: %w", err)
	}
	return total, nil
}

// DeleteSale removes one sale, returns its item to stock and drops the invoice once it has no sales left.
// It reports whether the invoice was deleted.
func DeleteSale(ctx context.Context, db *gorm.DB, saleID uint) (invoiceDeleted bool, err error) {
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sale model.Sale
		if err := tx.First(&sale, saleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSaleNotFound
			}
			return fmt.Errorf("failed to load sale: %w", err)
		}
		if err := tx.Delete(&sale).Error; err != nil {
			return fmt.Errorf("failed to delete sale: %w", err)
		}
		if err := tx.Model(&model.Item{}).Where("id = ?", sale.ItemID).
			Update("status", model.ItemStatusAvailable).Error; err != nil {
			return fmt.Errorf("failed to release item: %w", err)
		}

		var remaining int64
		if err := tx.Model(&model.Sale{}).Where("invoice_id = ?", sale.InvoiceID).Count(&remaining).Error; err != nil {
			return fmt.Errorf("failed to count invoice sales: %w", err)
		}
		if remaining == 0 {
			invoiceDeleted = true
			return tx.Delete(&model.Invoice{}, sale.InvoiceID).Error
		}
		_, err := RecalculateTotal(tx, sale.InvoiceID)
		return err
	})
	return invoiceDeleted, err
}

// DeleteInvoice removes an invoice with all its sales and returns the items to stock
func DeleteInvoice(ctx context.Context, db *gorm.DB, invoiceID uint) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var invoice model.Invoice
		if err := tx.First(&invoice, invoiceID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrInvoiceNotFound
			}
			return fmt.Errorf("failed to load invoice: %w", err)
		}

		var itemIDs []uint
		if err := tx.Model(&model.Sale{}).Where("invoice_id = ?", invoiceID).Pluck("item_id", &itemIDs).Error; err != nil {
			return fmt.Errorf("failed to load invoice items: %w", err)
		}
		if len(itemIDs) > 0 {
			if err := tx.Model(&model.Item{}).Where("id IN ?", itemIDs).
				Update("status", model.ItemStatusAvailable).Error; err != nil {
				return fmt.Errorf("failed to release items: %w", err)
			}
		}
		if err := tx.Where("invoice_id = ?", invoiceID).Delete(&model.Sale{}).Error; err != nil {
			return fmt.Errorf("failed to delete sales: %w", err)
		}
		return tx.Delete(&invoice).Error
	})
}
