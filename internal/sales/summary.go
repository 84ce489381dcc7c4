package sales

import (
	"context"
	"fmt"

	"pawnbook-service/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BookSummary aggregates the money flowing through a book
type BookSummary struct {
	BookID         uint            `json:"book_id"`
	ItemCount      int64           `json:"item_count"`
	AvailableCount int64           `json:"available_count"`
	SoldCount      int64           `json:"sold_count"`
	InvoiceCount   int64           `json:"invoice_count"`
	PurchaseTotal  decimal.Decimal `json:"purchase_total"`
	SalesTotal     decimal.Decimal `json:"sales_total"`
	CostTotal      decimal.Decimal `json:"cost_total"`
	IncidentCost   decimal.Decimal `json:"incident_cost"`
	GrossProfit    decimal.Decimal `json:"gross_profit"`
	NetProfit      decimal.Decimal `json:"net_profit"`
}

// Summarize computes counts and decimal totals for one book
func Summarize(ctx context.Context, db *gorm.DB, bookID uint) (*BookSummary, error) {
	db = db.WithContext(ctx)
	s := &BookSummary{BookID: bookID}

	items := db.Model(&model.Item{}).Where("book_id = ?", bookID)
	if err := items.Count(&s.ItemCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	if err := db.Model(&model.Item{}).Where("book_id = ? AND status = ?", bookID, model.ItemStatusAvailable).
		Count(&s.AvailableCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count available items: %w", err)
	}
	if err := db.Model(&model.Item{}).Where("book_id = ? AND status = ?", bookID, model.ItemStatusSold).
		Count(&s.SoldCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count sold items: %w", err)
	}
	if err := db.Model(&model.Invoice{}).Where("book_id = ?", bookID).Count(&s.InvoiceCount).Error; err != nil {
		return nil, fmt.Errorf("failed to count invoices: %w", err)
	}

	var err error
	if s.PurchaseTotal, err = sumColumn(db.Model(&model.Purchase{}).
		Joins("JOIN items ON items.id = purchases.item_id").
		Where("items.book_id = ?", bookID), "purchases.price"); err != nil {
		return nil, err
	}
	if s.SalesTotal, err = sumColumn(db.Model(&model.Invoice{}).Where("book_id = ?", bookID), "total_amount"); err != nil {
		return nil, err
	}
	if s.CostTotal, err = sumColumn(db.Model(&model.Cost{}).Where("book_id = ?", bookID), "amount"); err != nil {
		return nil, err
	}
	if s.IncidentCost, err = sumColumn(db.Model(&model.Incident{}).
		Joins("JOIN items ON items.id = incidents.item_id").
		Where("items.book_id = ?", bookID), "incidents.cost"); err != nil {
		return nil, err
	}

	// Gross profit only counts purchases of items that were sold
	soldPurchases, err := sumColumn(db.Model(&model.Purchase{}).
		Joins("JOIN items ON items.id = purchases.item_id").
		Where("items.book_id = ? AND items.status = ?", bookID, model.ItemStatusSold), "purchases.price")
	if err != nil {
		return nil, err
	}
	s.GrossProfit = s.SalesTotal.Sub(soldPurchases)
	s.NetProfit = s.GrossProfit.Sub(s.CostTotal).Sub(s.IncidentCost)
	return s, nil
}

func sumColumn(query *gorm.DB, column string) (decimal.Decimal, error) {
	var values []decimal.Decimal
	if err := query.Pluck(column, &values).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum %s: %w", column, err)
	}
	return decimal.Sum(decimal.Zero, values...), nil
}
