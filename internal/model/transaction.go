package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase records how an item entered the book; at most one per item
type Purchase struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	ItemID        uint            `json:"item_id" gorm:"uniqueIndex;not null"`
	SellerID      *uint           `json:"seller_id,omitempty" gorm:"index"`
	Seller        *Person         `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	Price         decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Date          time.Time       `json:"date"`
	Location      string          `json:"location" gorm:"type:varchar(255)"`
	PaymentMethod string          `json:"payment_method" gorm:"type:varchar(50)"`
	Notes         string          `json:"notes" gorm:"type:text"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Invoice aggregates the sales of one checkout; TotalAmount is the sum of its sales
type Invoice struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	BookID        uint            `json:"book_id" gorm:"uniqueIndex:idx_book_invoice_number;not null"`
	Book          *Book           `json:"book,omitempty" gorm:"foreignKey:BookID"`
	ClientID      *uint           `json:"client_id,omitempty" gorm:"index"`
	Client        *Person         `json:"client,omitempty" gorm:"foreignKey:ClientID"`
	InvoiceNumber string          `json:"invoice_number" gorm:"type:varchar(50);uniqueIndex:idx_book_invoice_number;not null"`
	InvoiceDate   time.Time       `json:"invoice_date"`
	TotalAmount   decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2);not null;default:0"`
	Notes         string          `json:"notes" gorm:"type:text"`
	Sales         []Sale          `json:"sales,omitempty" gorm:"foreignKey:InvoiceID"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// Sale links one item to one invoice; at most one per item
type Sale struct {
	ID            uint            `json:"id" gorm:"primaryKey"`
	ItemID        uint            `json:"item_id" gorm:"uniqueIndex;not null"`
	Item          *Item           `json:"item,omitempty" gorm:"foreignKey:ItemID"`
	InvoiceID     uint            `json:"invoice_id" gorm:"index;not null"`
	ClientID      *uint           `json:"client_id,omitempty" gorm:"index"`
	Client        *Person         `json:"client,omitempty" gorm:"foreignKey:ClientID"`
	Price         decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Date          time.Time       `json:"date"`
	Location      string          `json:"location" gorm:"type:varchar(255)"`
	PaymentMethod string          `json:"payment_method" gorm:"type:varchar(50)"`
	Notes         string          `json:"notes" gorm:"type:text"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
