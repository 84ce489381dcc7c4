package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cost is an expense of a book, optionally attributed to one item
type Cost struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	BookID      uint            `json:"book_id" gorm:"index;not null"`
	ItemID      *uint           `json:"item_id,omitempty" gorm:"index"`
	Description string          `json:"description" gorm:"type:text;not null"`
	Category    string          `json:"category" gorm:"type:varchar(100)"`
	Amount      decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	Date        time.Time       `json:"date"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
