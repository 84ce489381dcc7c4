package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Item statuses
const (
	ItemStatusAvailable = "available"
	ItemStatusReserved  = "reserved"
	ItemStatusSold      = "sold"
	ItemStatusInRepair  = "in_repair"
	ItemStatusReturned  = "returned"
)

// ValidItemStatus reports whether status is one of the known item statuses
func ValidItemStatus(status string) bool {
	switch status {
	case ItemStatusAvailable, ItemStatusReserved, ItemStatusSold, ItemStatusInRepair, ItemStatusReturned:
		return true
	}
	return false
}

// Item is one registered object of a book
type Item struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	BookID         uint            `json:"book_id" gorm:"uniqueIndex:idx_book_item_number;not null"`
	Book           *Book           `json:"book,omitempty" gorm:"foreignKey:BookID"`
	CategoryID     *uint           `json:"category_id,omitempty" gorm:"index"`
	Category       *Category       `json:"category,omitempty" gorm:"foreignKey:CategoryID"`
	ItemNumber     string          `json:"item_number" gorm:"type:varchar(50);uniqueIndex:idx_book_item_number;not null"`
	Description    string          `json:"description" gorm:"type:text"`
	Color          string          `json:"color" gorm:"type:varchar(100)"`
	Grade          string          `json:"grade" gorm:"type:varchar(50)"`
	Notes          string          `json:"notes" gorm:"type:text"`
	Status         string          `json:"status" gorm:"type:varchar(20);not null;default:'available';index"`
	EstimatedValue decimal.Decimal `json:"estimated_value" gorm:"type:numeric(12,2);not null;default:0"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`

	Purchase     *Purchase       `json:"purchase,omitempty" gorm:"foreignKey:ItemID"`
	Sale         *Sale           `json:"sale,omitempty" gorm:"foreignKey:ItemID"`
	Incidents    []Incident      `json:"incidents,omitempty" gorm:"foreignKey:ItemID"`
	Attributes   []ItemAttribute `json:"attributes,omitempty" gorm:"foreignKey:ItemID"`
	PrimaryImage *Image          `json:"primary_image,omitempty" gorm:"-"`
}

// ItemAttribute holds the value of one book type field for one item
type ItemAttribute struct {
	ID        uint           `json:"id" gorm:"primaryKey"`
	ItemID    uint           `json:"item_id" gorm:"uniqueIndex:idx_item_attribute_field;not null"`
	FieldID   uint           `json:"field_id" gorm:"uniqueIndex:idx_item_attribute_field;not null"`
	Field     *BookTypeField `json:"field,omitempty" gorm:"foreignKey:FieldID"`
	Value     string         `json:"value" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
