package model

import (
	"time"

	"gorm.io/datatypes"
)

// Field types a book type can declare for its items
const (
	FieldTypeText    = "text"
	FieldTypeNumber  = "number"
	FieldTypeDate    = "date"
	FieldTypeSelect  = "select"
	FieldTypeBoolean = "boolean"
)

// BookType describes a kind of ledger (jewelry, electronics, ...) and the custom fields its items carry
type BookType struct {
	ID          uint            `json:"id" gorm:"primaryKey"`
	Name        string          `json:"name" gorm:"type:varchar(100);uniqueIndex;not null"`
	Description string          `json:"description" gorm:"type:text"`
	Fields      []BookTypeField `json:"fields,omitempty" gorm:"foreignKey:BookTypeID"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BookTypeField is one dynamic field definition; Options holds the allowed values of select fields
type BookTypeField struct {
	ID         uint           `json:"id" gorm:"primaryKey"`
	BookTypeID uint           `json:"book_type_id" gorm:"uniqueIndex:idx_book_type_field_key;not null"`
	Key        string         `json:"key" gorm:"type:varchar(100);uniqueIndex:idx_book_type_field_key;not null"`
	Label      string         `json:"label" gorm:"type:varchar(255);not null"`
	FieldType  string         `json:"field_type" gorm:"type:varchar(20);not null;default:'text'"`
	Options    datatypes.JSON `json:"options,omitempty"`
	Required   bool           `json:"required" gorm:"default:false"`
	Position   int            `json:"position" gorm:"default:0"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

// Book is a user-scoped ledger grouping items; it is the tenant-level collection unit
type Book struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"index;not null"`
	BookTypeID  *uint     `json:"book_type_id,omitempty" gorm:"index"`
	BookType    *BookType `json:"book_type,omitempty" gorm:"foreignKey:BookTypeID"`
	Name        string    `json:"name" gorm:"type:varchar(255);not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
