package model

import "time"

// Entity types that can own images and documents
const (
	EntityItem     = "item"
	EntityIncident = "incident"
	EntityUser     = "user"
	EntityPerson   = "person"
)

// ValidEntityType reports whether entityType may own attachments
func ValidEntityType(entityType string) bool {
	switch entityType {
	case EntityItem, EntityIncident, EntityUser, EntityPerson:
		return true
	}
	return false
}

// Image is a polymorphic picture attached to (EntityType, EntityID).
// Rows are soft deleted with IsDeleted/DeletedAt and stay readable by id.
type Image struct {
	ID          uint       `json:"id" gorm:"primaryKey"`
	EntityType  string     `json:"entity_type" gorm:"type:varchar(20);index:idx_image_entity;not null"`
	EntityID    uint       `json:"entity_id" gorm:"index:idx_image_entity;not null"`
	URL         string     `json:"url" gorm:"type:text;not null"`
	StorageKey  string     `json:"-" gorm:"type:text;not null"`
	FileName    string     `json:"file_name" gorm:"type:varchar(255)"`
	ContentType string     `json:"content_type" gorm:"type:varchar(100)"`
	Size        int64      `json:"size"`
	Title       string     `json:"title" gorm:"type:varchar(255)"`
	Position    int        `json:"position" gorm:"not null;default:0"`
	IsPrimary   bool       `json:"is_primary" gorm:"not null;default:false"`
	IsDeleted   bool       `json:"is_deleted" gorm:"not null;default:false;index"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Document is a polymorphic file (receipt, certificate, contract) attached to (EntityType, EntityID)
type Document struct {
	ID           uint       `json:"id" gorm:"primaryKey"`
	EntityType   string     `json:"entity_type" gorm:"type:varchar(20);index:idx_document_entity;not null"`
	EntityID     uint       `json:"entity_id" gorm:"index:idx_document_entity;not null"`
	URL          string     `json:"url" gorm:"type:text;not null"`
	StorageKey   string     `json:"-" gorm:"type:text;not null"`
	FileName     string     `json:"file_name" gorm:"type:varchar(255)"`
	ContentType  string     `json:"content_type" gorm:"type:varchar(100)"`
	Size         int64      `json:"size"`
	Title        string     `json:"title" gorm:"type:varchar(255)"`
	DocumentType string     `json:"document_type" gorm:"type:varchar(50)"`
	IsDeleted    bool       `json:"is_deleted" gorm:"not null;default:false;index"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
