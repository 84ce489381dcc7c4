package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// IncidentTypeRepair puts the item in repair while the incident is open
const IncidentTypeRepair = "repair"

// Incident is something that happened to an item (damage, repair, appraisal, return)
type Incident struct {
	ID           uint            `json:"id" gorm:"primaryKey"`
	ItemID       uint            `json:"item_id" gorm:"index;not null"`
	Title        string          `json:"title" gorm:"type:varchar(255);not null"`
	Description  string          `json:"description" gorm:"type:text"`
	IncidentType string          `json:"incident_type" gorm:"type:varchar(50)"`
	Date         time.Time       `json:"date"`
	Cost         decimal.Decimal `json:"cost" gorm:"type:numeric(12,2);not null;default:0"`
	Resolved     bool            `json:"resolved" gorm:"default:false"`
	ResolvedAt   *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}
