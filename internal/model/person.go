package model

import "time"

// Built-in person types
const (
	PersonTypeClient = "client"
	PersonTypeSeller = "seller"
	PersonTypeExpert = "expert"
)

// DefaultPersonTypes are seeded at migration time
var DefaultPersonTypes = []string{PersonTypeClient, PersonTypeSeller, PersonTypeExpert}

// PersonType classifies a counterparty
type PersonType struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(50);uniqueIndex;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Person is a counterparty record (client, seller or expert), distinct from a platform user
type Person struct {
	ID             uint        `json:"id" gorm:"primaryKey"`
	UserID         uint        `json:"user_id" gorm:"index;not null"`
	PersonTypeID   uint        `json:"person_type_id" gorm:"index;not null"`
	PersonType     *PersonType `json:"person_type,omitempty" gorm:"foreignKey:PersonTypeID"`
	FirstName      string      `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName       string      `json:"last_name" gorm:"type:varchar(100)"`
	Email          string      `json:"email" gorm:"type:varchar(255)"`
	Phone          string      `json:"phone" gorm:"type:varchar(50)"`
	Address        string      `json:"address" gorm:"type:text"`
	DocumentNumber string      `json:"document_number" gorm:"type:varchar(100)"`
	Notes          string      `json:"notes" gorm:"type:text"`
	CreatedAt      time.Time   `json:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at"`
}

// FullName joins first and last name
func (p *Person) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
