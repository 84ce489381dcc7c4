package model

import "time"

// Category groups items of one user across books
type Category struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	UserID      uint      `json:"user_id" gorm:"uniqueIndex:idx_user_category_name;not null"`
	Name        string    `json:"name" gorm:"type:varchar(100);uniqueIndex:idx_user_category_name;not null"`
	Description string    `json:"description" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
