package model

import "time"

// Role represents a named permission tier assigned to users
type Role struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name" gorm:"type:varchar(50);uniqueIndex;not null"`
	Description string    `json:"description" gorm:"type:varchar(255)"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Names of the roles seeded at startup.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)
