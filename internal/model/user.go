package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents a manufacturer account stored in the database.
// Emails are stored lowercased; uniqueness of email and phone is enforced
// at the database level.
type User struct {
	ID             string    `json:"id" gorm:"type:uuid;primaryKey"`
	Email          string    `json:"email" gorm:"type:varchar(100);uniqueIndex;not null"`
	Phone          string    `json:"phone" gorm:"type:varchar(20);uniqueIndex;not null"`
	HashedPassword string    `json:"-" gorm:"type:varchar(255);not null"`
	FirstName      string    `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName       string    `json:"last_name" gorm:"type:varchar(100);not null"`
	Civility       string    `json:"civility,omitempty" gorm:"type:varchar(10)"`
	Role           string    `json:"role" gorm:"type:varchar(50);not null"`
	IsActive       bool      `json:"is_active" gorm:"default:true"`
	IsSuperuser    bool      `json:"is_superuser" gorm:"default:false"`
	IsVerified     bool      `json:"is_verified" gorm:"default:false"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// BeforeCreate assigns an opaque identifier before insertion
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
