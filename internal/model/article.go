package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Tag is the lifecycle status of an article. There are no transition
// rules: any tag may be replaced by any other.
type Tag string

const (
	TagStock     Tag = "stock"
	TagDelivered Tag = "delivered"
	TagBlocked   Tag = "blocked"
	TagSold      Tag = "sold"
)

// Valid reports whether t is one of the four known tags.
func (t Tag) Valid() bool {
	switch t {
	case TagStock, TagDelivered, TagBlocked, TagSold:
		return true
	}
	return false
}

// Article represents one tracked physical unit of a product, carrying a
// lifecycle tag and the manufacturer that produced it.
type Article struct {
	ID                  string    `json:"id" gorm:"type:uuid;primaryKey"`
	Tag                 Tag       `json:"tag" gorm:"type:varchar(20);not null"`
	OwnerManufacturerID *string   `json:"owner_manufacturer_id" gorm:"type:uuid;index"`
	ProductID           uint      `json:"product_id" gorm:"not null;index"`
	Product             *Product  `json:"-" gorm:"foreignKey:ProductID"`
	CreatedAt           time.Time `json:"created_at"`
	UpdatedAt           time.Time `json:"updated_at"`
}

// BeforeCreate assigns an opaque identifier before insertion
func (a *Article) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	return nil
}
