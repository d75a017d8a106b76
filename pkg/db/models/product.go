package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is a catalog entry. InStock is derived from its variants and is
// recomputed whenever a variant quantity changes.
type Product struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name        string    `gorm:"column:name;not null"`
	Image       string    `gorm:"column:image;not null;default:''"`
	Category    string    `gorm:"column:category;not null;default:''"`
	Description string    `gorm:"column:description;not null;default:''"`
	Rating      float64   `gorm:"column:rating;not null;default:0"`
	InStock     bool      `gorm:"column:in_stock;not null;default:false"`
	Variants    []Variant `gorm:"foreignKey:ProductID"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
