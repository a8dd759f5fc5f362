package models

import "time"

// Category groups products in the catalog taxonomy.
// A category that still has products cannot be deleted.
type Category struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:100;not null;unique"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Products []Product `gorm:"foreignKey:CategoryID;constraint:OnDelete:RESTRICT"`
}
