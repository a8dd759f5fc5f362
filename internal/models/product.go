package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit is the unit of measure a product is sold in. The integer value is the
// canonical wire representation; the display label is computed, never stored.
type Unit int

const (
	UnitKg  Unit = 0 // sold by weight
	UnitSqm Unit = 1 // sold by area
)

// Valid reports whether u is one of the known units.
func (u Unit) Valid() bool { return u == UnitKg || u == UnitSqm }

// Display returns the human-readable label for the unit.
func (u Unit) Display() string {
	if u == UnitKg {
		return "kg"
	}
	return "m²"
}

// Product is a catalog entry. Prices carry VAT split out so that
// PriceWithVat = PriceWithoutVat + VatAmount always holds.
// Stock is mutated only by order confirmation and delivery intake.
type Product struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:200;not null;index"`
	Description string `gorm:"type:text"`
	CategoryID  uint   `gorm:"not null;index"`
	Category    Category

	PriceWithoutVat decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	VatAmount       decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	PriceWithVat    decimal.Decimal `gorm:"type:decimal(18,2);not null"`

	Unit          Unit            `gorm:"not null"`
	StockQuantity decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	IsActive      bool            `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}
