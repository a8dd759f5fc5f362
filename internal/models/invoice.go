package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Invoice records a supplier delivery. Recording one increments the stock of
// every referenced product; besides seeding it is the only path that does.
type Invoice struct {
	ID            uint   `gorm:"primaryKey"`
	SupplierName  string `gorm:"size:200;not null"`
	InvoiceNumber string `gorm:"size:50;not null"`
	InvoiceDate   time.Time
	EntryDate     time.Time
	CreatedAt     time.Time

	Items []InvoiceItem `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE"`
}

// Total sums the purchase value of all delivered lines.
func (inv *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, it := range inv.Items {
		total = total.Add(it.RowTotal())
	}
	return total
}

// InvoiceItem is one delivered product line.
type InvoiceItem struct {
	ID        uint `gorm:"primaryKey"`
	InvoiceID uint `gorm:"not null;index"`
	ProductID uint `gorm:"not null"`
	Product   Product

	Quantity      decimal.Decimal `gorm:"type:decimal(18,3);not null"`
	PurchasePrice decimal.Decimal `gorm:"type:decimal(18,2);not null"`
}

func (i *InvoiceItem) RowTotal() decimal.Decimal {
	return i.Quantity.Mul(i.PurchasePrice)
}
