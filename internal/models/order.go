package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CustomerType distinguishes retail buyers from companies. Integer values are
// the canonical wire representation.
type CustomerType int

const (
	CustomerIndividual CustomerType = 0
	CustomerCompany    CustomerType = 1
)

func (t CustomerType) Valid() bool { return t == CustomerIndividual || t == CustomerCompany }

func (t CustomerType) Display() string {
	if t == CustomerIndividual {
		return "Individual"
	}
	return "Company"
}

// DeliveryMethod is how the customer receives the goods.
type DeliveryMethod int

const (
	DeliveryPickup  DeliveryMethod = 0
	DeliveryCourier DeliveryMethod = 1
)

func (m DeliveryMethod) Valid() bool { return m == DeliveryPickup || m == DeliveryCourier }

func (m DeliveryMethod) Display() string {
	if m == DeliveryPickup {
		return "Pickup"
	}
	return "Delivery"
}

// OrderStatus advances forward only: Pending -> Confirmed -> Completed.
// Cancellation is tracked by Order.IsCancelled, orthogonal to the status.
type OrderStatus int

const (
	StatusPending   OrderStatus = 0
	StatusConfirmed OrderStatus = 1
	StatusCompleted OrderStatus = 2
)

func (s OrderStatus) Display() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusConfirmed:
		return "Confirmed"
	case StatusCompleted:
		return "Completed"
	}
	return "Unknown"
}

// Order is a customer order. Orders are never physically deleted; cancellation
// sets IsCancelled and leaves the last status in place.
type Order struct {
	ID             uint   `gorm:"primaryKey"`
	OrderNumber    string `gorm:"size:20;not null;uniqueIndex"`
	CustomerType   CustomerType
	DeliveryMethod DeliveryMethod
	Status         OrderStatus `gorm:"not null;default:0"`
	IsCancelled    bool        `gorm:"not null;default:false"`

	DeliveryFee *decimal.Decimal `gorm:"type:decimal(18,2)"`

	CreatedAt   time.Time
	ConfirmedAt *time.Time
	CompletedAt *time.Time
	UpdatedAt   time.Time

	CustomerInfo OrderCustomerInfo `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Items        []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// SubtotalWithoutVat sums the item row totals excluding VAT.
func (o *Order) SubtotalWithoutVat() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.RowTotalWithoutVat())
	}
	return total
}

// TotalVat sums the item VAT amounts.
func (o *Order) TotalVat() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.RowVat())
	}
	return total
}

// SubtotalWithVat sums the item row totals including VAT.
func (o *Order) SubtotalWithVat() decimal.Decimal {
	total := decimal.Zero
	for _, it := range o.Items {
		total = total.Add(it.RowTotalWithVat())
	}
	return total
}

// GrandTotal is the subtotal with VAT plus the delivery fee, if one is set.
func (o *Order) GrandTotal() decimal.Decimal {
	total := o.SubtotalWithVat()
	if o.DeliveryFee != nil {
		total = total.Add(*o.DeliveryFee)
	}
	return total
}

// OrderCustomerInfo is a denormalized snapshot of the buyer taken at order
// time. Individuals fill FullName/Phone; companies fill the company block.
type OrderCustomerInfo struct {
	ID      uint `gorm:"primaryKey"`
	OrderID uint `gorm:"not null;uniqueIndex"`

	FullName string `gorm:"size:200"`
	Phone    string `gorm:"size:50"`
	Address  string `gorm:"size:500"`

	CompanyName    string `gorm:"size:200"`
	TaxID          string `gorm:"size:13"`
	Representative string `gorm:"size:200"`
	ContactPerson  string `gorm:"size:200"`
	ContactPhone   string `gorm:"size:50"`
}

// Name returns the buyer's display name depending on the customer type.
func (c *OrderCustomerInfo) Name(t CustomerType) string {
	if t == CustomerCompany {
		return c.CompanyName
	}
	return c.FullName
}

// OrderItem snapshots one product line at order time. Name, unit and price
// fields are copied from the product and never resynchronized, so later
// catalog edits do not alter historical orders.
type OrderItem struct {
	ID        uint `gorm:"primaryKey"`
	OrderID   uint `gorm:"not null;index"`
	ProductID uint `gorm:"not null"`

	ProductName string          `gorm:"size:200;not null"`
	Quantity    decimal.Decimal `gorm:"type:decimal(18,3);not null"`

	UnitPriceWithoutVat decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	VatAmount           decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	UnitPriceWithVat    decimal.Decimal `gorm:"type:decimal(18,2);not null"`

	Unit Unit `gorm:"not null"`
}

func (i *OrderItem) RowTotalWithoutVat() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPriceWithoutVat)
}

func (i *OrderItem) RowVat() decimal.Decimal {
	return i.Quantity.Mul(i.VatAmount)
}

func (i *OrderItem) RowTotalWithVat() decimal.Decimal {
	return i.Quantity.Mul(i.UnitPriceWithVat)
}
