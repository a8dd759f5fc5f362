package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nsimpex/api/internal/models"
)

// InvoiceService records supplier deliveries and serves the delivery history.
// Recording a delivery is the counterpart of order confirmation: it is the
// one flow that increments stock, and the invoice rows and stock updates
// commit in a single transaction.
type InvoiceService struct {
	db *gorm.DB
}

func NewInvoiceService(db *gorm.DB) *InvoiceService { return &InvoiceService{db: db} }

// CreateInvoiceInput is a supplier delivery to record.
type CreateInvoiceInput struct {
	SupplierName  string             `json:"supplierName"`
	InvoiceNumber string             `json:"invoiceNumber"`
	InvoiceDate   time.Time          `json:"invoiceDate"`
	Items         []InvoiceItemInput `json:"items"`
}

type InvoiceItemInput struct {
	ProductID     uint            `json:"productId"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
}

// CreateInvoiceResult confirms a recorded delivery.
type CreateInvoiceResult struct {
	ID            uint   `json:"id"`
	Message       string `json:"message"`
	SupplierName  string `json:"supplierName"`
	InvoiceNumber string `json:"invoiceNumber"`
}

// Create validates and records a delivery, incrementing the stock of every
// referenced product.
func (s *InvoiceService) Create(in *CreateInvoiceInput) (*CreateInvoiceResult, error) {
	supplier := strings.TrimSpace(in.SupplierName)
	if len(supplier) < 2 {
		return nil, invalid("supplierName", "min_2_chars")
	}
	if len(supplier) > 200 {
		return nil, invalid("supplierName", "max_200_chars")
	}
	number := strings.TrimSpace(in.InvoiceNumber)
	if number == "" {
		return nil, invalid("invoiceNumber", "required")
	}
	if len(number) > 50 {
		return nil, invalid("invoiceNumber", "max_50_chars")
	}
	if in.InvoiceDate.After(time.Now().UTC()) {
		return nil, invalid("invoiceDate", "must_not_be_in_future")
	}
	if len(in.Items) == 0 {
		return nil, invalid("items", "required")
	}
	for _, it := range in.Items {
		if !it.Quantity.IsPositive() {
			return nil, invalid("items", "quantity_must_be_positive")
		}
		if it.PurchasePrice.IsNegative() {
			return nil, invalid("items", "purchase_price_must_not_be_negative")
		}
	}

	ids := make([]uint, 0, len(in.Items))
	seen := make(map[uint]bool, len(in.Items))
	for _, it := range in.Items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	var products []models.Product
	if err := s.db.Where("id IN ?", ids).Find(&products).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Product, len(products))
	for i := range products {
		byID[products[i].ID] = &products[i]
	}
	for _, it := range in.Items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, invalid("items", "product_not_found")
		}
		if !p.IsActive {
			return nil, invalid("items", "product_inactive:"+p.Name)
		}
	}

	var invoice models.Invoice
	err := s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		invoice = models.Invoice{
			SupplierName:  supplier,
			InvoiceNumber: number,
			InvoiceDate:   in.InvoiceDate,
			EntryDate:     now,
			CreatedAt:     now,
		}
		for _, it := range in.Items {
			invoice.Items = append(invoice.Items, models.InvoiceItem{
				ProductID:     it.ProductID,
				Quantity:      it.Quantity,
				PurchasePrice: it.PurchasePrice,
			})
		}
		if err := tx.Create(&invoice).Error; err != nil {
			return err
		}
		// Increments commute, so no explicit row lock is needed here; the
		// transaction still couples the invoice write with the stock updates
		// so a failure rolls back both.
		for _, it := range in.Items {
			err := tx.Model(&models.Product{}).Where("id = ?", it.ProductID).
				Updates(map[string]any{
					"stock_quantity": gorm.Expr("stock_quantity + ?", it.Quantity),
					"updated_at":     now,
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &CreateInvoiceResult{
		ID:            invoice.ID,
		Message:       "delivery_recorded",
		SupplierName:  invoice.SupplierName,
		InvoiceNumber: invoice.InvoiceNumber,
	}, nil
}

// InvoiceListItem is the listing projection of a recorded delivery.
type InvoiceListItem struct {
	ID            uint            `json:"id"`
	SupplierName  string          `json:"supplierName"`
	InvoiceNumber string          `json:"invoiceNumber"`
	InvoiceDate   time.Time       `json:"invoiceDate"`
	EntryDate     time.Time       `json:"entryDate"`
	TotalItems    int             `json:"totalItems"`
	TotalQuantity decimal.Decimal `json:"totalQuantity"`
	InvoiceTotal  decimal.Decimal `json:"invoiceTotal"`
}

// InvoiceLineDetail is one delivered line with its row total.
type InvoiceLineDetail struct {
	ID            uint            `json:"id"`
	ProductID     uint            `json:"productId"`
	ProductName   string          `json:"productName"`
	Unit          int             `json:"unit"`
	UnitDisplay   string          `json:"unitDisplay"`
	Quantity      decimal.Decimal `json:"quantity"`
	PurchasePrice decimal.Decimal `json:"purchasePrice"`
	RowTotal      decimal.Decimal `json:"rowTotal"`
}

// InvoiceDetail is the full delivery view.
type InvoiceDetail struct {
	ID            uint                `json:"id"`
	SupplierName  string              `json:"supplierName"`
	InvoiceNumber string              `json:"invoiceNumber"`
	InvoiceDate   time.Time           `json:"invoiceDate"`
	EntryDate     time.Time           `json:"entryDate"`
	Items         []InvoiceLineDetail `json:"items"`
	InvoiceTotal  decimal.Decimal     `json:"invoiceTotal"`
}

// GetAll returns a page of recorded deliveries, most recently entered first.
func (s *InvoiceService) GetAll(page, pageSize int) (*Paginated[InvoiceListItem], error) {
	page, pageSize = clampPage(page, pageSize)

	var total int64
	if err := s.db.Model(&models.Invoice{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var invoices []models.Invoice
	err := s.db.Preload("Items").
		Order("entry_date DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}

	items := make([]InvoiceListItem, 0, len(invoices))
	for i := range invoices {
		inv := &invoices[i]
		qty := decimal.Zero
		for _, it := range inv.Items {
			qty = qty.Add(it.Quantity)
		}
		items = append(items, InvoiceListItem{
			ID:            inv.ID,
			SupplierName:  inv.SupplierName,
			InvoiceNumber: inv.InvoiceNumber,
			InvoiceDate:   inv.InvoiceDate,
			EntryDate:     inv.EntryDate,
			TotalItems:    len(inv.Items),
			TotalQuantity: qty,
			InvoiceTotal:  inv.Total(),
		})
	}
	return &Paginated[InvoiceListItem]{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// GetByID returns the full delivery detail.
func (s *InvoiceService) GetByID(id uint) (*InvoiceDetail, error) {
	var invoice models.Invoice
	err := s.db.Preload("Items.Product").First(&invoice, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	lines := make([]InvoiceLineDetail, 0, len(invoice.Items))
	for i := range invoice.Items {
		it := &invoice.Items[i]
		lines = append(lines, InvoiceLineDetail{
			ID:            it.ID,
			ProductID:     it.ProductID,
			ProductName:   it.Product.Name,
			Unit:          int(it.Product.Unit),
			UnitDisplay:   it.Product.Unit.Display(),
			Quantity:      it.Quantity,
			PurchasePrice: it.PurchasePrice,
			RowTotal:      it.RowTotal(),
		})
	}
	return &InvoiceDetail{
		ID:            invoice.ID,
		SupplierName:  invoice.SupplierName,
		InvoiceNumber: invoice.InvoiceNumber,
		InvoiceDate:   invoice.InvoiceDate,
		EntryDate:     invoice.EntryDate,
		Items:         lines,
		InvoiceTotal:  invoice.Total(),
	}, nil
}
