package services

import (
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/nsimpex/api/internal/models"
)

// taxIDPattern matches a 9-digit or 13-digit company tax identifier.
var taxIDPattern = regexp.MustCompile(`^\d{9}$|^\d{13}$`)

// OrderService drives the order lifecycle: creation with price snapshots,
// confirmation with stock decrement, completion, cancellation and the
// read-side listings. All multi-row writes run in a single transaction.
type OrderService struct {
	db *gorm.DB

	// serializes order-number allocation; the read-max-then-insert sequence
	// would otherwise race under concurrent creations. The unique index on
	// order_number backstops multi-instance deployments.
	numMu sync.Mutex
}

func NewOrderService(db *gorm.DB) *OrderService { return &OrderService{db: db} }

// CreateOrderInput is the order placement request.
type CreateOrderInput struct {
	CustomerType   int                `json:"customerType"`
	DeliveryMethod int                `json:"deliveryMethod"`
	CustomerInfo   *CustomerInfoInput `json:"customerInfo"`
	Items          []OrderItemInput   `json:"items"`
}

type CustomerInfoInput struct {
	FullName       string `json:"fullName"`
	Phone          string `json:"phone"`
	Address        string `json:"address"`
	CompanyName    string `json:"companyName"`
	TaxID          string `json:"taxId"`
	Representative string `json:"representative"`
	ContactPerson  string `json:"contactPerson"`
	ContactPhone   string `json:"contactPhone"`
}

type OrderItemInput struct {
	ProductID uint            `json:"productId"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// CreateOrderResult confirms a placed order.
type CreateOrderResult struct {
	OrderNumber string `json:"orderNumber"`
	Message     string `json:"message"`
}

// Create validates the request, snapshots the referenced products into order
// items and persists the order as pending. Stock is not touched here; it is
// checked and decremented at confirmation.
func (s *OrderService) Create(in *CreateOrderInput) (*CreateOrderResult, error) {
	customerType := models.CustomerType(in.CustomerType)
	if !customerType.Valid() {
		return nil, invalid("customerType", "unknown")
	}
	deliveryMethod := models.DeliveryMethod(in.DeliveryMethod)
	if !deliveryMethod.Valid() {
		return nil, invalid("deliveryMethod", "unknown")
	}
	if len(in.Items) == 0 {
		return nil, invalid("items", "required")
	}
	for _, it := range in.Items {
		if !it.Quantity.IsPositive() {
			return nil, invalid("items", "quantity_must_be_positive")
		}
	}
	ci := in.CustomerInfo
	if ci == nil {
		return nil, invalid("customerInfo", "required")
	}
	if customerType == models.CustomerIndividual {
		if strings.TrimSpace(ci.FullName) == "" {
			return nil, invalid("fullName", "required")
		}
		if strings.TrimSpace(ci.Phone) == "" {
			return nil, invalid("phone", "required")
		}
	} else {
		if strings.TrimSpace(ci.CompanyName) == "" {
			return nil, invalid("companyName", "required")
		}
		if strings.TrimSpace(ci.TaxID) == "" {
			return nil, invalid("taxId", "required")
		}
		if !taxIDPattern.MatchString(strings.TrimSpace(ci.TaxID)) {
			return nil, invalid("taxId", "must_be_9_or_13_digits")
		}
		if strings.TrimSpace(ci.Representative) == "" {
			return nil, invalid("representative", "required")
		}
		if strings.TrimSpace(ci.ContactPerson) == "" {
			return nil, invalid("contactPerson", "required")
		}
		if strings.TrimSpace(ci.ContactPhone) == "" {
			return nil, invalid("contactPhone", "required")
		}
	}
	if deliveryMethod == models.DeliveryCourier && strings.TrimSpace(ci.Address) == "" {
		return nil, invalid("address", "required_for_delivery")
	}

	products, err := s.loadActiveProducts(in.Items)
	if err != nil {
		return nil, err
	}

	s.numMu.Lock()
	defer s.numMu.Unlock()

	var orderNumber string
	err = s.db.Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		orderNumber, err = nextOrderNumber(tx, now)
		if err != nil {
			return err
		}
		order := models.Order{
			OrderNumber:    orderNumber,
			CustomerType:   customerType,
			DeliveryMethod: deliveryMethod,
			Status:         models.StatusPending,
			IsCancelled:    false,
			CreatedAt:      now,
			UpdatedAt:      now,
			CustomerInfo: models.OrderCustomerInfo{
				FullName:       strings.TrimSpace(ci.FullName),
				Phone:          strings.TrimSpace(ci.Phone),
				Address:        strings.TrimSpace(ci.Address),
				CompanyName:    strings.TrimSpace(ci.CompanyName),
				TaxID:          strings.TrimSpace(ci.TaxID),
				Representative: strings.TrimSpace(ci.Representative),
				ContactPerson:  strings.TrimSpace(ci.ContactPerson),
				ContactPhone:   strings.TrimSpace(ci.ContactPhone),
			},
		}
		for _, it := range in.Items {
			p := products[it.ProductID]
			order.Items = append(order.Items, models.OrderItem{
				ProductID:           p.ID,
				ProductName:         p.Name,
				Quantity:            it.Quantity,
				UnitPriceWithoutVat: p.PriceWithoutVat,
				VatAmount:           p.VatAmount,
				UnitPriceWithVat:    p.PriceWithVat,
				Unit:                p.Unit,
			})
		}
		// Creates order, customer info and items in one insert graph.
		return tx.Create(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &CreateOrderResult{OrderNumber: orderNumber, Message: "order_received"}, nil
}

// loadActiveProducts resolves the distinct products referenced by the items,
// failing on the first missing or inactive one.
func (s *OrderService) loadActiveProducts(items []OrderItemInput) (map[uint]*models.Product, error) {
	ids := make([]uint, 0, len(items))
	seen := make(map[uint]bool, len(items))
	for _, it := range items {
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
	for _, it := range items {
		p, ok := byID[it.ProductID]
		if !ok {
			return nil, invalid("items", "product_not_found")
		}
		if !p.IsActive {
			return nil, invalid("items", "product_inactive:"+p.Name)
		}
	}
	return byID, nil
}

// StockShortage describes one order line that cannot be covered by current
// stock.
type StockShortage struct {
	ProductName string          `json:"productName"`
	Ordered     decimal.Decimal `json:"ordered"`
	Available   decimal.Decimal `json:"available"`
	Unit        string          `json:"unit"`
}

// ConfirmResult is the outcome of a confirmation attempt: either the order
// was confirmed, or Shortages lists every line that lacked stock. A shortage
// is an expected business outcome, not an error.
type ConfirmResult struct {
	Message   string          `json:"message"`
	Shortages []StockShortage `json:"shortages,omitempty"`
}

// Confirmed reports whether the order was actually confirmed.
func (r *ConfirmResult) Confirmed() bool { return len(r.Shortages) == 0 }

// Confirm transitions a pending order to confirmed, decrementing the stock of
// every ordered product. The check and the decrement are one atomic unit:
// either all lines are covered and all stock rows are updated together with
// the order status, or nothing changes and every short line is reported.
func (s *OrderService) Confirm(id uint) (*ConfirmResult, error) {
	var result ConfirmResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Items").First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if order.IsCancelled {
			return &StateError{Reason: "order_cancelled"}
		}
		if order.Status != models.StatusPending {
			return &StateError{Reason: "order_not_pending"}
		}

		ids := make([]uint, 0, len(order.Items))
		seen := make(map[uint]bool, len(order.Items))
		for _, it := range order.Items {
			if !seen[it.ProductID] {
				seen[it.ProductID] = true
				ids = append(ids, it.ProductID)
			}
		}
		q := tx
		if tx.Dialector.Name() == "postgres" {
			// Row locks hold off concurrent confirmations touching the same
			// products until this check-and-decrement commits. sqlite rejects
			// the clause; there the transaction itself serializes writers.
			q = q.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var products []models.Product
		if err := q.Where("id IN ?", ids).Find(&products).Error; err != nil {
			return err
		}
		remaining := make(map[uint]decimal.Decimal, len(products))
		available := make(map[uint]decimal.Decimal, len(products))
		for _, p := range products {
			remaining[p.ID] = p.StockQuantity
			available[p.ID] = p.StockQuantity
		}

		// Every line is checked; shortages are collected, not short-circuited,
		// so the caller sees the complete picture at once.
		for _, it := range order.Items {
			rem, ok := remaining[it.ProductID]
			if !ok || rem.LessThan(it.Quantity) {
				result.Shortages = append(result.Shortages, StockShortage{
					ProductName: it.ProductName,
					Ordered:     it.Quantity,
					Available:   available[it.ProductID],
					Unit:        it.Unit.Display(),
				})
				continue
			}
			remaining[it.ProductID] = rem.Sub(it.Quantity)
		}
		if len(result.Shortages) > 0 {
			result.Message = "insufficient_stock"
			return nil // no writes happened; commit is a no-op
		}

		now := time.Now().UTC()
		for _, p := range products {
			err := tx.Model(&models.Product{}).Where("id = ?", p.ID).
				Updates(map[string]any{"stock_quantity": remaining[p.ID], "updated_at": now}).Error
			if err != nil {
				return err
			}
		}
		err := tx.Model(&models.Order{}).Where("id = ?", order.ID).
			Updates(map[string]any{"status": models.StatusConfirmed, "confirmed_at": now, "updated_at": now}).Error
		if err != nil {
			return err
		}
		result.Message = "order_confirmed"
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Complete marks a confirmed order as completed. Stock was already
// decremented at confirmation, so this is a pure status change.
func (s *OrderService) Complete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if order.IsCancelled {
			return &StateError{Reason: "order_cancelled"}
		}
		if order.Status != models.StatusConfirmed {
			return &StateError{Reason: "order_not_confirmed"}
		}
		now := time.Now().UTC()
		return tx.Model(&order).
			Updates(map[string]any{"status": models.StatusCompleted, "completed_at": now, "updated_at": now}).Error
	})
}

// Cancel marks a pending order as cancelled. Cancellation is terminal and only
// legal while pending; confirmed stock is never given back because it was
// never reserved before confirmation.
func (s *OrderService) Cancel(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if order.IsCancelled {
			return &StateError{Reason: "order_already_cancelled"}
		}
		if order.Status != models.StatusPending {
			return &StateError{Reason: "order_not_pending"}
		}
		now := time.Now().UTC()
		return tx.Model(&order).
			Updates(map[string]any{"is_cancelled": true, "updated_at": now}).Error
	})
}

// DeliveryFeeResult reports the stored fee and the recomputed grand total.
type DeliveryFeeResult struct {
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`
}

// SetDeliveryFee sets the fee on a delivery order and returns the new grand
// total (item totals with VAT plus the fee).
func (s *OrderService) SetDeliveryFee(id uint, fee decimal.Decimal) (*DeliveryFeeResult, error) {
	if fee.IsNegative() {
		return nil, invalid("deliveryFee", "must_not_be_negative")
	}
	var result DeliveryFeeResult
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := tx.Preload("Items").First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if order.IsCancelled {
			return &StateError{Reason: "order_cancelled"}
		}
		if order.DeliveryMethod != models.DeliveryCourier {
			return &StateError{Reason: "order_not_for_delivery"}
		}
		now := time.Now().UTC()
		if err := tx.Model(&order).
			Updates(map[string]any{"delivery_fee": fee, "updated_at": now}).Error; err != nil {
			return err
		}
		order.DeliveryFee = &fee
		result = DeliveryFeeResult{DeliveryFee: fee, GrandTotal: order.GrandTotal()}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}
