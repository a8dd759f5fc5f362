package services

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nsimpex/api/internal/models"
)

// OrderListItem is the listing projection of an order.
type OrderListItem struct {
	ID                    uint            `json:"id"`
	OrderNumber           string          `json:"orderNumber"`
	CreatedAt             time.Time       `json:"createdAt"`
	CustomerName          string          `json:"customerName"`
	CustomerType          int             `json:"customerType"`
	CustomerTypeDisplay   string          `json:"customerTypeDisplay"`
	DeliveryMethod        int             `json:"deliveryMethod"`
	DeliveryMethodDisplay string          `json:"deliveryMethodDisplay"`
	Status                int             `json:"status"`
	StatusDisplay         string          `json:"statusDisplay"`
	IsCancelled           bool            `json:"isCancelled"`
	TotalWithVat          decimal.Decimal `json:"totalWithVat"`
	ItemCount             int             `json:"itemCount"`
}

// OrderLineDetail is one order line with its computed row totals.
type OrderLineDetail struct {
	ID                  uint            `json:"id"`
	ProductID           uint            `json:"productId"`
	ProductName         string          `json:"productName"`
	Quantity            decimal.Decimal `json:"quantity"`
	Unit                int             `json:"unit"`
	UnitDisplay         string          `json:"unitDisplay"`
	UnitPriceWithoutVat decimal.Decimal `json:"unitPriceWithoutVat"`
	VatAmount           decimal.Decimal `json:"vatAmount"`
	UnitPriceWithVat    decimal.Decimal `json:"unitPriceWithVat"`
	RowTotalWithoutVat  decimal.Decimal `json:"rowTotalWithoutVat"`
	RowVat              decimal.Decimal `json:"rowVat"`
	RowTotalWithVat     decimal.Decimal `json:"rowTotalWithVat"`
}

// OrderCustomerDetail exposes the customer snapshot stored with the order.
type OrderCustomerDetail struct {
	FullName       string `json:"fullName,omitempty"`
	Phone          string `json:"phone,omitempty"`
	Address        string `json:"address,omitempty"`
	CompanyName    string `json:"companyName,omitempty"`
	TaxID          string `json:"taxId,omitempty"`
	Representative string `json:"representative,omitempty"`
	ContactPerson  string `json:"contactPerson,omitempty"`
	ContactPhone   string `json:"contactPhone,omitempty"`
}

// OrderDetail is the full order view with totals computed on read.
type OrderDetail struct {
	ID                    uint                `json:"id"`
	OrderNumber           string              `json:"orderNumber"`
	CustomerType          int                 `json:"customerType"`
	CustomerTypeDisplay   string              `json:"customerTypeDisplay"`
	DeliveryMethod        int                 `json:"deliveryMethod"`
	DeliveryMethodDisplay string              `json:"deliveryMethodDisplay"`
	Status                int                 `json:"status"`
	StatusDisplay         string              `json:"statusDisplay"`
	IsCancelled           bool                `json:"isCancelled"`
	DeliveryFee           *decimal.Decimal    `json:"deliveryFee,omitempty"`
	CreatedAt             time.Time           `json:"createdAt"`
	ConfirmedAt           *time.Time          `json:"confirmedAt,omitempty"`
	CompletedAt           *time.Time          `json:"completedAt,omitempty"`
	UpdatedAt             time.Time           `json:"updatedAt"`
	CustomerInfo          OrderCustomerDetail `json:"customerInfo"`
	Items                 []OrderLineDetail   `json:"items"`
	SubtotalWithoutVat    decimal.Decimal     `json:"subtotalWithoutVat"`
	TotalVat              decimal.Decimal     `json:"totalVat"`
	SubtotalWithVat       decimal.Decimal     `json:"subtotalWithVat"`
	GrandTotal            decimal.Decimal     `json:"grandTotal"`
}

// OrderStats are the dashboard counters. Cancelled orders are excluded from
// the per-status counts.
type OrderStats struct {
	TotalProducts   int64 `json:"totalProducts"`
	PendingOrders   int64 `json:"pendingOrders"`
	ConfirmedOrders int64 `json:"confirmedOrders"`
	CompletedOrders int64 `json:"completedOrders"`
}

// GetAll returns a page of orders, newest first, optionally filtered by
// status.
func (s *OrderService) GetAll(status *int, page, pageSize int) (*Paginated[OrderListItem], error) {
	page, pageSize = clampPage(page, pageSize)

	query := s.db.Model(&models.Order{})
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var orders []models.Order
	err := query.Preload("CustomerInfo").Preload("Items").
		Order("created_at DESC").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}

	items := make([]OrderListItem, 0, len(orders))
	for i := range orders {
		items = append(items, listItem(&orders[i]))
	}
	return &Paginated[OrderListItem]{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// GetByID returns the full order detail with computed totals.
func (s *OrderService) GetByID(id uint) (*OrderDetail, error) {
	var order models.Order
	err := s.db.Preload("CustomerInfo").Preload("Items").First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	lines := make([]OrderLineDetail, 0, len(order.Items))
	for i := range order.Items {
		it := &order.Items[i]
		lines = append(lines, OrderLineDetail{
			ID:                  it.ID,
			ProductID:           it.ProductID,
			ProductName:         it.ProductName,
			Quantity:            it.Quantity,
			Unit:                int(it.Unit),
			UnitDisplay:         it.Unit.Display(),
			UnitPriceWithoutVat: it.UnitPriceWithoutVat,
			VatAmount:           it.VatAmount,
			UnitPriceWithVat:    it.UnitPriceWithVat,
			RowTotalWithoutVat:  it.RowTotalWithoutVat(),
			RowVat:              it.RowVat(),
			RowTotalWithVat:     it.RowTotalWithVat(),
		})
	}
	ci := order.CustomerInfo
	return &OrderDetail{
		ID:                    order.ID,
		OrderNumber:           order.OrderNumber,
		CustomerType:          int(order.CustomerType),
		CustomerTypeDisplay:   order.CustomerType.Display(),
		DeliveryMethod:        int(order.DeliveryMethod),
		DeliveryMethodDisplay: order.DeliveryMethod.Display(),
		Status:                int(order.Status),
		StatusDisplay:         order.Status.Display(),
		IsCancelled:           order.IsCancelled,
		DeliveryFee:           order.DeliveryFee,
		CreatedAt:             order.CreatedAt,
		ConfirmedAt:           order.ConfirmedAt,
		CompletedAt:           order.CompletedAt,
		UpdatedAt:             order.UpdatedAt,
		CustomerInfo: OrderCustomerDetail{
			FullName:       ci.FullName,
			Phone:          ci.Phone,
			Address:        ci.Address,
			CompanyName:    ci.CompanyName,
			TaxID:          ci.TaxID,
			Representative: ci.Representative,
			ContactPerson:  ci.ContactPerson,
			ContactPhone:   ci.ContactPhone,
		},
		Items:              lines,
		SubtotalWithoutVat: order.SubtotalWithoutVat(),
		TotalVat:           order.TotalVat(),
		SubtotalWithVat:    order.SubtotalWithVat(),
		GrandTotal:         order.GrandTotal(),
	}, nil
}

// GetStats returns the dashboard counters.
func (s *OrderService) GetStats() (*OrderStats, error) {
	var stats OrderStats
	if err := s.db.Model(&models.Product{}).Where("is_active = ?", true).
		Count(&stats.TotalProducts).Error; err != nil {
		return nil, err
	}
	counts := []struct {
		status models.OrderStatus
		dest   *int64
	}{
		{models.StatusPending, &stats.PendingOrders},
		{models.StatusConfirmed, &stats.ConfirmedOrders},
		{models.StatusCompleted, &stats.CompletedOrders},
	}
	for _, c := range counts {
		err := s.db.Model(&models.Order{}).
			Where("status = ? AND is_cancelled = ?", c.status, false).
			Count(c.dest).Error
		if err != nil {
			return nil, err
		}
	}
	return &stats, nil
}

// GetRecent returns the most recent orders; count is clamped to [1,20] and
// defaults to 5.
func (s *OrderService) GetRecent(count int) ([]OrderListItem, error) {
	if count < 1 {
		count = 5
	}
	if count > 20 {
		count = 20
	}
	var orders []models.Order
	err := s.db.Preload("CustomerInfo").Preload("Items").
		Order("created_at DESC").Limit(count).
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	items := make([]OrderListItem, 0, len(orders))
	for i := range orders {
		items = append(items, listItem(&orders[i]))
	}
	return items, nil
}

func listItem(o *models.Order) OrderListItem {
	return OrderListItem{
		ID:                    o.ID,
		OrderNumber:           o.OrderNumber,
		CreatedAt:             o.CreatedAt,
		CustomerName:          o.CustomerInfo.Name(o.CustomerType),
		CustomerType:          int(o.CustomerType),
		CustomerTypeDisplay:   o.CustomerType.Display(),
		DeliveryMethod:        int(o.DeliveryMethod),
		DeliveryMethodDisplay: o.DeliveryMethod.Display(),
		Status:                int(o.Status),
		StatusDisplay:         o.Status.Display(),
		IsCancelled:           o.IsCancelled,
		TotalWithVat:          o.GrandTotal(),
		ItemCount:             len(o.Items),
	}
}
