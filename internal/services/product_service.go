package services

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/nsimpex/api/internal/models"
)

// ProductService manages the catalog. The order and delivery engines only
// ever touch a product's stock; everything else is managed here.
type ProductService struct {
	db *gorm.DB
}

func NewProductService(db *gorm.DB) *ProductService { return &ProductService{db: db} }

// ProductInput carries the writable product fields. PriceWithVat must equal
// PriceWithoutVat + VatAmount.
type ProductInput struct {
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	CategoryID      uint            `json:"categoryId"`
	PriceWithoutVat decimal.Decimal `json:"priceWithoutVat"`
	VatAmount       decimal.Decimal `json:"vatAmount"`
	PriceWithVat    decimal.Decimal `json:"priceWithVat"`
	Unit            int             `json:"unit"`
	StockQuantity   decimal.Decimal `json:"stockQuantity"`
}

// ProductView is the product projection returned by reads and writes.
type ProductView struct {
	ID              uint            `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	CategoryID      uint            `json:"categoryId"`
	CategoryName    string          `json:"categoryName"`
	PriceWithoutVat decimal.Decimal `json:"priceWithoutVat"`
	VatAmount       decimal.Decimal `json:"vatAmount"`
	PriceWithVat    decimal.Decimal `json:"priceWithVat"`
	Unit            int             `json:"unit"`
	UnitDisplay     string          `json:"unitDisplay"`
	StockQuantity   decimal.Decimal `json:"stockQuantity"`
	IsActive        bool            `json:"isActive"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

func (s *ProductService) validate(in *ProductInput) error {
	if strings.TrimSpace(in.Name) == "" {
		return invalid("name", "required")
	}
	if !models.Unit(in.Unit).Valid() {
		return invalid("unit", "unknown")
	}
	if in.PriceWithoutVat.IsNegative() || in.VatAmount.IsNegative() {
		return invalid("priceWithoutVat", "must_not_be_negative")
	}
	if !in.PriceWithVat.Equal(in.PriceWithoutVat.Add(in.VatAmount)) {
		return invalid("priceWithVat", "must_equal_price_without_vat_plus_vat")
	}
	if in.StockQuantity.IsNegative() {
		return invalid("stockQuantity", "must_not_be_negative")
	}
	return nil
}

// Create adds a new active product to the catalog.
func (s *ProductService) Create(in *ProductInput) (*ProductView, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)

	var category models.Category
	if err := s.db.First(&category, in.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("categoryId", "category_not_found")
		}
		return nil, err
	}
	var dup int64
	err := s.db.Model(&models.Product{}).
		Where("name = ? AND category_id = ?", name, in.CategoryID).
		Count(&dup).Error
	if err != nil {
		return nil, err
	}
	if dup > 0 {
		return nil, invalid("name", "duplicate_in_category")
	}

	now := time.Now().UTC()
	product := models.Product{
		Name:            name,
		Description:     in.Description,
		CategoryID:      in.CategoryID,
		PriceWithoutVat: in.PriceWithoutVat,
		VatAmount:       in.VatAmount,
		PriceWithVat:    in.PriceWithVat,
		Unit:            models.Unit(in.Unit),
		StockQuantity:   in.StockQuantity,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.db.Create(&product).Error; err != nil {
		return nil, err
	}
	product.Category = category
	return productView(&product), nil
}

// Update replaces the writable fields of an existing product.
func (s *ProductService) Update(id uint, in *ProductInput) (*ProductView, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)

	var product models.Product
	if err := s.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var category models.Category
	if err := s.db.First(&category, in.CategoryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("categoryId", "category_not_found")
		}
		return nil, err
	}
	var dup int64
	err := s.db.Model(&models.Product{}).
		Where("name = ? AND category_id = ? AND id <> ?", name, in.CategoryID, id).
		Count(&dup).Error
	if err != nil {
		return nil, err
	}
	if dup > 0 {
		return nil, invalid("name", "duplicate_in_category")
	}

	product.Name = name
	product.Description = in.Description
	product.CategoryID = in.CategoryID
	product.PriceWithoutVat = in.PriceWithoutVat
	product.VatAmount = in.VatAmount
	product.PriceWithVat = in.PriceWithVat
	product.Unit = models.Unit(in.Unit)
	product.StockQuantity = in.StockQuantity
	product.UpdatedAt = time.Now().UTC()
	if err := s.db.Save(&product).Error; err != nil {
		return nil, err
	}
	product.Category = category
	return productView(&product), nil
}

// Deactivate marks a product inactive. Products are never deleted because
// historical order items reference them.
func (s *ProductService) Deactivate(id uint) error {
	var product models.Product
	if err := s.db.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	return s.db.Model(&product).
		Updates(map[string]any{"is_active": false, "updated_at": time.Now().UTC()}).Error
}

// GetAll returns a page of products ordered by name, optionally filtered by
// category and name substring. Inactive products are hidden unless requested.
func (s *ProductService) GetAll(categoryID *uint, search string, page, pageSize int, includeInactive bool) (*Paginated[ProductView], error) {
	page, pageSize = clampPage(page, pageSize)

	query := s.db.Model(&models.Product{})
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}
	if categoryID != nil {
		query = query.Where("category_id = ?", *categoryID)
	}
	if search = strings.TrimSpace(search); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var products []models.Product
	err := query.Preload("Category").
		Order("name").
		Limit(pageSize).Offset((page - 1) * pageSize).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	items := make([]ProductView, 0, len(products))
	for i := range products {
		items = append(items, *productView(&products[i]))
	}
	return &Paginated[ProductView]{
		Items:      items,
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// GetByID returns one product or ErrNotFound.
func (s *ProductService) GetByID(id uint) (*ProductView, error) {
	var product models.Product
	err := s.db.Preload("Category").First(&product, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return productView(&product), nil
}

// GetLowStock lists active products at or below the threshold, lowest stock
// first.
func (s *ProductService) GetLowStock(threshold decimal.Decimal) ([]ProductView, error) {
	var products []models.Product
	err := s.db.Preload("Category").
		Where("is_active = ? AND stock_quantity <= ?", true, threshold).
		Order("stock_quantity").
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	items := make([]ProductView, 0, len(products))
	for i := range products {
		items = append(items, *productView(&products[i]))
	}
	return items, nil
}

func productView(p *models.Product) *ProductView {
	return &ProductView{
		ID:              p.ID,
		Name:            p.Name,
		Description:     p.Description,
		CategoryID:      p.CategoryID,
		CategoryName:    p.Category.Name,
		PriceWithoutVat: p.PriceWithoutVat,
		VatAmount:       p.VatAmount,
		PriceWithVat:    p.PriceWithVat,
		Unit:            int(p.Unit),
		UnitDisplay:     p.Unit.Display(),
		StockQuantity:   p.StockQuantity,
		IsActive:        p.IsActive,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}
