package services

import (
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/nsimpex/api/internal/models"
)

// CategoryService manages the category taxonomy.
type CategoryService struct {
	db *gorm.DB
}

func NewCategoryService(db *gorm.DB) *CategoryService { return &CategoryService{db: db} }

// CategoryView is the category projection with its product count.
type CategoryView struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	ProductCount int64     `json:"productCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// GetAll lists all categories by name.
func (s *CategoryService) GetAll() ([]CategoryView, error) {
	var categories []models.Category
	if err := s.db.Order("name").Find(&categories).Error; err != nil {
		return nil, err
	}
	items := make([]CategoryView, 0, len(categories))
	for i := range categories {
		view, err := s.view(&categories[i])
		if err != nil {
			return nil, err
		}
		items = append(items, *view)
	}
	return items, nil
}

// GetByID returns one category or ErrNotFound.
func (s *CategoryService) GetByID(id uint) (*CategoryView, error) {
	var category models.Category
	if err := s.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return s.view(&category)
}

// Create adds a category with a unique trimmed name.
func (s *CategoryService) Create(name string) (*CategoryView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "required")
	}
	var dup int64
	if err := s.db.Model(&models.Category{}).Where("name = ?", name).Count(&dup).Error; err != nil {
		return nil, err
	}
	if dup > 0 {
		return nil, invalid("name", "duplicate")
	}
	now := time.Now().UTC()
	category := models.Category{Name: name, CreatedAt: now, UpdatedAt: now}
	if err := s.db.Create(&category).Error; err != nil {
		return nil, err
	}
	return &CategoryView{ID: category.ID, Name: category.Name, CreatedAt: category.CreatedAt}, nil
}

// Update renames a category, keeping names unique.
func (s *CategoryService) Update(id uint, name string) (*CategoryView, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "required")
	}
	var category models.Category
	if err := s.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	var dup int64
	err := s.db.Model(&models.Category{}).
		Where("name = ? AND id <> ?", name, id).Count(&dup).Error
	if err != nil {
		return nil, err
	}
	if dup > 0 {
		return nil, invalid("name", "duplicate")
	}
	category.Name = name
	category.UpdatedAt = time.Now().UTC()
	if err := s.db.Save(&category).Error; err != nil {
		return nil, err
	}
	return s.view(&category)
}

// Delete removes a category. A category that still has products cannot be
// deleted; the FK restriction enforces the same at the database level.
func (s *CategoryService) Delete(id uint) error {
	var category models.Category
	if err := s.db.First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	var products int64
	err := s.db.Model(&models.Product{}).Where("category_id = ?", id).Count(&products).Error
	if err != nil {
		return err
	}
	if products > 0 {
		return invalid("id", "category_has_products")
	}
	return s.db.Delete(&category).Error
}

func (s *CategoryService) view(c *models.Category) (*CategoryView, error) {
	var count int64
	err := s.db.Model(&models.Product{}).Where("category_id = ?", c.ID).Count(&count).Error
	if err != nil {
		return nil, err
	}
	return &CategoryView{ID: c.ID, Name: c.Name, ProductCount: count, CreatedAt: c.CreatedAt}, nil
}
