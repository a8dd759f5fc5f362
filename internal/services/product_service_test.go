package services

import (
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nsimpex/api/internal/models"
)

func setupCatalogTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Category{}, &models.Product{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedCategory(t *testing.T, db *gorm.DB, name string) models.Category {
	t.Helper()
	c := models.Category{Name: name}
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("category %s: %v", name, err)
	}
	return c
}

func productInput(name string, categoryID uint) *ProductInput {
	return &ProductInput{
		Name:            name,
		CategoryID:      categoryID,
		PriceWithoutVat: decimal.RequireFromString("100.00"),
		VatAmount:       decimal.RequireFromString("20.00"),
		PriceWithVat:    decimal.RequireFromString("120.00"),
		Unit:            int(models.UnitKg),
		StockQuantity:   decimal.RequireFromString("5"),
	}
}

func TestProductCreateValidation(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := NewProductService(db)
	c := seedCategory(t, db, "Granite")

	in := productInput("", c.ID)
	if _, err := svc.Create(in); err == nil {
		t.Fatalf("empty name accepted")
	}

	in = productInput("Slab", c.ID)
	in.Unit = 9
	_, err := svc.Create(in)
	ve, ok := AsValidation(err)
	if !ok || ve.Field != "unit" {
		t.Fatalf("expected unit violation, got %v", err)
	}

	// The VAT split must add up.
	in = productInput("Slab", c.ID)
	in.PriceWithVat = decimal.RequireFromString("119.99")
	_, err = svc.Create(in)
	ve, ok = AsValidation(err)
	if !ok || ve.Reason != "must_equal_price_without_vat_plus_vat" {
		t.Fatalf("expected price sum violation, got %v", err)
	}

	in = productInput("Slab", 9999)
	_, err = svc.Create(in)
	ve, ok = AsValidation(err)
	if !ok || ve.Reason != "category_not_found" {
		t.Fatalf("expected category_not_found, got %v", err)
	}
}

func TestProductDuplicateNamePerCategory(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := NewProductService(db)
	granite := seedCategory(t, db, "Granite")
	marble := seedCategory(t, db, "Marble")

	if _, err := svc.Create(productInput("Slab", granite.ID)); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.Create(productInput("Slab", granite.ID))
	ve, ok := AsValidation(err)
	if !ok || ve.Reason != "duplicate_in_category" {
		t.Fatalf("expected duplicate_in_category, got %v", err)
	}
	// Same name in another category is fine.
	if _, err := svc.Create(productInput("Slab", marble.ID)); err != nil {
		t.Fatalf("cross-category create: %v", err)
	}
}

func TestProductUpdate(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := NewProductService(db)
	c := seedCategory(t, db, "Granite")

	created, err := svc.Create(productInput("Slab", c.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	in := productInput("Polished Slab", c.ID)
	in.StockQuantity = decimal.RequireFromString("12.5")
	updated, err := svc.Update(created.ID, in)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Polished Slab" || !updated.StockQuantity.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("unexpected update %+v", updated)
	}

	if _, err := svc.Update(9999, productInput("X", c.ID)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestProductDeactivateAndListing(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := NewProductService(db)
	c := seedCategory(t, db, "Granite")

	created, err := svc.Create(productInput("Slab", c.ID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(productInput("Block", c.ID)); err != nil {
		t.Fatalf("create second: %v", err)
	}

	if err := svc.Deactivate(created.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	// Deactivation hides, never deletes.
	var raw models.Product
	if err := db.First(&raw, created.ID).Error; err != nil {
		t.Fatalf("deactivated product gone: %v", err)
	}
	if raw.IsActive {
		t.Fatalf("product still active")
	}

	page, err := svc.GetAll(nil, "", 1, 20, false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 1 || page.Items[0].Name != "Block" {
		t.Fatalf("inactive product listed: %+v", page)
	}

	all, err := svc.GetAll(nil, "", 1, 20, true)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if all.TotalCount != 2 {
		t.Fatalf("expected 2 with inactive, got %d", all.TotalCount)
	}

	bySearch, err := svc.GetAll(nil, "blo", 1, 20, false)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if bySearch.TotalCount != 1 || bySearch.Items[0].Name != "Block" {
		t.Fatalf("unexpected search result %+v", bySearch)
	}
}

func TestProductLowStock(t *testing.T) {
	db := setupCatalogTestDB(t)
	svc := NewProductService(db)
	c := seedCategory(t, db, "Granite")

	low := productInput("Low", c.ID)
	low.StockQuantity = decimal.RequireFromString("2")
	if _, err := svc.Create(low); err != nil {
		t.Fatalf("create low: %v", err)
	}
	high := productInput("High", c.ID)
	high.StockQuantity = decimal.RequireFromString("50")
	if _, err := svc.Create(high); err != nil {
		t.Fatalf("create high: %v", err)
	}
	edge := productInput("Edge", c.ID)
	edge.StockQuantity = decimal.RequireFromString("10")
	if _, err := svc.Create(edge); err != nil {
		t.Fatalf("create edge: %v", err)
	}

	items, err := svc.GetLowStock(decimal.RequireFromString("10"))
	if err != nil {
		t.Fatalf("low stock: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 low-stock products, got %d", len(items))
	}
	// Lowest stock first; the threshold itself is included.
	if items[0].Name != "Low" || items[1].Name != "Edge" {
		t.Fatalf("unexpected order %+v", items)
	}
}
