package services

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nsimpex/api/internal/models"
)

func setupInvoiceTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	err = db.AutoMigrate(&models.Category{}, &models.Product{}, &models.Invoice{}, &models.InvoiceItem{})
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func deliveryInput(items ...InvoiceItemInput) *CreateInvoiceInput {
	return &CreateInvoiceInput{
		SupplierName:  "Balkan Quarries Ltd",
		InvoiceNumber: "INV-2026-001",
		InvoiceDate:   time.Now().UTC().Add(-24 * time.Hour),
		Items:         items,
	}
}

func TestCreateInvoiceValidation(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := NewInvoiceService(db)
	p := seedProduct(t, db, "Slab", "10", models.UnitSqm)

	cases := []struct {
		name   string
		mutate func(*CreateInvoiceInput)
		field  string
		reason string
	}{
		{"short supplier", func(in *CreateInvoiceInput) { in.SupplierName = "A" }, "supplierName", "min_2_chars"},
		{"long supplier", func(in *CreateInvoiceInput) { in.SupplierName = strings.Repeat("x", 201) }, "supplierName", "max_200_chars"},
		{"missing number", func(in *CreateInvoiceInput) { in.InvoiceNumber = "  " }, "invoiceNumber", "required"},
		{"long number", func(in *CreateInvoiceInput) { in.InvoiceNumber = strings.Repeat("9", 51) }, "invoiceNumber", "max_50_chars"},
		{"future date", func(in *CreateInvoiceInput) { in.InvoiceDate = time.Now().UTC().Add(48 * time.Hour) }, "invoiceDate", "must_not_be_in_future"},
		{"no items", func(in *CreateInvoiceInput) { in.Items = nil }, "items", "required"},
		{"zero quantity", func(in *CreateInvoiceInput) { in.Items[0].Quantity = qty("0") }, "items", "quantity_must_be_positive"},
		{"negative price", func(in *CreateInvoiceInput) { in.Items[0].PurchasePrice = qty("-1") }, "items", "purchase_price_must_not_be_negative"},
		{"unknown product", func(in *CreateInvoiceInput) { in.Items[0].ProductID = 9999 }, "items", "product_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := deliveryInput(InvoiceItemInput{ProductID: p.ID, Quantity: qty("5"), PurchasePrice: qty("40.00")})
			tc.mutate(in)
			_, err := svc.Create(in)
			ve, ok := AsValidation(err)
			if !ok {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ve.Field != tc.field || ve.Reason != tc.reason {
				t.Fatalf("expected %s/%s got %s/%s", tc.field, tc.reason, ve.Field, ve.Reason)
			}
		})
	}

	var count int64
	db.Model(&models.Invoice{}).Count(&count)
	if count != 0 {
		t.Fatalf("no invoice should be persisted on validation failure, found %d", count)
	}
	var after models.Product
	db.First(&after, p.ID)
	if !after.StockQuantity.Equal(qty("10")) {
		t.Fatalf("stock changed on validation failure: %s", after.StockQuantity)
	}
}

func TestCreateInvoiceIncrementsStock(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := NewInvoiceService(db)
	a := seedProduct(t, db, "Granite A", "10", models.UnitKg)
	b := seedProduct(t, db, "Granite B", "2.5", models.UnitKg)
	untouched := seedProduct(t, db, "Marble", "7", models.UnitSqm)

	result, err := svc.Create(deliveryInput(
		InvoiceItemInput{ProductID: a.ID, Quantity: qty("15.5"), PurchasePrice: qty("40.00")},
		InvoiceItemInput{ProductID: b.ID, Quantity: qty("3"), PurchasePrice: qty("55.00")},
	))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if result.Message != "delivery_recorded" || result.ID == 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	var afterA, afterB, afterU models.Product
	db.First(&afterA, a.ID)
	db.First(&afterB, b.ID)
	db.First(&afterU, untouched.ID)
	if !afterA.StockQuantity.Equal(qty("25.5")) {
		t.Fatalf("expected A stock 25.5, got %s", afterA.StockQuantity)
	}
	if !afterB.StockQuantity.Equal(qty("5.5")) {
		t.Fatalf("expected B stock 5.5, got %s", afterB.StockQuantity)
	}
	if !afterU.StockQuantity.Equal(qty("7")) {
		t.Fatalf("unrelated product stock changed: %s", afterU.StockQuantity)
	}
}

func TestCreateInvoiceRejectsInactiveProduct(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := NewInvoiceService(db)
	p := seedProduct(t, db, "Old Slab", "10", models.UnitSqm)
	if err := db.Model(&p).Update("is_active", false).Error; err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := svc.Create(deliveryInput(InvoiceItemInput{ProductID: p.ID, Quantity: qty("1"), PurchasePrice: qty("1")}))
	ve, ok := AsValidation(err)
	if !ok || ve.Reason != "product_inactive:Old Slab" {
		t.Fatalf("expected inactive rejection, got %v", err)
	}
}

func TestInvoiceListAndDetail(t *testing.T) {
	db := setupInvoiceTestDB(t)
	svc := NewInvoiceService(db)
	p := seedProduct(t, db, "Slab", "10", models.UnitSqm)

	in := deliveryInput(InvoiceItemInput{ProductID: p.ID, Quantity: qty("4"), PurchasePrice: qty("30.00")})
	created, err := svc.Create(in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	page, err := svc.GetAll(1, 20)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.TotalCount != 1 || len(page.Items) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	item := page.Items[0]
	if item.TotalItems != 1 || !item.TotalQuantity.Equal(qty("4")) || !item.InvoiceTotal.Equal(qty("120.00")) {
		t.Fatalf("unexpected list item %+v", item)
	}

	detail, err := svc.GetByID(created.ID)
	if err != nil {
		t.Fatalf("detail: %v", err)
	}
	if detail.SupplierName != "Balkan Quarries Ltd" || len(detail.Items) != 1 {
		t.Fatalf("unexpected detail %+v", detail)
	}
	line := detail.Items[0]
	if line.ProductName != "Slab" || line.UnitDisplay != "m²" || !line.RowTotal.Equal(qty("120.00")) {
		t.Fatalf("unexpected line %+v", line)
	}

	if _, err := svc.GetByID(9999); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
