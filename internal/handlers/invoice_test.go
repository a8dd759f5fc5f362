package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nsimpex/api/internal/models"
	"github.com/nsimpex/api/internal/services"
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

func TestInvoiceCreateEndpoint(t *testing.T) {
	db := setupInvoiceTestDB(t)
	p := seedOrderFixtures(t, db, "10")
	h := NewInvoiceHandler(services.NewInvoiceService(db))

	yesterday := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)
	body := `{"supplierName":"Balkan Quarries Ltd","invoiceNumber":"INV-7","invoiceDate":"` + yesterday + `",` +
		`"items":[{"productId":` + strconv.Itoa(int(p.ID)) + `,"quantity":"5.5","purchasePrice":"40.00"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/invoices", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	var created map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created["message"] != "delivery_recorded" {
		t.Fatalf("unexpected message %v", created["message"])
	}

	var after models.Product
	db.First(&after, p.ID)
	if !after.StockQuantity.Equal(decimal.RequireFromString("15.5")) {
		t.Fatalf("expected stock 15.5, got %s", after.StockQuantity)
	}
}

func TestInvoiceCreateEndpointValidation(t *testing.T) {
	db := setupInvoiceTestDB(t)
	seedOrderFixtures(t, db, "10")
	h := NewInvoiceHandler(services.NewInvoiceService(db))

	body := `{"supplierName":"B","invoiceNumber":"INV-7","items":[{"productId":1,"quantity":"1","purchasePrice":"1"}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/invoices", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.Create(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", w.Code)
	}
	var resp struct {
		Error   string            `json:"error"`
		Details map[string]string `json:"details"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Error != "validation_failed" || resp.Details["supplierName"] != "min_2_chars" {
		t.Fatalf("unexpected payload %s", w.Body.String())
	}
}

func TestInvoiceListAndGetEndpoints(t *testing.T) {
	db := setupInvoiceTestDB(t)
	p := seedOrderFixtures(t, db, "10")
	svc := services.NewInvoiceService(db)
	h := NewInvoiceHandler(svc)

	created, err := svc.Create(&services.CreateInvoiceInput{
		SupplierName:  "Balkan Quarries Ltd",
		InvoiceNumber: "INV-7",
		InvoiceDate:   time.Now().UTC().Add(-time.Hour),
		Items: []services.InvoiceItemInput{
			{ProductID: p.ID, Quantity: decimal.RequireFromString("4"), PurchasePrice: decimal.RequireFromString("30.00")},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/invoices?page=1&pageSize=10", nil)
	listW := httptest.NewRecorder()
	h.List(listW, listReq)
	if listW.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", listW.Code)
	}
	var page struct {
		Items      []map[string]any `json:"items"`
		TotalCount int64            `json:"totalCount"`
	}
	if err := json.Unmarshal(listW.Body.Bytes(), &page); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if page.TotalCount != 1 || len(page.Items) != 1 {
		t.Fatalf("unexpected page %s", listW.Body.String())
	}

	getReq := httptest.NewRequest(http.MethodGet, "/api/invoices/1", nil)
	getReq.SetPathValue("id", strconv.Itoa(int(created.ID)))
	getW := httptest.NewRecorder()
	h.Get(getW, getReq)
	if getW.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", getW.Code)
	}
	if !strings.Contains(getW.Body.String(), "Balkan Quarries Ltd") {
		t.Fatalf("detail missing supplier: %s", getW.Body.String())
	}

	missing := httptest.NewRequest(http.MethodGet, "/api/invoices/999", nil)
	missing.SetPathValue("id", "999")
	missW := httptest.NewRecorder()
	h.Get(missW, missing)
	if missW.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", missW.Code)
	}
}
