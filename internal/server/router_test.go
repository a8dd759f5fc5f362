package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/nsimpex/api/internal/auth"
	"github.com/nsimpex/api/internal/db"
	"github.com/nsimpex/api/internal/models"
)

func setupRouterTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return conn
}

func sessionCookie(t *testing.T, conn *gorm.DB) *http.Cookie {
	t.Helper()
	user := models.AdminUser{Username: "admin", PasswordHash: "x"}
	if err := conn.Create(&user).Error; err != nil {
		t.Fatalf("user: %v", err)
	}
	w := httptest.NewRecorder()
	auth.CreateSession(w, user.ID)
	return w.Result().Cookies()[0]
}

func TestRouterAuthGating(t *testing.T) {
	conn := setupRouterTestDB(t)
	handler := New(conn)
	cookie := sessionCookie(t, conn)

	// Management endpoints reject anonymous requests.
	anon := httptest.NewRecorder()
	handler.ServeHTTP(anon, httptest.NewRequest(http.MethodGet, "/api/orders", nil))
	if anon.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", anon.Code)
	}

	authed := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.AddCookie(cookie)
	handler.ServeHTTP(authed, req)
	if authed.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", authed.Code, authed.Body.String())
	}

	// A session for a deleted user is rejected and cleared.
	if err := conn.Where("username = ?", "admin").Delete(&models.AdminUser{}).Error; err != nil {
		t.Fatalf("delete user: %v", err)
	}
	stale := httptest.NewRecorder()
	staleReq := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	staleReq.AddCookie(cookie)
	handler.ServeHTTP(stale, staleReq)
	if stale.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for stale session, got %d", stale.Code)
	}
}

func TestRouterPublicOrderPlacement(t *testing.T) {
	conn := setupRouterTestDB(t)
	handler := New(conn)

	category := models.Category{Name: "Granite"}
	if err := conn.Create(&category).Error; err != nil {
		t.Fatalf("category: %v", err)
	}
	p := models.Product{
		Name:            "Slab",
		CategoryID:      category.ID,
		PriceWithoutVat: decimal.RequireFromString("100.00"),
		VatAmount:       decimal.RequireFromString("20.00"),
		PriceWithVat:    decimal.RequireFromString("120.00"),
		Unit:            models.UnitSqm,
		StockQuantity:   decimal.RequireFromString("10"),
		IsActive:        true,
	}
	if err := conn.Create(&p).Error; err != nil {
		t.Fatalf("product: %v", err)
	}

	body := fmt.Sprintf(`{"customerType":0,"deliveryMethod":0,`+
		`"customerInfo":{"fullName":"Ivan Petrov","phone":"0888123456"},`+
		`"items":[{"productId":%d,"quantity":2}]}`, p.ID)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/orders", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "NSI-") {
		t.Fatalf("order number missing: %s", w.Body.String())
	}
}

func TestRouterCatalogIsPublicReadOnly(t *testing.T) {
	conn := setupRouterTestDB(t)
	handler := New(conn)

	reads := []string{"/api/products", "/api/categories", "/api/products/low-stock"}
	for _, path := range reads {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s expected 200 got %d", path, w.Code)
		}
	}

	// Writes stay behind the session.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/categories", strings.NewReader(`{"name":"Granite"}`))
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", w.Code)
	}
}

func TestRouterHealth(t *testing.T) {
	conn := setupRouterTestDB(t)
	handler := New(conn)

	for _, path := range []string{"/health", "/healthz"} {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK {
			t.Fatalf("GET %s expected 200 got %d", path, w.Code)
		}
	}
}
