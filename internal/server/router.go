package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"gorm.io/gorm"

	"github.com/nsimpex/api/internal/auth"
	"github.com/nsimpex/api/internal/handlers"
	"github.com/nsimpex/api/internal/httpx"
	"github.com/nsimpex/api/internal/models"
	"github.com/nsimpex/api/internal/services"
)

// New constructs the root http.Handler with all routes and middlewares applied.
func New(db *gorm.DB) http.Handler {
	mux := http.NewServeMux()

	// RequireAuth checks that the session's user still exists.
	auth.SetUserVerifier(func(_ context.Context, uid uint) bool {
		var count int64
		if err := db.Model(&models.AdminUser{}).Where("id = ?", uid).Limit(1).Count(&count).Error; err != nil {
			return false
		}
		return count > 0
	})

	// --- Health endpoints ---
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		// Lightweight DB check (SELECT 1) – detailed errors stay out of the body.
		if err := db.Exec("SELECT 1").Error; err != nil {
			httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	ah := handlers.NewAuthHandler(db)
	mux.HandleFunc("POST /api/auth/login", ah.Login)
	mux.HandleFunc("POST /api/auth/logout", ah.Logout)

	// Order placement is the single public write endpoint; everything else on
	// the order surface is management-only.
	oh := handlers.NewOrderHandler(services.NewOrderService(db))
	mux.HandleFunc("POST /api/orders", oh.Create)
	mux.Handle("GET /api/orders", protected(oh.List))
	mux.Handle("GET /api/orders/stats", protected(oh.Stats))
	mux.Handle("GET /api/orders/recent", protected(oh.Recent))
	mux.Handle("GET /api/orders/{id}", protected(oh.Get))
	mux.Handle("PUT /api/orders/{id}/confirm", protected(oh.Confirm))
	mux.Handle("PUT /api/orders/{id}/complete", protected(oh.Complete))
	mux.Handle("PUT /api/orders/{id}/cancel", protected(oh.Cancel))
	mux.Handle("PUT /api/orders/{id}/delivery-fee", protected(oh.SetDeliveryFee))

	ih := handlers.NewInvoiceHandler(services.NewInvoiceService(db))
	mux.Handle("GET /api/invoices", protected(ih.List))
	mux.Handle("POST /api/invoices", protected(ih.Create))
	mux.Handle("GET /api/invoices/{id}", protected(ih.Get))

	ph := handlers.NewProductHandler(services.NewProductService(db))
	mux.HandleFunc("GET /api/products", ph.List)
	mux.HandleFunc("GET /api/products/low-stock", ph.LowStock)
	mux.HandleFunc("GET /api/products/{id}", ph.Get)
	mux.Handle("POST /api/products", protected(ph.Create))
	mux.Handle("PUT /api/products/{id}", protected(ph.Update))
	mux.Handle("DELETE /api/products/{id}", protected(ph.Delete))

	ch := handlers.NewCategoryHandler(services.NewCategoryService(db))
	mux.HandleFunc("GET /api/categories", ch.List)
	mux.HandleFunc("GET /api/categories/{id}", ch.Get)
	mux.Handle("POST /api/categories", protected(ch.Create))
	mux.Handle("PUT /api/categories/{id}", protected(ch.Update))
	mux.Handle("DELETE /api/categories/{id}", protected(ch.Delete))

	return auth.Middleware(withRecover(withLogging(mux)))
}

func protected(h http.HandlerFunc) http.Handler {
	return auth.RequireAuth(h)
}

func withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}

func withRecover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				log.Printf("panic serving %s %s: %v", r.Method, r.URL.Path, rec)
				httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
