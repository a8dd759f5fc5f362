package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/nsimpex/api/internal/httpx"
	"github.com/nsimpex/api/internal/services"
)

type ProductHandler struct {
	svc *services.ProductService
}

func NewProductHandler(svc *services.ProductService) *ProductHandler {
	return &ProductHandler{svc: svc}
}

// List: GET /api/products?categoryId=&q=&page=&pageSize=&includeInactive=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	var categoryID *uint
	if v := r.URL.Query().Get("categoryId"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 32); err == nil {
			id := uint(n)
			categoryID = &id
		}
	}
	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("includeInactive"))
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", 20)
	result, err := h.svc.GetAll(categoryID, r.URL.Query().Get("q"), page, pageSize, includeInactive)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// LowStock: GET /api/products/low-stock?threshold=
func (h *ProductHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	threshold := decimal.NewFromInt(10)
	if v := r.URL.Query().Get("threshold"); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			threshold = d
		}
	}
	items, err := h.svc.GetLowStock(threshold)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

// Get: GET /api/products/{id}
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	product, err := h.svc.GetByID(id)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

// Create: POST /api/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	product, err := h.svc.Create(&in)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, product)
}

// Update: PUT /api/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var in services.ProductInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	product, err := h.svc.Update(id, &in)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, product)
}

// Delete: DELETE /api/products/{id} — deactivates, never removes, because
// order items keep the product reference.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.svc.Deactivate(id); err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "product_deactivated"})
}
