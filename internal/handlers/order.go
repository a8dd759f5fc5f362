package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/nsimpex/api/internal/httpx"
	"github.com/nsimpex/api/internal/services"
)

type OrderHandler struct {
	svc *services.OrderService
}

func NewOrderHandler(svc *services.OrderService) *OrderHandler {
	return &OrderHandler{svc: svc}
}

// Create: POST /api/orders — the only public write endpoint.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in services.CreateOrderInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	result, err := h.svc.Create(&in)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, result)
}

// List: GET /api/orders?status=&page=&pageSize=
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *int
	if v := r.URL.Query().Get("status"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			status = &n
		}
	}
	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "pageSize", 20)
	result, err := h.svc.GetAll(status, page, pageSize)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

// Stats: GET /api/orders/stats
func (h *OrderHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	stats, err := h.svc.GetStats()
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

// Recent: GET /api/orders/recent?count=
func (h *OrderHandler) Recent(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.GetRecent(queryInt(r, "count", 5))
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

// Get: GET /api/orders/{id}
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	detail, err := h.svc.GetByID(id)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, detail)
}

// Confirm: PUT /api/orders/{id}/confirm. A stock shortage is not an error but
// still answers 400 so clients render it as actionable feedback.
func (h *OrderHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	result, err := h.svc.Confirm(id)
	if err != nil {
		serviceError(w, err)
		return
	}
	if !result.Confirmed() {
		httpx.JSONError(w, http.StatusBadRequest, result.Message, result.Shortages)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": result.Message})
}

// Complete: PUT /api/orders/{id}/complete
func (h *OrderHandler) Complete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.svc.Complete(id); err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "order_completed"})
}

// Cancel: PUT /api/orders/{id}/cancel
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	if err := h.svc.Cancel(id); err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "order_cancelled"})
}

// SetDeliveryFee: PUT /api/orders/{id}/delivery-fee
func (h *OrderHandler) SetDeliveryFee(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_id", nil)
		return
	}
	var req struct {
		DeliveryFee decimal.Decimal `json:"deliveryFee"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.JSONError(w, http.StatusBadRequest, "invalid_json", nil)
		return
	}
	result, err := h.svc.SetDeliveryFee(id, req.DeliveryFee)
	if err != nil {
		serviceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}
