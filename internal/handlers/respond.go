package handlers

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/nsimpex/api/internal/httpx"
	"github.com/nsimpex/api/internal/services"
)

// pathID parses the {id} path segment.
func pathID(r *http.Request) (uint, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// serviceError maps service outcomes onto the JSON error envelope: validation
// and state errors are 400 with stable codes, missing resources are 404, and
// anything else is an infrastructure fault logged and reported generically.
func serviceError(w http.ResponseWriter, err error) {
	if errors.Is(err, services.ErrNotFound) {
		httpx.JSONError(w, http.StatusNotFound, "not_found", nil)
		return
	}
	if errors.Is(err, services.ErrOrderNumberExhausted) {
		httpx.JSONError(w, http.StatusConflict, "order_number_exhausted", nil)
		return
	}
	if ve, ok := services.AsValidation(err); ok {
		httpx.JSONError(w, http.StatusBadRequest, "validation_failed", map[string]string{ve.Field: ve.Reason})
		return
	}
	if se, ok := services.AsState(err); ok {
		httpx.JSONError(w, http.StatusBadRequest, se.Reason, nil)
		return
	}
	log.Printf("internal error: %v", err)
	httpx.JSONError(w, http.StatusInternalServerError, "internal_error", nil)
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
