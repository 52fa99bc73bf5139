package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/xela07ax/vehicle-health-pipeline/internal/console/service"
)

type FleetHandler struct {
	service *service.FleetService
}

func NewFleetHandler(s *service.FleetService) *FleetHandler {
	return &FleetHandler{service: s}
}

// List GET /v1/fleet?size=...
func (h *FleetHandler) List(w http.ResponseWriter, r *http.Request) {
	size := 0
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			http.Error(w, "size must be a non-negative integer", http.StatusBadRequest)
			return
		}
		size = n
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.service.Summaries(size))
}

// Strategy GET /v1/strategy?fault_type=...
func (h *FleetHandler) Strategy(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(h.service.Strategy(r.URL.Query().Get("fault_type")))
}
